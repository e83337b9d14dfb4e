package core

import (
	"strings"
	"time"
)

// DefaultWindowSpan is the length of the fallback query window (two years).
const DefaultWindowSpan = 730 * 24 * time.Hour

const isoDateLayout = "2006-01-02"

// DateWindow is a validated departure window.
// Valid is false when the inputs were rejected and From/To hold the defaults.
type DateWindow struct {
	From  time.Time
	To    time.Time
	Valid bool
}

// PeriodRange returns the window bounds as period keys.
func (w DateWindow) PeriodRange() (string, string) {
	return PeriodKey(w.From), PeriodKey(w.To)
}

// ValidateDateWindow checks an optional ISO date window against today.
//
// Either bound unset or malformed, from >= to, or either bound not strictly after
// today all produce the default window (today, today+730 days) marked invalid.
// Otherwise the parsed bounds are returned marked valid. The function is pure:
// identical inputs and today always give the same result.
func ValidateDateWindow(dateFrom, dateTo string, today time.Time) DateWindow {
	day := CivilDate(today)
	fallback := DateWindow{
		From:  day,
		To:    day.Add(DefaultWindowSpan),
		Valid: false,
	}

	from, okFrom := parseISODate(dateFrom)
	to, okTo := parseISODate(dateTo)
	if !okFrom || !okTo {
		return fallback
	}
	if !from.Before(to) {
		return fallback
	}
	if !from.After(day) || !to.After(day) {
		return fallback
	}

	return DateWindow{From: from, To: to, Valid: true}
}

func parseISODate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(isoDateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// sourceLayouts are the timestamp shapes seen in catalog date ranges.
var sourceLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	isoDateLayout,
}

// ParseSourceDate parses a catalog date. A trailing "Z" is treated as UTC and the
// value keeps its own calendar date regardless of zone.
func ParseSourceDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrEmptyDate
	}
	var lastErr error
	for _, layout := range sourceLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
