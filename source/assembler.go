package source

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/cruisekb/core"
)

// EntityRow is an entity as stored upstream, with its attribute tree still encoded.
type EntityRow struct {
	ID   string
	Code string
	Info []byte
}

// FactRow is one date range record as stored upstream.
type FactRow struct {
	EntityID string
	RangeID  string
	Info     []byte
}

// Assembler groups fact rows under their entities.
type Assembler struct {
	logger *slog.Logger
}

// NewAssembler creates an Assembler. A nil logger uses slog.Default().
func NewAssembler(logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{logger: logger}
}

// Assemble decodes entity rows and attaches the matching facts in row order.
// Malformed entities and facts are logged, dropped and counted. Facts whose
// entity is not part of the batch are ignored.
func (a *Assembler) Assemble(entities []EntityRow, facts []FactRow) *Batch {
	batch := &Batch{Entities: make([]*core.Entity, 0, len(entities))}
	byID := make(map[string]*core.Entity, len(entities))

	for _, row := range entities {
		entity, err := ParseEntity(row)
		if err != nil {
			a.logger.Warn("skipping malformed entity", "entity_id", row.ID, "err", err)
			batch.Skipped++
			continue
		}
		if _, dup := byID[entity.ID]; dup {
			continue
		}
		byID[entity.ID] = entity
		batch.Entities = append(batch.Entities, entity)
	}

	for _, row := range facts {
		entity, ok := byID[row.EntityID]
		if !ok {
			continue
		}
		fact, err := ParseFact(row)
		if err != nil {
			a.logger.Warn("skipping malformed fact", "entity_id", row.EntityID, "range_id", row.RangeID, "err", err)
			batch.Skipped++
			continue
		}
		entity.Facts = append(entity.Facts, fact)
	}

	return batch
}

// ParseEntity decodes an entity row.
func ParseEntity(row EntityRow) (*core.Entity, error) {
	id := strings.TrimSpace(row.ID)
	if id == "" {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, core.ErrEmptyID)
	}

	var info core.Tree
	if len(row.Info) > 0 {
		var err error
		info, err = core.ParseTree(row.Info)
		if err != nil {
			return nil, fmt.Errorf("%w: cruise_info: %w", ErrMalformedRecord, err)
		}
	}

	return &core.Entity{
		ID:   id,
		Code: strings.TrimSpace(row.Code),
		Info: info,
	}, nil
}

// ParseFact decodes a date range record of the form
//
//	{"minPrice": {"2": 1290}, "dateRange": {"begin_date": "...", "end_date": "..."}}
//
// Missing dates leave Begin or End zero. Prices that are not numbers are dropped.
func ParseFact(row FactRow) (core.DateRangeFact, error) {
	fact := core.DateRangeFact{
		EntityID: strings.TrimSpace(row.EntityID),
		RangeID:  strings.TrimSpace(row.RangeID),
	}
	if fact.RangeID == "" {
		return fact, fmt.Errorf("%w: %w", ErrMalformedRecord, core.ErrEmptyID)
	}

	info, err := core.ParseTree(row.Info)
	if err != nil {
		return fact, fmt.Errorf("%w: cruise_date_range_info: %w", ErrMalformedRecord, err)
	}

	prices := info.Get("minPrice")
	for _, currency := range prices.Keys() {
		if price, ok := prices.Get(currency).Float(); ok {
			if fact.MinPrices == nil {
				fact.MinPrices = make(map[string]float64)
			}
			fact.MinPrices[currency] = price
		}
	}

	dateRange := info.Get("dateRange")
	if fact.Begin, err = parseOptionalDate(dateRange.Get("begin_date")); err != nil {
		return fact, fmt.Errorf("%w: begin_date: %w", ErrMalformedRecord, err)
	}
	if fact.End, err = parseOptionalDate(dateRange.Get("end_date")); err != nil {
		return fact, fmt.Errorf("%w: end_date: %w", ErrMalformedRecord, err)
	}

	return fact, nil
}

func parseOptionalDate(node core.Tree) (time.Time, error) {
	s := strings.TrimSpace(node.String())
	if s == "" {
		return time.Time{}, nil
	}
	return core.ParseSourceDate(s)
}

// DepartsAfter reports whether fact begins on a calendar date strictly after today.
func DepartsAfter(fact core.DateRangeFact, today time.Time) bool {
	if fact.Begin.IsZero() {
		return false
	}
	return core.CivilDate(fact.Begin).After(core.CivilDate(today))
}
