// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import "time"

// DefaultCurrency is the currency id whose prices are aggregated.
const DefaultCurrency = "2"

// periodLayout is the zero-padded year+month layout of period keys.
const periodLayout = "200601"

// PeriodKey formats t as a sortable year+month bucket, e.g. "202506".
func PeriodKey(t time.Time) string {
	return t.Format(periodLayout)
}

// CivilDate truncates t to midnight UTC of its own calendar date.
// Comparisons between civil dates ignore time of day and zone.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Aggregate folds an entity's facts into a Summary.
//
// Price bounds use a greedy two-bucket scheme: a price replaces the minimum when
// the minimum is unset or larger, and only otherwise may it replace the maximum.
// A value that becomes the new minimum is never considered for the maximum, so
// [100, 80] yields min=80, max=0. Callers rely on this exact behavior.
//
// Only facts with both dates present and a begin date on or after today count as
// searchable; they contribute a period key and range id in encounter order.
func Aggregate(facts []DateRangeFact, currency string, today time.Time) Summary {
	summary := Summary{
		Dates:  []string{},
		Ranges: []string{},
	}
	day := CivilDate(today)

	for _, fact := range facts {
		if price, ok := fact.Price(currency); ok {
			if summary.MinPrice == 0 || price < summary.MinPrice {
				summary.MinPrice = price
			} else if price > summary.MaxPrice {
				summary.MaxPrice = price
			}
		}

		if fact.Begin.IsZero() || fact.End.IsZero() {
			continue
		}
		if CivilDate(fact.Begin).Before(day) {
			continue
		}
		summary.Dates = append(summary.Dates, PeriodKey(fact.Begin))
		summary.Ranges = append(summary.Ranges, fact.RangeID)
	}

	return summary
}
