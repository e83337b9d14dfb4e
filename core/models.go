package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ContentHash returns a deterministic 64-bit BLAKE2b fingerprint of text.
// Identical text always produces the same hash.
func ContentHash(text string) uint64 {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum)
}

// Entity is a single catalog product (a cruise) as fetched from the source.
// It is immutable once fetched except for a full re-fetch that overwrites it.
type Entity struct {
	ID    string          `json:"cruise_id"`
	Code  string          `json:"ufl"` // Source specific display code
	Info  Tree            `json:"cruise_info"`
	Facts []DateRangeFact `json:"facts,omitempty"`
}

// DateRangeFact is one dated, priced departure belonging to an Entity.
// Begin and End are zero when the source did not provide them.
type DateRangeFact struct {
	EntityID  string             `json:"cruise_id"`
	RangeID   string             `json:"range_id"`
	Begin     time.Time          `json:"begin,omitzero"`
	End       time.Time          `json:"end,omitzero"`
	MinPrices map[string]float64 `json:"min_prices,omitempty"` // Keyed by currency id
}

// Price returns the fact's minimum price in the given currency.
// A missing or zero price is reported as absent.
func (f DateRangeFact) Price(currency string) (float64, bool) {
	price, ok := f.MinPrices[currency]
	if !ok || price == 0 {
		return 0, false
	}
	return price, true
}

// Summary is the per-entity aggregation of its facts.
// It is recomputed on every pipeline run and never persisted on its own.
type Summary struct {
	MinPrice float64  // 0 means unknown
	MaxPrice float64  // 0 means unknown
	Dates    []string // Period keys of valid future departures, in encounter order
	Ranges   []string // Range ids parallel to Dates
}

// Indexable reports whether the entity has at least one valid future departure.
func (s Summary) Indexable() bool {
	return len(s.Dates) > 0
}

// Metadata is the flat, filterable attribute record of a retrieval document.
type Metadata struct {
	EntityID    string  `json:"entity_id"`
	DisplayCode string  `json:"display_code"`
	Cities      string  `json:"cities"`
	Countries   string  `json:"city_countries"`
	Waterways   string  `json:"rivers"`
	SeaCruise   bool    `json:"sea_cruise"`
	MinPrice    float64 `json:"min_price"`
	MaxPrice    float64 `json:"max_price"`
	Dates       string  `json:"dates"`
	Ranges      string  `json:"ranges"`
	Links       string  `json:"links"`
}

// Metadata field names as stored in the vector collection.
const (
	FieldEntityID    = "entity_id"
	FieldDisplayCode = "display_code"
	FieldCities      = "cities"
	FieldCountries   = "city_countries"
	FieldWaterways   = "rivers"
	FieldSeaCruise   = "sea_cruise"
	FieldMinPrice    = "min_price"
	FieldMaxPrice    = "max_price"
	FieldDates       = "dates"
	FieldRanges      = "ranges"
	FieldLinks       = "links"
)

// Map flattens the metadata into scalar values keyed by field name.
func (m Metadata) Map() map[string]any {
	return map[string]any{
		FieldEntityID:    m.EntityID,
		FieldDisplayCode: m.DisplayCode,
		FieldCities:      m.Cities,
		FieldCountries:   m.Countries,
		FieldWaterways:   m.Waterways,
		FieldSeaCruise:   m.SeaCruise,
		FieldMinPrice:    m.MinPrice,
		FieldMaxPrice:    m.MaxPrice,
		FieldDates:       m.Dates,
		FieldRanges:      m.Ranges,
		FieldLinks:       m.Links,
	}
}

// Document is the retrieval unit produced for an indexable Entity.
type Document struct {
	ID       string   `json:"cruise_id"`
	Text     string   `json:"text_chunk"`
	Metadata Metadata `json:"metadata"`
}

// ProcessedMarker records that transformation was attempted for an entity.
type ProcessedMarker struct {
	EntityID    string    `json:"cruise_id"`
	ProcessedAt time.Time `json:"processed_at"`
}

// DateIndexRow is one row of the derived date index.
type DateIndexRow struct {
	ID          uint64 `json:"id"`
	EntityID    string `json:"entity_id"`
	PeriodKey   string `json:"period_key"`
	RangeID     string `json:"range_id"`
	DisplayCode string `json:"display_code"`
}

// EnrichedResult is a ranked hit returned by the hybrid query engine.
type EnrichedResult struct {
	ID       string
	Text     string
	Metadata map[string]any
	Score    float32 // Vector distance, smaller is closer
	Link     string
}
