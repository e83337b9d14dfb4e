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

package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/poiesic/cruisekb/core"
)

// Raw and transformed rows keep the JSON envelope ({"json_blob", "created_at"}).
// Markers, date rows and vectors have a fixed shape and use mus encodings.

// StoredEntity is the persisted form of a raw entity row.
type StoredEntity struct {
	Entity    *core.Entity `json:"json_blob"`
	CreatedAt time.Time    `json:"created_at"`
	Position  uint64       `json:"position"`
}

// StoredDocument is the persisted form of a transformed document row.
type StoredDocument struct {
	Document  *core.Document `json:"json_blob"`
	CreatedAt time.Time      `json:"created_at"`
	Position  uint64         `json:"position"`
}

// MarshalEntity serializes a raw entity row.
func MarshalEntity(rec *StoredEntity) ([]byte, error) {
	return marshal(rec)
}

// UnmarshalEntity deserializes a raw entity row.
func UnmarshalEntity(data []byte) (*StoredEntity, error) {
	var rec StoredEntity
	if err := unmarshal(data, &rec); err != nil {
		return nil, err
	}
	if rec.Entity == nil {
		return nil, fmt.Errorf("%w: missing entity", ErrSerializationFailed)
	}
	return &rec, nil
}

// MarshalDocument serializes a transformed document row.
func MarshalDocument(rec *StoredDocument) ([]byte, error) {
	return marshal(rec)
}

// UnmarshalDocument deserializes a transformed document row.
func UnmarshalDocument(data []byte) (*StoredDocument, error) {
	var rec StoredDocument
	if err := unmarshal(data, &rec); err != nil {
		return nil, err
	}
	if rec.Document == nil {
		return nil, fmt.Errorf("%w: missing document", ErrSerializationFailed)
	}
	return &rec, nil
}

// MarshalMarker serializes a processed marker.
func MarshalMarker(marker *core.ProcessedMarker) ([]byte, error) {
	var e encoder
	e.string(marker.EntityID)
	e.time(marker.ProcessedAt)
	return e.buf, nil
}

// UnmarshalMarker deserializes a processed marker.
func UnmarshalMarker(data []byte) (*core.ProcessedMarker, error) {
	d := decoder{buf: data}
	marker := &core.ProcessedMarker{
		EntityID:    d.string(),
		ProcessedAt: d.time(),
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return marker, nil
}

// MarshalDateRow serializes a date index row.
func MarshalDateRow(row *core.DateIndexRow) ([]byte, error) {
	var e encoder
	e.uint64(row.ID)
	e.string(row.EntityID)
	e.string(row.PeriodKey)
	e.string(row.RangeID)
	e.string(row.DisplayCode)
	return e.buf, nil
}

// UnmarshalDateRow deserializes a date index row.
func UnmarshalDateRow(data []byte) (*core.DateIndexRow, error) {
	d := decoder{buf: data}
	row := &core.DateIndexRow{
		ID:          d.uint64(),
		EntityID:    d.string(),
		PeriodKey:   d.string(),
		RangeID:     d.string(),
		DisplayCode: d.string(),
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return row, nil
}

// MarshalVectorRecord serializes a vector record. The vector is stored as
// raw float32 values; metadata keeps its JSON form.
func MarshalVectorRecord(rec *VectorRecord) ([]byte, error) {
	metadata, err := marshal(rec.Metadata)
	if err != nil {
		return nil, err
	}

	var e encoder
	e.string(rec.ID)
	e.string(rec.Text)
	e.string(string(metadata))
	e.vector(rec.Vector)
	e.uint64(rec.ContentHash)
	e.time(rec.UpdatedAt)
	return e.buf, nil
}

// UnmarshalVectorRecord deserializes a vector record.
func UnmarshalVectorRecord(data []byte) (*VectorRecord, error) {
	d := decoder{buf: data}
	rec := &VectorRecord{
		ID:   d.string(),
		Text: d.string(),
	}
	metadata := d.string()
	rec.Vector = d.vector()
	rec.ContentHash = d.uint64()
	rec.UpdatedAt = d.time()
	if err := d.finish(); err != nil {
		return nil, err
	}
	if err := unmarshal([]byte(metadata), &rec.Metadata); err != nil {
		return nil, err
	}
	return rec, nil
}

func marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

func unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return nil
}
