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
	"context"
	"time"

	"github.com/poiesic/cruisekb/core"
)

// EntityRepository persists raw catalog entities in insertion order.
type EntityRepository interface {
	// SaveRaw upserts entities by id. A replaced entity keeps its original
	// insertion position.
	SaveRaw(ctx context.Context, entities ...*core.Entity) error

	// RawCount returns the number of stored raw entities.
	RawCount(ctx context.Context) (int, error)

	// RawBatch returns up to size entities starting at offset, in insertion order.
	RawBatch(ctx context.Context, size, offset int) ([]*core.Entity, error)

	// AllRaw returns every stored raw entity in insertion order.
	AllRaw(ctx context.Context) ([]*core.Entity, error)
}

// DocumentRepository persists transformed documents.
type DocumentRepository interface {
	// SaveTransformed upserts a document by id.
	SaveTransformed(ctx context.Context, doc *core.Document) error

	// TransformedCount returns the number of stored documents.
	TransformedCount(ctx context.Context) (int, error)

	// TransformedBatch returns up to size documents starting at offset, in insertion order.
	TransformedBatch(ctx context.Context, size, offset int) ([]*core.Document, error)

	// GetTransformed returns a single document.
	// Returns ErrNotFound if the document doesn't exist.
	GetTransformed(ctx context.Context, id string) (*core.Document, error)
}

// Ledger records which entities the transformer has already handled.
type Ledger interface {
	// MarkProcessed records id as processed. Re-marking overwrites the timestamp.
	MarkProcessed(ctx context.Context, id string) error

	// IsProcessed reports whether id has been marked.
	IsProcessed(ctx context.Context, id string) (bool, error)

	// ListProcessedIDs returns every marked id.
	ListProcessedIDs(ctx context.Context) ([]string, error)

	// ProcessedCount returns the number of marked ids.
	ProcessedCount(ctx context.Context) (int, error)
}

// DateIndex maps departure periods to entities.
type DateIndex interface {
	// IndexDates replaces the rows of entityID with the cross product of
	// summary.Dates and summary.Ranges. Every row receives its own sequence id.
	IndexDates(ctx context.Context, entityID, code string, summary core.Summary) error

	// IDsInDateRange returns the distinct entity ids having a row with
	// start <= period key <= end, compared lexicographically.
	IDsInDateRange(ctx context.Context, start, end string) ([]string, error)

	// DateRowCount returns the number of rows held for entityID.
	DateRowCount(ctx context.Context, entityID string) (int, error)
}

// Store is the local cache holding the four pipeline tables.
type Store interface {
	EntityRepository
	DocumentRepository
	Ledger
	DateIndex

	// Reset drops and recreates every table.
	Reset(ctx context.Context) error

	// Close releases the underlying storage.
	Close() error
}

// VectorRecord is one entry of a vector collection.
type VectorRecord struct {
	ID          string         `json:"id"`
	Text        string         `json:"text"`
	Metadata    map[string]any `json:"metadata"`
	Vector      []float32      `json:"vector"`
	ContentHash uint64         `json:"content_hash"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Match is a vector search hit. Distance is cosine distance, smaller is closer.
type Match struct {
	Record   *VectorRecord
	Distance float32
}

// VectorIndex is a named collection of embedded documents.
type VectorIndex interface {
	// Upsert inserts or replaces records by id.
	Upsert(ctx context.Context, records ...*VectorRecord) error

	// Get returns a record by id.
	// Returns ErrNotFound if the record doesn't exist.
	Get(ctx context.Context, id string) (*VectorRecord, error)

	// Search returns up to k records nearest to vector, ordered by ascending
	// distance. A non-nil filter is applied before ranking.
	Search(ctx context.Context, vector []float32, k int, filter Filter) ([]*Match, error)

	// Count returns the number of records in the collection.
	Count(ctx context.Context) (int, error)

	// Reset removes every record from the collection.
	Reset(ctx context.Context) error
}
