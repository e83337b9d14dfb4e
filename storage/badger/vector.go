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

package badger

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/cruisekb/storage"
)

// DefaultCollection is the name of the document collection.
const DefaultCollection = "cruise_collection"

// VectorIndex implements storage.VectorIndex as a named collection of records
// in BadgerDB. Search is exhaustive.
type VectorIndex struct {
	backend    *Backend
	collection string
}

var _ storage.VectorIndex = (*VectorIndex)(nil)

// NewVectorIndex opens the named collection. An empty name selects DefaultCollection.
func NewVectorIndex(backend *Backend, collection string) *VectorIndex {
	if collection == "" {
		collection = DefaultCollection
	}
	return &VectorIndex{backend: backend, collection: collection}
}

// Collection returns the collection name.
func (v *VectorIndex) Collection() string {
	return v.collection
}

// Upsert inserts or replaces records by id.
func (v *VectorIndex) Upsert(ctx context.Context, records ...*storage.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	return v.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, rec := range records {
			if rec.ID == "" {
				return fmt.Errorf("%w: record id is empty", storage.ErrInvalidQuery)
			}
			if len(rec.Vector) == 0 {
				return fmt.Errorf("%w: record %s", storage.ErrEmptyVector, rec.ID)
			}
			rec.UpdatedAt = now
			value, err := storage.MarshalVectorRecord(rec)
			if err != nil {
				return err
			}
			if err := tx.Set(makeVectorKey(v.collection, rec.ID), value); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Get returns a record by id.
func (v *VectorIndex) Get(ctx context.Context, id string) (*storage.VectorRecord, error) {
	var rec *storage.VectorRecord
	err := v.backend.WithTx(func(tx *badger.Txn) error {
		value, err := getValue(tx, makeVectorKey(v.collection, id))
		if err != nil {
			return err
		}
		rec, err = storage.UnmarshalVectorRecord(value)
		return err
	}, false)
	return rec, err
}

// Search returns up to k records nearest to vector by cosine distance.
func (v *VectorIndex) Search(ctx context.Context, vector []float32, k int, filter storage.Filter) ([]*storage.Match, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive", storage.ErrInvalidQuery)
	}
	if len(vector) == 0 {
		return nil, storage.ErrEmptyVector
	}

	var matches []*storage.Match
	err := v.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeVectorPrefix(v.collection)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var rec *storage.VectorRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				rec, err = storage.UnmarshalVectorRecord(val)
				return err
			})
			if err != nil {
				return err
			}

			// Filter before ranking
			if filter != nil && !filter.Match(rec.Metadata) {
				continue
			}
			if len(rec.Vector) != len(vector) {
				return fmt.Errorf("%w: query has %d dimensions, record %s has %d",
					storage.ErrDimensionMismatch, len(vector), rec.ID, len(rec.Vector))
			}

			matches = append(matches, &storage.Match{
				Record:   rec,
				Distance: cosineDistance(vector, rec.Vector),
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(matches, func(a, b *storage.Match) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Record.ID, b.Record.ID)
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Count returns the number of records in the collection.
func (v *VectorIndex) Count(ctx context.Context) (int, error) {
	return v.backend.countPrefix(makeVectorPrefix(v.collection))
}

// Reset removes every record from the collection.
func (v *VectorIndex) Reset(ctx context.Context) error {
	return v.backend.deletePrefixes(makeVectorPrefix(v.collection))
}

// cosineDistance returns 1 - cos(a, b). A zero vector is at distance 1 from everything.
func cosineDistance(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return float32(1 - dot/(math.Sqrt(normA)*math.Sqrt(normB)))
}
