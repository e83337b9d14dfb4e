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
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/cruisekb/core"
	"github.com/poiesic/cruisekb/storage"
)

// Ledger implements storage.Ledger for BadgerDB.
type Ledger struct {
	backend *Backend
}

var _ storage.Ledger = (*Ledger)(nil)

// NewLedger creates a new Ledger.
func NewLedger(backend *Backend) *Ledger {
	return &Ledger{
		backend: backend,
	}
}

// MarkProcessed records id as processed at the current time.
func (l *Ledger) MarkProcessed(ctx context.Context, id string) error {
	if id == "" {
		return core.ErrEmptyID
	}
	return l.backend.WithTx(func(tx *badger.Txn) error {
		value, err := storage.MarshalMarker(&core.ProcessedMarker{
			EntityID:    id,
			ProcessedAt: time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		if err := tx.Set(makeProcessedKey(id), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// IsProcessed reports whether id has been marked.
func (l *Ledger) IsProcessed(ctx context.Context, id string) (bool, error) {
	var found bool
	err := l.backend.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get(makeProcessedKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		found = true
		return nil
	}, false)
	return found, err
}

// ListProcessedIDs returns every marked id in key order.
func (l *Ledger) ListProcessedIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := l.backend.WithTx(func(tx *badger.Txn) error {
		for _, key := range keysWithPrefix(tx, []byte(processedPrefix)) {
			ids = append(ids, string(key[len(processedPrefix):]))
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ProcessedCount returns the number of marked ids.
func (l *Ledger) ProcessedCount(ctx context.Context) (int, error) {
	return l.backend.countPrefix([]byte(processedPrefix))
}

// Marker returns the stored marker for id.
// Returns storage.ErrNotFound if id was never marked.
func (l *Ledger) Marker(ctx context.Context, id string) (*core.ProcessedMarker, error) {
	var marker *core.ProcessedMarker
	err := l.backend.WithTx(func(tx *badger.Txn) error {
		value, err := getValue(tx, makeProcessedKey(id))
		if err != nil {
			return err
		}
		marker, err = storage.UnmarshalMarker(value)
		return err
	}, false)
	return marker, err
}
