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

// EntityRepository implements storage.EntityRepository for BadgerDB.
type EntityRepository struct {
	backend *Backend
	posSeq  *badger.Sequence
}

var _ storage.EntityRepository = (*EntityRepository)(nil)

// NewEntityRepository creates a new EntityRepository.
func NewEntityRepository(backend *Backend) (*EntityRepository, error) {
	posSeq, err := backend.GetSequence(rawSeq)
	if err != nil {
		return nil, err
	}

	return &EntityRepository{
		backend: backend,
		posSeq:  posSeq,
	}, nil
}

// Close releases the position sequence.
func (r *EntityRepository) Close() error {
	return r.posSeq.Release()
}

// SaveRaw upserts entities by id.
func (r *EntityRepository) SaveRaw(ctx context.Context, entities ...*core.Entity) error {
	if len(entities) == 0 {
		return nil
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, entity := range entities {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := core.ValidateEntity(entity); err != nil {
				return err
			}

			key := makeRawKey(entity.ID)
			rec := &storage.StoredEntity{Entity: entity, CreatedAt: time.Now().UTC()}

			existing, err := getValue(tx, key)
			switch {
			case err == nil:
				prev, err := storage.UnmarshalEntity(existing)
				if err != nil {
					return err
				}
				rec.Position = prev.Position
			case errors.Is(err, storage.ErrNotFound):
				pos, err := nextID(r.posSeq)
				if err != nil {
					return err
				}
				rec.Position = pos
				if err := tx.Set(makePositionKey(rawPositionPrefix, pos), []byte(entity.ID)); err != nil {
					return err
				}
			default:
				return err
			}

			value, err := storage.MarshalEntity(rec)
			if err != nil {
				return err
			}
			if err := tx.Set(key, value); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// RawCount returns the number of stored raw entities.
func (r *EntityRepository) RawCount(ctx context.Context) (int, error) {
	return r.backend.countPrefix([]byte(rawPositionPrefix))
}

// RawBatch returns up to size entities starting at offset, in insertion order.
func (r *EntityRepository) RawBatch(ctx context.Context, size, offset int) ([]*core.Entity, error) {
	if size <= 0 || offset < 0 {
		return nil, storage.ErrInvalidQuery
	}
	var entities []*core.Entity
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		ids, err := pageIDs(tx, rawPositionPrefix, size, offset)
		if err != nil {
			return err
		}
		entities = make([]*core.Entity, 0, len(ids))
		for _, id := range ids {
			value, err := getValue(tx, makeRawKey(id))
			if err != nil {
				return err
			}
			rec, err := storage.UnmarshalEntity(value)
			if err != nil {
				return err
			}
			entities = append(entities, rec.Entity)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return entities, nil
}

// AllRaw returns every stored raw entity in insertion order.
func (r *EntityRepository) AllRaw(ctx context.Context) ([]*core.Entity, error) {
	var all []*core.Entity
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch, err := r.RawBatch(ctx, pageSize, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < pageSize {
			return all, nil
		}
		offset += len(batch)
	}
}

// pageSize is used when walking a whole table.
const pageSize = 500

// pageIDs walks an insertion order index and returns up to size ids after
// skipping offset entries.
func pageIDs(tx *badger.Txn, prefix string, size, offset int) ([]string, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchSize = min(size, 100)
	opts.Prefix = []byte(prefix)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var ids []string
	skipped := 0
	for iter.Rewind(); iter.Valid() && len(ids) < size; iter.Next() {
		if skipped < offset {
			skipped++
			continue
		}
		value, err := iter.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		ids = append(ids, string(value))
	}
	return ids, nil
}
