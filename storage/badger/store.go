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
	"log/slog"

	"github.com/poiesic/cruisekb/storage"
)

// Store implements storage.Store on a single BadgerDB directory.
type Store struct {
	*EntityRepository
	*DocumentRepository
	*Ledger
	*DateIndex

	backend *Backend
	logger  *slog.Logger
}

var _ storage.Store = (*Store)(nil)

// StoreOption configures a Store.
type StoreOption func(*storeOptions)

type storeOptions struct {
	logger *slog.Logger
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) StoreOption {
	return func(o *storeOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Open opens or creates the cache at dirPath. A failure here is fatal for
// the caller: nothing else in the pipeline can run without the store.
func Open(dirPath string, opts ...StoreOption) (*Store, error) {
	return open(dirPath, false, opts...)
}

// OpenMemoryStore opens an in-memory store for testing.
func OpenMemoryStore(opts ...StoreOption) (*Store, error) {
	return open("", true, opts...)
}

func open(dirPath string, inMemory bool, opts ...StoreOption) (*Store, error) {
	options := &storeOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	logger := options.logger.With("component", "store")

	backend, err := OpenBackend(dirPath, inMemory, options.logger)
	if err != nil {
		return nil, err
	}

	entities, err := NewEntityRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	documents, err := NewDocumentRepository(backend)
	if err != nil {
		entities.Close()
		backend.Close()
		return nil, err
	}

	dates, err := NewDateIndex(backend)
	if err != nil {
		documents.Close()
		entities.Close()
		backend.Close()
		return nil, err
	}

	logger.Debug("store opened", "path", dirPath, "in_memory", inMemory)

	return &Store{
		EntityRepository:   entities,
		DocumentRepository: documents,
		Ledger:             NewLedger(backend),
		DateIndex:          dates,
		backend:            backend,
		logger:             logger,
	}, nil
}

// Backend returns the underlying backend.
func (s *Store) Backend() *Backend {
	return s.backend
}

// VectorIndex opens a vector collection sharing the store's database.
func (s *Store) VectorIndex(collection string) *VectorIndex {
	return NewVectorIndex(s.backend, collection)
}

// Reset drops and recreates the four cache tables. Vector collections are
// left untouched.
func (s *Store) Reset(ctx context.Context) error {
	err := s.backend.deletePrefixes(
		[]byte(rawEntityPrefix),
		[]byte(rawPositionPrefix),
		[]byte(docEntityPrefix),
		[]byte(docPositionPrefix),
		[]byte(processedPrefix),
		[]byte(dateRowPrefix),
		[]byte(dateEntityPrefix),
		[]byte(datePeriodPrefix),
	)
	if err != nil {
		return err
	}
	s.logger.Info("cache tables reset")
	return nil
}

// Close releases sequences and closes the database.
func (s *Store) Close() error {
	if s.backend.IsClosed() {
		return nil
	}
	var errs []error
	if err := s.DateIndex.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.DocumentRepository.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.EntityRepository.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
