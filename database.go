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

package cruisekb

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/cruisekb/ai"
	"github.com/poiesic/cruisekb/ai/openai"
	"github.com/poiesic/cruisekb/index"
	"github.com/poiesic/cruisekb/ingestion"
	"github.com/poiesic/cruisekb/search"
	"github.com/poiesic/cruisekb/source"
	"github.com/poiesic/cruisekb/storage"
	"github.com/poiesic/cruisekb/storage/badger"
)

// Database bundles the local cache, the vector collection and the embedding
// provider of one knowledge base.
type Database struct {
	store    *badger.Store
	vectors  *badger.VectorIndex
	provider ai.AIProvider
	logger   *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig   *ai.Config
	provider   ai.AIProvider
	collection string
	inMemory   bool
	logger     *slog.Logger
}

// WithAIConfig sets the embedding service configuration.
func WithAIConfig(cfg *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = cfg
	}
}

// WithAIProvider uses provider instead of building one from the AI config.
func WithAIProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithCollection sets the vector collection name.
func WithCollection(name string) DatabaseOption {
	return func(o *databaseOptions) {
		if name != "" {
			o.collection = name
		}
	}
}

// WithInMemory keeps everything in memory; the path is ignored.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewDatabase opens the knowledge base stored at filePath.
func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		aiConfig:   ai.DefaultConfig(),
		collection: badger.DefaultCollection,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	var (
		store *badger.Store
		err   error
	)
	if options.inMemory {
		store, err = badger.OpenMemoryStore(badger.WithLogger(options.logger))
	} else {
		store, err = badger.Open(filePath, badger.WithLogger(options.logger))
	}
	if err != nil {
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			store.Close()
			return nil, err
		}
	}

	return &Database{
		store:    store,
		vectors:  store.VectorIndex(options.collection),
		provider: provider,
		logger:   options.logger,
	}, nil
}

// Close releases the provider and the store.
func (db *Database) Close() error {
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}

	if err := db.store.Close(); err != nil {
		db.logger.Error("error closing store", "err", err)
		return err
	}
	return nil
}

// Store returns the local cache.
func (db *Database) Store() storage.Store {
	return db.store
}

// VectorIndex returns the vector collection.
func (db *Database) VectorIndex() storage.VectorIndex {
	return db.vectors
}

// NewIndexer creates an indexer writing to the vector collection.
func (db *Database) NewIndexer(opts ...index.Option) (*index.Indexer, error) {
	opts = append([]index.Option{index.WithLogger(db.logger)}, opts...)
	return index.NewIndexer(db.provider.Embedder(), db.vectors, opts...)
}

// NewIngestionPipeline creates a pipeline over the store. A nil reader
// leaves extraction unavailable; indexOpts configure the pipeline's indexer.
func (db *Database) NewIngestionPipeline(reader source.Reader, indexOpts []index.Option, opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	indexer, err := db.NewIndexer(indexOpts...)
	if err != nil {
		return nil, err
	}

	base := []ingestion.Option{ingestion.WithLogger(db.logger), ingestion.WithIndexer(indexer)}
	if reader != nil {
		base = append(base, ingestion.WithReader(reader))
	}
	return ingestion.NewPipeline(db.store, append(base, opts...)...)
}

// NewSearcher creates a searcher over the date index and vector collection.
func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	opts = append([]search.Option{search.WithLogger(db.logger)}, opts...)
	return search.NewSearcher(db.store, db.vectors, db.provider, opts...)
}

// Reset empties the four pipeline tables and, when vectors is set, the
// vector collection too.
func (db *Database) Reset(ctx context.Context, vectors bool) error {
	err := db.store.Reset(ctx)
	if vectors {
		err = errors.Join(err, db.vectors.Reset(ctx))
	}
	return err
}

// Stats counts the rows of each table.
type Stats struct {
	Raw         int
	Transformed int
	Processed   int
	Vectors     int
}

// Stats returns table sizes.
func (db *Database) Stats(ctx context.Context) (Stats, error) {
	var (
		s    Stats
		errs []error
		err  error
	)
	s.Raw, err = db.store.RawCount(ctx)
	errs = append(errs, err)
	s.Transformed, err = db.store.TransformedCount(ctx)
	errs = append(errs, err)
	s.Processed, err = db.store.ProcessedCount(ctx)
	errs = append(errs, err)
	s.Vectors, err = db.vectors.Count(ctx)
	errs = append(errs, err)
	return s, errors.Join(errs...)
}
