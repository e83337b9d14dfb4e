package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/cruisekb/ai"
	"github.com/poiesic/cruisekb/core"
	"github.com/poiesic/cruisekb/storage"
)

// Default retry policy for embedding calls.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 500 * time.Millisecond
)

// Indexer embeds documents and upserts them into a vector collection.
// It is safe for concurrent use when the embedder and index are.
type Indexer struct {
	embedder    ai.Embedder
	index       storage.VectorIndex
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

// Option configures an Indexer.
type Option func(*Indexer) error

// WithRetry sets the embedding retry policy.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(ix *Indexer) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		ix.maxAttempts = maxAttempts
		ix.baseDelay = baseDelay
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Indexer) error {
		if logger == nil {
			logger = slog.Default()
		}
		ix.logger = logger
		return nil
	}
}

// NewIndexer creates an Indexer.
func NewIndexer(embedder ai.Embedder, index storage.VectorIndex, opts ...Option) (*Indexer, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if index == nil {
		return nil, ErrVectorIndexRequired
	}

	ix := &Indexer{
		embedder:    embedder,
		index:       index,
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(ix); err != nil {
			return nil, err
		}
	}
	ix.logger = ix.logger.With("component", "indexer")
	return ix, nil
}

// Index embeds and upserts a single document.
func (ix *Indexer) Index(ctx context.Context, doc *core.Document) error {
	return ix.IndexBatch(ctx, []*core.Document{doc})
}

// IndexBatch embeds all documents needing a new vector in one call and
// upserts the whole batch. The result is the same as indexing each
// document on its own.
func (ix *Indexer) IndexBatch(ctx context.Context, docs []*core.Document) error {
	if len(docs) == 0 {
		return nil
	}

	records := make([]*storage.VectorRecord, len(docs))
	var (
		pending []int
		texts   []string
	)
	for i, doc := range docs {
		if err := core.ValidateDocument(doc); err != nil {
			return err
		}
		record := &storage.VectorRecord{
			ID:          doc.ID,
			Text:        doc.Text,
			Metadata:    doc.Metadata.Map(),
			ContentHash: core.ContentHash(doc.Text),
		}
		records[i] = record

		if vector, ok := ix.reusable(ctx, record); ok {
			record.Vector = vector
			continue
		}
		pending = append(pending, i)
		texts = append(texts, doc.Text)
	}

	if len(texts) > 0 {
		vectors, err := ix.embed(ctx, texts)
		if err != nil {
			return err
		}
		for j, i := range pending {
			records[i].Vector = NormalizeVector(vectors[j])
		}
	}

	if err := ix.index.Upsert(ctx, records...); err != nil {
		return fmt.Errorf("failed to upsert vectors: %w", err)
	}

	ix.logger.Debug("indexed documents", "count", len(records), "embedded", len(texts))
	return nil
}

// reusable returns the stored vector when the record's text is unchanged.
func (ix *Indexer) reusable(ctx context.Context, record *storage.VectorRecord) ([]float32, bool) {
	stored, err := ix.index.Get(ctx, record.ID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			ix.logger.Warn("failed to read stored vector", "id", record.ID, "err", err)
		}
		return nil, false
	}
	if stored.ContentHash != record.ContentHash || len(stored.Vector) == 0 {
		return nil, false
	}
	return stored.Vector, true
}

func (ix *Indexer) embed(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := retryWithBackoff(ctx, ix.logger, func() error {
		var err error
		vectors, err = ix.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return err
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("%w: got %d for %d texts", ErrEmbeddingCount, len(vectors), len(texts))
		}
		return nil
	}, ix.maxAttempts, ix.baseDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	return vectors, nil
}
