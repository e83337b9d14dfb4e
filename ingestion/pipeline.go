package ingestion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/cruisekb/core"
	"github.com/poiesic/cruisekb/source"
	"github.com/poiesic/cruisekb/storage"
	"github.com/poiesic/cruisekb/transform"
)

// Defaults for the stage batch sizes.
const (
	DefaultPageSize       = 100
	DefaultIndexBatchSize = 32
	defaultReportInterval = 50
)

// DocumentIndexer embeds and stores retrieval documents.
type DocumentIndexer interface {
	IndexBatch(ctx context.Context, docs []*core.Document) error
}

// Pipeline runs the extract, transform and index stages against a store.
type Pipeline struct {
	store          storage.Store
	reader         source.Reader
	indexer        DocumentIndexer
	transformer    *transform.Transformer
	batchSize      int
	pageSize       int
	indexBatchSize int
	poolSize       int
	stopOnError    bool
	batchTimeout   time.Duration
	currency       string
	now            func() time.Time
	progress       io.Writer
	logger         *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithReader sets the upstream source used by Extract.
func WithReader(reader source.Reader) Option {
	return func(p *Pipeline) error {
		p.reader = reader
		return nil
	}
}

// WithIndexer sets the indexer used by Index.
func WithIndexer(indexer DocumentIndexer) Option {
	return func(p *Pipeline) error {
		p.indexer = indexer
		return nil
	}
}

// WithTransformer sets the document transformer.
// Default is transform.New().
func WithTransformer(tr *transform.Transformer) Option {
	return func(p *Pipeline) error {
		if tr == nil {
			return fmt.Errorf("transformer cannot be nil")
		}
		p.transformer = tr
		return nil
	}
}

// WithBatchSize sets how many entities are fetched from the source per batch.
// Default is source.DefaultBatchSize.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("batch size must be at least 1, got %d", size)
		}
		p.batchSize = size
		return nil
	}
}

// WithPageSize sets how many raw entities Transform loads per page.
func WithPageSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("page size must be at least 1, got %d", size)
		}
		p.pageSize = size
		return nil
	}
}

// WithIndexBatchSize sets how many documents are embedded per call.
func WithIndexBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("index batch size must be at least 1, got %d", size)
		}
		p.indexBatchSize = size
		return nil
	}
}

// WithPoolSize sets the worker pool size for concurrent indexing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		p.poolSize = max(size, 1)
		return nil
	}
}

// WithStopOnError makes Index abort on the first failed batch instead of
// logging it and moving on.
func WithStopOnError(stop bool) Option {
	return func(p *Pipeline) error {
		p.stopOnError = stop
		return nil
	}
}

// WithBatchTimeout bounds the storage and indexing work of each batch.
// Zero means no limit.
func WithBatchTimeout(d time.Duration) Option {
	return func(p *Pipeline) error {
		if d < 0 {
			return fmt.Errorf("batch timeout cannot be negative")
		}
		p.batchTimeout = d
		return nil
	}
}

// WithCurrency sets the currency id whose prices are aggregated.
// Default is core.DefaultCurrency.
func WithCurrency(currency string) Option {
	return func(p *Pipeline) error {
		if currency == "" {
			return fmt.Errorf("currency cannot be empty")
		}
		p.currency = currency
		return nil
	}
}

// WithClock overrides the source of "today".
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) error {
		if now == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		p.now = now
		return nil
	}
}

// WithProgress writes progress reports to w.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		p.progress = w
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new pipeline over store.
func NewPipeline(store storage.Store, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}

	p := &Pipeline{
		store:          store,
		batchSize:      source.DefaultBatchSize,
		pageSize:       DefaultPageSize,
		indexBatchSize: DefaultIndexBatchSize,
		poolSize:       max(runtime.NumCPU()/2, 1),
		currency:       core.DefaultCurrency,
		now:            time.Now,
		progress:       io.Discard,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	if p.transformer == nil {
		p.transformer = transform.New(transform.WithLogger(p.logger))
	}
	p.logger = p.logger.With("component", "pipeline")

	return p, nil
}

// Report counts what a run did.
type Report struct {
	RunID string

	Candidates    int // Ids listed by the source
	Extracted     int // Entities stored in the raw table
	Skipped       int // Malformed source records
	ExtractFailed int // Entities whose raw record could not be stored

	DateIndexFailed int // Stored entities whose date index rows could not be written

	AlreadyProcessed int // Entities found in the ledger
	Transformed      int // Documents saved
	Excluded         int // Entities without a valid future departure
	TransformFailed  int // Entities left unmarked for the next run

	Indexed     int // Documents written to the vector collection
	IndexFailed int // Documents in failed batches
}

func (p *Pipeline) newRun() (*Report, *slog.Logger) {
	id := uuid.NewString()
	return &Report{RunID: id}, p.logger.With("run_id", id)
}

// batchContext derives the context of one batch.
func (p *Pipeline) batchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.batchTimeout > 0 {
		return context.WithTimeout(ctx, p.batchTimeout)
	}
	return context.WithCancel(ctx)
}

// Run executes extract, transform and index in order. It stops at the first
// stage returning an error.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	report, logger := p.newRun()
	logger.Info("pipeline started")

	if err := p.extract(ctx, report, logger); err != nil {
		return report, fmt.Errorf("extract: %w", err)
	}
	if err := p.transform(ctx, report, logger); err != nil {
		return report, fmt.Errorf("transform: %w", err)
	}
	if err := p.index(ctx, report, logger); err != nil {
		return report, fmt.Errorf("index: %w", err)
	}

	logger.Info("pipeline finished",
		"extracted", report.Extracted,
		"transformed", report.Transformed,
		"indexed", report.Indexed)
	return report, nil
}

// Extract fetches candidate entities from the source into the raw table and
// refreshes their date index rows.
func (p *Pipeline) Extract(ctx context.Context) (*Report, error) {
	report, logger := p.newRun()
	return report, p.extract(ctx, report, logger)
}

// Transform builds documents for every raw entity not yet processed.
func (p *Pipeline) Transform(ctx context.Context) (*Report, error) {
	report, logger := p.newRun()
	return report, p.transform(ctx, report, logger)
}

// Index embeds every transformed document into the vector collection.
func (p *Pipeline) Index(ctx context.Context) (*Report, error) {
	report, logger := p.newRun()
	return report, p.index(ctx, report, logger)
}
