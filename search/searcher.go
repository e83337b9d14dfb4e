package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/cruisekb/ai"
	"github.com/poiesic/cruisekb/core"
	"github.com/poiesic/cruisekb/storage"
	"github.com/poiesic/cruisekb/transform"
)

// DefaultTopK is the number of results returned when a request sets none.
const DefaultTopK = 5

// Request is a catalog query. DateFrom and DateTo are optional YYYY-MM-DD dates.
type Request struct {
	Text     string
	DateFrom string
	DateTo   string
	TopK     int
}

// Searcher provides hybrid date-filtered semantic search over indexed documents.
type Searcher struct {
	dates    storage.DateIndex
	vectors  storage.VectorIndex
	embedder ai.Embedder
	linkBase string
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithLinkBase sets the booking link prefix. Default is transform.DefaultLinkBase.
func WithLinkBase(base string) Option {
	return func(s *Searcher) error {
		if base != "" {
			s.linkBase = base
		}
		return nil
	}
}

// WithClock overrides the source of "today" used to validate date windows.
func WithClock(now func() time.Time) Option {
	return func(s *Searcher) error {
		if now == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		s.now = now
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	dates storage.DateIndex,
	vectors storage.VectorIndex,
	provider ai.AIProvider,
	opts ...Option,
) (*Searcher, error) {
	if dates == nil {
		return nil, ErrDateIndexRequired
	}
	if vectors == nil {
		return nil, ErrVectorIndexRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		dates:    dates,
		vectors:  vectors,
		embedder: provider.Embedder(),
		linkBase: transform.DefaultLinkBase,
		now:      time.Now,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Query returns up to req.TopK documents nearest to req.Text, ordered by
// ascending distance. An empty result is never an error.
func (s *Searcher) Query(ctx context.Context, req Request) ([]*core.EnrichedResult, error) {
	return s.QueryWithMonitor(ctx, req, nil)
}

// QueryWithMonitor is Query with a monitor receiving callbacks at each stage.
func (s *Searcher) QueryWithMonitor(ctx context.Context, req Request, monitor SearchMonitor) ([]*core.EnrichedResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyQuery
	}
	if req.TopK <= 0 {
		req.TopK = DefaultTopK
	}

	monitor.Start(req)

	// 1. Validate the date window
	window := core.ValidateDateWindow(req.DateFrom, req.DateTo, s.now())
	monitor.AfterDateValidation(window)

	// 2. Resolve a valid window to candidate ids
	var filter storage.Filter
	if window.Valid {
		start, end := window.PeriodRange()
		candidates, err := s.dates.IDsInDateRange(ctx, start, end)
		if err != nil {
			s.logger.Error("error reading date index", "start", start, "end", end, "err", err)
			return nil, err
		}
		monitor.AfterDateFilter(candidates)

		if len(candidates) == 0 {
			s.logger.Debug("no entities depart in window", "start", start, "end", end)
			results := []*core.EnrichedResult{}
			monitor.Finish(results)
			return results, nil
		}
		filter = storage.In(core.FieldEntityID, candidates...)
	}

	// 3. Semantic search
	embedding, err := s.embedder.EmbedText(ctx, req.Text)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", req.Text, "err", err)
		return nil, err
	}

	matches, err := s.vectors.Search(ctx, embedding, req.TopK, filter)
	if err != nil {
		s.logger.Error("error querying vector index", "err", err)
		return nil, err
	}
	monitor.AfterVectorSearch(matches)

	// 4. Enrich
	results := make([]*core.EnrichedResult, 0, len(matches))
	for _, match := range matches {
		if match == nil || match.Record == nil {
			continue
		}
		results = append(results, s.enrich(match))
	}
	monitor.Finish(results)

	return results, nil
}

func (s *Searcher) enrich(match *storage.Match) *core.EnrichedResult {
	record := match.Record
	ranges := stringField(record.Metadata, core.FieldRanges)
	code := stringField(record.Metadata, core.FieldDisplayCode)

	link := transform.FirstLink(s.linkBase, ranges, code)
	if link == "" {
		s.logger.Debug("no booking link for result", "id", record.ID)
	}

	return &core.EnrichedResult{
		ID:       record.ID,
		Text:     record.Text,
		Metadata: record.Metadata,
		Score:    match.Distance,
		Link:     link,
	}
}

// stringField returns a string metadata value, or "" for anything else.
func stringField(metadata map[string]any, key string) string {
	if s, ok := metadata[key].(string); ok {
		return s
	}
	return ""
}
