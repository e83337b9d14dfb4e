package search

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/poiesic/cruisekb/ai/mock"
	"github.com/poiesic/cruisekb/core"
	"github.com/poiesic/cruisekb/storage"
	"github.com/poiesic/cruisekb/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var searchToday = time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)

// queryVector is what the test embedder returns for every query.
var queryVector = []float32{1, 0, 0}

type fixture struct {
	store    *badger.Store
	vectors  *badger.VectorIndex
	embedder *mock.MockEmbedder
	searcher *Searcher
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	store, err := badger.OpenMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return queryVector, nil
	}
	vectors := store.VectorIndex(badger.DefaultCollection)

	opts = append([]Option{WithClock(func() time.Time { return searchToday })}, opts...)
	searcher, err := NewSearcher(store, vectors, mock.NewMockProviderWithEmbedder(embedder), opts...)
	require.NoError(t, err)

	return &fixture{store: store, vectors: vectors, embedder: embedder, searcher: searcher}
}

// add indexes a document departing in period with the given vector.
func (f *fixture) add(t *testing.T, id, code, period, rangeID string, vector []float32) {
	t.Helper()
	ctx := context.Background()
	summary := core.Summary{Dates: []string{period}, Ranges: []string{rangeID}}
	require.NoError(t, f.store.IndexDates(ctx, id, code, summary))

	meta := core.Metadata{EntityID: id, DisplayCode: code, Dates: period, Ranges: rangeID}
	require.NoError(t, f.vectors.Upsert(ctx, &storage.VectorRecord{
		ID:       id,
		Text:     "cruise " + id,
		Metadata: meta.Map(),
		Vector:   vector,
	}))
}

func resultIDs(results []*core.EnrichedResult) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	return ids
}

func TestNewSearcher(t *testing.T) {
	store, err := badger.OpenMemoryStore()
	require.NoError(t, err)
	defer store.Close()

	vectors := store.VectorIndex(badger.DefaultCollection)
	provider := mock.NewMockProvider()

	t.Run("valid configuration", func(t *testing.T) {
		searcher, err := NewSearcher(store, vectors, provider)
		require.NoError(t, err)
		assert.NotNil(t, searcher)
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		searcher, err := NewSearcher(store, vectors, provider, WithLogger(nil))
		require.NoError(t, err)
		assert.Equal(t, slog.Default(), searcher.logger)
	})

	t.Run("nil date index", func(t *testing.T) {
		_, err := NewSearcher(nil, vectors, provider)
		assert.Equal(t, ErrDateIndexRequired, err)
	})

	t.Run("nil vector index", func(t *testing.T) {
		_, err := NewSearcher(store, nil, provider)
		assert.Equal(t, ErrVectorIndexRequired, err)
	})

	t.Run("nil provider", func(t *testing.T) {
		_, err := NewSearcher(store, vectors, nil)
		assert.Equal(t, ErrAIProviderRequired, err)
	})

	t.Run("nil clock", func(t *testing.T) {
		_, err := NewSearcher(store, vectors, provider, WithClock(nil))
		assert.Error(t, err)
	})
}

func TestQuery_EmptyIndex(t *testing.T) {
	f := newFixture(t)

	results, err := f.searcher.Query(context.Background(), Request{Text: "river cruise"})
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestQuery_EmptyText(t *testing.T) {
	f := newFixture(t)

	_, err := f.searcher.Query(context.Background(), Request{Text: "  "})
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Zero(t, f.embedder.CallCount())
}

func TestQuery_WindowRestrictsCandidates(t *testing.T) {
	f := newFixture(t)
	// B is the better vector match but departs outside the window.
	f.add(t, "A", "ALPHA", "202606", "RA", []float32{0.6, 0.8, 0})
	f.add(t, "B", "BRAVO", "202609", "RB", []float32{1, 0, 0})

	results, err := f.searcher.Query(context.Background(), Request{
		Text:     "summer cruise",
		DateFrom: "2026-05-01",
		DateTo:   "2026-07-01",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, resultIDs(results))

	// Without a window both are ranked by distance.
	results, err = f.searcher.Query(context.Background(), Request{Text: "summer cruise"})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, resultIDs(results))
	assert.Less(t, results[0].Score, results[1].Score)
}

func TestQuery_NoCandidatesSkipsVectorSearch(t *testing.T) {
	f := newFixture(t)
	f.add(t, "A", "ALPHA", "202606", "RA", []float32{1, 0, 0})

	results, err := f.searcher.Query(context.Background(), Request{
		Text:     "winter cruise",
		DateFrom: "2027-01-01",
		DateTo:   "2027-02-01",
	})
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Zero(t, f.embedder.CallCount(), "no embedding without candidates")
}

func TestQuery_InvalidWindowFallsBackToUnrestricted(t *testing.T) {
	f := newFixture(t)
	f.add(t, "A", "ALPHA", "202606", "RA", []float32{1, 0, 0})
	f.add(t, "B", "BRAVO", "202612", "RB", []float32{0, 1, 0})

	windows := []Request{
		{DateFrom: "2026-08-01", DateTo: "2026-06-01"}, // reversed
		{DateFrom: "2020-01-01", DateTo: "2026-07-01"}, // from in the past
		{DateFrom: "01/06/2026", DateTo: "2026-07-01"}, // malformed
		{DateFrom: "2026-05-01"},                       // half open
	}
	for _, req := range windows {
		req.Text = "cruise"
		results, err := f.searcher.Query(context.Background(), req)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"A", "B"}, resultIDs(results), "window %+v", req)
	}
}

func TestQuery_TopK(t *testing.T) {
	f := newFixture(t)
	for i, id := range []string{"1", "2", "3", "4", "5", "6", "7"} {
		f.add(t, id, "C"+id, "202606", "R"+id, []float32{1, float32(i), 0})
	}

	results, err := f.searcher.Query(context.Background(), Request{Text: "cruise"})
	require.NoError(t, err)
	assert.Len(t, results, DefaultTopK)
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, resultIDs(results))

	results, err = f.searcher.Query(context.Background(), Request{Text: "cruise", TopK: 2})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestQuery_Enrichment(t *testing.T) {
	f := newFixture(t, WithLinkBase("https://book.example/cruise-"))
	ctx := context.Background()
	f.add(t, "A", "ALPHA", "202606", "RA", []float32{1, 0, 0})

	// A record with several ranges and one without a display code.
	multi := core.Metadata{EntityID: "M", DisplayCode: "MULTI", Ranges: " , R7, R8"}
	require.NoError(t, f.vectors.Upsert(ctx, &storage.VectorRecord{
		ID: "M", Text: "multi", Metadata: multi.Map(), Vector: []float32{0.9, 0.1, 0},
	}))
	bare := core.Metadata{EntityID: "N", Ranges: "R9"}
	require.NoError(t, f.vectors.Upsert(ctx, &storage.VectorRecord{
		ID: "N", Text: "bare", Metadata: bare.Map(), Vector: []float32{0.5, 0.5, 0},
	}))

	results, err := f.searcher.Query(ctx, Request{Text: "cruise"})
	require.NoError(t, err)
	require.Len(t, results, 3)

	links := map[string]string{}
	for _, r := range results {
		links[r.ID] = r.Link
	}
	assert.Equal(t, "https://book.example/cruise-RA-ALPHA", links["A"])
	assert.Equal(t, "https://book.example/cruise-R7-MULTI", links["M"])
	assert.Empty(t, links["N"])

	assert.Equal(t, "cruise A", results[0].Text)
	assert.Equal(t, "ALPHA", results[0].Metadata[core.FieldDisplayCode])
}

func TestQuery_EmbedderFailurePropagates(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("embedding host down")
	f.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, boom
	}

	_, err := f.searcher.Query(context.Background(), Request{Text: "cruise"})
	assert.ErrorIs(t, err, boom)
}

func TestQuery_ClosedStorePropagates(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Close())

	_, err := f.searcher.Query(context.Background(), Request{Text: "cruise"})
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestQueryWithMonitor(t *testing.T) {
	f := newFixture(t)
	f.add(t, "A", "ALPHA", "202606", "RA", []float32{1, 0, 0})

	monitor := &testMonitor{}
	results, err := f.searcher.QueryWithMonitor(context.Background(), Request{
		Text:     "cruise",
		DateFrom: "2026-06-01",
		DateTo:   "2026-06-30",
	}, monitor)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.True(t, monitor.startCalled)
	assert.True(t, monitor.window.Valid)
	assert.Equal(t, []string{"A"}, monitor.candidates)
	assert.Len(t, monitor.matches, 1)
	assert.True(t, monitor.finishCalled)
}

// testMonitor is a simple test implementation of SearchMonitor
type testMonitor struct {
	startCalled  bool
	finishCalled bool
	window       core.DateWindow
	candidates   []string
	matches      []*storage.Match
}

func (m *testMonitor) Start(req Request) {
	m.startCalled = true
}

func (m *testMonitor) AfterDateValidation(window core.DateWindow) {
	m.window = window
}

func (m *testMonitor) AfterDateFilter(candidates []string) {
	m.candidates = candidates
}

func (m *testMonitor) AfterVectorSearch(matches []*storage.Match) {
	m.matches = matches
}

func (m *testMonitor) Finish(results []*core.EnrichedResult) {
	m.finishCalled = true
}
