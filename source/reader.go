package source

import (
	"context"
	"iter"

	"github.com/poiesic/cruisekb/core"
)

// DefaultBatchSize is the number of entities fetched per batch.
const DefaultBatchSize = 50

// Reader reads entities from the upstream catalog.
type Reader interface {
	// ListCandidateIDs returns the ids of enabled entities having at least one
	// fact that begins strictly after today. Duplicates are removed and the
	// first-seen order is kept.
	ListCandidateIDs(ctx context.Context) ([]string, error)

	// Batches streams the given ids in batches of batchSize. Each batch holds
	// the entities with all of their facts attached. The sequence yields a
	// non-nil error once and stops when the upstream becomes unavailable.
	Batches(ctx context.Context, ids []string, batchSize int) iter.Seq2[*Batch, error]

	// Close releases the reader's resources.
	Close() error
}

// Batch is one page of entities.
type Batch struct {
	Entities []*core.Entity
	Skipped  int // Malformed records dropped while assembling the batch
}

// FetchFunc loads one page of ids.
type FetchFunc func(ctx context.Context, ids []string) (*Batch, error)

// BatchSeq pages ids through fetch. A fetch error is yielded once and ends
// the sequence, as does context cancellation.
func BatchSeq(ctx context.Context, ids []string, batchSize int, fetch FetchFunc) iter.Seq2[*Batch, error] {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return func(yield func(*Batch, error) bool) {
		for start := 0; start < len(ids); start += batchSize {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			end := min(start+batchSize, len(ids))
			batch, err := fetch(ctx, ids[start:end])
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(batch, nil) {
				return
			}
		}
	}
}

// DedupIDs removes duplicates and empty ids, keeping the first occurrence.
func DedupIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
