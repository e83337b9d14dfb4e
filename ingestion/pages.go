package ingestion

import (
	"context"
	"iter"
)

// pageFunc loads up to size items starting at offset.
type pageFunc[T any] func(ctx context.Context, size, offset int) ([]T, error)

// pages iterates a table page by page in stable order.
// Iteration stops on the first error, on an empty page or when ctx is done.
func pages[T any](ctx context.Context, size int, fetch pageFunc[T]) iter.Seq2[[]T, error] {
	return func(yield func([]T, error) bool) {
		for offset := 0; ; {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			page, err := fetch(ctx, size, offset)
			if err != nil {
				yield(nil, err)
				return
			}
			if len(page) == 0 {
				return
			}
			if !yield(page, nil) {
				return
			}
			offset += len(page)
		}
	}
}
