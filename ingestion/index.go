package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/cruisekb/core"
)

func (p *Pipeline) index(ctx context.Context, report *Report, logger *slog.Logger) error {
	if p.indexer == nil {
		return ErrIndexerRequired
	}
	logger = logger.With("stage", "index")

	total, err := p.store.TransformedCount(ctx)
	if err != nil {
		logger.Error("failed to count documents", "err", err)
		return err
	}
	logger.Info("indexing started", "documents", total, "batch_size", p.indexBatchSize, "workers", p.poolSize)

	pool, err := ants.NewPool(p.poolSize)
	if err != nil {
		return err
	}
	defer pool.Release()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	tracker := NewProgressTracker(p.progress, "index", total, defaultReportInterval)
	tracker.Start()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}

	for docs, err := range pages(runCtx, p.indexBatchSize, p.store.TransformedBatch) {
		if err != nil {
			// Cancellation after a stop-on-error failure is not a read error.
			if !errors.Is(err, context.Canceled) || ctx.Err() != nil {
				fail(err)
			}
			break
		}

		wg.Add(1)
		task := func() {
			defer wg.Done()
			err := p.indexBatch(runCtx, docs)

			mu.Lock()
			if err != nil {
				report.IndexFailed += len(docs)
			} else {
				report.Indexed += len(docs)
			}
			mu.Unlock()

			if err != nil {
				logger.Error("failed to index batch", "documents", len(docs), "first_id", docs[0].ID, "err", err)
				if p.stopOnError {
					fail(err)
					cancel()
				}
				return
			}
			tracker.Increment(len(docs))
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			fail(err)
			break
		}
	}

	wg.Wait()
	tracker.Finish()

	logger.Info("indexing finished", "indexed", report.Indexed, "failed", report.IndexFailed)
	return firstErr
}

func (p *Pipeline) indexBatch(ctx context.Context, docs []*core.Document) error {
	bctx, cancel := p.batchContext(ctx)
	defer cancel()
	return p.indexer.IndexBatch(bctx, docs)
}
