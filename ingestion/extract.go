package ingestion

import (
	"context"
	"log/slog"
	"time"

	"github.com/poiesic/cruisekb/core"
)

func (p *Pipeline) extract(ctx context.Context, report *Report, logger *slog.Logger) error {
	if p.reader == nil {
		return ErrReaderRequired
	}
	logger = logger.With("stage", "extract")
	today := p.now()

	ids, err := p.reader.ListCandidateIDs(ctx)
	if err != nil {
		logger.Error("failed to list candidate ids", "err", err)
		return err
	}
	report.Candidates = len(ids)
	logger.Info("extraction started", "candidates", len(ids), "batch_size", p.batchSize)

	tracker := NewProgressTracker(p.progress, "extract", len(ids), defaultReportInterval)
	tracker.Start()

	for batch, err := range p.reader.Batches(ctx, ids, p.batchSize) {
		if err != nil {
			logger.Error("source unavailable, aborting extraction", "err", err)
			return err
		}
		report.Skipped += batch.Skipped
		p.storeBatch(ctx, batch.Entities, today, report, logger)
		tracker.Increment(len(batch.Entities) + batch.Skipped)
	}

	tracker.Finish()
	logger.Info("extraction finished",
		"extracted", report.Extracted,
		"skipped", report.Skipped,
		"failed", report.ExtractFailed,
		"date_index_failed", report.DateIndexFailed)
	return nil
}

// storeBatch saves raw entities and their date index rows. Storage failures
// are logged and counted; the entity is picked up again on the next run.
// Missing date rows are restored by RebuildDateIndex.
func (p *Pipeline) storeBatch(ctx context.Context, entities []*core.Entity, today time.Time, report *Report, logger *slog.Logger) {
	if len(entities) == 0 {
		return
	}
	bctx, cancel := p.batchContext(ctx)
	defer cancel()

	if err := p.store.SaveRaw(bctx, entities...); err != nil {
		logger.Error("failed to save raw batch", "entities", len(entities), "err", err)
		report.ExtractFailed += len(entities)
		return
	}
	report.Extracted += len(entities)

	for _, entity := range entities {
		summary := core.Aggregate(entity.Facts, p.currency, today)
		if err := p.store.IndexDates(bctx, entity.ID, entity.Code, summary); err != nil {
			logger.Error("failed to index dates", "entity_id", entity.ID, "err", err)
			report.DateIndexFailed++
		}
	}
}
