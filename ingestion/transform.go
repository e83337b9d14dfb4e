package ingestion

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/cruisekb/core"
)

func (p *Pipeline) transform(ctx context.Context, report *Report, logger *slog.Logger) error {
	logger = logger.With("stage", "transform")
	today := p.now()

	processedIDs, err := p.store.ListProcessedIDs(ctx)
	if err != nil {
		logger.Error("failed to load processed ids", "err", err)
		return err
	}
	processed := make(map[string]struct{}, len(processedIDs))
	for _, id := range processedIDs {
		processed[id] = struct{}{}
	}

	total, err := p.store.RawCount(ctx)
	if err != nil {
		logger.Error("failed to count raw entities", "err", err)
		return err
	}
	logger.Info("transformation started", "raw", total, "processed", len(processed))

	tracker := NewProgressTracker(p.progress, "transform", total, defaultReportInterval)
	tracker.Start()

	for page, err := range pages(ctx, p.pageSize, p.store.RawBatch) {
		if err != nil {
			logger.Error("failed to read raw entities", "err", err)
			return err
		}
		p.transformPage(ctx, page, processed, today, report, logger)
		tracker.Increment(len(page))
	}

	tracker.Finish()
	logger.Info("transformation finished",
		"transformed", report.Transformed,
		"excluded", report.Excluded,
		"already_processed", report.AlreadyProcessed,
		"failed", report.TransformFailed)
	return nil
}

func (p *Pipeline) transformPage(ctx context.Context, page []*core.Entity, processed map[string]struct{}, today time.Time, report *Report, logger *slog.Logger) {
	bctx, cancel := p.batchContext(ctx)
	defer cancel()

	for _, entity := range page {
		if _, done := processed[entity.ID]; done {
			report.AlreadyProcessed++
			continue
		}

		summary := core.Aggregate(entity.Facts, p.currency, today)
		doc, ok := p.transformer.Transform(entity, summary)
		if ok && strings.TrimSpace(doc.Text) == "" {
			logger.Warn("entity has no describable attributes, skipping", "entity_id", entity.ID)
			ok = false
		} else if !ok {
			logger.Debug("entity has no future departures", "entity_id", entity.ID)
		}

		if ok {
			if err := p.store.SaveTransformed(bctx, doc); err != nil {
				logger.Error("failed to save document", "entity_id", entity.ID, "err", err)
				report.TransformFailed++
				continue
			}
			report.Transformed++
		} else {
			report.Excluded++
		}

		if err := p.store.MarkProcessed(bctx, entity.ID); err != nil {
			logger.Error("failed to mark entity processed", "entity_id", entity.ID, "err", err)
			report.TransformFailed++
			continue
		}
		processed[entity.ID] = struct{}{}

		if (report.Transformed+report.Excluded)%10 == 0 {
			logger.Debug("transform progress", "transformed", report.Transformed, "excluded", report.Excluded)
		}
	}
}
