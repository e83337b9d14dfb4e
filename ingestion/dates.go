package ingestion

import (
	"context"

	"github.com/poiesic/cruisekb/core"
)

// RebuildDateIndex recomputes every entity's date index rows from the raw
// table using today's date. It returns the number of entities indexed.
func (p *Pipeline) RebuildDateIndex(ctx context.Context) (int, error) {
	_, logger := p.newRun()
	logger = logger.With("stage", "rebuild-dates")
	today := p.now()

	var count int
	for page, err := range pages(ctx, p.pageSize, p.store.RawBatch) {
		if err != nil {
			return count, err
		}
		for _, entity := range page {
			summary := core.Aggregate(entity.Facts, p.currency, today)
			if err := p.store.IndexDates(ctx, entity.ID, entity.Code, summary); err != nil {
				return count, err
			}
			count++
		}
	}

	logger.Info("date index rebuilt", "entities", count)
	return count, nil
}
