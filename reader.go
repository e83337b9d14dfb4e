package cruisekb

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/poiesic/cruisekb/config"
	"github.com/poiesic/cruisekb/source"
	"github.com/poiesic/cruisekb/source/catalog"
	"github.com/poiesic/cruisekb/source/sqlsource"
)

// OpenReader opens the upstream source described by cfg.
func OpenReader(ctx context.Context, cfg config.SourceConfig, logger *slog.Logger) (source.Reader, error) {
	switch cfg.Type {
	case config.SourceSQL:
		return sqlsource.Open(ctx, cfg.Driver, cfg.DSN, sqlsource.WithLogger(logger))
	case config.SourceCatalog:
		return catalog.New(cfg.Catalog.BaseURL,
			catalog.WithPaths(cfg.Catalog.IDsPath, cfg.Catalog.BatchPath),
			catalog.WithRateLimit(catalog.RateLimitConfig{
				RequestsPerSecond: cfg.Catalog.RequestsPerSecond,
				BurstSize:         cfg.Catalog.Burst,
			}),
			catalog.WithHTTPClient(&http.Client{Timeout: cfg.Catalog.Timeout}),
			catalog.WithLogger(logger),
		)
	default:
		return nil, fmt.Errorf("unknown source type %q", cfg.Type)
	}
}
