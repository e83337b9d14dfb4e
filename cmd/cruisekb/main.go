// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/poiesic/cruisekb"
	"github.com/poiesic/cruisekb/config"
	"github.com/poiesic/cruisekb/index"
	"github.com/poiesic/cruisekb/ingestion"
	"github.com/poiesic/cruisekb/search"
	"github.com/poiesic/cruisekb/source"
	"github.com/poiesic/cruisekb/transform"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "cruisekb",
		Usage: "Cruise catalog knowledge base",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				EnvVars: []string{config.ConfigPathEnv},
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Dotenv file loaded before the configuration",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory (overrides config)",
			},
		},
		Before: func(c *cli.Context) error {
			if err := setupLogger(c); err != nil {
				return err
			}
			return loadEnv(c.String("env-file"))
		},
		Commands: []*cli.Command{
			{
				Name:   "extract",
				Usage:  "Copy candidate cruises from the source into the local cache",
				Action: stageCommand((*ingestion.Pipeline).Extract, true),
			},
			{
				Name:   "transform",
				Usage:  "Build documents for cached cruises not yet processed",
				Action: stageCommand((*ingestion.Pipeline).Transform, false),
			},
			{
				Name:   "index",
				Usage:  "Embed documents into the vector collection",
				Action: stageCommand((*ingestion.Pipeline).Index, false),
			},
			{
				Name:   "run",
				Usage:  "Run extract, transform and index in order",
				Action: stageCommand((*ingestion.Pipeline).Run, true),
			},
			{
				Name:      "query",
				Usage:     "Search the knowledge base",
				ArgsUsage: "<text>",
				Action:    queryCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "from",
						Usage: "Earliest departure month (YYYY-MM-DD)",
					},
					&cli.StringFlag{
						Name:  "to",
						Usage: "Latest departure month (YYYY-MM-DD)",
					},
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of results (defaults to config)",
					},
				},
			},
			{
				Name:   "reset",
				Usage:  "Drop the local cache tables",
				Action: resetCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "vectors",
						Usage: "Also empty the vector collection",
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Print table sizes",
				Action: statsCommand,
			},
			{
				Name:   "rebuild-dates",
				Usage:  "Recompute the date index from cached cruises",
				Action: rebuildDatesCommand,
			},
		},
	}
}

// session is an opened database plus the configuration it was opened with.
type session struct {
	cfg *config.Config
	db  *cruisekb.Database
}

func openSession(c *cli.Context) (*session, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if path := c.String("db"); path != "" {
		cfg.Store.Path = path
	}

	db, err := cruisekb.NewDatabase(cfg.Store.Path,
		cruisekb.WithAIConfig(cfg.AI()),
		cruisekb.WithCollection(cfg.Store.Collection),
		cruisekb.WithLogger(slog.Default()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &session{cfg: cfg, db: db}, nil
}

// pipeline builds a pipeline from the configuration. The source is opened
// only when withReader is set.
func (s *session) pipeline(c *cli.Context, withReader bool) (*ingestion.Pipeline, func(), error) {
	var reader source.Reader
	if withReader {
		var err error
		reader, err = cruisekb.OpenReader(c.Context, s.cfg.Source, slog.Default())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open source: %w", err)
		}
	}
	closeReader := func() {
		if reader != nil {
			reader.Close()
		}
	}

	pc := s.cfg.Pipeline
	p, err := s.db.NewIngestionPipeline(reader,
		[]index.Option{index.WithRetry(pc.MaxAttempts, pc.RetryDelay)},
		ingestion.WithBatchSize(s.cfg.Source.BatchSize),
		ingestion.WithPageSize(pc.PageSize),
		ingestion.WithIndexBatchSize(pc.IndexBatchSize),
		ingestion.WithPoolSize(pc.Workers),
		ingestion.WithStopOnError(pc.StopOnError),
		ingestion.WithBatchTimeout(pc.BatchTimeout),
		ingestion.WithCurrency(pc.Currency),
		ingestion.WithTransformer(transform.New(
			transform.WithLinkBase(s.cfg.Search.LinkBase),
			transform.WithLogger(slog.Default()),
		)),
		ingestion.WithProgress(c.App.ErrWriter),
	)
	if err != nil {
		closeReader()
		return nil, nil, err
	}
	return p, closeReader, nil
}

func (s *session) Close() error {
	return s.db.Close()
}

type stageFunc func(*ingestion.Pipeline, context.Context) (*ingestion.Report, error)

func stageCommand(stage stageFunc, withReader bool) cli.ActionFunc {
	return func(c *cli.Context) error {
		ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()
		c.Context = ctx

		s, err := openSession(c)
		if err != nil {
			return err
		}
		defer s.Close()

		p, closeReader, err := s.pipeline(c, withReader)
		if err != nil {
			return err
		}
		defer closeReader()

		report, err := stage(p, ctx)
		if report != nil {
			printReport(c, report)
		}
		if err != nil {
			return fmt.Errorf("%s failed: %w", c.Command.Name, err)
		}
		return nil
	}
}

func printReport(c *cli.Context, r *ingestion.Report) {
	w := c.App.Writer
	fmt.Fprintf(w, "Run: %s\n", r.RunID)
	fmt.Fprintf(w, "Candidates: %d\n", r.Candidates)
	fmt.Fprintf(w, "Extracted: %d (skipped %d, failed %d, date index failed %d)\n",
		r.Extracted, r.Skipped, r.ExtractFailed, r.DateIndexFailed)
	fmt.Fprintf(w, "Transformed: %d (already processed %d, excluded %d, failed %d)\n",
		r.Transformed, r.AlreadyProcessed, r.Excluded, r.TransformFailed)
	fmt.Fprintf(w, "Indexed: %d (failed %d)\n", r.Indexed, r.IndexFailed)
}

func queryCommand(c *cli.Context) error {
	text := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if text == "" {
		return fmt.Errorf("query text is required")
	}

	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	searcher, err := s.db.NewSearcher(search.WithLinkBase(s.cfg.Search.LinkBase))
	if err != nil {
		return err
	}

	topK := c.Int("top-k")
	if topK <= 0 {
		topK = s.cfg.Search.TopK
	}
	results, err := searcher.Query(c.Context, search.Request{
		Text:     text,
		DateFrom: c.String("from"),
		DateTo:   c.String("to"),
		TopK:     topK,
	})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func resetCommand(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.db.Reset(c.Context, c.Bool("vectors")); err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}
	fmt.Fprintln(c.App.Writer, "Tables reset")
	return nil
}

func statsCommand(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	stats, err := s.db.Stats(c.Context)
	if err != nil {
		return err
	}
	w := c.App.Writer
	fmt.Fprintf(w, "Raw: %d\n", stats.Raw)
	fmt.Fprintf(w, "Transformed: %d\n", stats.Transformed)
	fmt.Fprintf(w, "Processed: %d\n", stats.Processed)
	fmt.Fprintf(w, "Vectors: %d\n", stats.Vectors)
	return nil
}

func rebuildDatesCommand(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	p, err := s.db.NewIngestionPipeline(nil, nil, ingestion.WithCurrency(s.cfg.Pipeline.Currency))
	if err != nil {
		return err
	}
	n, err := p.RebuildDateIndex(c.Context)
	if err != nil {
		return fmt.Errorf("rebuilding date index failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Date index rebuilt for %d cruises\n", n)
	return nil
}

// loadEnv loads a dotenv file; a missing file is not an error.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
