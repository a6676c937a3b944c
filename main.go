// Headlines pulls a fixed set of news feeds into a local SQLite table and
// dumps the whole table to a JSON file.
//
// Everything is configured through the environment; see the config struct.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-envconfig"
	_ "golang.org/x/crypto/x509roots/fallback" // TLS roots for scratch containers

	hlerrs "github.com/jdholdren/headlines/internal/errors"
	"github.com/jdholdren/headlines/internal/export"
	"github.com/jdholdren/headlines/internal/feeds"
	"github.com/jdholdren/headlines/internal/ingest"
	"github.com/jdholdren/headlines/internal/sqlite"
	"github.com/jdholdren/headlines/internal/sync"
	"github.com/jdholdren/headlines/logger"
)

const successMessage = "News articles fetched, stored, and exported to JSON successfully!"

type config struct {
	Database string `env:"DATABASE, default=news_database.db"`
	Output   string `env:"OUTPUT, default=news_data.json"`
	Category string `env:"CATEGORY, default=Others"`

	// TOML file of [[feeds]]; the built-in list is used when empty.
	FeedsFile string `env:"FEEDS_FILE"`

	FetchTimeout    time.Duration `env:"FETCH_TIMEOUT, default=30s"`
	FetchRetries    uint64        `env:"FETCH_RETRIES, default=0"`
	FetchBackoff    time.Duration `env:"FETCH_BACKOFF, default=1s"`
	SkipFailedFeeds bool          `env:"SKIP_FAILED_FEEDS, default=false"`

	// Which format to use for logging: either text or json
	LoggerFormat string `env:"LOGGER_FORMAT, default=text"`
	LogLevel     string `env:"LOG_LEVEL, default=info"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Parse the config
	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		log.Fatalf("error parsing config: %s", err)
	}

	l, err := logger.New(os.Stderr, cfg.LoggerFormat, cfg.LogLevel)
	if err != nil {
		log.Fatalf("error configuring logger: %s", err)
	}
	slog.SetDefault(l)

	// Start the application
	if err := run(ctx, cfg); err != nil {
		slog.Error("error running", "kind", hlerrs.KindOf(err), "error", err)
		os.Exit(1)
	}

	fmt.Println(successMessage)
}

func run(ctx context.Context, cfg config) error {
	ctx = logger.Ctx(ctx, slog.String("run_id", uuid.NewString()))
	slog.DebugContext(ctx, "running", "config", cfg)

	sources := feeds.Defaults
	if cfg.FeedsFile != "" {
		var err error
		if sources, err = feeds.Load(cfg.FeedsFile); err != nil {
			return err
		}
	}

	dbx, err := sqlite.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer dbx.Close()

	var (
		store   = sqlite.New(dbx)
		fetcher = sync.New(cfg.FetchTimeout, sync.WithRetries(cfg.FetchRetries, cfg.FetchBackoff))
		p       = ingest.New(fetcher, store, ingest.Config{
			DefaultCategory: cfg.Category,
			SkipFailed:      cfg.SkipFailedFeeds,
		})
	)

	sum, err := p.Run(ctx, sources)
	if err != nil {
		return fmt.Errorf("error ingesting feeds: %w", err)
	}

	total, err := store.Count(ctx)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "ingested feeds",
		"sources", sum.Sources,
		"failed", sum.Failed,
		"stored", sum.Stored,
		"total", total,
	)

	n, err := export.JSON(ctx, store, cfg.Output)
	if err != nil {
		return fmt.Errorf("error exporting: %w", err)
	}
	slog.InfoContext(ctx, "exported records", "path", cfg.Output, "records", n)

	return nil
}
