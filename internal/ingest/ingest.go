// Package ingest runs the fetch and store stages over a list of sources.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	hlerrs "github.com/jdholdren/headlines/internal/errors"
	"github.com/jdholdren/headlines/internal/feeds"
	"github.com/jdholdren/headlines/internal/news"
	"github.com/jdholdren/headlines/logger"
)

// Fetcher turns a feed URL into records.
type Fetcher interface {
	Feed(ctx context.Context, feedURL string) ([]news.Record, error)
}

type (
	// Pipeline fetches each source in order and appends its records to the store.
	Pipeline struct {
		fetcher Fetcher
		store   news.Store
		cfg     Config
	}

	// Config tunes how a Pipeline treats its sources.
	Config struct {
		// Category for sources that don't name one.
		DefaultCategory string
		// When set, a source that can't be retrieved is logged and skipped
		// instead of ending the run.
		SkipFailed bool
	}

	// Summary describes what a run did.
	Summary struct {
		Sources int
		Failed  int
		Stored  int
	}
)

// New builds a Pipeline. An empty DefaultCategory falls back to news.DefaultCategory.
func New(fetcher Fetcher, store news.Store, cfg Config) Pipeline {
	if cfg.DefaultCategory == "" {
		cfg.DefaultCategory = news.DefaultCategory
	}

	return Pipeline{
		fetcher: fetcher,
		store:   store,
		cfg:     cfg,
	}
}

// Run initializes the store then ingests every source, one after another.
func (p Pipeline) Run(ctx context.Context, sources []feeds.Source) (Summary, error) {
	if err := p.store.Initialize(ctx); err != nil {
		return Summary{}, fmt.Errorf("error initializing store: %w", err)
	}

	var sum Summary
	for _, src := range sources {
		sum.Sources++

		srcCtx := logger.Ctx(ctx, slog.String("feed_url", src.URL))
		stored, err := p.ingest(srcCtx, src)
		if err != nil {
			// Only retrieval failures are isolated; storage problems end the run either way.
			if !p.cfg.SkipFailed || hlerrs.KindOf(err) != hlerrs.KindRetrieval {
				return sum, err
			}

			sum.Failed++
			slog.WarnContext(srcCtx, "skipping feed", "error", err)
			continue
		}

		sum.Stored += stored
	}

	return sum, nil
}

func (p Pipeline) ingest(ctx context.Context, src feeds.Source) (int, error) {
	records, err := p.fetcher.Feed(ctx, src.URL)
	if err != nil {
		return 0, err
	}

	category := src.Category
	if category == "" {
		category = p.cfg.DefaultCategory
	}

	stored, err := p.store.Append(ctx, records, category)
	if err != nil {
		return 0, fmt.Errorf("error storing entries from %s: %w", src.URL, err)
	}
	slog.InfoContext(ctx, "stored feed entries", "entries", len(stored), "category", category)

	return len(stored), nil
}
