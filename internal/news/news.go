// Package news holds the record type shared by the fetch, store and export
// stages of a run.
package news

import (
	"context"
	"time"
)

// DefaultCategory is applied to records from sources without a category of their own.
const DefaultCategory = "Others"

type (
	// Record is a normalized feed entry, as stored in the news table.
	//
	// A record built by the fetcher has no ID or category yet; both are set
	// when it is appended to the store.
	Record struct {
		ID          int64     `db:"id" json:"id"`
		Title       string    `db:"title" json:"title"`
		Description string    `db:"description" json:"description"`
		Link        string    `db:"link" json:"link"`
		PublishedAt time.Time `db:"published_at" json:"published_at"`
		Category    string    `db:"category" json:"category"`
	}

	// Store is the append-only persistence surface for records.
	Store interface {
		// Initialize makes sure the schema exists. Safe to call on every run.
		Initialize(ctx context.Context) error
		// Append stores the records under the category and returns them with IDs assigned.
		Append(ctx context.Context, records []Record, category string) ([]Record, error)
		// All returns every stored record in insertion order.
		All(ctx context.Context) ([]Record, error)
		// Count returns how many records are stored.
		Count(ctx context.Context) (int, error)
	}
)
