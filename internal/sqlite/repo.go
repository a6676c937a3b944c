package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	hlerrs "github.com/jdholdren/headlines/internal/errors"
	"github.com/jdholdren/headlines/internal/migrations"
	"github.com/jdholdren/headlines/internal/news"
)

// Ensure Repo implements the Store interface
var _ news.Store = Repo{}

// Repo is the SQLite-backed news.Store.
type Repo struct {
	db *sqlx.DB
}

// New wraps an open database, usually one from Open.
func New(db *sqlx.DB) Repo {
	return Repo{db: db}
}

// Open connects to the database file at path, creating it if needed.
//
// Timestamps are written in SQLite's own text format and a single connection
// is kept open: a run never issues two statements at once.
func Open(ctx context.Context, path string) (*sqlx.DB, error) {
	dbx, err := sqlx.Open("sqlite", fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_time_format=sqlite", path))
	if err != nil {
		return nil, hlerrs.E(fmt.Errorf("error opening database: %w", err), hlerrs.KindStorage)
	}
	dbx.SetMaxOpenConns(1)

	if err := dbx.PingContext(ctx); err != nil {
		dbx.Close()
		return nil, hlerrs.E(fmt.Errorf("error connecting to database: %w", err), hlerrs.KindStorage)
	}

	return dbx, nil
}

// Initialize brings the schema up to date. It never touches existing rows.
func (r Repo) Initialize(ctx context.Context) error {
	if err := migrations.Run(r.db); err != nil {
		return hlerrs.E(err, hlerrs.KindStorage)
	}

	return nil
}
