package sqlite

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	hlerrs "github.com/jdholdren/headlines/internal/errors"
	"github.com/jdholdren/headlines/internal/news"
)

var newsColumns = []string{"id", "title", "description", "link", "published_at", "category"}

// Append inserts every record under the given category in one transaction
// and returns the stored copies with their IDs.
//
// A failure rolls the whole batch back.
func (r Repo) Append(ctx context.Context, records []news.Record, category string) ([]news.Record, error) {
	if len(records) == 0 {
		return []news.Record{}, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, hlerrs.E(fmt.Errorf("error starting transaction: %w", err), hlerrs.KindStorage)
	}
	defer tx.Rollback()

	const q = `INSERT INTO news (title, description, link, published_at, category)
	VALUES (:title, :description, :link, :published_at, :category);`
	stmt, err := tx.PrepareNamedContext(ctx, q)
	if err != nil {
		return nil, hlerrs.E(fmt.Errorf("error preparing insert: %w", err), hlerrs.KindStorage)
	}
	defer stmt.Close()

	stored := make([]news.Record, 0, len(records))
	for _, rec := range records {
		rec.ID = 0
		rec.Category = category
		rec.PublishedAt = rec.PublishedAt.UTC()

		res, err := stmt.ExecContext(ctx, rec)
		if err != nil {
			return nil, hlerrs.E(fmt.Errorf("error inserting record: %w", err), hlerrs.KindStorage)
		}
		if rec.ID, err = res.LastInsertId(); err != nil {
			return nil, hlerrs.E(fmt.Errorf("error reading inserted id: %w", err), hlerrs.KindStorage)
		}

		stored = append(stored, rec)
	}

	if err := tx.Commit(); err != nil {
		return nil, hlerrs.E(fmt.Errorf("error committing records: %w", err), hlerrs.KindStorage)
	}

	return stored, nil
}

// All retrieves _all_ records, oldest insert first.
func (r Repo) All(ctx context.Context) ([]news.Record, error) {
	query, args, err := sq.Select(newsColumns...).From("news").OrderBy("id ASC").ToSql()
	if err != nil {
		return nil, hlerrs.E(fmt.Errorf("error constructing sql: %w", err), hlerrs.KindStorage)
	}

	records := []news.Record{}
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, hlerrs.E(fmt.Errorf("error selecting records: %w", err), hlerrs.KindStorage)
	}

	return records, nil
}

// Count returns the number of stored records.
func (r Repo) Count(ctx context.Context) (int, error) {
	const q = "SELECT COUNT(*) FROM news;"

	var count int
	if err := r.db.GetContext(ctx, &count, q); err != nil {
		return 0, hlerrs.E(fmt.Errorf("error counting records: %w", err), hlerrs.KindStorage)
	}

	return count, nil
}
