package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hlerrs "github.com/jdholdren/headlines/internal/errors"
	"github.com/jdholdren/headlines/internal/news"
)

func newTestRepo(t *testing.T) (Repo, *sqlx.DB) {
	t.Helper()

	dbx, err := Open(context.Background(), filepath.Join(t.TempDir(), "news.db"))
	require.NoError(t, err)
	t.Cleanup(func() { dbx.Close() })

	repo := New(dbx)
	require.NoError(t, repo.Initialize(context.Background()))

	return repo, dbx
}

func testRecords(n int) []news.Record {
	base := time.Date(2023, 1, 2, 10, 0, 0, 0, time.UTC)
	records := make([]news.Record, n)
	for i := range records {
		records[i] = news.Record{
			Title:       "Title",
			Description: "Description",
			Link:        "https://example.com/post",
			PublishedAt: base.Add(time.Duration(i) * time.Hour),
		}
	}
	return records
}

func TestAppendThenAll(t *testing.T) {
	var (
		ctx     = context.Background()
		repo, _ = newTestRepo(t)
	)

	stored, err := repo.Append(ctx, testRecords(5), "Others")
	require.NoError(t, err)
	require.Len(t, stored, 5)

	all, err := repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 5)

	for i, rec := range all {
		assert.Equal(t, stored[i].ID, rec.ID)
		assert.Equal(t, "Others", rec.Category)
		assert.Equal(t, "Title", rec.Title)
		assert.True(t, stored[i].PublishedAt.Equal(rec.PublishedAt), "published_at %s != %s", stored[i].PublishedAt, rec.PublishedAt)
		if i > 0 {
			assert.Greater(t, rec.ID, all[i-1].ID)
		}
	}
}

func TestAppendKeepsIDsIncreasingAcrossBatches(t *testing.T) {
	var (
		ctx     = context.Background()
		repo, _ = newTestRepo(t)
	)

	first, err := repo.Append(ctx, testRecords(2), "World")
	require.NoError(t, err)
	second, err := repo.Append(ctx, testRecords(3), "Business")
	require.NoError(t, err)

	assert.Greater(t, second[0].ID, first[1].ID)

	all, err := repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "World", all[0].Category)
	assert.Equal(t, "Business", all[4].Category)

	seen := map[int64]bool{}
	for _, rec := range all {
		assert.False(t, seen[rec.ID], "duplicate id %d", rec.ID)
		seen[rec.ID] = true
	}
}

func TestAppendEmpty(t *testing.T) {
	var (
		ctx     = context.Background()
		repo, _ = newTestRepo(t)
	)

	stored, err := repo.Append(ctx, nil, "Others")
	require.NoError(t, err)
	assert.Empty(t, stored)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAppendOverridesCategoryAndID(t *testing.T) {
	var (
		ctx     = context.Background()
		repo, _ = newTestRepo(t)
	)

	recs := testRecords(1)
	recs[0].ID = 99
	recs[0].Category = "ignored"

	stored, err := repo.Append(ctx, recs, "Others")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored[0].ID)
	assert.Equal(t, "Others", stored[0].Category)
}

func TestInitializeIsIdempotent(t *testing.T) {
	var (
		ctx     = context.Background()
		repo, _ = newTestRepo(t)
	)

	_, err := repo.Append(ctx, testRecords(3), "Others")
	require.NoError(t, err)

	require.NoError(t, repo.Initialize(ctx))
	require.NoError(t, repo.Initialize(ctx))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestInitializeAdoptsExistingTable(t *testing.T) {
	ctx := context.Background()

	dbx, err := Open(ctx, filepath.Join(t.TempDir(), "legacy.db"))
	require.NoError(t, err)
	t.Cleanup(func() { dbx.Close() })

	// A table left behind by an earlier tool, without migration bookkeeping.
	_, err = dbx.ExecContext(ctx, `CREATE TABLE news (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		link TEXT NOT NULL,
		published_at TIMESTAMP NOT NULL,
		category TEXT NOT NULL
	)`)
	require.NoError(t, err)
	_, err = dbx.ExecContext(ctx, `INSERT INTO news (title, description, link, published_at, category)
	VALUES ('old', 'kept', 'https://example.com', '2023-01-02 10:00:00', 'Others')`)
	require.NoError(t, err)

	repo := New(dbx)
	require.NoError(t, repo.Initialize(ctx))

	all, err := repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "old", all[0].Title)
	assert.True(t, time.Date(2023, 1, 2, 10, 0, 0, 0, time.UTC).Equal(all[0].PublishedAt))
}

func TestStorageErrorsAreKinded(t *testing.T) {
	var (
		ctx       = context.Background()
		repo, dbx = newTestRepo(t)
	)
	require.NoError(t, dbx.Close())

	_, err := repo.All(ctx)
	require.Error(t, err)
	assert.Equal(t, hlerrs.KindStorage, hlerrs.KindOf(err))

	_, err = repo.Append(ctx, testRecords(1), "Others")
	require.Error(t, err)
	assert.Equal(t, hlerrs.KindStorage, hlerrs.KindOf(err))
}
