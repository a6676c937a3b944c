package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextAttrsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "json", "info")
	require.NoError(t, err)

	ctx := Ctx(context.Background(), slog.String("run_id", "abc"))
	ctx = Ctx(ctx, slog.String("feed_url", "http://example.com/rss"))
	l.InfoContext(ctx, "fetched feed", "entries", 2)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "fetched feed", line["msg"])
	assert.Equal(t, "abc", line["run_id"])
	assert.Equal(t, "http://example.com/rss", line["feed_url"])
	assert.EqualValues(t, 2, line["entries"])
}

func TestCtxDoesNotLeakBetweenSiblings(t *testing.T) {
	base := Ctx(context.Background(), slog.String("run_id", "abc"))
	a := Ctx(base, slog.String("feed_url", "a"))
	b := Ctx(base, slog.String("feed_url", "b"))

	require.Len(t, Attrs(a), 2)
	require.Len(t, Attrs(b), 2)
	assert.Equal(t, "a", Attrs(a)[1].Value.String())
	assert.Equal(t, "b", Attrs(b)[1].Value.String())
	assert.Len(t, Attrs(base), 1)
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "text", "warn")
	require.NoError(t, err)

	l.Info("hidden")
	assert.Empty(t, buf.String())

	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "xml", "info")
	assert.Error(t, err)

	_, err = New(&bytes.Buffer{}, "text", "loud")
	assert.Error(t, err)
}
