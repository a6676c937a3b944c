// Package sync retrieves feeds and normalizes their entries into records.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
	"github.com/samber/lo"
	"github.com/sethvargo/go-retry"

	hlerrs "github.com/jdholdren/headlines/internal/errors"
	"github.com/jdholdren/headlines/internal/news"
)

// PublishedLayout is the only publish date format understood, e.g.
// "Mon, 02 Jan 2023 10:00:00 GMT". Anything else falls back to the current time.
const PublishedLayout = "Mon, 2 Jan 2006 15:04:05 GMT"

const userAgent = "headlines/1.0 (+https://github.com/jdholdren/headlines)"

// Fetcher pulls feed documents over HTTP.
type Fetcher struct {
	client  *http.Client
	parser  *gofeed.Parser
	now     func() time.Time
	retries uint64
	backoff time.Duration
}

type Option func(*Fetcher)

// WithClient swaps the HTTP client used for requests.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithClock replaces the source of "now" used for missing or malformed publish dates.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) { f.now = now }
}

// WithRetries retries transport errors and 5xx responses up to n extra times,
// backing off exponentially from base.
func WithRetries(n uint64, base time.Duration) Option {
	return func(f *Fetcher) {
		f.retries = n
		if base > 0 {
			f.backoff = base
		}
	}
}

// New creates a Fetcher whose requests time out after timeout. Zero means no timeout.
func New(timeout time.Duration, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:  &http.Client{Timeout: timeout},
		parser:  gofeed.NewParser(),
		now:     time.Now,
		backoff: time.Second,
	}
	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Feed goes to the url and turns every entry into a record, in document order.
//
// Records come back without an ID or category.
func (f *Fetcher) Feed(ctx context.Context, feedURL string) ([]news.Record, error) {
	var feed *gofeed.Feed
	b := retry.WithMaxRetries(f.retries, retry.NewExponential(f.backoff))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		var err error
		feed, err = f.fetch(ctx, feedURL)
		if err != nil {
			slog.DebugContext(ctx, "feed attempt failed", "error", err)
		}
		return err
	})
	if err != nil {
		return nil, hlerrs.E(fmt.Errorf("error syncing feed %s: %w", feedURL, err), hlerrs.KindRetrieval)
	}

	return lo.Map(feed.Items, func(item *gofeed.Item, _ int) news.Record {
		return f.normalize(ctx, item)
	}), nil
}

func (f *Fetcher) fetch(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, retry.RetryableError(fmt.Errorf("error getting feed url: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, retry.RetryableError(fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	feed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error decoding feed: %w", err)
	}

	return feed, nil
}

func (f *Fetcher) normalize(ctx context.Context, item *gofeed.Item) news.Record {
	// gofeed folds RSS description and Atom summary into Description.
	desc, _ := lo.Coalesce(item.Description, item.Content)

	return news.Record{
		Title:       item.Title,
		Description: sanitize(desc),
		Link:        item.Link,
		PublishedAt: f.publishedAt(ctx, item.Published),
	}
}

// publishedAt parses the raw publish string, substituting now for missing or
// malformed values. The substitution loses the original value.
func (f *Fetcher) publishedAt(ctx context.Context, raw string) time.Time {
	if raw == "" {
		return f.now().UTC()
	}

	t, err := time.Parse(PublishedLayout, raw)
	if err != nil {
		slog.DebugContext(ctx, "unrecognized publish date, using current time", "published", raw)
		return f.now().UTC()
	}

	return t.UTC()
}

var (
	sanitizePolicy = bluemonday.UGCPolicy()

	// A tag, comment or doctype opener. A lone "<" in prose doesn't count.
	markupRe = regexp.MustCompile(`<[A-Za-z/!?]`)
	// An escaped ampersand, plus the character reference it starts, if any.
	escapedAmpRe = regexp.MustCompile(`&amp;(?:#[0-9]+;|#[xX][0-9a-fA-F]+;|[A-Za-z][A-Za-z0-9]*;)?`)

	textUnescaper = strings.NewReplacer("&#39;", "'", "&#34;", `"`, "&gt;", ">")
)

// Removes unsafe markup from a description, keeping ordinary formatting tags.
// Plain text comes back untouched.
func sanitize(s string) string {
	if !markupRe.MatchString(s) {
		return s
	}
	out := sanitizePolicy.Sanitize(s)

	// The policy escapes every text node; undo what is safe to undo so prose
	// keeps its quotes and ampersands. Tags and attribute values stay as they are.
	var b strings.Builder
	for out != "" {
		i := strings.IndexByte(out, '<')
		if i < 0 {
			b.WriteString(unescapeText(out))
			break
		}
		b.WriteString(unescapeText(out[:i]))

		j := strings.IndexByte(out[i:], '>')
		if j < 0 {
			b.WriteString(out[i:])
			break
		}
		b.WriteString(out[i : i+j+1])
		out = out[i+j+1:]
	}

	return b.String()
}

func unescapeText(s string) string {
	s = textUnescaper.Replace(s)
	return escapedAmpRe.ReplaceAllStringFunc(s, func(m string) string {
		if m == "&amp;" {
			return "&"
		}
		// Keep "&amp;lt;" and friends, or they'd decode to a different character.
		return m
	})
}
