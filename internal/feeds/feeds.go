// Package feeds describes where a run pulls news from.
package feeds

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	hlerrs "github.com/jdholdren/headlines/internal/errors"
)

// Source is a feed URL and the category its records are filed under.
type Source struct {
	URL string `toml:"url"`
	// Empty means the run's default category.
	Category string `toml:"category,omitempty"`
}

// Defaults are used when no feeds file is configured.
var Defaults = []Source{
	{URL: "http://rss.cnn.com/rss/cnn_topstories.rss"},
	{URL: "http://qz.com/feed"},
	{URL: "http://feeds.foxnews.com/foxnews/politics"},
	{URL: "http://feeds.reuters.com/reuters/businessNews"},
	{URL: "http://feeds.feedburner.com/NewshourWorld"},
	{URL: "https://feeds.bbci.co.uk/news/world/asia/india/rss.xml"},
}

type tomlFile struct {
	Feeds []Source `toml:"feeds"`
}

// Load reads sources from a TOML file of [[feeds]] tables.
func Load(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, hlerrs.E(fmt.Errorf("error reading feeds file: %w", err), hlerrs.KindConfig)
	}

	var file tomlFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, hlerrs.E(fmt.Errorf("error parsing feeds file: %w", err), hlerrs.KindConfig)
	}

	if err := Validate(file.Feeds); err != nil {
		return nil, err
	}

	return file.Feeds, nil
}

// Validate checks there is at least one source and every URL is absolute http(s).
func Validate(sources []Source) error {
	if len(sources) == 0 {
		return hlerrs.E("no feeds configured", hlerrs.KindConfig)
	}

	var details []hlerrs.Detail
	for i, src := range sources {
		field := fmt.Sprintf("feeds[%d].url", i)
		if strings.TrimSpace(src.URL) == "" {
			details = append(details, hlerrs.Detail{Field: field, Error: "is required"})
			continue
		}
		u, err := url.Parse(src.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			details = append(details, hlerrs.Detail{Field: field, Error: "must be an absolute http(s) url"})
		}
	}
	if len(details) > 0 {
		return hlerrs.E("invalid feeds", hlerrs.KindConfig, details)
	}

	return nil
}
