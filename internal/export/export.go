// Package export dumps stored records to disk.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	hlerrs "github.com/jdholdren/headlines/internal/errors"
	"github.com/jdholdren/headlines/internal/news"
)

// Lister is the part of the store the exporter reads from.
type Lister interface {
	All(ctx context.Context) ([]news.Record, error)
}

// JSON writes every record as one pretty-printed JSON array to path,
// replacing whatever was there. It returns the number of records written.
//
// published_at is written as RFC 3339 in UTC.
func JSON(ctx context.Context, l Lister, path string) (int, error) {
	records, err := l.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("error reading records to export: %w", err)
	}
	if records == nil {
		records = []news.Record{}
	}
	for i := range records {
		records[i].PublishedAt = records[i].PublishedAt.UTC()
	}

	// Write next to the destination so the rename stays on one filesystem.
	// A new file gets 0666 less the umask; an existing one keeps its mode.
	tmpPath := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+uuid.NewString())
	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o666)
	if err != nil {
		return 0, hlerrs.E(fmt.Errorf("error creating export file: %w", err), hlerrs.KindExport)
	}
	defer os.Remove(tmpPath)

	if fi, err := os.Stat(path); err == nil {
		if err := tmp.Chmod(fi.Mode().Perm()); err != nil {
			tmp.Close()
			return 0, hlerrs.E(fmt.Errorf("error setting export file mode: %w", err), hlerrs.KindExport)
		}
	}

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		tmp.Close()
		return 0, hlerrs.E(fmt.Errorf("error encoding records: %w", err), hlerrs.KindExport)
	}
	if err := tmp.Close(); err != nil {
		return 0, hlerrs.E(fmt.Errorf("error writing export file: %w", err), hlerrs.KindExport)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return 0, hlerrs.E(fmt.Errorf("error replacing export file: %w", err), hlerrs.KindExport)
	}

	return len(records), nil
}
