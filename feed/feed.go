package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/icodeforyou/spotprice-go/types"
)

// Project derives the public feed from the series, in series order.
func Project(s types.PriceSeries) []types.FeedEntry {
	entries := make([]types.FeedEntry, 0, s.Len())
	for _, r := range s.Rows {
		entries = append(entries, types.FeedEntry{Time: r.LocalDisplayTime, Price: r.TaxedPrice})
	}
	return entries
}

// IsCurrent reports whether the persisted feed already ends where the
// projected one does. An empty projection is always current.
func IsCurrent(persisted, projected []types.FeedEntry) bool {
	if len(projected) == 0 {
		return true
	}
	if len(persisted) == 0 {
		return false
	}
	return persisted[len(persisted)-1].Time == projected[len(projected)-1].Time
}

type File struct {
	logger *slog.Logger
	path   string
}

func NewFile(logger *slog.Logger, path string) *File {
	return &File{
		logger: logger.With("module", "feed"),
		path:   path,
	}
}

func (f *File) Path() string {
	return f.path
}

// Load reads the persisted feed. A missing file is an empty feed.
func (f *File) Load() ([]types.FeedEntry, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read feed %s: %w", f.path, err)
	}

	var entries []types.FeedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: feed %s: %v", types.ErrParse, f.path, err)
	}
	return entries, nil
}

// Save overwrites the feed file wholesale.
func (f *File) Save(entries []types.FeedEntry) error {
	if entries == nil {
		entries = []types.FeedEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode feed: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", f.path, err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write feed: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace feed %s: %w", f.path, err)
	}
	return nil
}

// Update rewrites the feed from the series unless it is already current.
// It returns the projected entries and whether the file was written.
func (f *File) Update(s types.PriceSeries) ([]types.FeedEntry, bool, error) {
	projected := Project(s)

	persisted, err := f.Load()
	if err != nil {
		f.logger.Warn("unreadable feed, rewriting", slog.Any("error", err))
		persisted = nil
	}

	if IsCurrent(persisted, projected) {
		f.logger.Debug("feed is current", slog.Int("entries", len(persisted)))
		return projected, false, nil
	}

	if err := f.Save(projected); err != nil {
		return nil, false, err
	}
	f.logger.Info("feed updated", slog.Int("entries", len(projected)), slog.String("last", projected[len(projected)-1].Time))
	return projected, true, nil
}
