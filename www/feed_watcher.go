package www

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/icodeforyou/spotprice-go/types"
)

type feedUpdate struct {
	Type string            `json:"type"`
	Feed []types.FeedEntry `json:"feed"`
}

func feedMessage(feed FeedSource) ([]byte, error) {
	entries, err := feed.Load()
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []types.FeedEntry{}
	}
	return json.Marshal(feedUpdate{Type: "feed", Feed: entries})
}

// FeedWatcher broadcasts the feed every time the file is rewritten. The
// directory is watched since the file is replaced by a rename.
type FeedWatcher struct {
	logger  *slog.Logger
	feed    FeedSource
	hub     *Hub
	watcher *fsnotify.Watcher
	name    string
}

func NewFeedWatcher(logger *slog.Logger, feed FeedSource, hub *Hub) (*FeedWatcher, error) {
	dir := filepath.Dir(feed.Path())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create feed directory %s: %w", dir, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create feed watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	return &FeedWatcher{
		logger:  logger.With(slog.String("watcher", "feed")),
		feed:    feed,
		hub:     hub,
		watcher: w,
		name:    filepath.Clean(feed.Path()),
	}, nil
}

func (fw *FeedWatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != fw.name || !(ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write)) {
				continue
			}
			msg, err := feedMessage(fw.feed)
			if err != nil {
				fw.logger.Warn("failed to load changed feed", slog.Any("error", err))
				continue
			}
			fw.logger.Debug("feed changed, broadcasting", slog.String("op", ev.Op.String()))
			fw.hub.Publish(msg)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Error("feed watcher error", slog.Any("error", err))
		}
	}
}

func (fw *FeedWatcher) Close() error {
	return fw.watcher.Close()
}
