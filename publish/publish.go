package publish

import (
	"context"
	"log/slog"
	"time"

	"github.com/icodeforyou/spotprice-go/hours"
	"github.com/icodeforyou/spotprice-go/types"
)

// Publisher pushes a rewritten feed somewhere outside the process.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, entries []types.FeedEntry, now time.Time) error
}

// All runs every publisher. Failures are logged and never returned, the feed
// file is already written at this point.
func All(ctx context.Context, logger *slog.Logger, publishers []Publisher, entries []types.FeedEntry, now time.Time) {
	for _, p := range publishers {
		if err := p.Publish(ctx, entries, now); err != nil {
			logger.Error("failed to publish feed", slog.String("publisher", p.Name()), slog.Any("error", err))
			continue
		}
		logger.Debug("feed published", slog.String("publisher", p.Name()))
	}
}

// CurrentEntry returns the entry of the display hour containing now.
func CurrentEntry(entries []types.FeedEntry, now time.Time) (types.FeedEntry, bool) {
	current := hours.FromTime(now)
	for i := len(entries) - 1; i >= 0; i-- {
		dh, err := hours.FromDisplay(entries[i].Time)
		if err != nil {
			continue
		}
		if dh == current {
			return entries[i], true
		}
	}
	return types.FeedEntry{}, false
}
