package www

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
)

// NewFeedHandler serves the feed file exactly as written.
func NewFeedHandler(logger *slog.Logger, feed FeedSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !onlyMethod(w, r, http.MethodGet) {
			return
		}

		data, err := os.ReadFile(feed.Path())
		if errors.Is(err, fs.ErrNotExist) {
			http.Error(w, "feed not written yet", http.StatusNotFound)
			return
		}
		if err != nil {
			logger.Error("handling feed request", slog.Any("error", err))
			http.Error(w, "unable to read feed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		if _, err := w.Write(data); err != nil {
			logger.Warn("writing feed response", slog.Any("error", err))
		}
	}
}
