package www

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/icodeforyou/spotprice-go/hours"
	"github.com/icodeforyou/spotprice-go/stats"
)

func NewStatsHandler(logger *slog.Logger, feed FeedSource, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !onlyMethod(w, r, http.MethodGet) {
			return
		}

		entries, err := feed.Load()
		if err != nil {
			logger.Error("handling stats request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		st, err := stats.Compute(entries, hours.FromTime(now()))
		if err != nil {
			logger.Error("handling stats request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, logger, st)
	}
}
