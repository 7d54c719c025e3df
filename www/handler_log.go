package www

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/icodeforyou/spotprice-go/database"
	"github.com/icodeforyou/spotprice-go/logging"
)

type logEntryResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Attrs     string    `json:"attrs"`
}

func NewLogHandler(logger *slog.Logger, db *database.Database) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !onlyMethod(w, r, http.MethodGet) {
			return
		}

		page := max(intOrDefault(r.URL, "page", 1), 1)
		pageSize := min(max(intOrDefault(r.URL, "pageSize", 25), 1), 500)
		var level *string
		if l := r.URL.Query().Get("level"); l != "" {
			level = &l
		}

		e, err := db.GetLogEntries(r.Context(), logging.LevelFromString(level), page, pageSize)
		if err != nil {
			logger.Error("handling log request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		resp := make([]logEntryResponse, 0, len(e))
		for _, entry := range e {
			resp = append(resp, logEntryResponse{
				Timestamp: entry.Timestamp,
				Level:     slog.Level(entry.Level).String(),
				Message:   entry.Message,
				Attrs:     entry.Attrs,
			})
		}
		writeJSON(w, logger, resp)
	}
}
