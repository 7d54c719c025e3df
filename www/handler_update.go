package www

import (
	"log/slog"
	"net/http"
)

func NewUpdateHandler(logger *slog.Logger, trigger func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !onlyMethod(w, r, http.MethodPost) {
			return
		}

		logger.Info("manual update requested", slog.String("remoteAddr", r.RemoteAddr))
		trigger()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		if _, err := w.Write([]byte(`{"status":"accepted"}` + "\n")); err != nil {
			logger.Warn("writing update response", slog.Any("error", err))
		}
	}
}
