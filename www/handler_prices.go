package www

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/icodeforyou/spotprice-go/convert"
	"github.com/icodeforyou/spotprice-go/database"
	"github.com/icodeforyou/spotprice-go/hours"
)

const (
	maxPriceHours  = 24 * 31
	maxRoundDigits = 6
)

type priceResponse struct {
	Time       string    `json:"time"`
	UtcTime    time.Time `json:"utc_time"`
	Price      float64   `json:"price"`
	TaxRate    float64   `json:"tax_rate"`
	TaxedPrice float64   `json:"taxed_price"`
}

// NewPricesHandler lists mirrored prices starting `hours` hours before the
// current one. With `round` the prices are rounded half up to that many
// decimals, a negative value rounds to tens, hundreds and so on.
func NewPricesHandler(logger *slog.Logger, db *database.Database, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !onlyMethod(w, r, http.MethodGet) {
			return
		}

		back := min(max(intOrDefault(r.URL, "hours", 0), 0), maxPriceHours)
		from := hours.FromTime(now().Add(-time.Duration(back) * time.Hour))

		roundTo, doRound := 0, false
		if v := r.URL.Query().Get("round"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				http.Error(w, "round must be an integer", http.StatusBadRequest)
				return
			}
			roundTo, doRound = min(max(n, -maxRoundDigits), maxRoundDigits), true
		}

		rows, err := db.GetSpotPricesFrom(r.Context(), from)
		if err != nil {
			logger.Error("handling prices request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		resp := make([]priceResponse, 0, len(rows))
		for _, p := range rows {
			item := priceResponse{
				Time:       p.DisplayTime,
				UtcTime:    p.UtcTime,
				Price:      p.Price,
				TaxRate:    p.TaxRate,
				TaxedPrice: p.TaxedPrice,
			}
			if doRound {
				item.Price = roundOrKeep(logger, p.Price, roundTo)
				item.TaxedPrice = roundOrKeep(logger, p.TaxedPrice, roundTo)
			}
			resp = append(resp, item)
		}
		writeJSON(w, logger, resp)
	}
}

func roundOrKeep(logger *slog.Logger, v float64, decimals int) float64 {
	r, err := convert.StdRoundAny(v, decimals)
	if err != nil {
		logger.Warn("price left unrounded", slog.Float64("value", v), slog.Any("error", err))
		return v
	}
	return r
}

func NewRunsHandler(logger *slog.Logger, db *database.Database) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !onlyMethod(w, r, http.MethodGet) {
			return
		}

		limit := min(max(intOrDefault(r.URL, "limit", 20), 1), 500)
		runs, err := db.GetUpdateRuns(r.Context(), limit)
		if err != nil {
			logger.Error("handling runs request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if runs == nil {
			runs = []database.UpdateRunRow{}
		}
		writeJSON(w, logger, runs)
	}
}
