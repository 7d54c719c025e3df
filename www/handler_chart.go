package www

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/icodeforyou/spotprice-go/database"
	"github.com/icodeforyou/spotprice-go/hours"
	"github.com/icodeforyou/spotprice-go/www/chartjs"
)

// NewChartHandler charts today and tomorrow in the display zone: taxed
// prices from the feed and the untaxed spot price from the mirror.
func NewChartHandler(logger *slog.Logger, db *database.Database, feed FeedSource, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !onlyMethod(w, r, http.MethodGet) {
			return
		}

		midnight := hours.DateHour{Date: hours.FromTime(now()).Date}
		start, err := midnight.Time()
		if err != nil {
			logger.Error("handling chart request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		entries, err := feed.Load()
		if err != nil {
			logger.Error("handling chart request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		taxed := make(map[hours.DateHour]float64, len(entries))
		for _, e := range entries {
			if dh, err := hours.FromDisplay(e.Time); err == nil {
				taxed[dh] = e.Price
			}
		}

		mirrored, err := db.GetSpotPricesFrom(r.Context(), midnight)
		if err != nil {
			logger.Error("handling chart request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		spot := make(map[hours.DateHour]float64, len(mirrored))
		for _, p := range mirrored {
			spot[p.When] = p.Price
		}

		slots := make([]hours.DateHour, chartjs.NoOfHours)
		labels := make([]string, chartjs.NoOfHours)
		for i := range slots {
			t := start.Add(time.Duration(i) * time.Hour)
			slots[i] = hours.FromTime(t)
			labels[i] = hours.InDisplay(t).Format("02.01 15:04")
		}

		chart := chartjs.NewChart("", labels, chartjs.ColorYellow, chartjs.ColorRed)
		chart.Data.Datasets[0].Label = "incl. VAT"
		chart.Data.Datasets[1].Label = "spot"
		for i, dh := range slots {
			if p, ok := taxed[dh]; ok {
				chart.Data.Datasets[0].Data[i] = chartjs.FixedFloat64(p, 2)
			}
			if p, ok := spot[dh]; ok {
				chart.Data.Datasets[1].Data[i] = chartjs.FixedFloat64(p, 2)
			}
		}
		values := append(slices.Clone(chart.Data.Datasets[0].Data), chart.Data.Datasets[1].Data...)
		chart.Options.Scales["YAxis1"] = chart.Options.Scales["YAxis1"].
			WithTitle("Price (c/kWh)").
			WithRange(values...)

		writeJSON(w, logger, []chartjs.Chart{chart})
	}
}
