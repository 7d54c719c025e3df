package series

import (
	"time"

	"github.com/icodeforyou/spotprice-go/hours"
	"github.com/icodeforyou/spotprice-go/types"
)

// NeedsUpdate decides from the last stored instant whether new prices should
// be fetched. Before 11:30 market time (hour < 12 and minute < 30, applied
// literally) the series is fresh when it reaches now. Later it has to reach
// tomorrow 23:00 market time.
func NeedsUpdate(last, now time.Time) bool {
	marketNow := hours.InMarket(now)
	lastMarket := hours.InMarket(last)

	if marketNow.Hour() < 12 && marketNow.Minute() < 30 {
		return lastMarket.Before(marketNow)
	}

	tomorrow := marketNow.AddDate(0, 0, 1)
	cutoff := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 23, 0, 0, 0, marketNow.Location())
	return lastMarket.Before(cutoff)
}

// SeriesNeedsUpdate is NeedsUpdate for a stored series. An empty series
// always needs an update.
func SeriesNeedsUpdate(s types.PriceSeries, now time.Time) bool {
	last, ok := s.Last()
	if !ok {
		return true
	}
	return NeedsUpdate(last.UtcTime, now)
}

// FetchWindow returns the provider period for the next fetch: from the last
// stored instant (start of today in the market zone for an empty series) to
// now plus two days at midnight.
func FetchWindow(s types.PriceSeries, now time.Time) (start, end string) {
	var from time.Time
	if last, ok := s.Last(); ok {
		from = last.UtcTime
	} else {
		m := hours.InMarket(now)
		from = time.Date(m.Year(), m.Month(), m.Day(), 0, 0, 0, 0, m.Location())
	}
	return hours.FormatPeriod(from), hours.PeriodEnd(now)
}
