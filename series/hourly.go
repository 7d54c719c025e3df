package series

import (
	"slices"
	"time"

	"github.com/icodeforyou/spotprice-go/types"
	"github.com/shopspring/decimal"
)

// Sample is one provider price for a delivery period starting at Start,
// hourly or shorter. Price is per MWh.
type Sample struct {
	Start time.Time
	Price decimal.Decimal
}

// HourlyBlock averages the samples into their UTC hour, keeping the hours in
// [from, to), and returns them as one PT60M block starting at the first hour.
// Missing hours leave a gap in the positions.
func HourlyBlock(samples []Sample, from, to time.Time, currency string) []types.RawPoint {
	byHour := make(map[time.Time][]decimal.Decimal)
	for _, s := range samples {
		hour := s.Start.UTC().Truncate(time.Hour)
		if hour.Before(from) || !hour.Before(to) {
			continue
		}
		byHour[hour] = append(byHour[hour], s.Price)
	}
	if len(byHour) == 0 {
		return nil
	}

	instants := make([]time.Time, 0, len(byHour))
	for h := range byHour {
		instants = append(instants, h)
	}
	slices.SortFunc(instants, func(a, b time.Time) int { return a.Compare(b) })

	blockStart := instants[0]
	block := make([]types.RawPoint, 0, len(instants))
	for _, h := range instants {
		prices := byHour[h]
		block = append(block, types.RawPoint{
			Position:    int(h.Sub(blockStart)/time.Hour) + 1,
			Resolution:  "PT60M",
			BlockStart:  blockStart,
			PriceAmount: decimal.Avg(prices[0], prices[1:]...),
			Currency:    currency,
			Unit:        "MWH",
		})
	}
	return block
}
