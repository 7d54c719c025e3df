package stats

import (
	"fmt"
	"math"

	"github.com/icodeforyou/spotprice-go/hours"
	"github.com/icodeforyou/spotprice-go/types"
	"github.com/icodeforyou/spotprice-go/types/maybe"
	"github.com/shopspring/decimal"
)

const (
	MinWindowHours = 2
	MaxWindowHours = 6
)

type DayStats struct {
	Date string               `json:"date"`
	Max  maybe.Maybe[float64] `json:"max"`
	Min  maybe.Maybe[float64] `json:"min"`
	Mean maybe.Maybe[float64] `json:"mean"`
}

// Window is the cheapest run of consecutive hours from now on.
type Window struct {
	Hours int                  `json:"hours"`
	Start string               `json:"start,omitempty"`
	Mean  maybe.Maybe[float64] `json:"mean"`
}

type Stats struct {
	Hour     string               `json:"hour"`
	PriceNow maybe.Maybe[float64] `json:"price_now"`
	Today    DayStats             `json:"today"`
	Tomorrow DayStats             `json:"tomorrow"`
	Cheapest []Window             `json:"cheapest"`
}

type hourPrice struct {
	hour  hours.DateHour
	entry types.FeedEntry
}

// Compute derives the price table for the display hour containing now.
// Tomorrow is only summarised once every hour of it is known.
func Compute(entries []types.FeedEntry, now hours.DateHour) (Stats, error) {
	parsed := make([]hourPrice, 0, len(entries))
	for _, e := range entries {
		dh, err := hours.FromDisplay(e.Time)
		if err != nil {
			return Stats{}, fmt.Errorf("%w: feed time %q: %v", types.ErrParse, e.Time, err)
		}
		parsed = append(parsed, hourPrice{hour: dh, entry: e})
	}

	tomorrowDate := hours.NextDate(now.Date)
	var today, tomorrow, future []float64
	priceNow := maybe.None[float64]()
	var futureStart []string

	for _, p := range parsed {
		switch p.hour.Date {
		case now.Date:
			today = append(today, p.entry.Price)
			if p.hour == now && !priceNow.IsValid() {
				priceNow = round(p.entry.Price)
			}
		case tomorrowDate:
			tomorrow = append(tomorrow, p.entry.Price)
		}
		if p.hour.Compare(now) >= 0 {
			future = append(future, p.entry.Price)
			futureStart = append(futureStart, p.entry.Time)
		}
	}

	s := Stats{
		Hour:     now.String(),
		PriceNow: priceNow,
		Today:    summarise(now.Date, today),
		Tomorrow: DayStats{Date: tomorrowDate},
	}
	if len(tomorrow) > 0 && len(tomorrow) == hours.HoursInDate(tomorrowDate) {
		s.Tomorrow = summarise(tomorrowDate, tomorrow)
	}

	for size := MinWindowHours; size <= MaxWindowHours; size++ {
		w := Window{Hours: size, Mean: maybe.None[float64]()}
		if idx, mean, ok := CheapestWindow(future, size); ok {
			w.Start = futureStart[idx]
			w.Mean = round(mean)
		}
		s.Cheapest = append(s.Cheapest, w)
	}
	return s, nil
}

func summarise(date string, prices []float64) DayStats {
	d := DayStats{
		Date: date,
		Max:  maybe.None[float64](),
		Min:  maybe.None[float64](),
		Mean: maybe.None[float64](),
	}
	if len(prices) == 0 {
		return d
	}
	maxV, minV, sum := math.Inf(-1), math.Inf(1), 0.0
	for _, p := range prices {
		maxV = math.Max(maxV, p)
		minV = math.Min(minV, p)
		sum += p
	}
	d.Max = round(maxV)
	d.Min = round(minV)
	d.Mean = round(sum / float64(len(prices)))
	return d
}

// CheapestWindow returns the start index and mean of the lowest mean run of
// size consecutive prices. The earliest window wins a tie.
func CheapestWindow(prices []float64, size int) (int, float64, bool) {
	if size <= 0 || size > len(prices) {
		return 0, 0, false
	}
	sum := 0.0
	for _, p := range prices[:size] {
		sum += p
	}
	best, bestIdx := sum, 0
	for i := size; i < len(prices); i++ {
		sum += prices[i] - prices[i-size]
		if sum < best {
			best, bestIdx = sum, i-size+1
		}
	}
	return bestIdx, best / float64(size), true
}

// round rounds half away from zero to two decimals.
func round(v float64) maybe.Maybe[float64] {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return maybe.None[float64]()
	}
	return maybe.Some(decimal.NewFromFloat(v).Round(2).InexactFloat64())
}
