package series

import (
	"fmt"
	"slices"
	"time"

	"github.com/icodeforyou/spotprice-go/calc"
	"github.com/icodeforyou/spotprice-go/hours"
	"github.com/icodeforyou/spotprice-go/types"
)

type EpochUnit int

const (
	EpochMicros EpochUnit = iota
	EpochSeconds
)

// Anything below this is a seconds epoch; microsecond epochs passed it in 1973.
const secondsEpochLimit = 100_000_000_000

func (u EpochUnit) String() string {
	if u == EpochSeconds {
		return "seconds"
	}
	return "microseconds"
}

func (u EpochUnit) FromTime(t time.Time) int64 {
	if u == EpochSeconds {
		return t.Unix()
	}
	return t.UnixMicro()
}

func (u EpochUnit) ToTime(epoch int64) time.Time {
	if u == EpochSeconds {
		return time.Unix(epoch, 0).UTC()
	}
	return time.UnixMicro(epoch).UTC()
}

// DetectEpochUnit returns the precision the stored series already uses,
// microseconds for an empty series.
func DetectEpochUnit(s types.PriceSeries) EpochUnit {
	last, ok := s.Last()
	if !ok {
		return EpochMicros
	}
	if last.EpochTime < secondsEpochLimit && last.EpochTime > -secondsEpochLimit {
		return EpochSeconds
	}
	return EpochMicros
}

// Transform turns provider blocks into rows sorted by epoch time. Duplicates
// are kept, Merge resolves them.
func Transform(blocks [][]types.RawPoint, unit EpochUnit) ([]types.PriceRow, error) {
	size := 0
	for _, b := range blocks {
		size += len(b)
	}

	rows := make([]types.PriceRow, 0, size)
	for _, block := range blocks {
		for _, p := range block {
			row, err := transformPoint(p, unit)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
	}

	slices.SortStableFunc(rows, func(a, b types.PriceRow) int {
		switch {
		case a.EpochTime < b.EpochTime:
			return -1
		case a.EpochTime > b.EpochTime:
			return 1
		}
		return 0
	})
	return rows, nil
}

func transformPoint(p types.RawPoint, unit EpochUnit) (types.PriceRow, error) {
	if p.Resolution != "PT60M" && p.Resolution != "PT1H" {
		return types.PriceRow{}, fmt.Errorf("%w: unsupported resolution %q", types.ErrParse, p.Resolution)
	}
	if p.Position < 1 {
		return types.PriceRow{}, fmt.Errorf("%w: invalid position %d", types.ErrParse, p.Position)
	}

	utc := p.BlockStart.UTC().Add(time.Duration(p.Position-1) * time.Hour)
	local := hours.InDisplay(utc)
	rate := calc.TaxRate(local, p.PriceAmount)
	price := calc.PriceFromAmount(p.PriceAmount)

	return types.PriceRow{
		EpochTime:        unit.FromTime(utc),
		UtcTime:          utc,
		LocalTime:        local,
		LocalDisplayTime: local.Format(hours.DisplayLayout),
		Price:            price.InexactFloat64(),
		TaxRate:          rate,
		TaxedPrice:       calc.TaxedPrice(price, rate).InexactFloat64(),
	}, nil
}
