package series

import (
	"fmt"
	"slices"
	"time"

	"github.com/icodeforyou/spotprice-go/types"
)

// Merge appends rows to the existing series and returns a new series with
// unique, ascending epoch times. On a duplicate epoch time the row that came
// later wins, so fetched rows replace stored ones.
func Merge(existing types.PriceSeries, rows []types.PriceRow) types.PriceSeries {
	all := make([]types.PriceRow, 0, len(existing.Rows)+len(rows))
	all = append(all, existing.Rows...)
	all = append(all, rows...)

	if !uniqueEpochs(all) {
		all = dedupe(all)
	}
	if !sortedEpochs(all) {
		slices.SortStableFunc(all, func(a, b types.PriceRow) int {
			return compareEpoch(a.EpochTime, b.EpochTime)
		})
	}

	columns := existing.Columns
	if columns == nil {
		columns = types.SeriesColumns
	}
	return types.PriceSeries{Columns: slices.Clone(columns), Rows: all}
}

func compareEpoch(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func uniqueEpochs(rows []types.PriceRow) bool {
	seen := make(map[int64]struct{}, len(rows))
	for _, r := range rows {
		if _, ok := seen[r.EpochTime]; ok {
			return false
		}
		seen[r.EpochTime] = struct{}{}
	}
	return true
}

func sortedEpochs(rows []types.PriceRow) bool {
	return slices.IsSortedFunc(rows, func(a, b types.PriceRow) int {
		return compareEpoch(a.EpochTime, b.EpochTime)
	})
}

func dedupe(rows []types.PriceRow) []types.PriceRow {
	last := make(map[int64]int, len(rows))
	for i, r := range rows {
		last[r.EpochTime] = i
	}
	out := make([]types.PriceRow, 0, len(last))
	for i, r := range rows {
		if last[r.EpochTime] == i {
			out = append(out, r)
		}
	}
	return out
}

// Check runs the commit guards in order and returns nil when merged may
// replace stored:
//   - stored is already fresh at commit time: ErrUpToDate
//   - merged equals stored: ErrStale
//   - column shape differs: ErrValidation
//   - merged has fewer rows than stored: ErrValidation
func Check(stored, merged types.PriceSeries, now time.Time) error {
	if !SeriesNeedsUpdate(stored, now) {
		return types.ErrUpToDate
	}
	if Equal(stored, merged) {
		return fmt.Errorf("%w: merged series equals the stored one", types.ErrStale)
	}
	if !slices.Equal(stored.Columns, merged.Columns) {
		return fmt.Errorf("%w: column mismatch, stored %v, merged %v", types.ErrValidation, stored.Columns, merged.Columns)
	}
	if merged.Len() < stored.Len() {
		return fmt.Errorf("%w: merged series has %d rows, stored has %d", types.ErrValidation, merged.Len(), stored.Len())
	}
	return nil
}

// Equal reports whether two series have the same columns and rows.
func Equal(a, b types.PriceSeries) bool {
	if !slices.Equal(a.Columns, b.Columns) || len(a.Rows) != len(b.Rows) {
		return false
	}
	for i := range a.Rows {
		if !rowEqual(a.Rows[i], b.Rows[i]) {
			return false
		}
	}
	return true
}

func rowEqual(a, b types.PriceRow) bool {
	return a.EpochTime == b.EpochTime &&
		a.UtcTime.Equal(b.UtcTime) &&
		a.LocalDisplayTime == b.LocalDisplayTime &&
		a.Price == b.Price &&
		a.TaxRate == b.TaxRate &&
		a.TaxedPrice == b.TaxedPrice
}
