package types

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Canonical column names of the stored price series.
const (
	ColumnEpochTime  = "epochTime"
	ColumnUtcTime    = "utcTime"
	ColumnEetTime    = "eetTime"
	ColumnAika       = "Aika"
	ColumnPrice      = "price"
	ColumnTaxedPrice = "taxedPrice"
	ColumnTaxRate    = "taxRate"
)

var SeriesColumns = []string{
	ColumnEpochTime,
	ColumnUtcTime,
	ColumnEetTime,
	ColumnAika,
	ColumnPrice,
	ColumnTaxedPrice,
	ColumnTaxRate,
}

// RawPoint is one (position, price) sample of a provider time series block.
type RawPoint struct {
	Position    int             // 1-based offset within the block
	Resolution  string          // e.g. "PT60M"
	BlockStart  time.Time       // instant of position 1
	PriceAmount decimal.Decimal // provider price, EUR/MWh, may be negative
	Currency    string
	Unit        string
}

type PriceRow struct {
	EpochTime        int64
	UtcTime          time.Time
	LocalTime        time.Time // UtcTime in the display zone
	LocalDisplayTime string    // "dd.mm.yyyy HH:MM"
	Price            float64   // c/kWh
	TaxRate          float64
	TaxedPrice       float64
}

// PriceSeries is the full stored series, ordered by EpochTime.
type PriceSeries struct {
	Columns []string
	Rows    []PriceRow
}

func NewPriceSeries(rows []PriceRow) PriceSeries {
	return PriceSeries{Columns: append([]string(nil), SeriesColumns...), Rows: rows}
}

func (s PriceSeries) Len() int {
	return len(s.Rows)
}

func (s PriceSeries) IsEmpty() bool {
	return len(s.Rows) == 0
}

// Last returns the last row, false if the series is empty.
func (s PriceSeries) Last() (PriceRow, bool) {
	if len(s.Rows) == 0 {
		return PriceRow{}, false
	}
	return s.Rows[len(s.Rows)-1], true
}

// FeedEntry is one [localDisplayTime, taxedPrice] pair of the public feed.
type FeedEntry struct {
	Time  string
	Price float64
}

// MarshalJSON encodes the entry as a two element array.
func (e FeedEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.Time, e.Price})
}

func (e *FeedEntry) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("feed entry has %d elements, expected 2", len(pair))
	}
	if err := json.Unmarshal(pair[0], &e.Time); err != nil {
		return fmt.Errorf("feed entry time: %w", err)
	}
	if err := json.Unmarshal(pair[1], &e.Price); err != nil {
		return fmt.Errorf("feed entry price: %w", err)
	}
	return nil
}

type SpotPriceProvider interface {
	Name() string
	// GetTimeSeries returns one RawPoint slice per provider time series block.
	// start and end are "YYYYMMDDHHMM" strings.
	GetTimeSeries(ctx context.Context, start, end string) ([][]RawPoint, error)
}
