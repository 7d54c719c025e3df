package database

import (
	"context"
	"fmt"
	"time"

	"github.com/icodeforyou/spotprice-go/hours"
	"github.com/icodeforyou/spotprice-go/types"
)

type SpotPriceRow struct {
	When        hours.DateHour
	UtcTime     time.Time
	DisplayTime string
	Price       float64
	TaxRate     float64
	TaxedPrice  float64
}

// UpsertSpotPrices mirrors the series rows in one transaction. The mirror is
// keyed by UTC second regardless of the stored epoch precision.
func (d *Database) UpsertSpotPrices(ctx context.Context, rows []types.PriceRow) error {
	tx, err := d.write.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin spot price upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO spot_price (epoch_time, date, hour, display_time, price, tax_rate, taxed_price)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(epoch_time) DO UPDATE SET
			date = excluded.date,
			hour = excluded.hour,
			display_time = excluded.display_time,
			price = excluded.price,
			tax_rate = excluded.tax_rate,
			taxed_price = excluded.taxed_price`)
	if err != nil {
		return fmt.Errorf("prepare spot price upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		dh := hours.FromTime(r.UtcTime)
		if _, err := stmt.ExecContext(ctx, r.UtcTime.Unix(), dh.Date, dh.Hour, r.LocalDisplayTime, r.Price, r.TaxRate, r.TaxedPrice); err != nil {
			return fmt.Errorf("upsert spot price %s: %w", r.LocalDisplayTime, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit spot price upsert: %w", err)
	}
	return nil
}

// GetSpotPricesFrom returns mirrored prices from the given display hour on.
func (d *Database) GetSpotPricesFrom(ctx context.Context, dh hours.DateHour) ([]SpotPriceRow, error) {
	rows, err := d.read.QueryContext(ctx, `
		SELECT epoch_time, date, hour, display_time, price, tax_rate, taxed_price
		FROM spot_price
		WHERE (date = ? AND hour >= ?) OR date > ?
		ORDER BY epoch_time ASC`,
		dh.Date, dh.Hour, dh.Date)
	if err != nil {
		return nil, fmt.Errorf("fetching spot prices: %w", err)
	}
	defer rows.Close()

	var prices []SpotPriceRow
	for rows.Next() {
		var r SpotPriceRow
		var epoch int64
		if err := rows.Scan(&epoch, &r.When.Date, &r.When.Hour, &r.DisplayTime, &r.Price, &r.TaxRate, &r.TaxedPrice); err != nil {
			return nil, fmt.Errorf("scanning spot price: %w", err)
		}
		r.UtcTime = time.Unix(epoch, 0).UTC()
		prices = append(prices, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading spot price rows: %w", err)
	}
	return prices, nil
}

func (d *Database) PurgeSpotPrices(ctx context.Context, retentionDays int) error {
	if retentionDays < 1 {
		return nil
	}
	return d.purgeTable(ctx, "spot_price", retentionDays)
}
