package store

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/icodeforyou/spotprice-go/hours"
	"github.com/icodeforyou/spotprice-go/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/writer"
)

func testRows(n int) []types.PriceRow {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]types.PriceRow, 0, n)
	for i := 0; i < n; i++ {
		utc := start.Add(time.Duration(i) * time.Hour)
		rows = append(rows, types.PriceRow{
			EpochTime:        utc.UnixMicro(),
			UtcTime:          utc,
			LocalTime:        hours.InDisplay(utc),
			LocalDisplayTime: hours.FormatDisplay(utc),
			Price:            float64(i) / 10,
			TaxRate:          1.24,
			TaxedPrice:       float64(i) / 10 * 1.24,
		})
	}
	return rows
}

func TestLoadMissingFile(t *testing.T) {
	s := New(slog.Default(), filepath.Join(t.TempDir(), "spot.parquet"))
	series, err := s.Load()
	require.NoError(t, err)
	assert.True(t, series.IsEmpty())
	assert.Equal(t, types.SeriesColumns, series.Columns)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "spot.parquet")
	s := New(slog.Default(), path)

	in := types.NewPriceSeries(testRows(48))
	require.NoError(t, s.Save(in))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary file is renamed away")

	out, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, in.Len(), out.Len())
	assert.Equal(t, types.SeriesColumns, out.Columns)

	for i := range in.Rows {
		assert.Equal(t, in.Rows[i].EpochTime, out.Rows[i].EpochTime)
		assert.True(t, in.Rows[i].UtcTime.Equal(out.Rows[i].UtcTime))
		assert.True(t, in.Rows[i].LocalTime.Equal(out.Rows[i].LocalTime))
		assert.Equal(t, in.Rows[i].LocalDisplayTime, out.Rows[i].LocalDisplayTime)
		assert.Equal(t, in.Rows[i].Price, out.Rows[i].Price)
		assert.Equal(t, in.Rows[i].TaxedPrice, out.Rows[i].TaxedPrice)
		assert.Equal(t, in.Rows[i].TaxRate, out.Rows[i].TaxRate)
	}
}

func TestLoadAfterSaveKeepsFileColumnNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spot.parquet")
	s := New(slog.Default(), path)
	require.NoError(t, s.Save(types.NewPriceSeries(testRows(2))))

	fr, err := local.NewLocalFileReader(path)
	require.NoError(t, err)
	defer fr.Close()

	columns, zone, err := readSchema(fr)
	require.NoError(t, err)
	assert.Equal(t, types.SeriesColumns, columns)
	assert.Equal(t, hours.DisplayLocation().String(), zone)

	// A second load of the same file must still pass the column check.
	for i := 0; i < 2; i++ {
		out, err := s.Load()
		require.NoError(t, err)
		assert.Equal(t, 2, out.Len())
		assert.Equal(t, hours.DisplayLocation().String(), out.Rows[0].LocalTime.Location().String())
	}
}

type foreignRow struct {
	Time  int64   `parquet:"name=time, type=INT64"`
	Value float64 `parquet:"name=value, type=DOUBLE"`
}

func TestLoadRejectsForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spot.parquet")

	fw, err := local.NewLocalFileWriter(path)
	require.NoError(t, err)
	pw, err := writer.NewParquetWriter(fw, new(foreignRow), 1)
	require.NoError(t, err)
	require.NoError(t, pw.Write(foreignRow{Time: 1, Value: 2}))
	require.NoError(t, pw.WriteStop())
	require.NoError(t, fw.Close())

	_, err = New(slog.Default(), path).Load()
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestSaveReplaces(t *testing.T) {
	s := New(slog.Default(), filepath.Join(t.TempDir(), "spot.parquet"))
	require.NoError(t, s.Save(types.NewPriceSeries(testRows(3))))
	require.NoError(t, s.Save(types.NewPriceSeries(testRows(5))))

	out, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, 5, out.Len())
}

func TestSaveRejectsForeignColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spot.parquet")
	s := New(slog.Default(), path)

	series := types.NewPriceSeries(testRows(2))
	series.Columns = []string{"epochTime", "price"}
	assert.ErrorIs(t, s.Save(series), types.ErrValidation)

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
