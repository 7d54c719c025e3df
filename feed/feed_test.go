package feed

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
)

func series(n int) types.PriceSeries {
	start := time.Date(2024, time.January, 1, 22, 0, 0, 0, time.UTC)
	rows := make([]types.PriceRow, 0, n)
	for i := 0; i < n; i++ {
		utc := start.Add(time.Duration(i) * time.Hour)
		rows = append(rows, types.PriceRow{
			EpochTime:        utc.UnixMicro(),
			UtcTime:          utc,
			LocalDisplayTime: hours.FormatDisplay(utc),
			Price:            5,
			TaxRate:          1.24,
			TaxedPrice:       6.2,
		})
	}
	return types.NewPriceSeries(rows)
}

func TestProject(t *testing.T) {
	entries := Project(series(2))
	require.Len(t, entries, 2)
	assert.Equal(t, types.FeedEntry{Time: "02.01.2024 00:00", Price: 6.2}, entries[0])
	assert.Equal(t, "02.01.2024 01:00", entries[1].Time)
}

func TestIsCurrent(t *testing.T) {
	a := []types.FeedEntry{{Time: "01.01.2024 00:00"}, {Time: "01.01.2024 01:00"}}
	b := []types.FeedEntry{{Time: "01.01.2024 01:00"}}

	assert.True(t, IsCurrent(a, b))
	assert.False(t, IsCurrent(a[:1], b))
	assert.False(t, IsCurrent(nil, b))
	assert.True(t, IsCurrent(nil, nil))
}

func TestFileFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spotdata.json")
	f := NewFile(slog.Default(), path)

	require.NoError(t, f.Save([]types.FeedEntry{{Time: "01.01.2024 00:00", Price: 6.46412}, {Time: "01.01.2024 01:00", Price: -0.35}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[["01.01.2024 00:00",6.46412],["01.01.2024 01:00",-0.35]]`, string(data))

	entries, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, -0.35, entries[1].Price)
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spotdata.json")
	require.NoError(t, os.WriteFile(path, []byte(`[["01.01.2024 00:00"]]`), 0o644))

	_, err := NewFile(slog.Default(), path).Load()
	assert.ErrorIs(t, err, types.ErrParse)
}

func TestUpdateIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spotdata.json")
	f := NewFile(slog.Default(), path)
	s := series(24)

	_, written, err := f.Update(s)
	require.NoError(t, err)
	assert.True(t, written)

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	_, written, err = f.Update(s)
	require.NoError(t, err)
	assert.False(t, written)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	_, written, err = f.Update(series(25))
	require.NoError(t, err)
	assert.True(t, written)
}
