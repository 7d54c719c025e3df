package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/icodeforyou/spotprice-go/database"
	"github.com/icodeforyou/spotprice-go/feed"
	"github.com/icodeforyou/spotprice-go/publish"
	"github.com/icodeforyou/spotprice-go/series"
	"github.com/icodeforyou/spotprice-go/store"
	"github.com/icodeforyou/spotprice-go/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, time.January, 10, 14, 0, 0, 0, time.UTC)

type memoryStore struct {
	series types.PriceSeries
	// reload, when set, is returned by every Load after the first one.
	reload *types.PriceSeries
	loads  int
	saves  int
}

func (m *memoryStore) Load() (types.PriceSeries, error) {
	m.loads++
	if m.reload != nil && m.loads > 1 {
		return *m.reload, nil
	}
	return m.series, nil
}

func (m *memoryStore) Save(s types.PriceSeries) error {
	m.saves++
	m.series = s
	return nil
}

type fakeProvider struct {
	name       string
	blocks     [][]types.RawPoint
	err        error
	calls      int
	start, end string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) GetTimeSeries(ctx context.Context, start, end string) ([][]types.RawPoint, error) {
	f.calls++
	f.start, f.end = start, end
	return f.blocks, f.err
}

type fakeRecorder struct {
	runs     []database.UpdateRunRow
	upserted int
}

func (f *fakeRecorder) UpsertSpotPrices(ctx context.Context, rows []types.PriceRow) error {
	f.upserted += len(rows)
	return nil
}

func (f *fakeRecorder) SaveUpdateRun(ctx context.Context, r database.UpdateRunRow) error {
	f.runs = append(f.runs, r)
	return nil
}

type recordingPublisher struct {
	published [][]types.FeedEntry
}

func (r *recordingPublisher) Name() string { return "recording" }

func (r *recordingPublisher) Publish(ctx context.Context, entries []types.FeedEntry, now time.Time) error {
	r.published = append(r.published, entries)
	return nil
}

func hourlyBlock(start time.Time, n int) []types.RawPoint {
	block := make([]types.RawPoint, 0, n)
	for i := 0; i < n; i++ {
		block = append(block, types.RawPoint{
			Position:    i + 1,
			Resolution:  "PT60M",
			BlockStart:  start,
			PriceAmount: decimal.NewFromInt(int64(40 + i)),
			Currency:    "EUR",
			Unit:        "MWH",
		})
	}
	return block
}

type fixture struct {
	store     *memoryStore
	recorder  *fakeRecorder
	publisher *recordingPublisher
	feedFile  *feed.File
	updater   *SpotPriceUpdater
}

func newFixture(t *testing.T, stored types.PriceSeries, providers ...types.SpotPriceProvider) *fixture {
	t.Helper()
	f := &fixture{
		store:     &memoryStore{series: stored},
		recorder:  &fakeRecorder{},
		publisher: &recordingPublisher{},
		feedFile:  feed.NewFile(slog.Default(), filepath.Join(t.TempDir(), "spotdata.json")),
	}
	f.updater = NewSpotPriceUpdater(slog.Default(), f.store, f.feedFile, providers, f.recorder, []publish.Publisher{f.publisher}, time.Second)
	f.updater.now = func() time.Time { return testNow }
	return f
}

// Market day of testNow starts 2024-01-09 23:00 UTC.
var marketDayStart = time.Date(2024, time.January, 9, 23, 0, 0, 0, time.UTC)

func TestRunUpdatesEmptySeries(t *testing.T) {
	provider := &fakeProvider{name: "entsoe", blocks: [][]types.RawPoint{hourlyBlock(marketDayStart, 48)}}
	f := newFixture(t, types.NewPriceSeries(nil), provider)

	res := f.updater.Run(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, OutcomeUpdated, res.Outcome)
	assert.Equal(t, "entsoe", res.Provider)
	assert.Equal(t, 0, res.RowsBefore)
	assert.Equal(t, 48, res.RowsAfter)
	assert.True(t, res.FeedWritten)

	assert.Equal(t, "202401092300", provider.start)
	assert.Equal(t, "202401120000", provider.end)

	assert.Equal(t, 1, f.store.saves)
	assert.Equal(t, 48, f.store.series.Len())
	assert.Equal(t, 48, f.recorder.upserted)
	require.Len(t, f.recorder.runs, 1)
	assert.Equal(t, string(OutcomeUpdated), f.recorder.runs[0].Outcome)
	require.Len(t, f.publisher.published, 1)

	entries, err := f.feedFile.Load()
	require.NoError(t, err)
	require.Len(t, entries, 48)
	assert.Equal(t, "10.01.2024 01:00", entries[0].Time)
	assert.InDelta(t, 4*1.24, entries[0].Price, 1e-9)
}

func TestRunIsIdempotent(t *testing.T) {
	provider := &fakeProvider{name: "entsoe", blocks: [][]types.RawPoint{hourlyBlock(marketDayStart, 48)}}
	f := newFixture(t, types.NewPriceSeries(nil), provider)

	first := f.updater.Run(context.Background())
	require.Equal(t, OutcomeUpdated, first.Outcome)
	stored := f.store.series

	second := f.updater.Run(context.Background())
	assert.Equal(t, OutcomeFresh, second.Outcome)
	assert.NoError(t, second.Err)
	assert.False(t, second.FeedWritten)
	assert.Equal(t, 1, provider.calls, "fresh series is not fetched again")
	assert.Equal(t, 1, f.store.saves)
	assert.True(t, series.Equal(stored, f.store.series))
	assert.Len(t, f.publisher.published, 1)
}

func TestRunIsIdempotentOnDisk(t *testing.T) {
	dir := t.TempDir()
	seriesPath := filepath.Join(dir, "db.parquet")
	feedPath := filepath.Join(dir, "frontend", "spotdata.json")

	provider := &fakeProvider{name: "entsoe", blocks: [][]types.RawPoint{hourlyBlock(marketDayStart, 48)}}
	recorder := &fakeRecorder{}
	updater := NewSpotPriceUpdater(slog.Default(),
		store.New(slog.Default(), seriesPath),
		feed.NewFile(slog.Default(), feedPath),
		[]types.SpotPriceProvider{provider}, recorder, nil, time.Second)
	updater.now = func() time.Time { return testNow }
	ctx := context.Background()

	first := updater.Run(ctx)
	require.NoError(t, first.Err)
	require.Equal(t, OutcomeUpdated, first.Outcome)
	seriesBytes, err := os.ReadFile(seriesPath)
	require.NoError(t, err)
	feedBytes, err := os.ReadFile(feedPath)
	require.NoError(t, err)

	second := updater.Run(ctx)
	require.NoError(t, second.Err)
	assert.Equal(t, OutcomeFresh, second.Outcome)
	assert.Equal(t, 48, second.RowsBefore)
	assert.False(t, second.FeedWritten)

	// A day later tomorrow's prices are due but the provider has nothing new.
	updater.now = func() time.Time { return testNow.Add(24 * time.Hour) }
	third := updater.Run(ctx)
	assert.Equal(t, OutcomeStale, third.Outcome)
	assert.True(t, types.IsNoOp(third.Err))
	assert.Equal(t, 48, third.RowsAfter)
	assert.Equal(t, 2, provider.calls)

	got, err := os.ReadFile(seriesPath)
	require.NoError(t, err)
	assert.Equal(t, seriesBytes, got, "series file is left untouched")
	got, err = os.ReadFile(feedPath)
	require.NoError(t, err)
	assert.Equal(t, feedBytes, got, "feed file is left untouched")

	require.Len(t, recorder.runs, 3)
	assert.Equal(t, string(OutcomeStale), recorder.runs[2].Outcome)
}

func TestRunStaleWhenNothingNew(t *testing.T) {
	block := hourlyBlock(marketDayStart, 24)
	rows, err := series.Transform([][]types.RawPoint{block}, series.EpochMicros)
	require.NoError(t, err)

	provider := &fakeProvider{name: "entsoe", blocks: [][]types.RawPoint{block}}
	f := newFixture(t, types.NewPriceSeries(rows), provider)

	res := f.updater.Run(context.Background())
	assert.Equal(t, OutcomeStale, res.Outcome)
	assert.True(t, types.IsNoOp(res.Err))
	assert.Equal(t, 0, f.store.saves)
	assert.True(t, res.FeedWritten, "a missing feed is still projected from the stored series")
}

func TestRunFallsBackToSecondaryProvider(t *testing.T) {
	primary := &fakeProvider{name: "entsoe", err: fmt.Errorf("%w: unexpected status code: 503", types.ErrTransport)}
	secondary := &fakeProvider{name: "nordpool", blocks: [][]types.RawPoint{hourlyBlock(marketDayStart, 48)}}
	f := newFixture(t, types.NewPriceSeries(nil), primary, secondary)

	res := f.updater.Run(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, OutcomeUpdated, res.Outcome)
	assert.Equal(t, "nordpool", res.Provider)
	assert.Equal(t, 1, primary.calls)
}

func TestRunTransportFailureLeavesStateUntouched(t *testing.T) {
	primary := &fakeProvider{name: "entsoe", err: fmt.Errorf("%w: timeout", types.ErrTransport)}
	secondary := &fakeProvider{name: "nordpool", err: fmt.Errorf("%w: nothing yet", types.ErrStale)}
	f := newFixture(t, types.NewPriceSeries(nil), primary, secondary)

	res := f.updater.Run(context.Background())
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, types.ErrTransport)
	assert.False(t, types.IsNoOp(res.Err))
	assert.Equal(t, 0, f.store.saves)
	assert.False(t, res.FeedWritten)
	require.Len(t, f.recorder.runs, 1)
	assert.Contains(t, f.recorder.runs[0].Message, "timeout")
}

func TestRunParseFailure(t *testing.T) {
	block := hourlyBlock(marketDayStart, 2)
	block[1].Resolution = "PT15M"
	f := newFixture(t, types.NewPriceSeries(nil), &fakeProvider{name: "entsoe", blocks: [][]types.RawPoint{block}})

	res := f.updater.Run(context.Background())
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, types.ErrParse)
	assert.Equal(t, 0, f.store.saves)
}

func TestRunRejectsShrinkingSeries(t *testing.T) {
	// Another writer stored a longer series between load and commit.
	longer, err := series.Transform([][]types.RawPoint{hourlyBlock(marketDayStart.Add(-100*time.Hour), 100)}, series.EpochMicros)
	require.NoError(t, err)
	reload := types.NewPriceSeries(longer)

	f := newFixture(t, types.NewPriceSeries(nil), &fakeProvider{name: "entsoe", blocks: [][]types.RawPoint{hourlyBlock(marketDayStart, 10)}})
	f.store.reload = &reload

	res := f.updater.Run(context.Background())
	assert.Equal(t, OutcomeRejected, res.Outcome)
	assert.ErrorIs(t, res.Err, types.ErrValidation)
	assert.Equal(t, 0, f.store.saves)
}

func TestFetchBlocksNoProviders(t *testing.T) {
	_, _, err := FetchBlocks(context.Background(), slog.Default(), nil, "202401010000", "202401020000", time.Second)
	assert.True(t, errors.Is(err, types.ErrInput))
}
