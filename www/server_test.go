package www

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/icodeforyou/spotprice-go/config"
	"github.com/icodeforyou/spotprice-go/database"
	"github.com/icodeforyou/spotprice-go/feed"
	"github.com/icodeforyou/spotprice-go/hours"
	"github.com/icodeforyou/spotprice-go/types"
	"github.com/icodeforyou/spotprice-go/www/chartjs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 14:30 in Helsinki.
var testNow = time.Date(2024, time.January, 10, 12, 30, 0, 0, time.UTC)

type testEnv struct {
	server    *Server
	feed      *feed.File
	db        *database.Database
	triggered atomic.Int32
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	db, err := database.New(context.Background(), filepath.Join(dir, "spotprice.db"))
	require.NoError(t, err)
	t.Cleanup(db.Close)

	env := &testEnv{
		feed: feed.NewFile(slog.Default(), filepath.Join(dir, "frontend", "spotdata.json")),
		db:   db,
	}
	env.server = NewServer(slog.Default(), config.AppConfigApi{}, db, env.feed, func() { env.triggered.Add(1) })
	env.server.now = func() time.Time { return testNow }
	return env
}

// seed writes 48 hours starting at today's display midnight to both the feed
// and the mirror. The feed price of hour i is i, the spot price i/3.
func (env *testEnv) seed(t *testing.T) {
	t.Helper()
	midnight := time.Date(2024, time.January, 10, 0, 0, 0, 0, hours.DisplayLocation())

	var entries []types.FeedEntry
	var rows []types.PriceRow
	for i := 0; i < 48; i++ {
		at := midnight.Add(time.Duration(i) * time.Hour)
		entries = append(entries, types.FeedEntry{Time: hours.FormatDisplay(at), Price: float64(i)})
		rows = append(rows, types.PriceRow{
			EpochTime:        at.UnixMicro(),
			UtcTime:          at.UTC(),
			LocalDisplayTime: hours.FormatDisplay(at),
			Price:            float64(i) / 3,
			TaxRate:          1.24,
			TaxedPrice:       float64(i),
		})
	}
	require.NoError(t, env.feed.Save(entries))
	require.NoError(t, env.db.UpsertSpotPrices(context.Background(), rows))
}

func (env *testEnv) do(method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestFeedHandler(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/spotdata.json")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	env.seed(t)
	rec = env.do(http.MethodGet, "/spotdata.json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	onDisk, err := os.ReadFile(env.feed.Path())
	require.NoError(t, err)
	assert.JSONEq(t, string(onDisk), rec.Body.String())

	rec = env.do(http.MethodPost, "/spotdata.json")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStatsHandler(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	rec := env.do(http.MethodGet, "/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "2024-01-10 14", got["hour"])
	assert.Equal(t, 14.0, got["price_now"])

	today := got["today"].(map[string]any)
	assert.Equal(t, 0.0, today["min"])
	assert.Equal(t, 23.0, today["max"])

	cheapest := got["cheapest"].([]any)
	require.Len(t, cheapest, 5)
	first := cheapest[0].(map[string]any)
	assert.Equal(t, "10.01.2024 14:00", first["start"])
}

func TestChartHandler(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	rec := env.do(http.MethodGet, "/chart")
	require.Equal(t, http.StatusOK, rec.Code)

	var charts []chartjs.Chart
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &charts))
	require.Len(t, charts, 1)
	c := charts[0]
	require.Len(t, c.Data.Labels, chartjs.NoOfHours)
	assert.Equal(t, "10.01 00:00", c.Data.Labels[0])
	assert.Equal(t, "11.01 23:00", c.Data.Labels[47])

	require.Len(t, c.Data.Datasets, 2)
	require.NotNil(t, c.Data.Datasets[0].Data[14])
	assert.Equal(t, 14.0, *c.Data.Datasets[0].Data[14])
	require.NotNil(t, c.Data.Datasets[1].Data[14])
	assert.Equal(t, 4.67, *c.Data.Datasets[1].Data[14])

	axis := c.Options.Scales["YAxis1"]
	require.NotNil(t, axis.Max)
	assert.Equal(t, 47.0, *axis.Max)
	assert.Equal(t, 0.0, *axis.Min)
}

func TestChartHandlerWithoutData(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/chart")
	require.Equal(t, http.StatusOK, rec.Code)

	var charts []chartjs.Chart
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &charts))
	for _, v := range charts[0].Data.Datasets[0].Data {
		assert.Nil(t, v)
	}
}

func TestPricesHandler(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	rec := env.do(http.MethodGet, "/prices?hours=2&round=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []priceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 36)
	assert.Equal(t, "10.01.2024 12:00", got[0].Time)
	assert.Equal(t, 4.0, got[0].Price)
	assert.Equal(t, 4.33, got[1].Price)

	rec = env.do(http.MethodGet, "/prices")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 34)
	assert.InDelta(t, 14.0/3, got[0].Price, 1e-12)

	// Negative digits round to tens.
	rec = env.do(http.MethodGet, "/prices?hours=2&round=-1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 36)
	assert.Equal(t, 10.0, got[0].TaxedPrice)
	assert.Equal(t, 20.0, got[3].TaxedPrice)
	assert.Equal(t, 0.0, got[0].Price)

	rec = env.do(http.MethodGet, "/prices?round=two")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunsHandler(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec := env.do(http.MethodGet, "/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	for i, outcome := range []string{"stale", "updated"} {
		started := testNow.Add(time.Duration(i) * time.Minute)
		require.NoError(t, env.db.SaveUpdateRun(ctx, database.UpdateRunRow{
			ID:         outcome,
			StartedAt:  started,
			FinishedAt: started.Add(time.Second),
			Provider:   "entsoe",
			Outcome:    outcome,
		}))
	}

	rec = env.do(http.MethodGet, "/runs?limit=1")
	var runs []database.UpdateRunRow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "updated", runs[0].Outcome)
}

func TestLogHandler(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, lvl := range []slog.Level{slog.LevelDebug, slog.LevelWarn} {
		require.NoError(t, env.db.SaveLogEntry(ctx, database.LogEntryRow{
			Timestamp: testNow,
			Level:     int(lvl),
			Message:   lvl.String() + " message",
		}))
	}

	rec := env.do(http.MethodGet, "/log?level=warning")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []logEntryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "WARN", got[0].Level)
	assert.Equal(t, "WARN message", got[0].Message)
}

func TestUpdateHandler(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/update")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, int32(0), env.triggered.Load())

	rec = env.do(http.MethodPost, "/update")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"status":"accepted"}`, rec.Body.String())
	assert.Equal(t, int32(1), env.triggered.Load())
}

func TestWebsocketReceivesFeedChanges(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(env.server.Handler())
	t.Cleanup(srv.Close)
	t.Cleanup(cancel)

	go env.server.Hub().Run(ctx)
	watcher, err := NewFeedWatcher(slog.Default(), env.feed, env.server.Hub())
	require.NoError(t, err)
	t.Cleanup(func() { watcher.Close() })
	go watcher.Run(ctx)

	conn, _, err := ws.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	read := func() feedUpdate {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var msg feedUpdate
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	}

	initial := read()
	assert.Equal(t, "feed", initial.Type)
	assert.Len(t, initial.Feed, 48)

	next := []types.FeedEntry{
		{Time: "12.01.2024 00:00", Price: 1.5},
		{Time: "12.01.2024 01:00", Price: -0.25},
	}
	require.NoError(t, env.feed.Save(next))

	// One save may produce more than one event.
	for {
		msg := read()
		if len(msg.Feed) == len(next) {
			assert.Equal(t, next, msg.Feed)
			break
		}
	}
}
