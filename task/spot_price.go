package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/icodeforyou/spotprice-go/database"
	"github.com/icodeforyou/spotprice-go/publish"
	"github.com/icodeforyou/spotprice-go/series"
	"github.com/icodeforyou/spotprice-go/types"
)

type Outcome string

const (
	OutcomeUpdated  Outcome = "updated"
	OutcomeFresh    Outcome = "fresh"
	OutcomeStale    Outcome = "stale"
	OutcomeUpToDate Outcome = "up_to_date"
	OutcomeRejected Outcome = "rejected"
	OutcomeFailed   Outcome = "failed"
)

type SeriesStore interface {
	Load() (types.PriceSeries, error)
	Save(types.PriceSeries) error
}

type FeedUpdater interface {
	Update(types.PriceSeries) ([]types.FeedEntry, bool, error)
}

// RunRecorder mirrors prices and keeps the run history, *database.Database
// implements it.
type RunRecorder interface {
	UpsertSpotPrices(ctx context.Context, rows []types.PriceRow) error
	SaveUpdateRun(ctx context.Context, r database.UpdateRunRow) error
}

type RunResult struct {
	ID          string
	Outcome     Outcome
	Provider    string
	RowsBefore  int
	RowsAfter   int
	FeedWritten bool
	Err         error
}

// SpotPriceUpdater runs one update at a time: load, decide, fetch,
// transform, merge, guard, persist and finally refresh the feed.
type SpotPriceUpdater struct {
	mu           sync.Mutex
	logger       *slog.Logger
	store        SeriesStore
	feed         FeedUpdater
	providers    []types.SpotPriceProvider
	recorder     RunRecorder
	publishers   []publish.Publisher
	fetchTimeout time.Duration
	now          func() time.Time
}

func NewSpotPriceUpdater(
	logger *slog.Logger,
	store SeriesStore,
	feed FeedUpdater,
	providers []types.SpotPriceProvider,
	recorder RunRecorder,
	publishers []publish.Publisher,
	fetchTimeout time.Duration,
) *SpotPriceUpdater {
	if fetchTimeout <= 0 {
		fetchTimeout = 10 * time.Second
	}
	return &SpotPriceUpdater{
		logger:       logger,
		store:        store,
		feed:         feed,
		providers:    providers,
		recorder:     recorder,
		publishers:   publishers,
		fetchTimeout: fetchTimeout,
		now:          time.Now,
	}
}

func NewSpotPriceTask(updater *SpotPriceUpdater) func() {
	return func() { updater.Run(context.Background()) }
}

func (u *SpotPriceUpdater) Run(ctx context.Context) RunResult {
	u.mu.Lock()
	defer u.mu.Unlock()

	started := u.now()
	res := RunResult{ID: uuid.NewString()}
	logger := u.logger.With(slog.String("run", res.ID))
	logger.Debug("running spot price task...")

	stored, committed := u.update(ctx, logger, started, &res)

	if res.Outcome != OutcomeFailed {
		current := stored
		if committed != nil {
			current = *committed
		}
		u.refreshFeed(ctx, logger, current, &res)
	}

	u.record(ctx, logger, started, res)
	logRun(logger, res)
	return res
}

// update returns the stored series and, when a write happened, the new one.
func (u *SpotPriceUpdater) update(ctx context.Context, logger *slog.Logger, now time.Time, res *RunResult) (types.PriceSeries, *types.PriceSeries) {
	stored, err := u.store.Load()
	if err != nil {
		res.Outcome, res.Err = OutcomeFailed, fmt.Errorf("load stored series: %w", err)
		return stored, nil
	}
	res.RowsBefore, res.RowsAfter = stored.Len(), stored.Len()

	if !series.SeriesNeedsUpdate(stored, now) {
		res.Outcome = OutcomeFresh
		return stored, nil
	}

	start, end := series.FetchWindow(stored, now)
	blocks, provider, err := FetchBlocks(ctx, logger, u.providers, start, end, u.fetchTimeout)
	res.Provider = provider
	if err != nil {
		if types.IsNoOp(err) {
			res.Outcome = OutcomeStale
			res.Err = err
		} else {
			res.Outcome, res.Err = OutcomeFailed, err
		}
		return stored, nil
	}

	rows, err := series.Transform(blocks, series.DetectEpochUnit(stored))
	if err != nil {
		res.Outcome, res.Err = OutcomeFailed, err
		return stored, nil
	}
	merged := series.Merge(stored, rows)

	// Re-read what is on disk right before committing.
	current, err := u.store.Load()
	if err != nil {
		res.Outcome, res.Err = OutcomeFailed, fmt.Errorf("reload stored series: %w", err)
		return stored, nil
	}

	if err := series.Check(current, merged, now); err != nil {
		res.Err = err
		switch {
		case errors.Is(err, types.ErrUpToDate):
			res.Outcome = OutcomeUpToDate
		case errors.Is(err, types.ErrStale):
			res.Outcome = OutcomeStale
		default:
			res.Outcome = OutcomeRejected
		}
		return current, nil
	}

	if err := u.store.Save(merged); err != nil {
		res.Outcome, res.Err = OutcomeFailed, fmt.Errorf("persist series: %w", err)
		return current, nil
	}
	res.Outcome = OutcomeUpdated
	res.RowsBefore, res.RowsAfter = current.Len(), merged.Len()

	if u.recorder != nil {
		if err := u.recorder.UpsertSpotPrices(ctx, merged.Rows); err != nil {
			logger.Error("failed to mirror spot prices", slog.Any("error", err))
		}
	}
	return current, &merged
}

func (u *SpotPriceUpdater) refreshFeed(ctx context.Context, logger *slog.Logger, s types.PriceSeries, res *RunResult) {
	entries, written, err := u.feed.Update(s)
	if err != nil {
		logger.Error("failed to update feed", slog.Any("error", err))
		return
	}
	res.FeedWritten = written
	if written {
		publish.All(ctx, logger, u.publishers, entries, u.now())
	}
}

func (u *SpotPriceUpdater) record(ctx context.Context, logger *slog.Logger, started time.Time, res RunResult) {
	if u.recorder == nil {
		return
	}
	msg := ""
	if res.Err != nil {
		msg = res.Err.Error()
	}
	err := u.recorder.SaveUpdateRun(context.WithoutCancel(ctx), database.UpdateRunRow{
		ID:         res.ID,
		StartedAt:  started,
		FinishedAt: u.now(),
		Provider:   res.Provider,
		Outcome:    string(res.Outcome),
		RowsBefore: res.RowsBefore,
		RowsAfter:  res.RowsAfter,
		Message:    msg,
	})
	if err != nil {
		logger.Error("failed to record update run", slog.Any("error", err))
	}
}

func logRun(logger *slog.Logger, res RunResult) {
	attrs := []any{
		slog.String("outcome", string(res.Outcome)),
		slog.Int("rowsBefore", res.RowsBefore),
		slog.Int("rowsAfter", res.RowsAfter),
		slog.Bool("feedWritten", res.FeedWritten),
	}
	if res.Provider != "" {
		attrs = append(attrs, slog.String("provider", res.Provider))
	}

	switch res.Outcome {
	case OutcomeUpdated:
		logger.Info("spot price task done", attrs...)
	case OutcomeFresh:
		logger.Debug("stored series is fresh", attrs...)
	case OutcomeStale:
		logger.Info("provider has not published new prices yet", append(attrs, slog.Any("reason", res.Err))...)
	case OutcomeUpToDate:
		logger.Info("already up to date", attrs...)
	case OutcomeRejected:
		logger.Error("merged series rejected, stored series left untouched", append(attrs, slog.Any("error", res.Err))...)
	default:
		logger.Error("spot price task error", append(attrs, slog.Any("error", res.Err))...)
	}
}

// FetchBlocks asks the providers in order and returns the first success.
// Each provider gets its own timeout.
func FetchBlocks(ctx context.Context, logger *slog.Logger, providers []types.SpotPriceProvider, start, end string, timeout time.Duration) ([][]types.RawPoint, string, error) {
	if len(providers) == 0 {
		return nil, "", fmt.Errorf("%w: no spot price providers", types.ErrInput)
	}

	var errs []error
	for _, p := range providers {
		fctx, cancel := context.WithTimeout(ctx, timeout)
		blocks, err := p.GetTimeSeries(fctx, start, end)
		cancel()
		if err == nil {
			logger.Debug("fetched spot prices", slog.String("provider", p.Name()), slog.Int("blocks", len(blocks)), slog.String("start", start), slog.String("end", end))
			return blocks, p.Name(), nil
		}
		logger.Warn("spot price provider failed", slog.String("provider", p.Name()), slog.Any("error", err))
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		if errors.Is(err, types.ErrInput) {
			break
		}
	}

	err := errors.Join(errs...)
	if allNoOp(errs) {
		return nil, "", err
	}
	// Report the run as failed even if some provider was only stale.
	return nil, "", stripNoOp(err)
}

func allNoOp(errs []error) bool {
	for _, err := range errs {
		if !types.IsNoOp(err) {
			return false
		}
	}
	return len(errs) > 0
}

// stripNoOp hides the stale sentinels of a joined error while keeping the
// transport, parse and input ones reachable for errors.Is.
func stripNoOp(err error) error {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return err
	}
	var keep []error
	for _, e := range joined.Unwrap() {
		if !types.IsNoOp(e) {
			keep = append(keep, e)
		}
	}
	return fmt.Errorf("%w (all providers: %v)", errors.Join(keep...), err)
}
