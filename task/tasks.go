package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/icodeforyou/spotprice-go/config"
	"github.com/icodeforyou/spotprice-go/database"
	"github.com/robfig/cron/v3"
)

type Tasks struct {
	cron            *cron.Cron
	cnfg            *config.AppConfig
	logger          *slog.Logger
	Updater         *SpotPriceUpdater
	SpotPriceTask   func()
	MaintenanceTask func()
}

func NewTasks(logger *slog.Logger, db *database.Database, updater *SpotPriceUpdater, cnfg *config.AppConfig) *Tasks {
	logger = logger.With("module", "tasks")
	cl := cronLogger{logger: logger}
	return &Tasks{
		// A slow run makes the next tick skip instead of overlapping it.
		cron:            cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		cnfg:            cnfg,
		logger:          logger,
		Updater:         updater,
		SpotPriceTask:   NewSpotPriceTask(updater),
		MaintenanceTask: NewMaintenanceTask(logger.With(slog.String("task", "maintenance")), db, cnfg),
	}
}

func (t *Tasks) Run() error {
	if _, err := t.cron.AddFunc(t.cnfg.Update.GetRunAt(), t.SpotPriceTask); err != nil {
		return fmt.Errorf("schedule spot price task %q: %w", t.cnfg.Update.GetRunAt(), err)
	}
	if _, err := t.cron.AddFunc(t.cnfg.Update.GetMaintenanceAt(), t.MaintenanceTask); err != nil {
		return fmt.Errorf("schedule maintenance task %q: %w", t.cnfg.Update.GetMaintenanceAt(), err)
	}
	t.cron.Start()
	return nil
}

// TriggerUpdate starts an update outside the schedule. It waits for a
// running update to finish first.
func (t *Tasks) TriggerUpdate() {
	go t.SpotPriceTask()
}

func (t *Tasks) Stop() context.Context {
	return t.cron.Stop()
}

type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, slog.Any("error", err))...)
}
