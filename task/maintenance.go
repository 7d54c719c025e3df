package task

import (
	"context"
	"log/slog"
	"time"

	"github.com/icodeforyou/spotprice-go/config"
	"github.com/icodeforyou/spotprice-go/database"
)

func NewMaintenanceTask(logger *slog.Logger, db *database.Database, cnfg *config.AppConfig) func() {
	return func() {
		logger.Debug("running maintenance task...")

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		now := time.Now()

		if _, err := db.Backup(ctx); err != nil {
			logger.Error("database backup error", slog.Any("error", err))
		}

		if _, err := db.PurgeBackups(cnfg.Database.GetBackupRetentionDays(), now); err != nil {
			logger.Error("backup maintenance error", slog.Any("error", err))
		}

		if _, err := db.PurgeLog(ctx, cnfg.Logging.GetDbMaxEntries()); err != nil {
			logger.Error("log maintenance error", slog.Any("error", err))
		}

		n, err := db.PurgeUpdateRuns(ctx, cnfg.Database.GetRunRetentionDays(), now)
		if err != nil {
			logger.Error("update_run maintenance error", slog.Any("error", err))
		} else if n > 0 {
			logger.Debug("purged update runs", slog.Int64("rows", n))
		}

		if err := db.PurgeSpotPrices(ctx, cnfg.Database.GetPriceRetentionDays()); err != nil {
			logger.Error("spot_price maintenance error", slog.Any("error", err))
		}

		logger.Info("maintenance task done")
	}
}
