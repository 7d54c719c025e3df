package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/icodeforyou/spotprice-go/config"
	"github.com/icodeforyou/spotprice-go/database"
	"github.com/icodeforyou/spotprice-go/elprisetjustnu"
	"github.com/icodeforyou/spotprice-go/entsoe"
	"github.com/icodeforyou/spotprice-go/feed"
	"github.com/icodeforyou/spotprice-go/hours"
	"github.com/icodeforyou/spotprice-go/logging"
	"github.com/icodeforyou/spotprice-go/nordpool"
	"github.com/icodeforyou/spotprice-go/publish"
	"github.com/icodeforyou/spotprice-go/store"
	"github.com/icodeforyou/spotprice-go/task"
	"github.com/icodeforyou/spotprice-go/types"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "spotprice",
	Short: "Keep an hourly electricity spot price series and its public feed up to date",
	Long: `spotprice fetches day-ahead prices from ENTSO-E (with Nord Pool as fallback),
appends them to a parquet series and projects the taxed prices into a JSON feed.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
}

// base holds what every command needs: config, time zones and a console
// logger. Log output goes to stderr, stdout is left for command output.
type base struct {
	cnfg           *config.AppConfig
	consoleHandler slog.Handler
	logger         *slog.Logger
}

func setup() (*base, error) {
	cnfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := hours.SetMarketTimezone(cnfg.Time.GetMarketTimezone()); err != nil {
		return nil, fmt.Errorf("failed to set market timezone: %w", err)
	}
	if err := hours.SetDisplayTimezone(cnfg.Time.GetDisplayTimezone()); err != nil {
		return nil, fmt.Errorf("failed to set display timezone: %w", err)
	}

	consoleHandler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      cnfg.Logging.GetConsoleLevel(),
		TimeFormat: time.RFC3339,
	})
	logger := slog.New(consoleHandler)
	slog.SetDefault(logger)

	return &base{cnfg: cnfg, consoleHandler: consoleHandler, logger: logger}, nil
}

func (b *base) providers() ([]types.SpotPriceProvider, error) {
	var providers []types.SpotPriceProvider
	if b.cnfg.Entsoe.SecurityToken != "" {
		providers = append(providers, entsoe.New(
			b.cnfg.Entsoe.BaseURL,
			b.cnfg.Entsoe.SecurityToken,
			b.cnfg.Entsoe.Domain,
			b.cnfg.Entsoe.GetTimeout()))
	} else {
		b.logger.Warn("no ENTSO-E security token configured, skipping provider")
	}
	if b.cnfg.Nordpool.Enabled {
		providers = append(providers, nordpool.New(
			b.cnfg.Nordpool.BaseURL,
			b.cnfg.Nordpool.Area,
			b.cnfg.Nordpool.Currency,
			b.cnfg.Entsoe.GetTimeout()))
	}
	if b.cnfg.Elpriset.Enabled {
		providers = append(providers, elprisetjustnu.New(
			b.cnfg.Elpriset.BaseURL,
			b.cnfg.Elpriset.Area,
			b.cnfg.Entsoe.GetTimeout()))
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("%w: no spot price provider configured", types.ErrInput)
	}
	return providers, nil
}

// app is the full wiring used by update and serve.
type app struct {
	*base
	db      *database.Database
	feed    *feed.File
	updater *task.SpotPriceUpdater
	closers []func()
}

func openApp(ctx context.Context) (*app, error) {
	b, err := setup()
	if err != nil {
		return nil, err
	}
	a := &app{base: b}

	a.db, err = database.New(ctx, b.cnfg.Database.GetPath())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.closers = append(a.closers, a.db.Close)

	handlers := []slog.Handler{
		b.consoleHandler,
		logging.NewSQLiteHandler(a.db, b.cnfg.Logging.GetDbLevel(), b.cnfg.Logging.GetDbAttrsFormat()),
	}
	if b.cnfg.Logging.FilePath != "" {
		fh, closer := logging.NewFileHandler(logging.FileOptions{
			Path:       b.cnfg.Logging.FilePath,
			MaxSizeMB:  b.cnfg.Logging.GetFileMaxSizeMB(),
			MaxBackups: 5,
			MaxAgeDays: 30,
			Level:      b.cnfg.Logging.GetFileLevel(),
		})
		handlers = append(handlers, fh)
		a.closers = append(a.closers, closeQuietly(closer))
	}
	b.logger = slog.New(logging.NewMultiHandler(handlers...))
	slog.SetDefault(b.logger)

	// Now we can use the logger to log database operations into the database itself
	a.db.SetLogger(b.logger.With("module", "database"))

	providers, err := b.providers()
	if err != nil {
		a.Close()
		return nil, err
	}

	publishers, err := a.publishers(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.feed = feed.NewFile(b.logger, b.cnfg.Storage.GetFeedPath())
	a.updater = task.NewSpotPriceUpdater(
		b.logger.With(slog.String("task", "spot_price")),
		store.New(b.logger, b.cnfg.Storage.GetSeriesPath()),
		a.feed,
		providers,
		a.db,
		publishers,
		b.cnfg.Entsoe.GetTimeout())
	return a, nil
}

func (a *app) publishers(ctx context.Context) ([]publish.Publisher, error) {
	var publishers []publish.Publisher
	if a.cnfg.Mqtt.Enabled {
		p, err := publish.NewMqttPublisher(a.logger, publish.MqttOptions{
			Broker:      a.cnfg.Mqtt.Broker,
			ClientID:    a.cnfg.Mqtt.ClientID,
			Username:    a.cnfg.Mqtt.Username,
			Password:    a.cnfg.Mqtt.Password,
			TopicPrefix: a.cnfg.Mqtt.GetTopicPrefix(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to set up mqtt publisher: %w", err)
		}
		publishers = append(publishers, p)
		a.closers = append(a.closers, p.Close)
	}
	if a.cnfg.S3.Enabled {
		p, err := publish.NewS3Publisher(ctx, publish.S3Options{
			Bucket:          a.cnfg.S3.Bucket,
			Key:             a.cnfg.S3.GetKey(),
			Region:          a.cnfg.S3.Region,
			Endpoint:        a.cnfg.S3.Endpoint,
			AccessKeyID:     a.cnfg.S3.AccessKeyID,
			SecretAccessKey: a.cnfg.S3.SecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to set up s3 publisher: %w", err)
		}
		publishers = append(publishers, p)
	}
	return publishers, nil
}

// Close releases in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func closeQuietly(c io.Closer) func() {
	return func() { _ = c.Close() }
}

func isDevMode() bool {
	return strings.EqualFold(os.Getenv("APP_ENV"), "development")
}
