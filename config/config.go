package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/icodeforyou/spotprice-go/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type AppConfigEntsoe struct {
	BaseURL        string `mapstructure:"base_url"`
	SecurityToken  string `mapstructure:"security_token"`
	Domain         string `mapstructure:"domain"` // EIC bidding zone code, default: Finland
	TimeoutSeconds *int   `mapstructure:"timeout_seconds"`
}

func (e AppConfigEntsoe) GetTimeout() time.Duration {
	if e.TimeoutSeconds == nil || *e.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(*e.TimeoutSeconds) * time.Second
}

// Secondary price provider, used when ENTSO-E fails.
type AppConfigNordpool struct {
	Enabled  bool
	BaseURL  string `mapstructure:"base_url"`
	Area     string // "FI"
	Currency string // "EUR"
}

// Swedish zones only, e.g. "SE3".
type AppConfigElprisetjustnu struct {
	Enabled bool
	BaseURL string `mapstructure:"base_url"`
	Area    string
}

type AppConfigStorage struct {
	SeriesPath *string `mapstructure:"series_path"`
	FeedPath   *string `mapstructure:"feed_path"`
}

func (s AppConfigStorage) GetSeriesPath() string {
	if s.SeriesPath == nil {
		return "data/spotprices.parquet"
	}
	return *s.SeriesPath
}

func (s AppConfigStorage) GetFeedPath() string {
	if s.FeedPath == nil {
		return "frontend/data/spotdata.json"
	}
	return *s.FeedPath
}

type AppConfigDatabase struct {
	Path string
	// How many days daily backup files should be stored before they gets deleted
	BackupRetentionDays *int `mapstructure:"backup_retention_days"`
	// How many days update runs are kept
	RunRetentionDays *int `mapstructure:"run_retention_days"`
	// How many days mirrored prices are kept, 0 keeps everything
	PriceRetentionDays *int `mapstructure:"price_retention_days"`
}

func (d AppConfigDatabase) GetPath() string {
	if d.Path == "" {
		return "data/spotprice.db"
	}
	return d.Path
}

func (d AppConfigDatabase) GetBackupRetentionDays() int {
	if d.BackupRetentionDays == nil {
		return 30
	}
	return *d.BackupRetentionDays
}

func (d AppConfigDatabase) GetRunRetentionDays() int {
	if d.RunRetentionDays == nil {
		return 90
	}
	return *d.RunRetentionDays
}

func (d AppConfigDatabase) GetPriceRetentionDays() int {
	if d.PriceRetentionDays == nil {
		return 0
	}
	return *d.PriceRetentionDays
}

type AppConfigTime struct {
	// Zone of the day-ahead market, default: CET
	MarketTimezone *string `mapstructure:"market_timezone"`
	// Zone of the feed timestamps, default: Europe/Helsinki
	DisplayTimezone *string `mapstructure:"display_timezone"`
}

func (t AppConfigTime) GetMarketTimezone() string {
	if t.MarketTimezone == nil {
		return "CET"
	}
	return *t.MarketTimezone
}

func (t AppConfigTime) GetDisplayTimezone() string {
	if t.DisplayTimezone == nil {
		return "Europe/Helsinki"
	}
	return *t.DisplayTimezone
}

type AppConfigUpdate struct {
	RunAt         *string `mapstructure:"run_at"`
	MaintenanceAt *string `mapstructure:"maintenance_at"`
}

func (u AppConfigUpdate) GetRunAt() string {
	if u.RunAt == nil {
		return "*/15 * * * *"
	}
	return *u.RunAt
}

func (u AppConfigUpdate) GetMaintenanceAt() string {
	if u.MaintenanceAt == nil {
		return "5 0 * * *"
	}
	return *u.MaintenanceAt
}

type AppConfigApi struct {
	Address string
	Port    int16
}

type AppConfigMqtt struct {
	Enabled     bool
	Broker      string // e.g. "tcp://localhost:1883"
	ClientID    string `mapstructure:"client_id"`
	Username    string
	Password    string
	TopicPrefix *string `mapstructure:"topic_prefix"`
}

func (m AppConfigMqtt) GetTopicPrefix() string {
	if m.TopicPrefix == nil {
		return "spotprice"
	}
	return *m.TopicPrefix
}

type AppConfigS3 struct {
	Enabled         bool
	Bucket          string
	Key             *string
	Region          string
	Endpoint        string // for S3 compatible stores
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

func (s AppConfigS3) GetKey() string {
	if s.Key == nil {
		return "spotdata.json"
	}
	return *s.Key
}

type AppConfigLogging struct {
	// Min log level for database : "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	DbLevel *string `mapstructure:"db_level"`
	// Log attributes format: "TEXT", "JSON", default: "JSON"
	DbAttrsFormat *string `mapstructure:"db_attrs_format"`
	// Maximum number of log entries in the database, default: 10000
	DbMaxEntries *int `mapstructure:"db_max_entries"`
	// Min log level for console: "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	ConsoleLevel *string `mapstructure:"console_level"`
	// Rotated JSON log file, disabled when empty
	FilePath      string  `mapstructure:"file_path"`
	FileLevel     *string `mapstructure:"file_level"`
	FileMaxSizeMB *int    `mapstructure:"file_max_size_mb"`
}

func (l AppConfigLogging) GetDbLevel() slog.Level {
	return logging.LevelFromString(l.DbLevel)
}

func (l AppConfigLogging) GetDbAttrsFormat() logging.LogAttrFormat {
	return logging.AttrFormatFromString(l.DbAttrsFormat)
}

func (l AppConfigLogging) GetDbMaxEntries() int {
	if l.DbMaxEntries == nil {
		return 10000
	}
	return *l.DbMaxEntries
}

func (l AppConfigLogging) GetConsoleLevel() slog.Level {
	return logging.LevelFromString(l.ConsoleLevel)
}

func (l AppConfigLogging) GetFileLevel() slog.Level {
	return logging.LevelFromString(l.FileLevel)
}

func (l AppConfigLogging) GetFileMaxSizeMB() int {
	if l.FileMaxSizeMB == nil {
		return 10
	}
	return *l.FileMaxSizeMB
}

type AppConfig struct {
	Entsoe   AppConfigEntsoe
	Nordpool AppConfigNordpool
	Elpriset AppConfigElprisetjustnu `mapstructure:"elprisetjustnu"`
	Storage  AppConfigStorage
	Database AppConfigDatabase
	Time     AppConfigTime
	Update   AppConfigUpdate
	Api      AppConfigApi
	Mqtt     AppConfigMqtt
	S3       AppConfigS3
	Logging  AppConfigLogging
}

// Keys that may come from the environment only, e.g. ENTSOE_SECURITY_TOKEN.
var envKeys = []string{
	"entsoe.security_token",
	"entsoe.base_url",
	"mqtt.username",
	"mqtt.password",
	"s3.access_key_id",
	"s3.secret_access_key",
}

// Load reads an optional .env file, then the YAML config. An empty path
// looks for config/config.yaml and falls back to defaults and environment
// when there is none.
func Load(path string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", slog.Any("error", err))
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("config")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("unable to bind env for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("unable to read config file: %w", err)
		}
	}

	var c AppConfig
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config file: %w", err)
	}

	return &c, nil
}
