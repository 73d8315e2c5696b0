package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/newthinker/tsdash/internal/core"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. TSDASH_SERVER_PORT.
const EnvPrefix = "TSDASH"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Dataset   DatasetConfig   `mapstructure:"dataset"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Collector CollectorConfig `mapstructure:"collector"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"`
	APIKey string `mapstructure:"api_key"`
}

// DatasetConfig locates the daily price CSV.
type DatasetConfig struct {
	Path         string        `mapstructure:"path"`
	DateColumn   string        `mapstructure:"date_column"`
	TickerColumn string        `mapstructure:"ticker_column"`
	CloseColumn  string        `mapstructure:"close_column"`
	Storage      StorageConfig `mapstructure:"storage"`
}

type StorageConfig struct {
	Type string   `mapstructure:"type"` // "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// AnalysisConfig holds the dashboard choices and model parameters.
type AnalysisConfig struct {
	Tickers      []string `mapstructure:"tickers"`
	DefaultStart string   `mapstructure:"default_start"`
	DefaultEnd   string   `mapstructure:"default_end"`
	Period       int      `mapstructure:"period"`
	Window       int      `mapstructure:"window"`
}

// DefaultRange parses the default date range.
func (a AnalysisConfig) DefaultRange() (core.DateRange, error) {
	return core.NewDateRange(a.DefaultStart, a.DefaultEnd)
}

type CacheConfig struct {
	Type       string        `mapstructure:"type"` // "memory" or "redis"
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
	Redis      RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// CollectorConfig configures the history downloader used by fetch.
type CollectorConfig struct {
	Provider string        `mapstructure:"provider"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file. Keys absent from the file keep
// their Defaults value.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return decode(v)
}

// FromEnv builds a configuration from defaults and environment overrides
// alone, for runs without a config file.
func FromEnv() (*Config, error) {
	return decode(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v, Defaults())

	// Support environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.api_key", d.Server.APIKey)

	v.SetDefault("dataset.path", d.Dataset.Path)
	v.SetDefault("dataset.date_column", d.Dataset.DateColumn)
	v.SetDefault("dataset.ticker_column", d.Dataset.TickerColumn)
	v.SetDefault("dataset.close_column", d.Dataset.CloseColumn)
	v.SetDefault("dataset.storage.type", d.Dataset.Storage.Type)
	v.SetDefault("dataset.storage.path", d.Dataset.Storage.Path)
	v.SetDefault("dataset.storage.s3.bucket", "")
	v.SetDefault("dataset.storage.s3.endpoint", "")
	v.SetDefault("dataset.storage.s3.region", "")
	v.SetDefault("dataset.storage.s3.access_key", "")
	v.SetDefault("dataset.storage.s3.secret_key", "")
	v.SetDefault("dataset.storage.s3.prefix", "")

	v.SetDefault("analysis.tickers", d.Analysis.Tickers)
	v.SetDefault("analysis.default_start", d.Analysis.DefaultStart)
	v.SetDefault("analysis.default_end", d.Analysis.DefaultEnd)
	v.SetDefault("analysis.period", d.Analysis.Period)
	v.SetDefault("analysis.window", d.Analysis.Window)

	v.SetDefault("cache.type", d.Cache.Type)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.max_entries", d.Cache.MaxEntries)
	v.SetDefault("cache.redis.addr", d.Cache.Redis.Addr)
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", d.Cache.Redis.DB)
	v.SetDefault("cache.redis.prefix", d.Cache.Redis.Prefix)

	v.SetDefault("collector.provider", d.Collector.Provider)
	v.SetDefault("collector.base_url", "")
	v.SetDefault("collector.timeout", d.Collector.Timeout)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Dataset: DatasetConfig{
			Path:         "World-Stock-Prices-Dataset.csv",
			DateColumn:   "Date",
			TickerColumn: "Ticker",
			CloseColumn:  "Close",
			Storage: StorageConfig{
				Type: "localfs",
				Path: ".",
			},
		},
		Analysis: AnalysisConfig{
			Tickers:      []string{"AAPL", "AMZN", "TSLA"},
			DefaultStart: "2018-01-01",
			DefaultEnd:   "2022-12-31",
			Period:       12,
			Window:       12,
		},
		Cache: CacheConfig{
			Type:       "memory",
			TTL:        time.Hour,
			MaxEntries: 64,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "tsdash",
			},
		},
		Collector: CollectorConfig{
			Provider: "yahoo",
			Timeout:  10 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	// Dataset validation
	if c.Dataset.Path == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("dataset.path required"))
	}
	switch c.Dataset.Storage.Type {
	case "", "localfs":
	case "s3":
		if c.Dataset.Storage.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("s3 bucket required when storage type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown storage type %q", c.Dataset.Storage.Type))
	}

	// Analysis validation
	if len(c.Analysis.Tickers) == 0 {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("analysis.tickers must not be empty"))
	}
	if slices.Contains(c.Analysis.Tickers, "") {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("analysis.tickers contains an empty symbol"))
	}
	if _, err := c.Analysis.DefaultRange(); err != nil {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("default range: %w", err))
	}
	if c.Analysis.Period < 2 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("period must be at least 2, got %d", c.Analysis.Period))
	}
	if c.Analysis.Window < 2 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("window must be at least 2, got %d", c.Analysis.Window))
	}

	// Cache validation
	switch c.Cache.Type {
	case "", "memory":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("redis addr required when cache type is redis"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown cache type %q", c.Cache.Type))
	}
	if c.Cache.TTL < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("cache ttl cannot be negative, got %s", c.Cache.TTL))
	}

	// Metrics validation
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("metrics path must start with /, got %q", c.Metrics.Path))
	}

	return nil
}
