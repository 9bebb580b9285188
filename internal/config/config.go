package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/frahlg/price-negative-comparison/internal/logging"
)

// Config materialises application configuration. It is passed explicitly to
// every component; there is no process-wide mutable configuration state.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Currency CurrencyConfig `mapstructure:"currency"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Alerting AlertingConfig `mapstructure:"alerting"`
	Export   ExportConfig   `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity. An empty DSN switches
// the price cache to the in-memory store.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// UpstreamConfig covers the day-ahead price provider.
type UpstreamConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Token          string        `mapstructure:"token"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	RatePerSecond  float64       `mapstructure:"rate_per_second"`
	Burst          int           `mapstructure:"burst"`
}

// FetchConfig governs the coordinator retry policy.
type FetchConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Backoff     time.Duration `mapstructure:"backoff"`
}

// CurrencyConfig holds the exchange rate table relative to EUR.
type CurrencyConfig struct {
	Default string             `mapstructure:"default"`
	Rates   map[string]float64 `mapstructure:"rates"`
}

// AnalysisConfig tunes the metrics engine.
type AnalysisConfig struct {
	Timezone string `mapstructure:"timezone"`
	TopN     int    `mapstructure:"top_n"`
}

// WatchConfig drives the continuous cache-warming loop.
type WatchConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	AlignToBucket bool          `mapstructure:"align_to_bucket"`
	StartupDelay  time.Duration `mapstructure:"startup_delay"`
	Regions       []string      `mapstructure:"regions"`
	Horizon       time.Duration `mapstructure:"horizon"`  // how far ahead to keep covered
	Lookback      time.Duration `mapstructure:"lookback"` // how far back to keep covered
}

// AlertingConfig defines negative-price alert routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes the Telegram bot channel.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PRICECOMP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "pricecomp")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("upstream.request_timeout", "30s")
	v.SetDefault("upstream.user_agent", "pricecomp/1.0")
	v.SetDefault("upstream.rate_per_second", 2.0)
	v.SetDefault("upstream.burst", 1)

	v.SetDefault("fetch.max_attempts", 3)
	v.SetDefault("fetch.backoff", "2s")

	v.SetDefault("currency.default", "SEK")
	v.SetDefault("currency.rates", map[string]float64{
		"SEK": 11.5,
		"USD": 1.1,
		"NOK": 12.0,
		"DKK": 7.4,
		"GBP": 0.85,
	})

	v.SetDefault("analysis.timezone", "Europe/Stockholm")
	v.SetDefault("analysis.top_n", 10)

	v.SetDefault("watch.interval", "1h")
	v.SetDefault("watch.regions", []string{"SE3"})
	v.SetDefault("watch.align_to_bucket", true)
	v.SetDefault("watch.startup_delay", "0s")
	v.SetDefault("watch.horizon", "36h")
	v.SetDefault("watch.lookback", "24h")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 100000)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Fetch.MaxAttempts <= 0 {
		return fmt.Errorf("fetch.max_attempts must be greater than zero")
	}
	if c.Analysis.TopN <= 0 {
		return fmt.Errorf("analysis.top_n must be greater than zero")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("analysis.timezone: %w", err)
	}
	if c.Currency.Default == "" {
		return fmt.Errorf("currency.default must be set")
	}
	for code, rate := range c.Currency.Rates {
		if rate <= 0 {
			return fmt.Errorf("currency.rates.%s must be greater than zero", code)
		}
	}
	if c.Watch.Interval <= 0 {
		return fmt.Errorf("watch.interval must be greater than zero")
	}
	if c.Watch.Horizon < 0 || c.Watch.Lookback < 0 {
		return fmt.Errorf("watch.horizon and watch.lookback cannot be negative")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token must be configured")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id must be configured")
		}
	}
	return nil
}

// Location resolves the analysis timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Analysis.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Analysis.Timezone)
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}

// ResolveTopN returns either the CLI override or config default.
func (c *Config) ResolveTopN(override int) int {
	if override > 0 {
		return override
	}
	return c.Analysis.TopN
}
