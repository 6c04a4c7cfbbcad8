package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Log      Logger         `mapstructure:"logger"`
	API      API            `mapstructure:"api"`
	Cache    Cache          `mapstructure:"cache"`
	Backtest Backtest       `mapstructure:"backtest"`
	Strategy Strategy       `mapstructure:"strategy"`
	Live     Live           `mapstructure:"live"`
	Coinbase Coinbase       `mapstructure:"coinbase"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

type Logger struct {
	Level    string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Encoding string `mapstructure:"encoding" validate:"oneof=json console"`
}

type API struct {
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`
	RateLimit       float64       `mapstructure:"rate_limit" validate:"gt=0"`
	RateBurst       int           `mapstructure:"rate_burst" validate:"min=1"`
}

type Cache struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

type Backtest struct {
	Symbol           string `mapstructure:"symbol" validate:"required"`
	AggPeriod        string `mapstructure:"agg_period" validate:"required"`
	StartCash        string `mapstructure:"start_cash" validate:"required,numeric"`
	BuyFraction      string `mapstructure:"buy_fraction" validate:"required,numeric"`
	FeeRate          string `mapstructure:"fee_rate" validate:"omitempty,numeric"`
	LedgerPrecision  int    `mapstructure:"ledger_precision" validate:"min=5"`
	ReportPrecision  int    `mapstructure:"report_precision" validate:"min=1"`
	SweepConcurrency int    `mapstructure:"sweep_concurrency" validate:"min=1"`
}

type Strategy struct {
	Kind        string `mapstructure:"kind" validate:"oneof=sma ema macd"`
	ShortWindow int    `mapstructure:"short_window" validate:"min=1"`
	LongWindow  int    `mapstructure:"long_window" validate:"gtfield=ShortWindow"`
	MaxHistory  int    `mapstructure:"max_history" validate:"min=0"`
}

type Live struct {
	Symbol         string        `mapstructure:"symbol" validate:"required"`
	AggPeriod      string        `mapstructure:"agg_period" validate:"required"`
	Source         string        `mapstructure:"source" validate:"oneof=candles ticker"`
	PollInterval   time.Duration `mapstructure:"poll_interval" validate:"min=0"`
	GraceDelay     time.Duration `mapstructure:"grace_delay" validate:"min=0"`
	StartCash      string        `mapstructure:"start_cash" validate:"required,numeric"`
	StatusCron     string        `mapstructure:"status_cron" validate:"required"`
	TickBufferSize int           `mapstructure:"tick_buffer_size" validate:"min=1"`
	WarmupPeriods  int           `mapstructure:"warmup_periods" validate:"min=0"`
}

type Coinbase struct {
	BaseURL             string        `mapstructure:"base_url" validate:"required,url"`
	Timeout             time.Duration `mapstructure:"timeout" validate:"min=0"`
	MaxRequestPerSecond int           `mapstructure:"max_request_per_second" validate:"min=1"`
	UserAgent           string        `mapstructure:"user_agent"`
}

type TelegramConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	BotToken            string        `mapstructure:"bot_token" validate:"required_if=Enabled true"`
	ChatID              int64         `mapstructure:"chat_id" validate:"required_if=Enabled true"`
	TimeoutDuration     time.Duration `mapstructure:"timeout_duration"`
	MaxMessagePerMinute int           `mapstructure:"max_message_per_minute" validate:"min=1"`
}

// StartCashDecimal parses Backtest.StartCash; call after Load has validated it.
func (b Backtest) StartCashDecimal() decimal.Decimal {
	return decimal.RequireFromString(b.StartCash)
}

func (b Backtest) BuyFractionDecimal() decimal.Decimal {
	return decimal.RequireFromString(b.BuyFraction)
}

// FeeRateDecimal returns the brokerage fee rate and whether one is configured.
func (b Backtest) FeeRateDecimal() (decimal.Decimal, bool) {
	if b.FeeRate == "" {
		return decimal.Zero, false
	}
	return decimal.RequireFromString(b.FeeRate), true
}

func (l Live) StartCashDecimal() decimal.Decimal {
	return decimal.RequireFromString(l.StartCash)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")

	v.SetDefault("api.port", 8080)
	v.SetDefault("api.shutdown_timeout", 10*time.Second)
	v.SetDefault("api.rate_limit", 10)
	v.SetDefault("api.rate_burst", 30)

	v.SetDefault("cache.default_expiration", 30*time.Minute)
	v.SetDefault("cache.cleanup_interval", 10*time.Minute)

	v.SetDefault("backtest.symbol", "LTC-USD")
	v.SetDefault("backtest.agg_period", "5m")
	v.SetDefault("backtest.start_cash", "10000")
	v.SetDefault("backtest.buy_fraction", "0.9")
	v.SetDefault("backtest.fee_rate", "")
	v.SetDefault("backtest.ledger_precision", 12)
	v.SetDefault("backtest.report_precision", 10)
	v.SetDefault("backtest.sweep_concurrency", 4)

	v.SetDefault("strategy.kind", "sma")
	v.SetDefault("strategy.short_window", 30)
	v.SetDefault("strategy.long_window", 90)
	v.SetDefault("strategy.max_history", 1000)

	v.SetDefault("live.symbol", "LTC-USD")
	v.SetDefault("live.agg_period", "5m")
	v.SetDefault("live.source", "candles")
	v.SetDefault("live.poll_interval", 2*time.Second)
	v.SetDefault("live.grace_delay", time.Second)
	v.SetDefault("live.start_cash", "10000")
	v.SetDefault("live.status_cron", "@every 1h")
	v.SetDefault("live.tick_buffer_size", 10000)
	v.SetDefault("live.warmup_periods", 0)

	v.SetDefault("coinbase.base_url", "https://api.exchange.coinbase.com")
	v.SetDefault("coinbase.timeout", 10*time.Second)
	v.SetDefault("coinbase.max_request_per_second", 3)
	v.SetDefault("coinbase.user_agent", "golang-crossover")

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", 0)
	v.SetDefault("telegram.timeout_duration", 10*time.Second)
	v.SetDefault("telegram.max_message_per_minute", 20)
}

// Load reads configuration from path (or ./config.yaml when path is empty), then
// environment variables (LIVE_SYMBOL overrides live.symbol), then validates it.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
