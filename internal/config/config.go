// Package config loads and validates the YAML configuration shared by the
// live engine and the backtest command.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"sentiment-lab/internal/feargreed"
	"sentiment-lab/internal/signal"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		MetricsAddr     string        `yaml:"metrics_addr"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Postgres struct {
		DSN string `yaml:"dsn"`
	} `yaml:"postgres"`
	ClickHouse struct {
		DSN      string `yaml:"dsn"`
		Database string `yaml:"database"`
	} `yaml:"clickhouse"`
	Ingestion struct {
		Symbols       []string      `yaml:"symbols"`
		MarketWSURL   string        `yaml:"market_ws_url"`
		QueueCapacity int           `yaml:"queue_capacity"`
		RetryDelay    time.Duration `yaml:"retry_delay"`
		MaxRetryDelay time.Duration `yaml:"max_retry_delay"`
		Stub          struct {
			Enabled  bool          `yaml:"enabled"`
			Seed     int64         `yaml:"seed"`
			Interval time.Duration `yaml:"interval"`
		} `yaml:"stub"`
	} `yaml:"ingestion"`
	Aggregator struct {
		Capacity int `yaml:"capacity"`
	} `yaml:"aggregator"`
	Engine struct {
		Interval           time.Duration `yaml:"interval"`
		ShortWindowSeconds int           `yaml:"short_window_seconds"`
	} `yaml:"engine"`
	Signals struct {
		MediumWindowSeconds int     `yaml:"medium_window_seconds"`
		LongWindowSeconds   int     `yaml:"long_window_seconds"`
		MinConfidence       float64 `yaml:"min_confidence"`
		MaxPositionFraction float64 `yaml:"max_position_fraction"`
		StopLossPct         float64 `yaml:"stop_loss_pct"`
		TakeProfitPct       float64 `yaml:"take_profit_pct"`
	} `yaml:"signals"`
	Thresholds struct {
		ExtremeFear  float64 `yaml:"extreme_fear"`
		Fear         float64 `yaml:"fear"`
		Neutral      float64 `yaml:"neutral"`
		Greed        float64 `yaml:"greed"`
		ExtremeGreed float64 `yaml:"extreme_greed"`
	} `yaml:"thresholds"`
	Backtest struct {
		StrategyName   string        `yaml:"strategy_name"`
		InitialCapital float64       `yaml:"initial_capital"`
		Step           time.Duration `yaml:"step"`
		MaxHold        time.Duration `yaml:"max_hold"`
		Seed           int64         `yaml:"seed"`
	} `yaml:"backtest"`
}

// Default returns a configuration with all tuning parameters at their
// standard values. Connection strings are left empty; commands fall back to
// in-memory stores when they are not set.
func Default() *Config {
	c := &Config{Environment: "development"}
	c.Server.MetricsAddr = ":9090"
	c.Server.ShutdownTimeout = 10 * time.Second
	c.Ingestion.Symbols = []string{"AAPL", "BTC", "ETH", "MARKET", "TSLA"}
	c.Ingestion.QueueCapacity = 1024
	c.Ingestion.RetryDelay = 1 * time.Second
	c.Ingestion.MaxRetryDelay = 30 * time.Second
	c.Ingestion.Stub.Enabled = true
	c.Ingestion.Stub.Seed = 42
	c.Ingestion.Stub.Interval = 1 * time.Second
	c.Aggregator.Capacity = 100_000
	c.Engine.Interval = 60 * time.Second
	c.Engine.ShortWindowSeconds = 300
	c.Signals.MediumWindowSeconds = 3600
	c.Signals.LongWindowSeconds = 86400
	c.Signals.MinConfidence = 0.7
	c.Signals.MaxPositionFraction = 0.1
	c.Signals.StopLossPct = 0.05
	c.Signals.TakeProfitPct = 0.15
	c.Thresholds.ExtremeFear = 25
	c.Thresholds.Fear = 45
	c.Thresholds.Neutral = 55
	c.Thresholds.Greed = 75
	c.Thresholds.ExtremeGreed = 90
	c.Backtest.StrategyName = "sentiment-composite"
	c.Backtest.InitialCapital = 100_000
	c.Backtest.Step = 5 * time.Minute
	c.Backtest.MaxHold = 24 * time.Hour
	c.Backtest.Seed = 42
	return c
}

// Load reads and parses a YAML configuration file. Values not present in
// the file keep their defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		c.ClickHouse.DSN = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Ingestion.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("MARKET_WS_URL"); v != "" {
		c.Ingestion.MarketWSURL = v
	}

	return c, nil
}

// FearGreedThresholds converts the configured bucket bounds.
func (c *Config) FearGreedThresholds() feargreed.Thresholds {
	return feargreed.Thresholds{
		ExtremeFear:  c.Thresholds.ExtremeFear,
		Fear:         c.Thresholds.Fear,
		Neutral:      c.Thresholds.Neutral,
		Greed:        c.Thresholds.Greed,
		ExtremeGreed: c.Thresholds.ExtremeGreed,
	}
}

// SignalConfig converts the signal section into synthesizer parameters.
func (c *Config) SignalConfig() signal.Config {
	return signal.Config{
		ShortWindowSeconds:  c.Engine.ShortWindowSeconds,
		MediumWindowSeconds: c.Signals.MediumWindowSeconds,
		LongWindowSeconds:   c.Signals.LongWindowSeconds,
		MinConfidence:       c.Signals.MinConfidence,
		MaxPositionFraction: c.Signals.MaxPositionFraction,
		StopLossPct:         c.Signals.StopLossPct,
		TakeProfitPct:       c.Signals.TakeProfitPct,
		DefaultAssets:       c.Ingestion.Symbols,
		Thresholds:          c.FearGreedThresholds(),
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Ingestion.Symbols) == 0 {
		return fmt.Errorf("ingestion.symbols cannot be empty")
	}
	if c.Aggregator.Capacity <= 0 {
		return fmt.Errorf("aggregator.capacity must be positive")
	}
	if c.Engine.ShortWindowSeconds <= 0 {
		return fmt.Errorf("engine.short_window_seconds must be positive")
	}
	if c.Signals.MediumWindowSeconds <= c.Engine.ShortWindowSeconds {
		return fmt.Errorf("signals.medium_window_seconds must exceed the short window")
	}
	if c.Signals.LongWindowSeconds <= c.Signals.MediumWindowSeconds {
		return fmt.Errorf("signals.long_window_seconds must exceed the medium window")
	}
	if c.Signals.MinConfidence < 0 || c.Signals.MinConfidence > 1 {
		return fmt.Errorf("signals.min_confidence must be in [0, 1]")
	}
	if c.Signals.MaxPositionFraction <= 0 || c.Signals.MaxPositionFraction > 1 {
		return fmt.Errorf("signals.max_position_fraction must be in (0, 1]")
	}
	if err := c.FearGreedThresholds().Validate(); err != nil {
		return err
	}
	if c.Thresholds.ExtremeFear < 0 || c.Thresholds.ExtremeGreed > 100 {
		return fmt.Errorf("thresholds must lie within [0, 100]")
	}
	if c.Backtest.InitialCapital <= 0 {
		return fmt.Errorf("backtest.initial_capital must be positive")
	}
	if c.Backtest.Step <= 0 || c.Backtest.MaxHold <= 0 {
		return fmt.Errorf("backtest.step and backtest.max_hold must be positive")
	}
	return nil
}
