// Package config provides configuration management for the signal engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Engine        EngineConfig       `mapstructure:"engine"`
	Risk          RiskConfig         `mapstructure:"risk"`
	Feed          FeedConfig         `mapstructure:"feed"`
	Storage       StorageConfig      `mapstructure:"storage"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// EngineConfig holds signal scoring and entry configuration. It is loaded
// once at startup and treated as immutable while the engine runs.
type EngineConfig struct {
	Instruments    []string `mapstructure:"instruments"`
	Timeframe      string   `mapstructure:"timeframe"`
	CandleWindow   int      `mapstructure:"candle_window"`
	MinCandles     int      `mapstructure:"min_candles"`
	MinConfidence  float64  `mapstructure:"min_confidence"`
	MaxRSIEntry    float64  `mapstructure:"max_rsi_entry"`
	MinVolumeRatio float64  `mapstructure:"min_volume_ratio"`
	MaxSpread      float64  `mapstructure:"max_spread"`

	// Instrument-scaled order book wall detection, quote-currency notional.
	WallThresholdDefault float64            `mapstructure:"wall_threshold_default"`
	WallThresholds       map[string]float64 `mapstructure:"wall_thresholds"`
}

// RiskConfig holds position sizing, exit, and circuit breaker configuration.
type RiskConfig struct {
	Balance             float64       `mapstructure:"balance"`
	MinRiskReward       float64       `mapstructure:"min_risk_reward"`
	MaxConcurrentTrades int           `mapstructure:"max_concurrent_trades"`
	Cooldown            time.Duration `mapstructure:"cooldown"`
	MaxHold             time.Duration `mapstructure:"max_hold"`
	DailyLossLimitPct   float64       `mapstructure:"daily_loss_limit_pct"`
	MaxDrawdownPct      float64       `mapstructure:"max_drawdown_pct"`
	TakerFee            float64       `mapstructure:"taker_fee"`

	// Trailing stop stages as net profit percentages.
	BreakevenProfitPct float64 `mapstructure:"breakeven_profit_pct"`
	LockProfitPct      float64 `mapstructure:"lock_profit_pct"`
	ATRTrailProfitPct  float64 `mapstructure:"atr_trail_profit_pct"`
	ATRTrailMultiplier float64 `mapstructure:"atr_trail_multiplier"`
}

// FeedConfig holds exchange connectivity configuration.
type FeedConfig struct {
	RESTBaseURL      string        `mapstructure:"rest_base_url"`
	WSBaseURL        string        `mapstructure:"ws_base_url"`
	DepthLevels      int           `mapstructure:"depth_levels"`
	StaleAfter       time.Duration `mapstructure:"stale_after"`
	StableAfterTicks int           `mapstructure:"stable_after_ticks"`
	ReconnectBackoff time.Duration `mapstructure:"reconnect_backoff"`
	MaxReconnects    int           `mapstructure:"max_reconnects"`
}

// StorageConfig holds persistence configuration.
type StorageConfig struct {
	DatabasePath string `mapstructure:"database_path"`
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Level    string         `mapstructure:"level"` // all, trades_only, errors_only
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Console  bool   `mapstructure:"console"`
	File     bool   `mapstructure:"file"`
	FilePath string `mapstructure:"file_path"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/binance-pulse"
	}
	return filepath.Join(home, ".config", "binance-pulse")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil, createTemplateConfig(configDir)
		}
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = filepath.Join(configDir, "pulse.db")
	}
	if cfg.Logging.FilePath == "" {
		cfg.Logging.FilePath = filepath.Join(configDir, "logs", "pulse.log")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.instruments", []string{"BTCUSDT"})
	v.SetDefault("engine.timeframe", "1m")
	v.SetDefault("engine.candle_window", 300)
	v.SetDefault("engine.min_candles", 220)
	v.SetDefault("engine.min_confidence", 83.0)
	v.SetDefault("engine.max_rsi_entry", 68.0)
	v.SetDefault("engine.min_volume_ratio", 1.2)
	v.SetDefault("engine.max_spread", 0.0012)
	v.SetDefault("engine.wall_threshold_default", 100_000.0)
	v.SetDefault("engine.wall_thresholds", map[string]float64{
		"BTCUSDT": 1_500_000,
		"ETHUSDT": 700_000,
		"SOLUSDT": 250_000,
	})

	v.SetDefault("risk.balance", 1000.0)
	v.SetDefault("risk.min_risk_reward", 1.3)
	v.SetDefault("risk.max_concurrent_trades", 2)
	v.SetDefault("risk.cooldown", "10m")
	v.SetDefault("risk.max_hold", "4h")
	v.SetDefault("risk.daily_loss_limit_pct", 10.0)
	v.SetDefault("risk.max_drawdown_pct", 15.0)
	v.SetDefault("risk.taker_fee", 0.001)
	v.SetDefault("risk.breakeven_profit_pct", 0.3)
	v.SetDefault("risk.lock_profit_pct", 2.5)
	v.SetDefault("risk.atr_trail_profit_pct", 5.0)
	v.SetDefault("risk.atr_trail_multiplier", 2.0)

	v.SetDefault("feed.rest_base_url", "https://api.binance.com")
	v.SetDefault("feed.ws_base_url", "wss://stream.binance.com:9443/ws")
	v.SetDefault("feed.depth_levels", 20)
	v.SetDefault("feed.stale_after", "2s")
	v.SetDefault("feed.stable_after_ticks", 3)
	v.SetDefault("feed.reconnect_backoff", "1s")
	v.SetDefault("feed.max_reconnects", 0)

	v.SetDefault("storage.database_path", filepath.Join(DefaultConfigDir(), "pulse.db"))

	v.SetDefault("notifications.enabled", false)
	v.SetDefault("notifications.level", "trades_only")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", true)
	v.SetDefault("logging.file_path", filepath.Join(DefaultConfigDir(), "logs", "pulse.log"))
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Notifications.Telegram.ChatID = v
	}
	if v := os.Getenv("PULSE_BALANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Risk.Balance = f
		}
	}
	if v := os.Getenv("PULSE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Engine.Instruments) == 0 {
		return fmt.Errorf("at least one instrument is required")
	}
	if c.Engine.CandleWindow < c.Engine.MinCandles {
		return fmt.Errorf("candle_window (%d) must be >= min_candles (%d)", c.Engine.CandleWindow, c.Engine.MinCandles)
	}
	if c.Engine.MinConfidence < 0 || c.Engine.MinConfidence > 100 {
		return fmt.Errorf("min_confidence must be between 0 and 100")
	}
	if c.Engine.MaxSpread <= 0 {
		return fmt.Errorf("max_spread must be positive")
	}
	if c.Risk.Balance <= 0 {
		return fmt.Errorf("balance must be positive")
	}
	if c.Risk.MinRiskReward < 0 {
		return fmt.Errorf("min_risk_reward must be non-negative")
	}
	if c.Risk.MaxConcurrentTrades < 1 {
		return fmt.Errorf("max_concurrent_trades must be at least 1")
	}
	if c.Risk.TakerFee < 0 || c.Risk.TakerFee > 0.01 {
		return fmt.Errorf("taker_fee must be between 0 and 0.01")
	}
	if c.Risk.BreakevenProfitPct >= c.Risk.LockProfitPct || c.Risk.LockProfitPct >= c.Risk.ATRTrailProfitPct {
		return fmt.Errorf("trailing stages must be strictly increasing")
	}
	if c.Feed.DepthLevels < 10 {
		return fmt.Errorf("depth_levels must be at least 10")
	}
	return nil
}

// WallThreshold returns the wall notional threshold for an instrument.
func (c *EngineConfig) WallThreshold(instrument string) float64 {
	if t, ok := c.WallThresholds[instrument]; ok {
		return t
	}
	return c.WallThresholdDefault
}
