// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	apperrors "optionedge/internal/errors"
)

// Config holds all application configuration.
type Config struct {
	Model       ModelConfig   `mapstructure:"model"`
	Gates       GateConfig    `mapstructure:"gates"`
	Backtest    ServiceConfig `mapstructure:"backtest"`
	Logging     LoggingConfig `mapstructure:"logging"`
	Credentials Credentials   `mapstructure:"-"` // Loaded separately
}

// ModelConfig holds the probability and expected-value model tunables.
// These defaults come from the production model but are deliberately
// configurable pending domain review.
type ModelConfig struct {
	IVHVRatioCap            float64 `mapstructure:"iv_hv_ratio_cap"`
	UnlimitedLossMultiplier float64 `mapstructure:"unlimited_loss_multiplier"`
}

// GateConfig holds the admission gate economics.
type GateConfig struct {
	MinCreditPerShare float64 `mapstructure:"min_credit_per_share"`
}

// ServiceConfig holds the backtest service connection settings.
type ServiceConfig struct {
	URL                 string `mapstructure:"url"`
	PollIntervalSeconds int    `mapstructure:"poll_interval_seconds"`
	MaxPollAttempts     int    `mapstructure:"max_poll_attempts"`
	HistoryYears        int    `mapstructure:"history_years"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	File    bool   `mapstructure:"file"`
}

// Credentials holds API credentials.
type Credentials struct {
	OpenAI OpenAICredentials `mapstructure:"openai"`
}

// OpenAICredentials holds OpenAI API credentials for strategy narration.
type OpenAICredentials struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/optionedge"
	}
	return filepath.Join(home, ".config", "optionedge")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}
	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrConfigInvalid, err)
	}
	return cfg, nil
}

func loadConfigFile(configDir string, target *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetDefault("model.iv_hv_ratio_cap", 4.0)
	v.SetDefault("model.unlimited_loss_multiplier", 2.5)
	v.SetDefault("gates.min_credit_per_share", 0.10)
	v.SetDefault("backtest.url", "http://localhost:8787")
	v.SetDefault("backtest.poll_interval_seconds", 1)
	v.SetDefault("backtest.max_poll_attempts", 60)
	v.SetDefault("backtest.history_years", 5)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", true)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if err := createTemplateConfig(configDir); err != nil {
				return err
			}
			return v.Unmarshal(target)
		}
		return err
	}
	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetDefault("openai.model", "gpt-4o")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if err := createTemplateCredentials(configDir); err != nil {
				return err
			}
			return v.Unmarshal(creds)
		}
		return err
	}
	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BACKTEST_URL"); v != "" {
		cfg.Backtest.URL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Credentials.OpenAI.APIKey = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Model.IVHVRatioCap < 1 {
		return apperrors.NewValidationError("iv_hv_ratio_cap", c.Model.IVHVRatioCap, "must be at least 1")
	}
	if c.Model.UnlimitedLossMultiplier <= 0 {
		return apperrors.NewValidationError("unlimited_loss_multiplier", c.Model.UnlimitedLossMultiplier, "must be positive")
	}
	if c.Gates.MinCreditPerShare < 0 {
		return apperrors.NewValidationError("min_credit_per_share", c.Gates.MinCreditPerShare, "must be non-negative")
	}
	if c.Backtest.PollIntervalSeconds <= 0 {
		return apperrors.NewValidationError("poll_interval_seconds", c.Backtest.PollIntervalSeconds, "must be positive")
	}
	if c.Backtest.MaxPollAttempts <= 0 {
		return apperrors.NewValidationError("max_poll_attempts", c.Backtest.MaxPollAttempts, "must be positive")
	}
	if c.Backtest.HistoryYears <= 0 {
		return apperrors.NewValidationError("history_years", c.Backtest.HistoryYears, "must be positive")
	}
	return nil
}
