// Package config defines all configuration for the reflex trading bridge.
// Config is loaded entirely from environment variables via viper; there is
// no YAML file, since the system has no per-deployment structure beyond
// these scalar settings.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/akephisit/reflexguard/internal/confirmation"
	"github.com/akephisit/reflexguard/internal/risk"
)

// Config is the fully resolved runtime configuration.
type Config struct {
	BindAddr   string
	MT5BaseURL string
	APIKey     string

	Confirm confirmation.Config
	Risk    risk.Config

	LogLevel  string
	LogFormat string
	StateDir  string
}

// Load builds a Config from the process environment, applying the
// documented defaults for anything unset.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("bind_addr", "0.0.0.0:3000")
	v.SetDefault("mt5_base_url", "http://localhost:8081")
	v.SetDefault("api_key", "")

	v.SetDefault("confirm_max_spread", 50.0)
	v.SetDefault("confirm_require_probe", true)
	v.SetDefault("confirm_min_zone_ticks", 2)
	v.SetDefault("confirm_probe_lookback", 15)
	v.SetDefault("confirm_rsi_overbought", 70.0)
	v.SetDefault("confirm_rsi_oversold", 30.0)

	v.SetDefault("risk_max_trades_per_day", 10)
	v.SetDefault("risk_max_consecutive_fails", 3)
	v.SetDefault("risk_cooldown_secs", 300)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("state_dir", "./data")

	cfg := &Config{
		BindAddr:   v.GetString("bind_addr"),
		MT5BaseURL: v.GetString("mt5_base_url"),
		APIKey:     v.GetString("api_key"),

		Confirm: confirmation.Config{
			MaxSpread:        v.GetFloat64("confirm_max_spread"),
			RequireZoneProbe: v.GetBool("confirm_require_probe"),
			MinZoneTicks:     v.GetInt("confirm_min_zone_ticks"),
			ProbeLookback:    v.GetInt("confirm_probe_lookback"),
			RSIOverbought:    v.GetFloat64("confirm_rsi_overbought"),
			RSIOversold:      v.GetFloat64("confirm_rsi_oversold"),
		},
		Risk: risk.Config{
			MaxTradesPerDay:          uint32(v.GetUint("risk_max_trades_per_day")),
			MaxConsecutiveFailures:   uint32(v.GetUint("risk_max_consecutive_fails")),
			CooldownSecsAfterFailure: v.GetUint64("risk_cooldown_secs"),
		},

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
		StateDir:  v.GetString("state_dir"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the numeric/bool ranges the rest of the system assumes.
func (c *Config) Validate() error {
	if c.BindAddr == "" {
		return fmt.Errorf("bind_addr must not be empty")
	}
	if c.MT5BaseURL == "" {
		return fmt.Errorf("mt5_base_url must not be empty")
	}
	if c.Confirm.RSIOverbought < 0 || c.Confirm.RSIOverbought > 100 {
		return fmt.Errorf("confirm_rsi_overbought must be in [0,100], got %v", c.Confirm.RSIOverbought)
	}
	if c.Confirm.RSIOversold < 0 || c.Confirm.RSIOversold > 100 {
		return fmt.Errorf("confirm_rsi_oversold must be in [0,100], got %v", c.Confirm.RSIOversold)
	}
	if c.Confirm.MaxSpread < 0 {
		return fmt.Errorf("confirm_max_spread must be >= 0, got %v", c.Confirm.MaxSpread)
	}
	if c.Confirm.MinZoneTicks < 0 {
		return fmt.Errorf("confirm_min_zone_ticks must be >= 0, got %v", c.Confirm.MinZoneTicks)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be \"text\" or \"json\", got %q", c.LogFormat)
	}
	return nil
}
