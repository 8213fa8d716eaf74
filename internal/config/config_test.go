package config

import (
	"testing"

	"github.com/akephisit/reflexguard/internal/confirmation"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != "0.0.0.0:3000" {
		t.Errorf("BindAddr = %q, want default", cfg.BindAddr)
	}
	if cfg.Confirm.MaxSpread != 50.0 {
		t.Errorf("Confirm.MaxSpread = %v, want 50.0", cfg.Confirm.MaxSpread)
	}
	if cfg.Risk.MaxTradesPerDay != 10 {
		t.Errorf("Risk.MaxTradesPerDay = %v, want 10", cfg.Risk.MaxTradesPerDay)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q, want text", cfg.LogFormat)
	}
}

func TestValidateRejectsBadRSIRange(t *testing.T) {
	cfg := &Config{
		BindAddr:   "0.0.0.0:3000",
		MT5BaseURL: "http://localhost:8081",
		LogFormat:  "text",
		Confirm:    confirmation.Config{RSIOverbought: 150, RSIOversold: 30},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for out-of-range RSI overbought")
	}
}

func TestValidateRejectsBadLogFormat(t *testing.T) {
	cfg := &Config{
		BindAddr:   "0.0.0.0:3000",
		MT5BaseURL: "http://localhost:8081",
		LogFormat:  "xml",
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for unsupported log_format")
	}
}
