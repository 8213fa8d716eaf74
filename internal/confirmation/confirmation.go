// Package confirmation implements the multi-stage gate that decides whether
// a tick inside a plan's entry zone is actually tradeable, or just noise.
// The core entry point, Check, is a pure function: same inputs always
// produce the same verdict.
package confirmation

import (
	"os"
	"strconv"

	"github.com/akephisit/reflexguard/pkg/models"
)

// Config tunes the four gates. Zero values are not meaningful defaults —
// always build one via FromEnv or explicit field assignment.
type Config struct {
	MaxSpread        float64
	RequireZoneProbe bool
	MinZoneTicks     int
	ProbeLookback    int
	RSIOverbought    float64
	RSIOversold      float64
}

// FromEnv builds a Config from the CONFIRM_* environment variables,
// falling back to the spec's documented defaults.
func FromEnv() Config {
	return Config{
		MaxSpread:        envFloat("CONFIRM_MAX_SPREAD", 50.0),
		RequireZoneProbe: envBool("CONFIRM_REQUIRE_PROBE", true),
		MinZoneTicks:     envInt("CONFIRM_MIN_ZONE_TICKS", 2),
		ProbeLookback:    envInt("CONFIRM_PROBE_LOOKBACK", 15),
		RSIOverbought:    envFloat("CONFIRM_RSI_OVERBOUGHT", 70),
		RSIOversold:      envFloat("CONFIRM_RSI_OVERSOLD", 30),
	}
}

func envFloat(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// Result is the verdict returned by Check.
type Result struct {
	Confirmed bool
	Reason    string // empty when Confirmed
}

func confirmed() Result        { return Result{Confirmed: true} }
func rejected(reason string) Result { return Result{Confirmed: false, Reason: reason} }

// Check evaluates the four gates in fixed order against a single tick and
// a snapshot of recent tick history. direction must be Buy or Sell; callers
// ensure NoTrade never reaches here.
func Check(bid, ask float64, zone models.EntryZone, direction models.Direction, buffer []models.RecentTick, rsi *float64, cfg Config) Result {
	// Gate 1: spread.
	if spread := ask - bid; spread > cfg.MaxSpread {
		return rejected("spread too wide")
	}

	// Gate 2: zone probe.
	if cfg.RequireZoneProbe {
		if !hasProbe(buffer, zone, direction, cfg.ProbeLookback) {
			return rejected("no zone probe detected")
		}
	}

	// Gate 3: zone dwell.
	currentMid := (bid + ask) / 2
	if dwell(buffer, zone, currentMid) < cfg.MinZoneTicks {
		return rejected("insufficient zone dwell")
	}

	// Gate 4: RSI, skipped when absent.
	if rsi != nil {
		switch direction {
		case models.Buy:
			if *rsi >= cfg.RSIOverbought {
				return rejected("rsi out of range")
			}
		case models.Sell:
			if *rsi <= cfg.RSIOversold {
				return rejected("rsi out of range")
			}
		}
	}

	return confirmed()
}

// hasProbe examines up to lookback most-recent buffer entries for evidence
// price traversed to the opposing side of the zone and returned.
func hasProbe(buffer []models.RecentTick, zone models.EntryZone, direction models.Direction, lookback int) bool {
	start := 0
	if n := len(buffer); n > lookback {
		start = n - lookback
	}
	for _, t := range buffer[start:] {
		switch direction {
		case models.Buy:
			if t.Mid < zone.Low {
				return true
			}
		case models.Sell:
			if t.Mid > zone.High {
				return true
			}
		}
	}
	return false
}

// dwell counts consecutive most-recent buffer entries whose mid lies inside
// the zone, plus 1 if currentMid also lies inside.
func dwell(buffer []models.RecentTick, zone models.EntryZone, currentMid float64) int {
	count := 0
	for i := len(buffer) - 1; i >= 0; i-- {
		if !zone.Contains(buffer[i].Mid) {
			break
		}
		count++
	}
	if zone.Contains(currentMid) {
		count++
	}
	return count
}
