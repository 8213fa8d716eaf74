// Package risk implements the last line of defense before an order reaches
// the broker: a kill switch, a per-day trade cap, an auto-kill after
// consecutive execution failures, and a post-failure cooldown.
package risk

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/akephisit/reflexguard/pkg/models"
)

// Config holds the tunable limits, loaded once at startup.
type Config struct {
	MaxTradesPerDay          uint32 // 0 = unlimited
	MaxConsecutiveFailures   uint32 // 0 = auto-kill disabled
	CooldownSecsAfterFailure uint64
}

// ConfigFromEnv builds a Config from the RISK_* environment variables.
func ConfigFromEnv() Config {
	return Config{
		MaxTradesPerDay:          envUint32("RISK_MAX_TRADES_PER_DAY", 10),
		MaxConsecutiveFailures:   envUint32("RISK_MAX_CONSECUTIVE_FAILS", 3),
		CooldownSecsAfterFailure: envUint64("RISK_COOLDOWN_SECS", 300),
	}
}

func envUint32(key string, def uint32) uint32 {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			return uint32(n)
		}
	}
	return def
}

func envUint64(key string, def uint64) uint64 {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

// Decision is the outcome of a pre-trade check.
type Decision struct {
	Approved bool
	Reason   string // set only when not Approved
}

type inner struct {
	isKilled            bool
	killReason          string
	tradesToday         uint32
	consecutiveFailures uint32
	lastFailureAt       *time.Time
	lastTradeAt         *time.Time
	dailyResetDate      string // YYYY-MM-DD
}

// Manager is the risk governor. Safe for concurrent use.
type Manager struct {
	mu     sync.RWMutex
	state  inner
	cfg    Config
	logger *slog.Logger
}

// New creates a Manager with today (UTC) as the initial reset date.
func New(cfg Config, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		logger: logger.With("component", "risk"),
		state: inner{
			dailyResetDate: today(),
		},
	}
}

func today() string {
	return time.Now().UTC().Format("2006-01-02")
}

// PreTradeCheck evaluates the ordered chain of gates and, if approved,
// consumes one of today's trade slots.
func (m *Manager) PreTradeCheck() Decision {
	m.mu.Lock()
	defer m.mu.Unlock()

	if now := today(); now > m.state.dailyResetDate {
		m.state.tradesToday = 0
		m.state.dailyResetDate = now
		m.logger.Info("daily counters reset")
	}

	if m.state.isKilled {
		return Decision{Reason: fmt.Sprintf("Kill switch active: %s", killReasonOrDefault(m.state.killReason))}
	}

	if m.state.lastFailureAt != nil {
		elapsed := time.Since(*m.state.lastFailureAt)
		cooldown := time.Duration(m.cfg.CooldownSecsAfterFailure) * time.Second
		if elapsed < cooldown {
			remaining := int64((cooldown - elapsed).Seconds())
			return Decision{Reason: fmt.Sprintf("Cooldown: %ds remaining after last failure", remaining)}
		}
	}

	if m.cfg.MaxTradesPerDay > 0 && m.state.tradesToday >= m.cfg.MaxTradesPerDay {
		return Decision{Reason: fmt.Sprintf("Daily trade limit reached: %d/%d", m.state.tradesToday, m.cfg.MaxTradesPerDay)}
	}

	if m.cfg.MaxConsecutiveFailures > 0 && m.state.consecutiveFailures >= m.cfg.MaxConsecutiveFailures {
		reason := fmt.Sprintf("Auto-kill: %d consecutive execution failures", m.state.consecutiveFailures)
		m.state.isKilled = true
		m.state.killReason = reason
		m.logger.Warn("risk auto-kill activated", "reason", reason)
		return Decision{Reason: reason}
	}

	m.state.tradesToday++
	now := time.Now().UTC()
	m.state.lastTradeAt = &now
	m.logger.Info("risk approved", "trades_today", m.state.tradesToday, "max", m.cfg.MaxTradesPerDay)
	return Decision{Approved: true}
}

func killReasonOrDefault(reason string) string {
	if reason == "" {
		return "manual activation"
	}
	return reason
}

// RecordSuccess resets the consecutive-failure counter.
func (m *Manager) RecordSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.state.consecutiveFailures
	m.state.consecutiveFailures = 0
	if prev > 0 {
		m.logger.Info("consecutive failures reset", "was", prev)
	}
}

// RecordFailure increments the consecutive-failure counter and marks the
// cooldown clock.
func (m *Manager) RecordFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.consecutiveFailures++
	now := time.Now().UTC()
	m.state.lastFailureAt = &now
	m.logger.Warn("execution failure recorded", "consecutive", m.state.consecutiveFailures, "max", m.cfg.MaxConsecutiveFailures)
}

// Kill activates the manual/emergency stop.
func (m *Manager) Kill(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.isKilled = true
	m.state.killReason = reason
	m.logger.Warn("kill switch activated", "reason", reason)
}

// Rearm clears the kill switch and the failure counters.
func (m *Manager) Rearm() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.isKilled = false
	m.state.killReason = ""
	m.state.consecutiveFailures = 0
	m.state.lastFailureAt = nil
	m.logger.Info("kill switch deactivated, system re-armed")
}

// Status returns a point-in-time snapshot for the /api/risk/status endpoint
// and for persistence.
func (m *Manager) Status() models.RiskState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var killReason *string
	if m.state.isKilled && m.state.killReason != "" {
		r := m.state.killReason
		killReason = &r
	}

	return models.RiskState{
		IsKilled:            m.state.isKilled,
		KillReason:          killReason,
		TradesToday:         m.state.tradesToday,
		ConsecutiveFailures: m.state.consecutiveFailures,
		LastFailureAt:       m.state.lastFailureAt,
		LastTradeAt:         m.state.lastTradeAt,
		DailyResetDate:      m.state.dailyResetDate,
	}
}

// Restore overwrites the manager's state from a persisted snapshot, used
// once at startup to resume counters across a restart.
func (m *Manager) Restore(s models.RiskState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	reason := ""
	if s.KillReason != nil {
		reason = *s.KillReason
	}
	m.state = inner{
		isKilled:            s.IsKilled,
		killReason:          reason,
		tradesToday:         s.TradesToday,
		consecutiveFailures: s.ConsecutiveFailures,
		lastFailureAt:       s.LastFailureAt,
		lastTradeAt:         s.LastTradeAt,
		dailyResetDate:      s.DailyResetDate,
	}
	if m.state.dailyResetDate == "" {
		m.state.dailyResetDate = today()
	}
}
