// Package state owns the single shared mutable picture of the running
// system: the installed plan, the open position, trade history, and the
// per-symbol supporting caches the reflex evaluator and HTTP surface both
// read from. It satisfies reflex.Dependencies so the fast path never needs
// to know about this package's concrete layout.
package state

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/akephisit/reflexguard/internal/candle"
	"github.com/akephisit/reflexguard/internal/confirmation"
	"github.com/akephisit/reflexguard/internal/risk"
	"github.com/akephisit/reflexguard/internal/tickbuffer"
	"github.com/akephisit/reflexguard/pkg/models"
)

// State is the shared runtime state, one instance per running process.
// There is at most one active plan and one open position at a time.
type State struct {
	confirmCfg confirmation.Config

	planMu sync.RWMutex
	plan   *models.ActiveStrategy

	positionMu sync.RWMutex
	position   *models.OpenPosition

	historyMu sync.RWMutex
	history   []models.TradeRecord

	ticks   *tickbuffer.Buffer
	candles *candle.Cache
	Risk    *risk.Manager

	tickCount  atomic.Uint64
	tradeCount atomic.Uint64
}

// New wires a fresh State around an already-constructed risk manager.
func New(riskMgr *risk.Manager, confirmCfg confirmation.Config) *State {
	return &State{
		confirmCfg: confirmCfg,
		ticks:      tickbuffer.New(),
		candles:    candle.New(),
		Risk:       riskMgr,
	}
}

// --- reflex.Dependencies ---

// RecordTick folds a raw quote into the tick buffer and candle cache.
func (s *State) RecordTick(symbol string, bid, ask float64) {
	s.ticks.Record(symbol, bid, ask)
	s.candles.Update(symbol, (bid+ask)/2, time.Now().UTC())
}

// IncrementTickCount bumps the lifetime tick counter.
func (s *State) IncrementTickCount() { s.tickCount.Add(1) }

// IncrementTradeCount bumps the lifetime triggered-trade counter.
func (s *State) IncrementTradeCount() { s.tradeCount.Add(1) }

// ActivePlan returns the currently installed plan, or nil.
func (s *State) ActivePlan() *models.ActiveStrategy {
	s.planMu.RLock()
	defer s.planMu.RUnlock()
	return s.plan
}

// HasOpenPositionFor reports whether a position is open for symbol.
func (s *State) HasOpenPositionFor(symbol string) bool {
	s.positionMu.RLock()
	defer s.positionMu.RUnlock()
	return s.position != nil && s.position.Symbol == symbol
}

// TickBufferSnapshot returns a copy of the recent-tick ring for symbol.
func (s *State) TickBufferSnapshot(symbol string) []models.RecentTick {
	return s.ticks.Snapshot(symbol)
}

// ConfirmationConfig returns the confirmation gate tuning in effect.
func (s *State) ConfirmationConfig() confirmation.Config {
	return s.confirmCfg
}

// --- plan lifecycle ---

// SetPlan installs a new plan, replacing whatever was previously active.
func (s *State) SetPlan(plan *models.ActiveStrategy) {
	s.planMu.Lock()
	defer s.planMu.Unlock()
	s.plan = plan
}

// ClearPlan removes the active plan, if any, and reports whether one had
// been set.
func (s *State) ClearPlan() bool {
	s.planMu.Lock()
	defer s.planMu.Unlock()
	had := s.plan != nil
	s.plan = nil
	return had
}

// ConsumePlan atomically removes and returns the active plan, so a single
// tick can never dispatch the same plan twice.
func (s *State) ConsumePlan() *models.ActiveStrategy {
	s.planMu.Lock()
	defer s.planMu.Unlock()
	plan := s.plan
	s.plan = nil
	return plan
}

// --- position lifecycle ---

// Position returns the currently open position, or nil.
func (s *State) Position() *models.OpenPosition {
	s.positionMu.RLock()
	defer s.positionMu.RUnlock()
	return s.position
}

// SetPosition installs pos as the open position.
func (s *State) SetPosition(pos *models.OpenPosition) {
	s.positionMu.Lock()
	defer s.positionMu.Unlock()
	s.position = pos
}

// TakePosition atomically removes and returns the open position, if any.
func (s *State) TakePosition() *models.OpenPosition {
	s.positionMu.Lock()
	defer s.positionMu.Unlock()
	pos := s.position
	s.position = nil
	return pos
}

// --- trade history ---

// AppendHistory appends rec to the append-only trade log.
func (s *State) AppendHistory(rec models.TradeRecord) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	s.history = append(s.history, rec)
}

// UpdateHistory finds the most recent record with the given ID and applies
// mutate to it in place.
func (s *State) UpdateHistory(id string, mutate func(*models.TradeRecord)) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].ID == id {
			mutate(&s.history[i])
			return
		}
	}
}

// FindOpenTradeByTicket returns the most recent Confirmed record matching
// ticket, if any. Used by the position-close ingress, which identifies a
// broker close by ticket when present.
func (s *State) FindOpenTradeByTicket(ticket int64) *models.TradeRecord {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()
	for i := len(s.history) - 1; i >= 0; i-- {
		rec := s.history[i]
		if rec.Status == models.StatusConfirmed && rec.Ticket != nil && *rec.Ticket == ticket && rec.ClosedAt == nil {
			return &s.history[i]
		}
	}
	return nil
}

// FindOpenTradeBySymbol returns the most recent Confirmed, still-open
// record for symbol, if any. Fallback when no ticket is supplied.
func (s *State) FindOpenTradeBySymbol(symbol string) *models.TradeRecord {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()
	for i := len(s.history) - 1; i >= 0; i-- {
		rec := s.history[i]
		if rec.Status == models.StatusConfirmed && rec.Symbol == symbol && rec.ClosedAt == nil {
			return &s.history[i]
		}
	}
	return nil
}

// History returns a copy of the full trade log.
func (s *State) History() []models.TradeRecord {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()
	out := make([]models.TradeRecord, len(s.history))
	copy(out, s.history)
	return out
}

// --- counters and candles ---

// Counts returns the lifetime tick and trade counters.
func (s *State) Counts() (ticks, trades uint64) {
	return s.tickCount.Load(), s.tradeCount.Load()
}

// Candles returns the candle cache, for handlers that expose it read-only.
func (s *State) Candles() *candle.Cache { return s.candles }

// RestoreHistory replaces the trade log wholesale, used once at startup to
// resume from a persisted snapshot.
func (s *State) RestoreHistory(history []models.TradeRecord) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	s.history = history
}
