// Package reflex implements the per-tick fast path: the ordered sequence of
// gates that decides whether an incoming tick triggers the currently
// installed plan.
package reflex

import (
	"time"

	"github.com/akephisit/reflexguard/internal/confirmation"
	"github.com/akephisit/reflexguard/pkg/models"
)

// Outcome is the result of evaluating a single tick.
type Outcome struct {
	Triggered bool
	Plan      *models.ActiveStrategy // set only when Triggered
	ExecPrice float64                // set only when Triggered
}

// Dependencies the evaluator needs from shared state. Kept as a narrow
// interface so reflex has no import-time dependency on the state package.
type Dependencies interface {
	RecordTick(symbol string, bid, ask float64)
	IncrementTickCount()
	IncrementTradeCount()
	ActivePlan() *models.ActiveStrategy
	HasOpenPositionFor(symbol string) bool
	TickBufferSnapshot(symbol string) []models.RecentTick
	ConfirmationConfig() confirmation.Config
}

// Evaluate runs the full ordered gate sequence for a single tick against
// the provided shared-state dependencies.
func Evaluate(tick models.TickData, deps Dependencies) Outcome {
	// Gate 0: always record the tick first, before any other gate.
	deps.RecordTick(tick.Symbol, tick.Bid, tick.Ask)
	deps.IncrementTickCount()

	plan := deps.ActivePlan()
	if plan == nil {
		return Outcome{}
	}
	if plan.Symbol != tick.Symbol {
		return Outcome{}
	}
	if plan.IsExpired(time.Now().UTC()) {
		return Outcome{}
	}
	if plan.Direction == models.NoTrade {
		return Outcome{}
	}
	if deps.HasOpenPositionFor(tick.Symbol) {
		return Outcome{}
	}

	execPrice := executionPrice(plan.Direction, tick)
	if !plan.EntryZone.Contains(execPrice) {
		return Outcome{}
	}

	buf := deps.TickBufferSnapshot(tick.Symbol)
	result := confirmation.Check(tick.Bid, tick.Ask, plan.EntryZone, plan.Direction, buf, tick.RSI14, deps.ConfirmationConfig())
	if !result.Confirmed {
		return Outcome{}
	}

	deps.IncrementTradeCount()
	return Outcome{Triggered: true, Plan: plan, ExecPrice: execPrice}
}

// executionPrice returns the side of the quote a trade would fill at: ask
// for a buy, bid for a sell.
func executionPrice(dir models.Direction, tick models.TickData) float64 {
	if dir == models.Sell {
		return tick.Bid
	}
	return tick.Ask
}
