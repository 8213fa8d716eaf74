// Package backtest replays a historical tick sequence against a single
// candidate plan through the same gate sequence the live reflex evaluator
// uses (apart from the plan-expiry check), and tallies the result. RSI is passed through from each tick
// exactly like the live path, so backtest and live share gate outcomes for
// identical inputs (the one deliberate divergence the original design left
// open is resolved here).
package backtest

import (
	"github.com/akephisit/reflexguard/internal/confirmation"
	"github.com/akephisit/reflexguard/internal/tickbuffer"
	"github.com/akephisit/reflexguard/pkg/models"
	"github.com/shopspring/decimal"
)

// Request is the input to a single backtest run.
type Request struct {
	Ticks      []models.TickData
	Plan       *models.ActiveStrategy
	Confirm    confirmation.Config
}

// Result tallies the outcome of a backtest run. WinRatePct is formatted via
// decimal at construction time, since this is a reporting boundary rather
// than the hot gate path.
type Result struct {
	TotalTicks     int            `json:"total_ticks"`
	TotalTrades    int            `json:"total_trades"`
	Wins           int            `json:"wins"`
	Losses         int            `json:"losses"`
	RealizedPips   float64        `json:"realized_pips"`
	WinRatePct     string         `json:"win_rate_pct"`
	MaxDrawdown    float64        `json:"max_drawdown"`
	RejectCounts   map[string]int `json:"reject_counts"`
}

// Run replays req.Ticks in order against req.Plan, gating each tick like the
// live reflex evaluator (the plan's expiry is not checked), and holding one
// simulated position at a time until it hits the plan's take-profit or
// stop-loss. A tick that closes the position is then considered for a new
// entry; a tick that leaves it open is counted under "position_open".
func Run(req Request) Result {
	buf := tickbuffer.New()
	rejects := map[string]int{}

	var (
		totalTrades  int
		wins, losses int
		realized     float64
		runningPips  float64
		peak         float64
		maxDrawdown  float64
		openPrice    float64
		haveOpen     bool
	)

	plan := req.Plan

	for _, tick := range req.Ticks {
		buf.Record(tick.Symbol, tick.Bid, tick.Ask)

		if plan == nil || plan.Symbol != tick.Symbol {
			rejects["no_strategy"]++
			continue
		}

		if haveOpen {
			closed, pips, reason := checkExit(plan, tick, openPrice)
			if closed {
				haveOpen = false
				realized += pips
				runningPips += pips
				if pips >= 0 {
					wins++
				} else {
					losses++
				}
				if runningPips > peak {
					peak = runningPips
				}
				if dd := peak - runningPips; dd > maxDrawdown {
					maxDrawdown = dd
				}
				_ = reason
			}
			if haveOpen {
				rejects["position_open"]++
				continue
			}
		}

		if plan.Direction == models.NoTrade {
			rejects["no_strategy"]++
			continue
		}

		execPrice := executionPrice(plan.Direction, tick)
		if !plan.EntryZone.Contains(execPrice) {
			rejects["outside_zone"]++
			continue
		}

		snapshot := buf.Snapshot(tick.Symbol)
		result := confirmation.Check(tick.Bid, tick.Ask, plan.EntryZone, plan.Direction, snapshot, tick.RSI14, req.Confirm)
		if !result.Confirmed {
			rejects[result.Reason]++
			continue
		}

		totalTrades++
		haveOpen = true
		openPrice = execPrice
	}

	winRate := 0.0
	if wins+losses > 0 {
		winRate = 100 * float64(wins) / float64(wins+losses)
	}

	return Result{
		TotalTicks:   len(req.Ticks),
		TotalTrades:  totalTrades,
		Wins:         wins,
		Losses:       losses,
		RealizedPips: realized,
		WinRatePct:   decimal.NewFromFloat(winRate).Round(2).String(),
		MaxDrawdown:  maxDrawdown,
		RejectCounts: rejects,
	}
}

// executionPrice returns the side of the quote a trade would fill at.
func executionPrice(dir models.Direction, tick models.TickData) float64 {
	if dir == models.Sell {
		return tick.Bid
	}
	return tick.Ask
}

// checkExit reports whether the simulated open position hit take-profit or
// stop-loss on this tick, and the realized pips (relative to openPrice) if
// so. Exit is checked against the same side of the quote the position would
// actually close at: bid for a Buy, ask for a Sell.
func checkExit(plan *models.ActiveStrategy, tick models.TickData, openPrice float64) (closed bool, pips float64, reason string) {
	switch plan.Direction {
	case models.Buy:
		exit := tick.Bid
		if exit >= plan.TakeProfit {
			return true, exit - openPrice, "TP"
		}
		if exit <= plan.StopLoss {
			return true, exit - openPrice, "SL"
		}
	case models.Sell:
		exit := tick.Ask
		if exit <= plan.TakeProfit {
			return true, openPrice - exit, "TP"
		}
		if exit >= plan.StopLoss {
			return true, openPrice - exit, "SL"
		}
	}
	return false, 0, ""
}
