// Package models defines the shared data structures used across the reflex,
// confirmation, risk, and execution layers — the common vocabulary for plans,
// ticks, positions, and trade history. It has no dependencies on internal
// packages, so it can be imported by any layer.
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Direction is the side a plan or position trades.
type Direction string

const (
	Buy     Direction = "BUY"
	Sell    Direction = "SELL"
	NoTrade Direction = "NO_TRADE"
)

// EntryZone is the closed price interval [Low, High] a plan is allowed to
// trigger within.
type EntryZone struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Contains reports whether p lies inside the zone, endpoints included.
func (z EntryZone) Contains(p float64) bool {
	return z.Low <= p && p <= z.High
}

// ActiveStrategy is the trade plan published by the external planner.
// Immutable once installed into shared state.
type ActiveStrategy struct {
	ID             string     `json:"id"`
	Symbol         string     `json:"symbol"`
	Direction      Direction  `json:"direction"`
	EntryZone      EntryZone  `json:"entry_zone"`
	TakeProfit     float64    `json:"take_profit"`
	StopLoss       float64    `json:"stop_loss"`
	LotSize        float64    `json:"lot_size"`
	Rationale      string     `json:"rationale,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

// NewActiveStrategy fills in ID and CreatedAt and validates the plan.
func NewActiveStrategy(symbol string, dir Direction, zone EntryZone, tp, sl, lot float64, rationale string, expiresAt *time.Time) (*ActiveStrategy, error) {
	s := &ActiveStrategy{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		Direction:  dir,
		EntryZone:  zone,
		TakeProfit: tp,
		StopLoss:   sl,
		LotSize:    lot,
		Rationale:  rationale,
		CreatedAt:  time.Now().UTC(),
		ExpiresAt:  expiresAt,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate enforces the ingest invariants from the data model.
func (s *ActiveStrategy) Validate() error {
	if s.LotSize <= 0 {
		return fmt.Errorf("lot_size must be > 0, got %v", s.LotSize)
	}
	if s.EntryZone.Low > s.EntryZone.High {
		return fmt.Errorf("entry_zone.low (%v) must be <= entry_zone.high (%v)", s.EntryZone.Low, s.EntryZone.High)
	}
	switch s.Direction {
	case Buy:
		if !(s.StopLoss < s.EntryZone.Low && s.EntryZone.High < s.TakeProfit) {
			return fmt.Errorf("buy invariant violated: stop_loss < entry_zone.low <= entry_zone.high < take_profit")
		}
	case Sell:
		if !(s.TakeProfit < s.EntryZone.Low && s.EntryZone.High < s.StopLoss) {
			return fmt.Errorf("sell invariant violated: take_profit < entry_zone.low <= entry_zone.high < stop_loss")
		}
	default:
		return fmt.Errorf("direction must be BUY or SELL, got %q", s.Direction)
	}
	if s.ExpiresAt != nil && !s.ExpiresAt.After(s.CreatedAt) {
		return fmt.Errorf("expires_at must be after created_at")
	}
	return nil
}

// IsExpired reports whether the plan's expiry has passed as of now.
func (s *ActiveStrategy) IsExpired(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}

// TickData is a single timestamped bid/ask quote for a symbol.
type TickData struct {
	Symbol    string    `json:"symbol"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	Volume    float64   `json:"volume,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	Mid    *float64 `json:"mid,omitempty"`
	Spread *float64 `json:"spread,omitempty"`
	RSI14  *float64 `json:"rsi_14,omitempty"`
	MA20   *float64 `json:"ma_20,omitempty"`
	MA50   *float64 `json:"ma_50,omitempty"`
}

// EffectiveMid returns the tick's reported Mid if present, else (Bid+Ask)/2.
func (t TickData) EffectiveMid() float64 {
	if t.Mid != nil {
		return *t.Mid
	}
	return (t.Bid + t.Ask) / 2
}

// RecentTick is the compact element stored in the per-symbol tick buffer.
type RecentTick struct {
	Mid    float64 `json:"mid"`
	Spread float64 `json:"spread"`
}

// NewRecentTick builds a RecentTick from a raw bid/ask pair.
func NewRecentTick(bid, ask float64) RecentTick {
	return RecentTick{Mid: (bid + ask) / 2, Spread: ask - bid}
}

// OpenPosition mirrors a live broker position.
type OpenPosition struct {
	ID                 string    `json:"id"`
	PlanID             string    `json:"plan_id"`
	Symbol             string    `json:"symbol"`
	Direction          Direction `json:"direction"`
	EntryPrice         float64   `json:"entry_price"`
	LotSize            float64   `json:"lot_size"`
	TakeProfit         float64   `json:"take_profit"`
	StopLoss           float64   `json:"stop_loss"`
	Ticket             *int64    `json:"ticket,omitempty"`
	OpenedAt           time.Time `json:"opened_at"`
	SLMovedToBreakeven bool      `json:"sl_moved_to_breakeven"`
}

// OpenPositionFromStrategy derives an OpenPosition from a consumed plan and
// the execution-side price it filled at.
func OpenPositionFromStrategy(plan *ActiveStrategy, executionPrice float64, ticket *int64) *OpenPosition {
	return &OpenPosition{
		ID:         uuid.NewString(),
		PlanID:     plan.ID,
		Symbol:     plan.Symbol,
		Direction:  plan.Direction,
		EntryPrice: executionPrice,
		LotSize:    plan.LotSize,
		TakeProfit: plan.TakeProfit,
		StopLoss:   plan.StopLoss,
		Ticket:     ticket,
		OpenedAt:   time.Now().UTC(),
	}
}

// UnrealisedPips returns the position's running profit in price units at the
// given current price (positive = in profit).
func (p *OpenPosition) UnrealisedPips(currentPrice float64) float64 {
	if p.Direction == Sell {
		return p.EntryPrice - currentPrice
	}
	return currentPrice - p.EntryPrice
}

// TradeStatus is the lifecycle state of a TradeRecord.
type TradeStatus string

const (
	StatusPending   TradeStatus = "PENDING"
	StatusConfirmed TradeStatus = "CONFIRMED"
	StatusRejected  TradeStatus = "REJECTED"
	StatusFailed    TradeStatus = "FAILED"
)

// TradeRecord is an append-only history entry created on trigger and
// mutated at most twice: once on broker resolution, once on close.
type TradeRecord struct {
	ID         string      `json:"id"`
	PlanID     string      `json:"plan_id"`
	Symbol     string      `json:"symbol"`
	Direction  Direction   `json:"direction"`
	EntryPrice float64     `json:"entry_price"`
	LotSize    float64     `json:"lot_size"`
	TakeProfit float64     `json:"take_profit"`
	StopLoss   float64     `json:"stop_loss"`
	Ticket     *int64      `json:"ticket,omitempty"`
	Status     TradeStatus `json:"status"`
	StatusMsg  string      `json:"status_msg,omitempty"`
	FiredAt    time.Time   `json:"fired_at"`

	ClosePrice   *float64   `json:"close_price,omitempty"`
	ProfitPips   *float64   `json:"profit_pips,omitempty"`
	CloseReason  *string    `json:"close_reason,omitempty"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
}

// TradeRecordFromStrategy creates a Pending record for a plan about to be
// dispatched to the broker.
func TradeRecordFromStrategy(plan *ActiveStrategy, executionPrice float64) *TradeRecord {
	return &TradeRecord{
		ID:         uuid.NewString(),
		PlanID:     plan.ID,
		Symbol:     plan.Symbol,
		Direction:  plan.Direction,
		EntryPrice: executionPrice,
		LotSize:    plan.LotSize,
		TakeProfit: plan.TakeProfit,
		StopLoss:   plan.StopLoss,
		Status:     StatusPending,
		FiredAt:    time.Now().UTC(),
	}
}

// RiskState is the serializable snapshot of the risk governor's internal
// counters, used both for the /api/risk/status endpoint and for persistence.
type RiskState struct {
	IsKilled             bool       `json:"is_killed"`
	KillReason           *string    `json:"kill_reason,omitempty"`
	TradesToday          uint32     `json:"trades_today"`
	ConsecutiveFailures  uint32     `json:"consecutive_failures"`
	LastFailureAt        *time.Time `json:"last_failure_at,omitempty"`
	LastTradeAt          *time.Time `json:"last_trade_at,omitempty"`
	DailyResetDate       string     `json:"daily_reset_date"` // YYYY-MM-DD, UTC
}

// Candle is a one-minute OHLC bar built from observed tick mids. Read-only
// reporting surface; never consulted by any gate.
type Candle struct {
	Symbol     string    `json:"symbol"`
	BucketFrom time.Time `json:"bucket_from"`
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	TickCount  int       `json:"tick_count"`
}
