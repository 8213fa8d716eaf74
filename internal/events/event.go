// Package events defines the event types broadcast to monitor subscribers
// and the WebSocket hub that fans them out.
package events

import "github.com/akephisit/reflexguard/pkg/models"

// Event tag discriminators, matching the "event" field streamed to
// /ws/monitor subscribers.
const (
	TypeSnapshot         = "SNAPSHOT"
	TypeStrategyUpdated  = "STRATEGY_UPDATED"
	TypeStrategyCleared  = "STRATEGY_CLEARED"
	TypeTradeFiring      = "TRADE_FIRING"
	TypePositionOpened   = "POSITION_OPENED"
	TypeTradeFailed      = "TRADE_FAILED"
	TypePositionClosed   = "POSITION_CLOSED"
	TypeRiskKilled       = "RISK_KILLED"
	TypeServerStats      = "SERVER_STATS"
)

// Event is the envelope streamed to every monitor subscriber. Payload is
// one of the Snapshot/...Payload structs below, chosen by Type.
type Event struct {
	Type    string `json:"event"`
	Payload any    `json:"-"`
}

// MarshalJSON flattens Payload's fields alongside the "event" tag, so
// subscribers see a single flat object tagged by "event".
func (e Event) MarshalJSON() ([]byte, error) {
	return marshalTagged(e.Type, e.Payload)
}

// SnapshotPayload is emitted once, immediately after a monitor client
// connects.
type SnapshotPayload struct {
	Strategy   *models.ActiveStrategy `json:"strategy"`
	Position   *models.OpenPosition   `json:"position"`
	TickCount  uint64                 `json:"tick_count"`
	TradeCount uint64                 `json:"trade_count"`
	Candle     *models.Candle         `json:"candle,omitempty"`
}

// StrategyUpdatedPayload is emitted when a new plan is installed.
type StrategyUpdatedPayload struct {
	Strategy *models.ActiveStrategy `json:"strategy"`
}

// TradeFiringPayload is emitted the instant an order is about to be posted.
type TradeFiringPayload struct {
	Record *models.TradeRecord `json:"record"`
}

// PositionOpenedPayload is emitted once the broker confirms a fill.
type PositionOpenedPayload struct {
	Position *models.OpenPosition `json:"position"`
}

// TradeFailedPayload is emitted when the broker rejects or cannot be
// reached.
type TradeFailedPayload struct {
	Record *models.TradeRecord `json:"record"`
}

// PositionClosedPayload is emitted on a broker close notification.
type PositionClosedPayload struct {
	PositionID  string  `json:"position_id"`
	Symbol      string  `json:"symbol"`
	Direction   string  `json:"direction"`
	ClosePrice  float64 `json:"close_price"`
	ProfitPips  float64 `json:"profit_pips"`
	CloseReason string  `json:"close_reason"`
}

// RiskKilledPayload is emitted whenever the kill switch activates, manual
// or automatic.
type RiskKilledPayload struct {
	Reason string `json:"reason"`
}

// ServerStatsPayload is a periodic heartbeat carrying aggregate counters.
type ServerStatsPayload struct {
	TickCount   uint64 `json:"tick_count"`
	TradeCount  uint64 `json:"trade_count"`
	HasPosition bool   `json:"has_position"`
	HasStrategy bool   `json:"has_strategy"`
}

// NewSnapshot, NewStrategyUpdated, ... build ready-to-broadcast Events.

func NewSnapshot(p SnapshotPayload) Event        { return Event{Type: TypeSnapshot, Payload: p} }
func NewStrategyUpdated(p StrategyUpdatedPayload) Event {
	return Event{Type: TypeStrategyUpdated, Payload: p}
}
func NewStrategyCleared() Event { return Event{Type: TypeStrategyCleared, Payload: struct{}{}} }
func NewTradeFiring(p TradeFiringPayload) Event { return Event{Type: TypeTradeFiring, Payload: p} }
func NewPositionOpened(p PositionOpenedPayload) Event {
	return Event{Type: TypePositionOpened, Payload: p}
}
func NewTradeFailed(p TradeFailedPayload) Event { return Event{Type: TypeTradeFailed, Payload: p} }
func NewPositionClosed(p PositionClosedPayload) Event {
	return Event{Type: TypePositionClosed, Payload: p}
}
func NewRiskKilled(p RiskKilledPayload) Event   { return Event{Type: TypeRiskKilled, Payload: p} }
func NewServerStats(p ServerStatsPayload) Event { return Event{Type: TypeServerStats, Payload: p} }
