// Package closeingress handles broker position-close notifications: it
// clears the open position unconditionally, reconciles the matching trade
// record, and broadcasts the closure.
package closeingress

import (
	"log/slog"
	"time"

	"github.com/akephisit/reflexguard/internal/events"
	"github.com/akephisit/reflexguard/internal/state"
	"github.com/akephisit/reflexguard/pkg/models"
)

// Notice is the inbound broker position-close report.
type Notice struct {
	Ticket      *int64
	Symbol      string
	ClosePrice  float64
	ProfitPips  float64
	CloseReason string // "TP" | "SL" | "MANUAL"
}

// Ingress applies close notices against shared state.
type Ingress struct {
	state  *state.State
	hub    *events.Hub
	logger *slog.Logger
}

// New builds an Ingress.
func New(st *state.State, hub *events.Hub, logger *slog.Logger) *Ingress {
	return &Ingress{state: st, hub: hub, logger: logger.With("component", "close-ingress")}
}

// Result reports whether a position was actually open and cleared.
type Result struct {
	Closed bool
}

// Apply runs the close sequence: snapshot and unconditionally clear the
// open position, match the trade record by ticket (falling back to
// symbol), update it, and broadcast PositionClosed. A close notice for a
// symbol with nothing open is a soft no-op.
func (i *Ingress) Apply(notice Notice) Result {
	pos := i.state.TakePosition()
	if pos == nil {
		i.logger.Warn("position-close received with nothing open", "symbol", notice.Symbol)
		return Result{}
	}

	record := i.matchRecord(notice, pos.Symbol)
	if record != nil {
		closePrice := notice.ClosePrice
		profitPips := notice.ProfitPips
		closeReason := notice.CloseReason
		now := time.Now().UTC()
		i.state.UpdateHistory(record.ID, func(r *models.TradeRecord) {
			r.ClosePrice = &closePrice
			r.ProfitPips = &profitPips
			r.CloseReason = &closeReason
			r.ClosedAt = &now
		})
	}

	i.hub.Broadcast(events.NewPositionClosed(events.PositionClosedPayload{
		PositionID:  pos.ID,
		Symbol:      pos.Symbol,
		Direction:   string(pos.Direction),
		ClosePrice:  notice.ClosePrice,
		ProfitPips:  notice.ProfitPips,
		CloseReason: notice.CloseReason,
	}))
	i.logger.Info("position closed", "symbol", pos.Symbol, "reason", notice.CloseReason, "pips", notice.ProfitPips)

	return Result{Closed: true}
}

// matchRecord identifies the confirmed trade record this close notice
// resolves: by ticket when supplied, else by symbol.
func (i *Ingress) matchRecord(notice Notice, symbol string) *models.TradeRecord {
	if notice.Ticket != nil {
		if rec := i.state.FindOpenTradeByTicket(*notice.Ticket); rec != nil {
			return rec
		}
	}
	return i.state.FindOpenTradeBySymbol(symbol)
}
