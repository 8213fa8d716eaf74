// Package dispatch orchestrates the step sequence between a triggered plan
// and a resolved broker outcome: risk approval, order construction, plan
// consumption, the broker call, and the success/failure branches that
// follow it. It is the only place that touches both the risk governor and
// the executor.
package dispatch

import (
	"context"
	"log/slog"

	"github.com/akephisit/reflexguard/internal/events"
	"github.com/akephisit/reflexguard/internal/executor"
	"github.com/akephisit/reflexguard/internal/state"
	"github.com/akephisit/reflexguard/pkg/models"
)

// Outcome describes what happened to a single Trigger call, for the HTTP
// handler that invoked it to render a response.
type Outcome struct {
	RiskBlocked bool
	BlockReason string

	Record *models.TradeRecord // set whenever dispatch actually ran
	Failed bool
	Error  string
}

// Dispatcher wires a shared state, an executor, an event hub, and the
// broker's base URL together.
type Dispatcher struct {
	state    *state.State
	exec     *executor.Executor
	hub      *events.Hub
	brokerURL string
	logger   *slog.Logger
}

// New builds a Dispatcher.
func New(st *state.State, exec *executor.Executor, hub *events.Hub, brokerURL string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		state:     st,
		exec:      exec,
		hub:       hub,
		brokerURL: brokerURL,
		logger:    logger.With("component", "dispatch"),
	}
}

// Trigger runs the full trigger-dispatch sequence for a plan that the
// reflex evaluator has just confirmed should fire at execPrice.
func (d *Dispatcher) Trigger(ctx context.Context, plan *models.ActiveStrategy, execPrice float64) Outcome {
	// Step 1: risk approval. Blocked trades never touch the plan.
	decision := d.state.Risk.PreTradeCheck()
	if !decision.Approved {
		d.logger.Warn("trade blocked by risk governor", "reason", decision.Reason, "symbol", plan.Symbol)
		return Outcome{RiskBlocked: true, BlockReason: decision.Reason}
	}

	// Steps 2-3: recompute order from the triggering price.
	order, err := executor.BuildOrder(plan, execPrice)
	if err != nil {
		d.logger.Error("failed to build order", "error", err)
		return Outcome{Failed: true, Error: err.Error()}
	}

	// Step 4: Pending record, broadcast TradeFiring.
	record := models.TradeRecordFromStrategy(plan, execPrice)
	d.hub.Broadcast(events.NewTradeFiring(events.TradeFiringPayload{Record: record}))

	// Step 5: consume the plan before any broker I/O.
	d.state.ConsumePlan()

	// Step 6: post to the broker.
	resp, err := d.exec.FireTrade(ctx, order, d.brokerURL)
	if err != nil {
		record.Status = models.StatusFailed
		record.StatusMsg = err.Error()
		d.state.AppendHistory(*record)
		d.state.Risk.RecordFailure()
		d.hub.Broadcast(events.NewTradeFailed(events.TradeFailedPayload{Record: record}))
		d.logger.Error("broker execution failed", "error", err, "symbol", plan.Symbol)
		return Outcome{Record: record, Failed: true, Error: err.Error()}
	}

	// Step 7: success path.
	record.Status = models.StatusConfirmed
	record.Ticket = resp.Order
	if resp.Comment != nil {
		record.StatusMsg = *resp.Comment
	}
	d.state.AppendHistory(*record)

	position := models.OpenPositionFromStrategy(plan, execPrice, resp.Order)
	d.state.SetPosition(position)
	d.state.Risk.RecordSuccess()
	d.hub.Broadcast(events.NewPositionOpened(events.PositionOpenedPayload{Position: position}))
	d.logger.Info("position opened", "symbol", plan.Symbol, "ticket", resp.Order)

	return Outcome{Record: record}
}
