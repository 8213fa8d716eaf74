package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/akephisit/reflexguard/internal/backtest"
	"github.com/akephisit/reflexguard/internal/closeingress"
	"github.com/akephisit/reflexguard/internal/confirmation"
	"github.com/akephisit/reflexguard/internal/events"
	"github.com/akephisit/reflexguard/internal/reflex"
	"github.com/akephisit/reflexguard/pkg/models"
)

// handleTick processes one MT5 tick: always records it, then runs the
// reflex evaluator and, on trigger, the dispatch orchestrator.
func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	var tick models.TickData
	if err := json.NewDecoder(r.Body).Decode(&tick); err != nil {
		writeError(w, badRequest("invalid tick payload: "+err.Error()))
		return
	}

	outcome := reflex.Evaluate(tick, s.state)
	if !outcome.Triggered {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "action": "NO_ACTION"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	result := s.dispatcher.Trigger(ctx, outcome.Plan, outcome.ExecPrice)
	switch {
	case result.RiskBlocked:
		writeJSON(w, http.StatusOK, map[string]any{"ok": false, "action": "RISK_BLOCKED", "reason": result.BlockReason})
	case result.Failed:
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "action": "TRADE_TRIGGERED", "status": "FAILED", "error": result.Error})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "action": "TRADE_TRIGGERED", "record": result.Record})
	}
}

type positionCloseRequest struct {
	Ticket      *int64  `json:"mt5_ticket,omitempty"`
	Symbol      string  `json:"symbol"`
	ClosePrice  float64 `json:"close_price"`
	ProfitPips  float64 `json:"profit_pips"`
	CloseReason string  `json:"close_reason"`
}

func (s *Server) handlePositionClose(w http.ResponseWriter, r *http.Request) {
	var body positionCloseRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, badRequest("invalid position-close payload: "+err.Error()))
		return
	}

	s.closer.Apply(closeingress.Notice{
		Ticket:      body.Ticket,
		Symbol:      body.Symbol,
		ClosePrice:  body.ClosePrice,
		ProfitPips:  body.ProfitPips,
		CloseReason: body.CloseReason,
	})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleMT5Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleInstallStrategy(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Symbol     string             `json:"symbol"`
		Direction  models.Direction   `json:"direction"`
		EntryZone  models.EntryZone   `json:"entry_zone"`
		TakeProfit float64            `json:"take_profit"`
		StopLoss   float64            `json:"stop_loss"`
		LotSize    float64            `json:"lot_size"`
		Rationale  string             `json:"rationale"`
		ExpiresAt  *time.Time         `json:"expires_at,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, badRequest("invalid strategy payload: "+err.Error()))
		return
	}

	plan, err := models.NewActiveStrategy(body.Symbol, body.Direction, body.EntryZone, body.TakeProfit, body.StopLoss, body.LotSize, body.Rationale, body.ExpiresAt)
	if err != nil {
		writeError(w, badRequest(err.Error()))
		return
	}

	s.state.SetPlan(plan)
	s.hub.Broadcast(events.NewStrategyUpdated(events.StrategyUpdatedPayload{Strategy: plan}))
	writeJSON(w, http.StatusCreated, plan)
}

func (s *Server) handleGetStrategy(w http.ResponseWriter, r *http.Request) {
	plan := s.state.ActivePlan()
	if plan == nil {
		writeError(w, notFound("no active strategy"))
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleClearStrategy(w http.ResponseWriter, r *http.Request) {
	s.state.ClearPlan()
	s.hub.Broadcast(events.NewStrategyCleared())
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleRiskKill(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reason string `json:"reason"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.Reason == "" {
		body.Reason = "manual kill via API"
	}
	s.state.Risk.Kill(body.Reason)
	s.hub.Broadcast(events.NewRiskKilled(events.RiskKilledPayload{Reason: body.Reason}))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleRiskRearm(w http.ResponseWriter, r *http.Request) {
	s.state.Risk.Rearm()
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleRiskStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state.Risk.Status())
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Ticks      []models.TickData        `json:"ticks"`
		Strategy   models.ActiveStrategy    `json:"strategy"`
		Confirm    *confirmation.Config     `json:"confirmation,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, badRequest("invalid backtest payload: "+err.Error()))
		return
	}
	if err := body.Strategy.Validate(); err != nil {
		writeError(w, badRequest(err.Error()))
		return
	}

	cfg := s.confirmCfg
	if body.Confirm != nil {
		cfg = *body.Confirm
	}

	result := backtest.Run(backtest.Request{Ticks: body.Ticks, Plan: &body.Strategy, Confirm: cfg})
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.buildSnapshot())
}

func (s *Server) buildSnapshot() events.SnapshotPayload {
	ticks, trades := s.state.Counts()
	payload := events.SnapshotPayload{
		Strategy:   s.state.ActivePlan(),
		Position:   s.state.Position(),
		TickCount:  ticks,
		TradeCount: trades,
	}
	if plan := payload.Strategy; plan != nil {
		if cd, ok := s.state.Candles().Latest(plan.Symbol); ok {
			payload.Candle = &cd
		}
	}
	return payload
}

func (s *Server) handleMonitorWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := events.NewClient(s.hub, conn)
	snap := events.NewSnapshot(s.buildSnapshot())
	if data, err := json.Marshal(snap); err == nil {
		client.SendInitial(data)
	}
}
