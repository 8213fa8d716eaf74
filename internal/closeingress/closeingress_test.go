package closeingress

import (
	"io"
	"log/slog"
	"testing"

	"github.com/akephisit/reflexguard/internal/confirmation"
	"github.com/akephisit/reflexguard/internal/events"
	"github.com/akephisit/reflexguard/internal/risk"
	"github.com/akephisit/reflexguard/internal/state"
	"github.com/akephisit/reflexguard/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newHarness() (*Ingress, *state.State) {
	mgr := risk.New(risk.ConfigFromEnv(), testLogger())
	st := state.New(mgr, confirmation.FromEnv())
	hub := events.NewHub(testLogger())
	return New(st, hub, testLogger()), st
}

func buyPlan() *models.ActiveStrategy {
	plan, _ := models.NewActiveStrategy(
		"XAUUSD", models.Buy,
		models.EntryZone{Low: 67000, High: 67050},
		67200, 66950, 0.1, "test", nil,
	)
	return plan
}

func TestApplyNoOpWhenNothingOpen(t *testing.T) {
	t.Parallel()
	ing, _ := newHarness()
	res := ing.Apply(Notice{Symbol: "XAUUSD", ClosePrice: 67100, ProfitPips: 75, CloseReason: "TP"})
	if res.Closed {
		t.Fatal("expected no-op when nothing is open")
	}
}

func TestApplyClearsPositionAndUpdatesHistoryByTicket(t *testing.T) {
	t.Parallel()
	ing, st := newHarness()
	plan := buyPlan()
	ticket := int64(777)
	pos := models.OpenPositionFromStrategy(plan, 67025, &ticket)
	st.SetPosition(pos)

	rec := models.TradeRecordFromStrategy(plan, 67025)
	rec.Status = models.StatusConfirmed
	rec.Ticket = &ticket
	st.AppendHistory(*rec)

	res := ing.Apply(Notice{Ticket: &ticket, Symbol: "XAUUSD", ClosePrice: 67200, ProfitPips: 175, CloseReason: "TP"})
	if !res.Closed {
		t.Fatal("expected close to apply")
	}
	if st.Position() != nil {
		t.Fatal("expected position cleared")
	}

	history := st.History()
	if len(history) != 1 {
		t.Fatalf("expected one history record, got %d", len(history))
	}
	got := history[0]
	if got.ClosePrice == nil || *got.ClosePrice != 67200 {
		t.Errorf("ClosePrice = %v, want 67200", got.ClosePrice)
	}
	if got.CloseReason == nil || *got.CloseReason != "TP" {
		t.Errorf("CloseReason = %v, want TP", got.CloseReason)
	}
	if got.ClosedAt == nil {
		t.Error("expected ClosedAt to be set")
	}
}

func TestApplyFallsBackToSymbolWhenNoTicket(t *testing.T) {
	t.Parallel()
	ing, st := newHarness()
	plan := buyPlan()
	pos := models.OpenPositionFromStrategy(plan, 67025, nil)
	st.SetPosition(pos)

	rec := models.TradeRecordFromStrategy(plan, 67025)
	rec.Status = models.StatusConfirmed
	st.AppendHistory(*rec)

	res := ing.Apply(Notice{Symbol: "XAUUSD", ClosePrice: 66980, ProfitPips: -45, CloseReason: "SL"})
	if !res.Closed {
		t.Fatal("expected close to apply via symbol fallback")
	}

	history := st.History()
	if history[0].CloseReason == nil || *history[0].CloseReason != "SL" {
		t.Fatalf("expected matched record updated via symbol fallback, got %+v", history[0])
	}
}
