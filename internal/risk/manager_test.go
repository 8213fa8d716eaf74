package risk

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestPreTradeCheckApprovesWithinLimits(t *testing.T) {
	t.Parallel()
	m := New(Config{MaxTradesPerDay: 5, MaxConsecutiveFailures: 3, CooldownSecsAfterFailure: 60}, testLogger())

	d := m.PreTradeCheck()
	if !d.Approved {
		t.Fatalf("expected approval, got %+v", d)
	}
	if got := m.Status().TradesToday; got != 1 {
		t.Errorf("TradesToday = %d, want 1", got)
	}
}

func TestPreTradeCheckBlocksWhenKilled(t *testing.T) {
	t.Parallel()
	m := New(Config{MaxTradesPerDay: 5}, testLogger())
	m.Kill("manual test")

	d := m.PreTradeCheck()
	if d.Approved {
		t.Fatal("expected block when killed")
	}
}

func TestPreTradeCheckEnforcesDailyCap(t *testing.T) {
	t.Parallel()
	m := New(Config{MaxTradesPerDay: 2}, testLogger())

	if d := m.PreTradeCheck(); !d.Approved {
		t.Fatalf("trade 1 should be approved, got %+v", d)
	}
	if d := m.PreTradeCheck(); !d.Approved {
		t.Fatalf("trade 2 should be approved, got %+v", d)
	}
	d := m.PreTradeCheck()
	if d.Approved {
		t.Fatal("trade 3 should be blocked by daily cap")
	}
}

func TestAutoKillAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()
	m := New(Config{MaxTradesPerDay: 10, MaxConsecutiveFailures: 3}, testLogger())

	for i := 0; i < 3; i++ {
		m.RecordFailure()
	}

	d := m.PreTradeCheck()
	if d.Approved {
		t.Fatal("expected auto-kill block after 3 consecutive failures")
	}
	if d.Reason != "Auto-kill: 3 consecutive execution failures" {
		t.Errorf("Reason = %q", d.Reason)
	}
	if !m.Status().IsKilled {
		t.Fatal("expected IsKilled true after auto-kill")
	}
}

func TestRecordSuccessResetsConsecutiveFailures(t *testing.T) {
	t.Parallel()
	m := New(Config{MaxTradesPerDay: 10, MaxConsecutiveFailures: 3}, testLogger())

	m.RecordFailure()
	m.RecordFailure()
	m.RecordSuccess()

	if got := m.Status().ConsecutiveFailures; got != 0 {
		t.Errorf("ConsecutiveFailures = %d, want 0", got)
	}
}

func TestCooldownBlocksTradeAfterFailure(t *testing.T) {
	t.Parallel()
	m := New(Config{MaxTradesPerDay: 10, CooldownSecsAfterFailure: 300}, testLogger())

	m.RecordFailure()
	d := m.PreTradeCheck()
	if d.Approved {
		t.Fatal("expected cooldown block right after a failure")
	}
}

func TestRearmClearsKillState(t *testing.T) {
	t.Parallel()
	m := New(Config{MaxTradesPerDay: 10, MaxConsecutiveFailures: 1}, testLogger())

	m.RecordFailure()
	d := m.PreTradeCheck()
	if d.Approved {
		t.Fatal("should be blocked before rearm")
	}

	m.Rearm()
	status := m.Status()
	if status.IsKilled || status.ConsecutiveFailures != 0 || status.LastFailureAt != nil {
		t.Fatalf("rearm did not fully clear state: %+v", status)
	}
}

func TestDailyResetRollsOverTradesToday(t *testing.T) {
	t.Parallel()
	m := New(Config{MaxTradesPerDay: 1}, testLogger())
	m.PreTradeCheck() // consume today's only slot

	// Simulate a day boundary having passed.
	m.mu.Lock()
	m.state.dailyResetDate = time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	m.mu.Unlock()

	d := m.PreTradeCheck()
	if !d.Approved {
		t.Fatalf("expected approval after daily reset, got %+v", d)
	}
}
