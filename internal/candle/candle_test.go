package candle

import (
	"testing"
	"time"
)

func TestUpdateStartsNewCandle(t *testing.T) {
	t.Parallel()
	c := New()
	now := time.Date(2026, 1, 1, 12, 0, 10, 0, time.UTC)
	c.Update("XAUUSD", 100, now)

	cd, ok := c.Latest("XAUUSD")
	if !ok {
		t.Fatal("expected a candle to exist")
	}
	if cd.Open != 100 || cd.High != 100 || cd.Low != 100 || cd.Close != 100 || cd.TickCount != 1 {
		t.Errorf("unexpected initial candle: %+v", cd)
	}
}

func TestUpdateWithinSameMinuteExtendsCandle(t *testing.T) {
	t.Parallel()
	c := New()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.Update("XAUUSD", 100, base)
	c.Update("XAUUSD", 105, base.Add(10*time.Second))
	c.Update("XAUUSD", 95, base.Add(20*time.Second))
	c.Update("XAUUSD", 102, base.Add(30*time.Second))

	cd, _ := c.Latest("XAUUSD")
	if cd.Open != 100 {
		t.Errorf("Open = %v, want 100", cd.Open)
	}
	if cd.High != 105 {
		t.Errorf("High = %v, want 105", cd.High)
	}
	if cd.Low != 95 {
		t.Errorf("Low = %v, want 95", cd.Low)
	}
	if cd.Close != 102 {
		t.Errorf("Close = %v, want 102", cd.Close)
	}
	if cd.TickCount != 4 {
		t.Errorf("TickCount = %d, want 4", cd.TickCount)
	}
}

func TestUpdateNextMinuteStartsFreshCandle(t *testing.T) {
	t.Parallel()
	c := New()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.Update("XAUUSD", 100, base)
	c.Update("XAUUSD", 200, base.Add(90*time.Second)) // crosses into next minute

	cd, _ := c.Latest("XAUUSD")
	if cd.Open != 200 || cd.TickCount != 1 {
		t.Errorf("expected fresh candle at new minute, got %+v", cd)
	}
}
