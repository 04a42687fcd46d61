package timeutil

import (
	"testing"
	"time"
)

func TestRealClockNow(t *testing.T) {
	c := NewRealClock()
	before := time.Now()
	got := c.Now()
	if got.Before(before) {
		t.Errorf("Now went backwards: %v < %v", got, before)
	}
}

func TestMockClockSleepAdvances(t *testing.T) {
	start := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	c.Sleep(250 * time.Millisecond)
	c.Sleep(time.Second)

	want := start.Add(1250 * time.Millisecond)
	if !c.Now().Equal(want) {
		t.Errorf("Now = %v, want %v", c.Now(), want)
	}

	sleeps := c.Sleeps()
	if len(sleeps) != 2 || sleeps[0] != 250*time.Millisecond || sleeps[1] != time.Second {
		t.Errorf("unexpected sleeps: %v", sleeps)
	}
}

func TestMockClockAdvance(t *testing.T) {
	start := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	c.Advance(time.Hour)
	if got := c.Since(start); got != time.Hour {
		t.Errorf("Since = %v, want 1h", got)
	}
	if len(c.Sleeps()) != 0 {
		t.Errorf("Advance must not record a sleep")
	}
}
