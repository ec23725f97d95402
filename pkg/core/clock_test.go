package core

import (
	"testing"
	"time"
)

func TestSimClockSpeed(t *testing.T) {
	start := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)
	c := NewSimClock(start, 60)

	if c.Speed() != 60 {
		t.Errorf("Expected speed 60, got %f", c.Speed())
	}

	time.Sleep(50 * time.Millisecond)
	elapsed := c.Now().Sub(start)

	// 50ms of wall time covers 3s of simulation time at speed 60. Allow
	// generous slack for scheduling.
	if elapsed < 2*time.Second || elapsed > 10*time.Second {
		t.Errorf("Expected roughly 3s of simulated time, got %v", elapsed)
	}
}

func TestSimClockDefaultsInvalidSpeed(t *testing.T) {
	c := NewSimClock(time.Now(), -5)
	if c.Speed() != 1 {
		t.Errorf("Expected speed to default to 1, got %f", c.Speed())
	}
}

func TestSimClockWallDelay(t *testing.T) {
	c := NewSimClock(time.Now(), 60)

	if got := c.WallDelay(time.Minute); got != time.Second {
		t.Errorf("Expected 1m of sim time to be 1s of wall time, got %v", got)
	}
	if got := c.WallDelay(-time.Second); got != 0 {
		t.Errorf("Expected zero delay for a past duration, got %v", got)
	}
}

func TestSimClockRestart(t *testing.T) {
	c := NewSimClock(time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC), 60)

	next := time.Date(2024, 1, 3, 8, 0, 0, 0, time.UTC)
	c.Restart(next)

	if got := c.Now(); got.Before(next) {
		t.Errorf("Expected time at or after the new anchor, got %v", got)
	}
	if got := c.Now().Sub(next); got > time.Minute {
		t.Errorf("Expected time close to the new anchor, got +%v", got)
	}
}

func TestSimTimerFiresAndCancels(t *testing.T) {
	c := NewSimClock(time.Now(), 100)

	fired := make(chan struct{})
	c.AfterFunc(time.Second, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("Expected the timer to fire within 10ms of wall time")
	}

	timer := c.AfterFunc(time.Hour, func() { t.Error("Cancelled timer fired") })
	if !timer.Cancel() {
		t.Error("Expected Cancel to stop a pending timer")
	}
}
