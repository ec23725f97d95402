package core

import (
	"sync"
	"time"
)

// Clock supplies simulation time.
type Clock interface {
	Now() time.Time
}

// SimClock derives simulation time from wall time through a configurable
// speed factor (simulated seconds per wall second). It is restartable: at
// end of day the manager re-anchors it at the next day's open.
type SimClock struct {
	mu        sync.Mutex
	simStart  time.Time
	wallStart time.Time
	speed     float64
}

// NewSimClock anchors simulation time start at the current wall time.
func NewSimClock(start time.Time, speed float64) *SimClock {
	if speed <= 0 {
		speed = 1
	}
	return &SimClock{
		simStart:  start,
		wallStart: time.Now(),
		speed:     speed,
	}
}

// Now returns the current simulation time.
func (c *SimClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	elapsed := time.Since(c.wallStart)
	return c.simStart.Add(time.Duration(float64(elapsed) * c.speed))
}

// Speed returns the speed factor.
func (c *SimClock) Speed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed
}

// Restart re-anchors the clock at a new simulation start time.
func (c *SimClock) Restart(start time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.simStart = start
	c.wallStart = time.Now()
}

// WallDelay converts a simulation-time duration into the wall-time delay it
// corresponds to at the current speed factor.
func (c *SimClock) WallDelay(simDelay time.Duration) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if simDelay <= 0 {
		return 0
	}
	return time.Duration(float64(simDelay) / c.speed)
}

// WallDelayUntil converts a simulation-time deadline into a wall-time
// delay. Past deadlines yield zero.
func (c *SimClock) WallDelayUntil(simDeadline time.Time) time.Duration {
	return c.WallDelay(simDeadline.Sub(c.Now()))
}

// SimTimer is a cancellable scheduled callback keyed off simulation time.
// Cancel is safe to call concurrently with the callback's own execution.
type SimTimer struct {
	timer *time.Timer
}

// AfterFunc schedules f to run once the given simulation-time duration has
// elapsed.
func (c *SimClock) AfterFunc(simDelay time.Duration, f func()) *SimTimer {
	return &SimTimer{timer: time.AfterFunc(c.WallDelay(simDelay), f)}
}

// AfterFuncAt schedules f to run at a simulation-time deadline.
func (c *SimClock) AfterFuncAt(simDeadline time.Time, f func()) *SimTimer {
	return &SimTimer{timer: time.AfterFunc(c.WallDelayUntil(simDeadline), f)}
}

// Cancel stops the timer. It reports whether the callback was prevented
// from running; false means it already ran or is running.
func (t *SimTimer) Cancel() bool {
	return t.timer.Stop()
}
