// Tick loop — drives the engine's periodic passes. The scheduler owns all
// mutation cadence: decay, lifecycle, and control updates only run when it
// invokes them.
package engine

import (
	"log/slog"
	"time"
)

// Tick cadence relative to the tick counter.
const (
	TicksPerSimHour = 60   // 60 ticks = 1 sim-hour
	TicksPerSimDay  = 1440 // 24 hours × 60
)

// Loop advances the simulation clock and fires layered callbacks.
type Loop struct {
	Tick     uint64        // Current tick counter (monotonic, never resets)
	Speed    float64       // Multiplier: 1.0 = real-time, 0 = paused
	Interval time.Duration // Base tick interval (default 1 second)
	Running  bool

	OnTick func(tick uint64) // Every tick (sim-minute)
	OnHour func(tick uint64) // Every 60 ticks
	OnDay  func(tick uint64) // Every 1440 ticks
}

// NewLoop creates a loop with default settings.
func NewLoop() *Loop {
	return &Loop{
		Speed:    1.0,
		Interval: time.Second,
	}
}

// Run starts the loop. Blocks until Stop is called.
func (l *Loop) Run() {
	l.Running = true
	slog.Info("governance loop started", "tick", l.Tick, "speed", l.Speed)

	for l.Running {
		if l.Speed <= 0 {
			// Paused — sleep briefly and check again.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()
		l.step()

		elapsed := time.Since(start)
		target := time.Duration(float64(l.Interval) / l.Speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	slog.Info("governance loop stopped", "tick", l.Tick)
}

// Stop halts the loop.
func (l *Loop) Stop() {
	l.Running = false
}

func (l *Loop) step() {
	l.Tick++

	if l.OnTick != nil {
		l.OnTick(l.Tick)
	}
	if l.Tick%TicksPerSimHour == 0 && l.OnHour != nil {
		l.OnHour(l.Tick)
	}
	if l.Tick%TicksPerSimDay == 0 && l.OnDay != nil {
		l.OnDay(l.Tick)
	}
}
