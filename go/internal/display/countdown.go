package display

import "time"

// Countdown decrements a seconds-until-draw value once per second for display.
// Reaching zero stops it; it never triggers a transition on its own.
type Countdown struct {
	sched     Scheduler
	remaining int
	cancel    Cancel
	onTick    func(remaining int)
}

// NewCountdown creates a stopped countdown. onTick may be nil.
func NewCountdown(sched Scheduler, onTick func(remaining int)) *Countdown {
	return &Countdown{sched: sched, onTick: onTick}
}

// Reset replaces the baseline, cancelling any running ticker first.
func (c *Countdown) Reset(seconds int) {
	c.Stop()
	if seconds < 0 {
		seconds = 0
	}
	c.remaining = seconds
	if seconds > 0 {
		c.cancel = c.sched.Every(time.Second, c.tick)
	}
}

// Stop halts ticking and keeps the current value.
func (c *Countdown) Stop() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Remaining is the current on-screen value.
func (c *Countdown) Remaining() int {
	return c.remaining
}

// Running reports whether a ticker is active.
func (c *Countdown) Running() bool {
	return c.cancel != nil
}

func (c *Countdown) tick() {
	if c.remaining > 0 {
		c.remaining--
	}
	if c.remaining == 0 {
		c.Stop()
	}
	if c.onTick != nil {
		c.onTick(c.remaining)
	}
}
