// Package timer provides the per-question countdown used by quiz and
// exam sessions.
package timer

import (
	"sync"
	"time"
)

// Timer is a single-owner countdown. Starting it again cancels whatever
// countdown was armed before.
type Timer interface {
	Start(total, step time.Duration, onTick func(remaining time.Duration), onExpire func())
	Stop()
}

// Countdown is a Timer backed by a time.Ticker
type Countdown struct {
	mu        sync.Mutex
	gen       uint64
	stop      chan struct{}
	remaining time.Duration
}

// NewCountdown creates an idle countdown
func NewCountdown() *Countdown {
	return &Countdown{}
}

// Start arms the countdown. onTick runs after every step with the time
// left; onExpire runs once when it reaches zero. Both run on the timer's
// goroutine.
func (c *Countdown) Start(total, step time.Duration, onTick func(remaining time.Duration), onExpire func()) {
	if step <= 0 || step > total {
		step = total
	}

	c.mu.Lock()
	c.stopLocked()
	c.gen++
	gen := c.gen
	stop := make(chan struct{})
	c.stop = stop
	c.remaining = total
	c.mu.Unlock()

	go c.run(gen, stop, total, step, onTick, onExpire)
}

func (c *Countdown) run(gen uint64, stop chan struct{}, total, step time.Duration, onTick func(time.Duration), onExpire func()) {
	ticker := time.NewTicker(step)
	defer ticker.Stop()

	remaining := total
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			remaining -= step
			if remaining < 0 {
				remaining = 0
			}

			c.mu.Lock()
			if c.gen != gen {
				c.mu.Unlock()
				return
			}
			c.remaining = remaining
			expired := remaining == 0
			if expired {
				c.stop = nil
			}
			c.mu.Unlock()

			if onTick != nil {
				onTick(remaining)
			}
			if expired {
				if onExpire != nil {
					onExpire()
				}
				return
			}
		}
	}
}

// Stop cancels the armed countdown, if any
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Countdown) stopLocked() {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	c.gen++
}

// Remaining returns the time left on the current countdown
func (c *Countdown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Active reports whether a countdown is armed
func (c *Countdown) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop != nil
}
