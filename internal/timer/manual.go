package timer

import (
	"sync"
	"time"
)

// Manual is a Timer driven by hand. Sessions use it in tests, and the
// CLI uses it when countdowns are disabled.
type Manual struct {
	mu        sync.Mutex
	armed     bool
	starts    int
	remaining time.Duration
	step      time.Duration
	onTick    func(time.Duration)
	onExpire  func()
}

// Start arms the timer without scheduling anything
func (m *Manual) Start(total, step time.Duration, onTick func(time.Duration), onExpire func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.armed = true
	m.starts++
	m.remaining = total
	m.step = step
	m.onTick = onTick
	m.onExpire = onExpire
}

// Stop disarms the timer
func (m *Manual) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.armed = false
}

// Tick advances the countdown by one step, expiring it at zero
func (m *Manual) Tick() {
	m.mu.Lock()
	if !m.armed {
		m.mu.Unlock()
		return
	}
	m.remaining -= m.step
	if m.remaining < 0 {
		m.remaining = 0
	}
	remaining, onTick := m.remaining, m.onTick
	m.mu.Unlock()

	if onTick != nil {
		onTick(remaining)
	}
	if remaining == 0 {
		m.Expire()
	}
}

// Advance moves the countdown forward by d without expiring it
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.armed && d < m.remaining {
		m.remaining -= d
	}
}

// Expire fires the expiry callback immediately if the timer is armed
func (m *Manual) Expire() {
	m.mu.Lock()
	if !m.armed {
		m.mu.Unlock()
		return
	}
	m.armed = false
	m.remaining = 0
	fn := m.onExpire
	m.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Remaining returns the time left
func (m *Manual) Remaining() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remaining
}

// Armed reports whether Start was called without a later Stop or expiry
func (m *Manual) Armed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.armed
}

// Starts returns how many times Start has been called
func (m *Manual) Starts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts
}
