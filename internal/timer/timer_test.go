package timer

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestCountdown_Expires(t *testing.T) {
	c := NewCountdown()
	var ticks atomic.Int32
	done := make(chan struct{})

	c.Start(50*time.Millisecond, 10*time.Millisecond, func(time.Duration) {
		ticks.Add(1)
	}, func() {
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("countdown did not expire")
	}

	if got := ticks.Load(); got != 5 {
		t.Errorf("ticks = %d, want 5", got)
	}
	if c.Active() {
		t.Error("Active() = true after expiry")
	}
	if c.Remaining() != 0 {
		t.Errorf("Remaining() = %v, want 0", c.Remaining())
	}
}

func TestCountdown_StopPreventsExpiry(t *testing.T) {
	c := NewCountdown()
	var fired atomic.Bool

	c.Start(30*time.Millisecond, 10*time.Millisecond, nil, func() { fired.Store(true) })
	c.Stop()

	time.Sleep(80 * time.Millisecond)
	if fired.Load() {
		t.Error("stopped countdown fired")
	}
	if c.Active() {
		t.Error("Active() = true after Stop")
	}
}

func TestCountdown_RestartCancelsPrevious(t *testing.T) {
	c := NewCountdown()
	var first, second atomic.Int32
	done := make(chan struct{})

	c.Start(30*time.Millisecond, 10*time.Millisecond, nil, func() { first.Add(1) })
	c.Start(60*time.Millisecond, 20*time.Millisecond, nil, func() {
		second.Add(1)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("second countdown did not expire")
	}
	time.Sleep(20 * time.Millisecond)

	if first.Load() != 0 {
		t.Error("replaced countdown still fired")
	}
	if second.Load() != 1 {
		t.Errorf("second fired %d times, want 1", second.Load())
	}
}

func TestCountdown_StopIdle(t *testing.T) {
	c := NewCountdown()
	c.Stop()
	c.Stop()
}

func TestManual_TickAndExpire(t *testing.T) {
	m := &Manual{}
	var remaining []time.Duration
	expired := 0

	m.Start(3*time.Second, time.Second, func(d time.Duration) {
		remaining = append(remaining, d)
	}, func() { expired++ })

	m.Tick()
	m.Tick()
	if !m.Armed() {
		t.Fatal("timer should still be armed")
	}
	m.Tick()

	if expired != 1 {
		t.Errorf("expired = %d, want 1", expired)
	}
	if len(remaining) != 3 || remaining[2] != 0 {
		t.Errorf("remaining = %v", remaining)
	}

	m.Expire()
	if expired != 1 {
		t.Error("Expire on a disarmed timer must be a no-op")
	}
}

func TestManual_StopDisarms(t *testing.T) {
	m := &Manual{}
	fired := false
	m.Start(time.Second, time.Second, nil, func() { fired = true })
	m.Stop()
	m.Expire()

	if fired {
		t.Error("stopped manual timer fired")
	}
	if m.Starts() != 1 {
		t.Errorf("Starts() = %d, want 1", m.Starts())
	}
}
