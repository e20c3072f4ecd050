package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/palabras/internal/progress"
)

// Publisher sends a JSON message to a named queue. Connection
// implements it.
type Publisher interface {
	PublishJSON(ctx context.Context, queue string, data any) error
}

var _ Publisher = (*Connection)(nil)

// Producer publishes outcome events from a background goroutine so
// recording an outcome never waits on the broker
type Producer struct {
	pub       Publisher
	learnerID string
	timeout   time.Duration

	mu     sync.Mutex
	events chan Event
	closed bool
	wg     sync.WaitGroup
}

var _ progress.OutcomeSink = (*Producer)(nil)

// DefaultBuffer is how many events may wait for the broker before new
// ones are dropped
const DefaultBuffer = 64

// NewProducer starts a producer tagging events with learnerID
func NewProducer(pub Publisher, learnerID string, buffer int) *Producer {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	p := &Producer{
		pub:       pub,
		learnerID: learnerID,
		timeout:   5 * time.Second,
		events:    make(chan Event, buffer),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// RecordOutcome queues an outcome for publishing. A full buffer drops
// the event with a warning.
func (p *Producer) RecordOutcome(_ context.Context, o progress.Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}

	ev := NewEvent(p.learnerID, o)
	select {
	case p.events <- ev:
	default:
		slog.Warn("outcome buffer full, dropping event",
			"event_id", ev.ID,
			"kind", o.Kind,
		)
	}
}

func (p *Producer) run() {
	defer p.wg.Done()
	for ev := range p.events {
		p.publish(ev)
	}
}

func (p *Producer) publish(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.pub.PublishJSON(ctx, OutcomeQueueName, ev); err != nil {
		slog.Warn("failed to publish outcome",
			"event_id", ev.ID,
			"kind", ev.Outcome.Kind,
			"error", err,
		)
		return
	}
	slog.Debug("published outcome",
		"event_id", ev.ID,
		"kind", ev.Outcome.Kind,
		"unit_id", ev.Outcome.UnitID,
	)
}

// Close flushes queued events and stops the producer
func (p *Producer) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.events)
	p.mu.Unlock()

	p.wg.Wait()
}
