package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/felixgeelhaar/palabras/internal/remote"
)

// EventHandler processes one outcome event
type EventHandler func(ctx context.Context, ev *Event) error

// ConsumerConfig tunes how the outcome queue is drained. Prefetch applies
// to the whole channel.
type ConsumerConfig struct {
	Workers  int
	Prefetch int
	Timeout  time.Duration // per event
}

// DefaultConsumerConfig returns the settings the daemon runs with
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{Workers: 2, Prefetch: 4, Timeout: 10 * time.Second}
}

// Consumer drains the outcome queue into a handler
type Consumer struct {
	conn     *Connection
	handler  EventHandler
	workers  int
	prefetch int
	timeout  time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewConsumer fills zero fields of cfg from DefaultConsumerConfig
func NewConsumer(conn *Connection, handler EventHandler, cfg ConsumerConfig) *Consumer {
	def := DefaultConsumerConfig()
	c := &Consumer{
		conn:     conn,
		handler:  handler,
		workers:  orDefault(cfg.Workers, def.Workers),
		prefetch: orDefault(cfg.Prefetch, def.Prefetch),
		timeout:  orDefault(cfg.Timeout, def.Timeout),
	}
	return c
}

func orDefault[T int | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}

// Start subscribes to the outcome queue and runs the workers until ctx
// ends or Stop is called.
func (c *Consumer) Start(ctx context.Context) error {
	ch := c.conn.Channel()
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	// manual acks, broker-assigned tag
	msgs, err := ch.Consume(OutcomeQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", OutcomeQueueName, err)
	}

	ctx, c.cancel = context.WithCancel(ctx)
	slog.Info("outcome consumer started", "queue", OutcomeQueueName, "workers", c.workers, "prefetch", c.prefetch)
	for i := range c.workers {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.drain(ctx, i, msgs)
		}()
	}
	return nil
}

func (c *Consumer) drain(ctx context.Context, worker int, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				slog.Info("outcome deliveries closed", "worker", worker)
				return
			}
			c.processMessage(ctx, worker, msg)
		}
	}
}

type verdict int

const (
	ack verdict = iota
	retryOnce
	drop
)

// processMessage settles one delivery. Handler failures are requeued once
// and dropped on redelivery; undecodable bodies are dropped at once.
func (c *Consumer) processMessage(ctx context.Context, worker int, msg amqp.Delivery) {
	v, ev := c.handle(ctx, worker, msg)

	var err error
	switch v {
	case ack:
		err = msg.Ack(false)
	case retryOnce:
		err = msg.Nack(false, true)
	case drop:
		err = msg.Reject(false)
	}
	if err != nil {
		slog.Error("settle outcome delivery", "worker", worker, "event_id", ev.ID, "error", err)
	}
}

func (c *Consumer) handle(ctx context.Context, worker int, msg amqp.Delivery) (verdict, Event) {
	var ev Event
	if err := json.Unmarshal(msg.Body, &ev); err != nil {
		slog.Error("undecodable outcome event", "worker", worker, "error", err)
		return drop, ev
	}

	hctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.handler(hctx, &ev); err != nil {
		slog.Error("outcome event failed", "worker", worker, "event_id", ev.ID, "redelivered", msg.Redelivered, "error", err)
		if msg.Redelivered {
			return drop, ev
		}
		return retryOnce, ev
	}
	return ack, ev
}

// Stop cancels the workers and waits for in-flight events to settle
func (c *Consumer) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	slog.Info("outcome consumer stopped")
}

// ActivityHandler appends events to an activity log
func ActivityHandler(log remote.ActivityLog) EventHandler {
	return func(ctx context.Context, ev *Event) error {
		a, err := ToActivity(ev)
		if err != nil {
			return err
		}
		return log.AppendActivity(ctx, a)
	}
}

// ToActivity converts an event into its activity-log row
func ToActivity(ev *Event) (*remote.Activity, error) {
	payload, err := json.Marshal(ev.Outcome)
	if err != nil {
		return nil, fmt.Errorf("marshal outcome: %w", err)
	}
	return &remote.Activity{
		ID:         ev.ID,
		LearnerID:  ev.LearnerID,
		Kind:       ev.Outcome.Kind,
		UnitID:     ev.Outcome.UnitID,
		Score:      ev.Outcome.Score,
		Passed:     ev.Outcome.Passed,
		Payload:    payload,
		OccurredAt: ev.OccurredAt,
	}, nil
}
