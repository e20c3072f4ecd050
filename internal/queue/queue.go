// Package queue carries assessment outcomes from the learner's client
// to the activity log over RabbitMQ.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/felixgeelhaar/palabras/internal/progress"
)

// OutcomeQueueName is the durable queue outcome events are published to
const OutcomeQueueName = "palabras.outcomes"

// Event is one published assessment outcome
type Event struct {
	ID         uuid.UUID        `json:"id"`
	LearnerID  string           `json:"learner_id"`
	Outcome    progress.Outcome `json:"outcome"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// NewEvent stamps an outcome with a fresh id and the current time
func NewEvent(learnerID string, o progress.Outcome) Event {
	return Event{
		ID:         uuid.New(),
		LearnerID:  learnerID,
		Outcome:    o,
		OccurredAt: time.Now().UTC(),
	}
}

// reconnectAttempts bounds how often a dropped connection is redialed
const reconnectAttempts = 10

// Connection is a RabbitMQ connection that redials itself when the
// broker drops it, until Close is called.
type Connection struct {
	url     string
	conn    *amqp.Connection
	channel *amqp.Channel
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
	redial  retry.Retry[struct{}]
}

// NewConnection dials RabbitMQ and declares the outcome queue
func NewConnection(url string) (*Connection, error) {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		url:    url,
		ctx:    ctx,
		cancel: cancel,
		redial: retry.New[struct{}](reconnectPolicy()),
	}
	if err := c.connect(); err != nil {
		cancel()
		return nil, err
	}
	return c, nil
}

// reconnectPolicy doubles the wait from one second up to thirty
func reconnectPolicy() retry.Config {
	return retry.Config{
		MaxAttempts:   reconnectAttempts,
		InitialDelay:  time.Second,
		MaxDelay:      30 * time.Second,
		Multiplier:    2.0,
		BackoffPolicy: retry.BackoffExponential,
		Jitter:        true,
		IsRetryable:   func(error) bool { return true },
	}
}

func (c *Connection) connect() error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}
	if err := declareQueues(ch); err != nil {
		ch.Close()
		conn.Close()
		return err
	}

	c.mu.Lock()
	c.conn, c.channel = conn, ch
	c.mu.Unlock()

	go c.watch(conn)
	slog.Info("connected to RabbitMQ", "url", sanitizeURL(c.url))
	return nil
}

func declareQueues(ch *amqp.Channel) error {
	_, err := ch.QueueDeclare(
		OutcomeQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-message-ttl": int32(24 * 60 * 60 * 1000), // one day
		},
	)
	if err != nil {
		return fmt.Errorf("failed to declare outcome queue: %w", err)
	}
	return nil
}

// watch waits for conn to drop and redials under the retry policy
func (c *Connection) watch(conn *amqp.Connection) {
	var amqpErr *amqp.Error
	select {
	case <-c.ctx.Done():
		return
	case amqpErr = <-conn.NotifyClose(make(chan *amqp.Error, 1)):
	}
	if amqpErr == nil || c.ctx.Err() != nil {
		return
	}

	slog.Warn("RabbitMQ connection closed, attempting to reconnect", "error", amqpErr)

	attempts := 0
	_, err := c.redial.Do(c.ctx, func(context.Context) (struct{}, error) {
		attempts++
		if err := c.connect(); err != nil {
			slog.Error("reconnection failed", "error", err, "attempt", attempts)
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	if err != nil {
		if c.ctx.Err() == nil {
			slog.Error("failed to reconnect to RabbitMQ", "attempts", attempts, "error", err)
		}
		return
	}
	slog.Info("reconnected to RabbitMQ", "attempts", attempts)
}

// Channel returns the current channel (thread-safe)
func (c *Connection) Channel() *amqp.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel
}

// Close stops reconnecting and closes the connection
func (c *Connection) Close() error {
	c.cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected checks if the connection is active
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && !c.conn.IsClosed()
}

// PublishJSON publishes a persistent JSON message to a queue
func (c *Connection) PublishJSON(ctx context.Context, queue string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	c.mu.RLock()
	ch := c.channel
	c.mu.RUnlock()

	return ch.PublishWithContext(
		ctx,
		"",    // exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// sanitizeURL hides the password for logging
func sanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	return u.Redacted()
}
