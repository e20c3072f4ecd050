package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/felixgeelhaar/palabras/internal/progress"
	"github.com/felixgeelhaar/palabras/internal/remote"
)

// fakeAcknowledger records what the consumer did with a delivery
type fakeAcknowledger struct {
	acked    bool
	nacked   bool
	requeued bool
	rejected bool
}

func (a *fakeAcknowledger) Ack(uint64, bool) error {
	a.acked = true
	return nil
}

func (a *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked = true
	a.requeued = requeue
	return nil
}

func (a *fakeAcknowledger) Reject(_ uint64, requeue bool) error {
	a.rejected = true
	a.requeued = requeue
	return nil
}

func delivery(t *testing.T, ack amqp.Acknowledger, ev any, redelivered bool) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: body, Redelivered: redelivered}
}

func testConsumer(handler EventHandler) *Consumer {
	return NewConsumer(nil, handler, ConsumerConfig{})
}

func TestNewConsumerDefaults(t *testing.T) {
	c := testConsumer(nil)
	def := DefaultConsumerConfig()
	if c.workers != def.Workers || c.prefetch != def.Prefetch || c.timeout != def.Timeout {
		t.Errorf("consumer = %d/%d/%v, want defaults", c.workers, c.prefetch, c.timeout)
	}

	c = NewConsumer(nil, nil, ConsumerConfig{Workers: 7, Prefetch: 3, Timeout: time.Second})
	if c.workers != 7 || c.prefetch != 3 || c.timeout != time.Second {
		t.Errorf("custom config overridden: %d/%d/%v", c.workers, c.prefetch, c.timeout)
	}
}

func TestProcessMessageAcksOnSuccess(t *testing.T) {
	var got *Event
	c := testConsumer(func(_ context.Context, ev *Event) error {
		got = ev
		return nil
	})

	ack := &fakeAcknowledger{}
	ev := NewEvent("learner-1", progress.Outcome{Kind: progress.KindMatching, Score: 100})
	c.processMessage(t.Context(), 0, delivery(t, ack, ev, false))

	if !ack.acked {
		t.Error("message not acked")
	}
	if got == nil || got.ID != ev.ID {
		t.Errorf("handler got %+v, want event %s", got, ev.ID)
	}
}

func TestProcessMessageRequeuesOnce(t *testing.T) {
	c := testConsumer(func(context.Context, *Event) error { return errors.New("db down") })
	ev := NewEvent("learner-1", progress.Outcome{Kind: progress.KindQuiz})

	first := &fakeAcknowledger{}
	c.processMessage(t.Context(), 0, delivery(t, first, ev, false))
	if !first.nacked || !first.requeued {
		t.Errorf("first failure: nacked=%v requeued=%v, want both", first.nacked, first.requeued)
	}

	second := &fakeAcknowledger{}
	c.processMessage(t.Context(), 0, delivery(t, second, ev, true))
	if !second.rejected || second.requeued {
		t.Errorf("redelivered failure: rejected=%v requeued=%v, want rejected without requeue", second.rejected, second.requeued)
	}
}

func TestProcessMessageRejectsMalformed(t *testing.T) {
	called := false
	c := testConsumer(func(context.Context, *Event) error {
		called = true
		return nil
	})

	ack := &fakeAcknowledger{}
	c.processMessage(t.Context(), 0, amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte("not json")})

	if !ack.rejected || ack.requeued {
		t.Errorf("rejected=%v requeued=%v, want rejected without requeue", ack.rejected, ack.requeued)
	}
	if called {
		t.Error("handler called for malformed body")
	}
}

type memLog struct {
	rows map[uuid.UUID]remote.Activity
}

func (m *memLog) AppendActivity(_ context.Context, a *remote.Activity) error {
	if _, ok := m.rows[a.ID]; !ok {
		m.rows[a.ID] = *a
	}
	return nil
}

func (m *memLog) RecentActivity(context.Context, string, int) ([]remote.Activity, error) {
	return nil, nil
}

func TestActivityHandler(t *testing.T) {
	log := &memLog{rows: make(map[uuid.UUID]remote.Activity)}
	h := ActivityHandler(log)

	ev := NewEvent("learner-1", progress.Outcome{
		Kind:   progress.KindExam,
		UnitID: "unidad_2",
		Score:  85,
		Passed: true,
	})
	if err := h(t.Context(), &ev); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if err := h(t.Context(), &ev); err != nil {
		t.Fatalf("second delivery error = %v", err)
	}

	if len(log.rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(log.rows))
	}
	a := log.rows[ev.ID]
	if a.Kind != progress.KindExam || a.UnitID != "unidad_2" || a.Score != 85 || !a.Passed {
		t.Errorf("activity = %+v", a)
	}

	var o progress.Outcome
	if err := json.Unmarshal(a.Payload, &o); err != nil {
		t.Fatalf("payload is not an outcome: %v", err)
	}
	if o.Score != 85 {
		t.Errorf("payload score = %d, want 85", o.Score)
	}
}
