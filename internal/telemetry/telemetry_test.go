// v0
// internal/telemetry/telemetry_test.go
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/segmentio/kafka-go"

	"github.com/MayorChristopher/poultry-management-system/internal/breaker"
	"github.com/MayorChristopher/poultry-management-system/internal/dashboard"
	"github.com/MayorChristopher/poultry-management-system/internal/sensor"
	"github.com/MayorChristopher/poultry-management-system/internal/state"
	"github.com/MayorChristopher/poultry-management-system/internal/status"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubSink struct {
	name string
	fail error

	mu     sync.Mutex
	msgs   []Message
	closed bool
}

func (s *stubSink) Name() string { return s.name }

func (s *stubSink) Publish(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *stubSink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *stubSink) received() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.msgs...)
}

type stubWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *stubWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *stubWriter) Close() error { return nil }

type stubToken struct{ err error }

func (t stubToken) Wait() bool                     { return true }
func (t stubToken) WaitTimeout(time.Duration) bool { return true }
func (t stubToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t stubToken) Error() error { return t.err }

type stubMQTT struct {
	mqtt.Client
	topics   []string
	payloads [][]byte
}

func (c *stubMQTT) Publish(topic string, _ byte, _ bool, payload interface{}) mqtt.Token {
	c.topics = append(c.topics, topic)
	c.payloads = append(c.payloads, payload.([]byte))
	return stubToken{}
}

func (c *stubMQTT) Disconnect(uint) {}

func TestKafkaSinkWritesToPrefixedTopic(t *testing.T) {
	w := &stubWriter{}
	s := newKafkaSink(w, "farm", quietLogger())
	err := s.Publish(context.Background(), Message{Kind: KindAction, Key: "act-1", Payload: []byte("{}")})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(w.msgs) != 1 || w.msgs[0].Topic != "farm.actions" || string(w.msgs[0].Key) != "act-1" {
		t.Fatalf("unexpected kafka messages: %+v", w.msgs)
	}

	w.err = errors.New("broker unreachable")
	if err := s.Publish(context.Background(), Message{Kind: KindReading}); !errors.Is(err, w.err) {
		t.Fatalf("expected wrapped broker error, got %v", err)
	}
}

func TestMQTTSinkPublishesSlashTopic(t *testing.T) {
	c := &stubMQTT{}
	s := newMQTTSink(c, "farm/", quietLogger())
	if err := s.Publish(context.Background(), Message{Kind: KindReading, Payload: []byte(`{"a":1}`)}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(c.topics) != 1 || c.topics[0] != "farm/readings" {
		t.Fatalf("unexpected topics: %v", c.topics)
	}
}

func TestGuardedSinkFastFailsWhenOpen(t *testing.T) {
	inner := &stubSink{name: "kafka", fail: errors.New("down")}
	g := Guard(inner, breaker.New("kafka", breaker.Config{MaxFailures: 1, ResetTimeout: time.Hour}, nil))
	_ = g.Publish(context.Background(), Message{Kind: KindReading})
	if err := g.Publish(context.Background(), Message{Kind: KindReading}); !errors.Is(err, breaker.ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}
	if g.Name() != "kafka" {
		t.Fatalf("guard should keep the sink name")
	}
}

type countingObserver struct {
	mu      sync.Mutex
	ok      int
	failed  int
	dropped int
}

func (c *countingObserver) TelemetryPublished(_ string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.failed++
		return
	}
	c.ok++
}

func (c *countingObserver) TelemetryDropped(string) {
	c.mu.Lock()
	c.dropped++
	c.mu.Unlock()
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	obs := &countingObserver{}
	f := NewForwarder([]Sink{&stubSink{name: "a"}}, Config{QueueSize: 2}, quietLogger(), obs)
	if !f.Enqueue(Message{Kind: KindReading}) || !f.Enqueue(Message{Kind: KindReading}) {
		t.Fatalf("first two enqueues should fit")
	}
	if f.Enqueue(Message{Kind: KindAction}) {
		t.Fatalf("third enqueue should drop")
	}
	if obs.dropped != 1 {
		t.Fatalf("expected one drop, got %d", obs.dropped)
	}
}

func TestForwarderDeliversToEverySinkAndDrainsOnStop(t *testing.T) {
	good := &stubSink{name: "kafka"}
	bad := &stubSink{name: "mqtt", fail: errors.New("offline")}
	obs := &countingObserver{}
	f := NewForwarder([]Sink{good, bad}, Config{QueueSize: 16}, quietLogger(), obs)

	r := sensor.Reading{Temperature: 25, Humidity: 55, WaterLevel: 75, FeedLevel: 80, Timestamp: time.Unix(100, 0)}
	f.ObserveUpdate(dashboard.Update{Trigger: dashboard.TriggerTick, Reading: r, Status: status.Evaluate(r)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.Run(ctx)

	msgs := good.received()
	if len(msgs) != 1 || msgs[0].Kind != KindReading {
		t.Fatalf("expected one drained reading, got %+v", msgs)
	}
	var decoded dashboard.Update
	if err := json.Unmarshal(msgs[0].Payload, &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded.Reading.Temperature != 25 || decoded.Status.Overall != status.Normal {
		t.Fatalf("unexpected payload: %+v", decoded)
	}
	if obs.ok != 1 || obs.failed != 1 {
		t.Fatalf("observer counts ok=%d failed=%d", obs.ok, obs.failed)
	}
	if !good.closed || !bad.closed {
		t.Fatalf("sinks should be closed on stop")
	}
}

func TestObserveStateQueuesOnlyNewActionsOldestFirst(t *testing.T) {
	f := NewForwarder(nil, Config{QueueSize: 16}, quietLogger(), nil)
	a1 := state.ControlAction{ID: "a1", Action: "Activate Feeder"}
	a2 := state.ControlAction{ID: "a2", Action: "Refill Water Tank"}
	a3 := state.ControlAction{ID: "a3", Action: "Reset All Systems"}

	f.ObserveState(state.SystemState{ControlActions: []state.ControlAction{a1}})
	f.ObserveState(state.SystemState{ControlActions: []state.ControlAction{a1}})
	f.ObserveState(state.SystemState{ControlActions: []state.ControlAction{a3, a2, a1}})

	var keys []string
	for len(f.queue) > 0 {
		keys = append(keys, (<-f.queue).Key)
	}
	want := []string{"a1", "a2", "a3"}
	if len(keys) != len(want) {
		t.Fatalf("got %v want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("got %v want %v", keys, want)
		}
	}
}

func drainKeys(f *Forwarder) []string {
	var keys []string
	for len(f.queue) > 0 {
		keys = append(keys, (<-f.queue).Key)
	}
	return keys
}

func TestObserveStateIgnoresStaleSnapshots(t *testing.T) {
	f := NewForwarder(nil, Config{QueueSize: 16}, quietLogger(), nil)
	a1 := state.ControlAction{ID: "a1", Action: "Activate Feeder"}
	a2 := state.ControlAction{ID: "a2", Action: "Refill Water Tank"}
	a3 := state.ControlAction{ID: "a3", Action: "Reset All Systems"}

	// Two concurrent actions whose notifications land newest first.
	f.ObserveState(state.SystemState{ControlActions: []state.ControlAction{a2, a1}})
	f.ObserveState(state.SystemState{ControlActions: []state.ControlAction{a1}})
	f.ObserveState(state.SystemState{ControlActions: []state.ControlAction{a3, a2, a1}})

	keys := drainKeys(f)
	want := []string{"a1", "a2", "a3"}
	if len(keys) != len(want) {
		t.Fatalf("got %v want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("got %v want %v", keys, want)
		}
	}
}

func TestObserveStateForgetsOldestIDsBeyondLimit(t *testing.T) {
	f := NewForwarder(nil, Config{QueueSize: 2 * sentLimit}, quietLogger(), nil)
	for i := 0; i < sentLimit+5; i++ {
		a := state.ControlAction{ID: fmt.Sprintf("a%d", i)}
		f.ObserveState(state.SystemState{ControlActions: []state.ControlAction{a}})
	}
	if got := len(drainKeys(f)); got != sentLimit+5 {
		t.Fatalf("expected %d queued actions, got %d", sentLimit+5, got)
	}
	if len(f.sent) != sentLimit || len(f.sentIDs) != sentLimit {
		t.Fatalf("remembered ids: map=%d slice=%d want %d", len(f.sent), len(f.sentIDs), sentLimit)
	}
	if _, ok := f.sent["a0"]; ok {
		t.Fatalf("oldest id should have been forgotten")
	}
}
