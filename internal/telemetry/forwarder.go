// v0
// internal/telemetry/forwarder.go
package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/MayorChristopher/poultry-management-system/internal/dashboard"
	"github.com/MayorChristopher/poultry-management-system/internal/state"
)

// Observer is told about publish outcomes and drops.
type Observer interface {
	TelemetryPublished(sink string, err error)
	TelemetryDropped(kind string)
}

// Config sizes the forwarder.
type Config struct {
	QueueSize      int
	PublishTimeout time.Duration
	DrainTimeout   time.Duration
}

// DefaultConfig buffers 256 messages and gives each publish 2s.
func DefaultConfig() Config {
	return Config{QueueSize: 256, PublishTimeout: 2 * time.Second, DrainTimeout: 3 * time.Second}
}

// Forwarder fans queued messages out to every sink on its own goroutine.
// Enqueueing never blocks; a full queue drops.
type Forwarder struct {
	sinks []Sink
	cfg   Config
	log   *slog.Logger
	obs   Observer
	queue chan Message

	mu      sync.Mutex
	sent    map[string]struct{}
	sentIDs []string
}

// sentLimit bounds the remembered action ids.
const sentLimit = 4 * state.HistoryLimit

// NewForwarder builds a forwarder. Run must be called to start delivery.
func NewForwarder(sinks []Sink, cfg Config, log *slog.Logger, obs Observer) *Forwarder {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	def := DefaultConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = def.PublishTimeout
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = def.DrainTimeout
	}
	return &Forwarder{
		sinks: sinks,
		cfg:   cfg,
		log:   log,
		obs:   obs,
		queue: make(chan Message, cfg.QueueSize),
		sent:  make(map[string]struct{}),
	}
}

// Enabled reports whether any sink is configured.
func (f *Forwarder) Enabled() bool { return len(f.sinks) > 0 }

// Enqueue adds msg without blocking. It reports false when the queue is full.
func (f *Forwarder) Enqueue(msg Message) bool {
	select {
	case f.queue <- msg:
		return true
	default:
		f.log.Warn("telemetry_dropped", slog.String("kind", string(msg.Kind)), slog.Int("queue", cap(f.queue)))
		if f.obs != nil {
			f.obs.TelemetryDropped(string(msg.Kind))
		}
		return false
	}
}

// ObserveUpdate queues a dashboard sample. It has the dashboard listener shape.
func (f *Forwarder) ObserveUpdate(u dashboard.Update) {
	payload, err := json.Marshal(u)
	if err != nil {
		f.log.Error("telemetry_encode_failed", slog.String("kind", string(KindReading)), slog.Any("err", err))
		return
	}
	f.Enqueue(Message{Kind: KindReading, Key: string(u.Trigger), Payload: payload, Time: u.Reading.Timestamp})
}

// ObserveState queues the control actions recorded since the previous call.
// It has the state listener shape.
func (f *Forwarder) ObserveState(st state.SystemState) {
	fresh := f.newActions(st.ControlActions)
	for i := len(fresh) - 1; i >= 0; i-- {
		a := fresh[i]
		payload, err := json.Marshal(a)
		if err != nil {
			f.log.Error("telemetry_encode_failed", slog.String("kind", string(KindAction)), slog.Any("err", err))
			continue
		}
		f.Enqueue(Message{Kind: KindAction, Key: a.ID, Payload: payload, Time: a.Timestamp})
	}
}

// newActions returns the entries of hist not sent before, newest first.
// Snapshots may arrive out of order because the store notifies outside its
// lock; a stale snapshot therefore yields nothing.
func (f *Forwarder) newActions(hist []state.ControlAction) []state.ControlAction {
	f.mu.Lock()
	defer f.mu.Unlock()
	var fresh []state.ControlAction
	for _, a := range hist {
		if _, ok := f.sent[a.ID]; !ok {
			fresh = append(fresh, a)
		}
	}
	for i := len(fresh) - 1; i >= 0; i-- {
		id := fresh[i].ID
		f.sent[id] = struct{}{}
		f.sentIDs = append(f.sentIDs, id)
	}
	if over := len(f.sentIDs) - sentLimit; over > 0 {
		for _, id := range f.sentIDs[:over] {
			delete(f.sent, id)
		}
		f.sentIDs = append(f.sentIDs[:0:0], f.sentIDs[over:]...)
	}
	return fresh
}

// Run delivers queued messages until ctx is done, then drains what is left
// within DrainTimeout and closes the sinks.
func (f *Forwarder) Run(ctx context.Context) {
	f.log.Info("telemetry_forwarder_started", slog.Int("sinks", len(f.sinks)), slog.Int("queue", cap(f.queue)))
	for {
		select {
		case msg := <-f.queue:
			f.deliver(ctx, msg)
		case <-ctx.Done():
			f.drain()
			f.close()
			f.log.Info("telemetry_forwarder_stopped")
			return
		}
	}
}

func (f *Forwarder) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), f.cfg.DrainTimeout)
	defer cancel()
	for {
		select {
		case msg := <-f.queue:
			f.deliver(ctx, msg)
		default:
			return
		}
		if ctx.Err() != nil {
			f.log.Warn("telemetry_drain_timeout", slog.Int("left", len(f.queue)))
			return
		}
	}
}

func (f *Forwarder) deliver(ctx context.Context, msg Message) {
	for _, s := range f.sinks {
		pctx, cancel := context.WithTimeout(ctx, f.cfg.PublishTimeout)
		err := s.Publish(pctx, msg)
		cancel()
		if err != nil {
			f.log.Warn("telemetry_publish_failed", slog.String("sink", s.Name()), slog.String("kind", string(msg.Kind)), slog.Any("err", err))
		}
		if f.obs != nil {
			f.obs.TelemetryPublished(s.Name(), err)
		}
	}
}

func (f *Forwarder) close() {
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			f.log.Warn("telemetry_sink_close_failed", slog.String("sink", s.Name()), slog.Any("err", err))
		}
	}
}
