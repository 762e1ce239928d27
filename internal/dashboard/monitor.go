// v0
// internal/dashboard/monitor.go

// Package dashboard keeps the rolling view the dashboard page renders: the
// latest reading, its status bands and a short per-channel history. It
// samples the store on a fixed interval and again after every notified
// state change.
package dashboard

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/MayorChristopher/poultry-management-system/internal/sensor"
	"github.com/MayorChristopher/poultry-management-system/internal/state"
	"github.com/MayorChristopher/poultry-management-system/internal/status"
)

// Defaults for the dashboard loop.
const (
	DefaultInterval = 30 * time.Second
	HistoryPoints   = 20
)

// Trigger says why a sample was taken.
type Trigger string

const (
	TriggerStart  Trigger = "start"
	TriggerTick   Trigger = "tick"
	TriggerChange Trigger = "change"
)

// Point is one history sample of a channel.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Update is handed to every listener after a sample is recorded.
type Update struct {
	Trigger Trigger        `json:"trigger"`
	Reading sensor.Reading `json:"reading"`
	Status  status.Report  `json:"status"`
}

// View is what the dashboard page shows.
type View struct {
	Latest  sensor.Reading             `json:"latest"`
	Status  status.Report              `json:"status"`
	History map[sensor.Channel][]Point `json:"history"`
	Units   map[sensor.Channel]string  `json:"units"`
	Samples uint64                     `json:"samples"`
	Ready   bool                       `json:"ready"`
}

// Source is the part of the store the monitor uses.
type Source interface {
	GenerateReading() sensor.Reading
	Subscribe(fn state.Listener) state.Subscription
}

// Monitor samples a Source and keeps the rolling dashboard view.
type Monitor struct {
	src      Source
	interval time.Duration
	limit    int
	log      *slog.Logger

	mu        sync.RWMutex
	latest    sensor.Reading
	report    status.Report
	history   map[sensor.Channel][]Point
	samples   uint64
	listeners []func(Update)
}

// NewMonitor builds a monitor. A non-positive interval uses DefaultInterval.
func NewMonitor(src Source, interval time.Duration, log *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	h := make(map[sensor.Channel][]Point, len(sensor.Channels))
	for _, ch := range sensor.Channels {
		h[ch] = make([]Point, 0, HistoryPoints)
	}
	return &Monitor{src: src, interval: interval, limit: HistoryPoints, log: log, history: h}
}

// OnUpdate registers fn to receive every recorded sample. Register listeners
// before Run.
func (m *Monitor) OnUpdate(fn func(Update)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Run subscribes to the source, takes an initial sample and then samples
// every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	sub := m.src.Subscribe(func(state.SystemState) {
		m.Sample(TriggerChange)
	})
	defer sub.Unsubscribe()

	m.Sample(TriggerStart)
	t := time.NewTicker(m.interval)
	defer t.Stop()
	m.log.Info("dashboard_monitor_started", slog.Duration("interval", m.interval))
	for {
		select {
		case <-t.C:
			m.Sample(TriggerTick)
		case <-ctx.Done():
			m.log.Info("dashboard_monitor_stopped", slog.Uint64("samples", m.Samples()))
			return
		}
	}
}

// Sample advances the source, records the reading and notifies listeners.
func (m *Monitor) Sample(trigger Trigger) Update {
	return m.Record(trigger, m.src.GenerateReading())
}

// Record stores r as the latest reading and appends it to the history.
func (m *Monitor) Record(trigger Trigger, r sensor.Reading) Update {
	u := Update{Trigger: trigger, Reading: r, Status: status.Evaluate(r)}

	m.mu.Lock()
	m.latest = r
	m.report = u.Status
	m.samples++
	for _, ch := range sensor.Channels {
		pts := append(m.history[ch], Point{Timestamp: r.Timestamp, Value: r.Value(ch)})
		if len(pts) > m.limit {
			pts = append(pts[:0:0], pts[len(pts)-m.limit:]...)
		}
		m.history[ch] = pts
	}
	listeners := append([]func(Update){}, m.listeners...)
	m.mu.Unlock()

	if u.Status.Overall == status.Critical {
		m.log.Warn("dashboard_status_critical", slog.String("trigger", string(trigger)))
	}
	m.log.Debug("dashboard_sample",
		slog.String("trigger", string(trigger)),
		slog.String("overall", u.Status.Overall.String()),
	)
	for _, fn := range listeners {
		fn(u)
	}
	return u
}

// View returns a copy of the current dashboard data. Ready is false until
// the first sample.
func (m *Monitor) View() View {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v := View{
		Latest:  m.latest,
		Status:  copyReport(m.report),
		History: make(map[sensor.Channel][]Point, len(m.history)),
		Units:   make(map[sensor.Channel]string, len(sensor.Channels)),
		Samples: m.samples,
		Ready:   m.samples > 0,
	}
	for _, ch := range sensor.Channels {
		v.History[ch] = append([]Point(nil), m.history[ch]...)
		v.Units[ch] = ch.Unit()
	}
	return v
}

// Samples returns how many readings were recorded.
func (m *Monitor) Samples() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.samples
}

func copyReport(r status.Report) status.Report {
	out := status.Report{Overall: r.Overall, Channels: make(map[sensor.Channel]status.Band, len(r.Channels))}
	for k, v := range r.Channels {
		out.Channels[k] = v
	}
	return out
}
