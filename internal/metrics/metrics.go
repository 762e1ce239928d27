// v0
// internal/metrics/metrics.go
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MayorChristopher/poultry-management-system/internal/breaker"
	"github.com/MayorChristopher/poultry-management-system/internal/dashboard"
	"github.com/MayorChristopher/poultry-management-system/internal/logfeed"
	"github.com/MayorChristopher/poultry-management-system/internal/sensor"
)

const namespace = "farm"

// Metrics holds the farm collectors on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	controlActions    *prometheus.CounterVec
	flushPending      prometheus.Gauge
	channelValue      *prometheus.GaugeVec
	channelBand       *prometheus.GaugeVec
	overallBand       prometheus.Gauge
	samples           *prometheus.CounterVec
	logEntries        *prometheus.GaugeVec
	cbState           *prometheus.GaugeVec
	telemetrySent     *prometheus.CounterVec
	telemetryDropped  *prometheus.CounterVec
}

// New registers every collector plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of HTTP request durations by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		controlActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "control_actions_total",
			Help:      "Control actions executed by action and effect.",
		}, []string{"action", "effect"}),
		flushPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "flush_followups_pending",
			Help:      "Flush refills scheduled but not yet applied.",
		}),
		channelValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channel_value",
			Help:      "Latest dashboard reading per channel.",
		}, []string{"channel"}),
		channelBand: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channel_band",
			Help:      "Status band per channel (1 normal, 2 warning, 3 critical).",
		}, []string{"channel"}),
		overallBand: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "overall_band",
			Help:      "Worst status band across channels (1 normal, 2 warning, 3 critical).",
		}),
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dashboard_samples_total",
			Help:      "Dashboard samples recorded by trigger.",
		}, []string{"trigger"}),
		logEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "log_feed_entries",
			Help:      "Entries in the activity log feed by category.",
		}, []string{"category"}),
		cbState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cb_state",
			Help:      "Circuit breaker state gauge (0 closed, 1 open, 2 half).",
		}, []string{"target"}),
		telemetrySent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_published_total",
			Help:      "Telemetry messages handed to a sink by sink and result.",
		}, []string{"sink", "result"}),
		telemetryDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_dropped_total",
			Help:      "Telemetry messages dropped because the queue was full.",
		}, []string{"kind"}),
	}

	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpDuration,
		m.controlActions,
		m.flushPending,
		m.channelValue,
		m.channelBand,
		m.overallBand,
		m.samples,
		m.logEntries,
		m.cbState,
		m.telemetrySent,
		m.telemetryDropped,
	)
	return m
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// RegisterSubscriberGauge exposes the live store subscriber count.
func (m *Metrics) RegisterSubscriberGauge(count func() int) {
	if m == nil {
		return
	}
	m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "state_subscribers",
		Help:      "Listeners currently subscribed to the system state.",
	}, func() float64 { return float64(count()) }))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Hijack lets websocket upgrades pass through the recorder.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// WrapHandler records request count and latency under route.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		duration := time.Since(start).Seconds()
		if m != nil {
			m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(duration)
		}
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// ControlExecuted counts one executed control action.
func (m *Metrics) ControlExecuted(action, effect string) {
	if m == nil {
		return
	}
	m.controlActions.WithLabelValues(action, effect).Inc()
}

// FlushPending moves the pending flush gauge by delta.
func (m *Metrics) FlushPending(delta int) {
	if m == nil {
		return
	}
	m.flushPending.Add(float64(delta))
}

// ObserveUpdate records the latest dashboard sample.
func (m *Metrics) ObserveUpdate(u dashboard.Update) {
	if m == nil {
		return
	}
	for _, ch := range sensor.Channels {
		m.channelValue.WithLabelValues(string(ch)).Set(u.Reading.Value(ch))
		m.channelBand.WithLabelValues(string(ch)).Set(float64(u.Status.Channels[ch]))
	}
	m.overallBand.Set(float64(u.Status.Overall))
	m.samples.WithLabelValues(string(u.Trigger)).Inc()
}

// LogFeedChanged mirrors the per-category feed counts.
func (m *Metrics) LogFeedChanged(counts map[logfeed.Category]int) {
	if m == nil {
		return
	}
	for cat, n := range counts {
		m.logEntries.WithLabelValues(string(cat)).Set(float64(n))
	}
}

// SetCircuitBreakerState is shaped to be passed to breaker.WithStateHook.
func (m *Metrics) SetCircuitBreakerState(target string, state breaker.State) {
	if m == nil {
		return
	}
	m.cbState.WithLabelValues(target).Set(float64(state))
}

// TelemetryPublished counts one publish attempt on sink.
func (m *Metrics) TelemetryPublished(sink string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.telemetrySent.WithLabelValues(sink, result).Inc()
}

// TelemetryDropped counts one message dropped before any sink saw it.
func (m *Metrics) TelemetryDropped(kind string) {
	if m == nil {
		return
	}
	m.telemetryDropped.WithLabelValues(kind).Inc()
}
