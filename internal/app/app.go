// v0
// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/MayorChristopher/poultry-management-system/internal/auth"
	"github.com/MayorChristopher/poultry-management-system/internal/breaker"
	"github.com/MayorChristopher/poultry-management-system/internal/config"
	"github.com/MayorChristopher/poultry-management-system/internal/control"
	"github.com/MayorChristopher/poultry-management-system/internal/dashboard"
	httpserver "github.com/MayorChristopher/poultry-management-system/internal/http"
	"github.com/MayorChristopher/poultry-management-system/internal/logfeed"
	"github.com/MayorChristopher/poultry-management-system/internal/metrics"
	"github.com/MayorChristopher/poultry-management-system/internal/state"
	"github.com/MayorChristopher/poultry-management-system/internal/stream"
	"github.com/MayorChristopher/poultry-management-system/internal/telemetry"
)

// Application wires configuration, logging, the simulation engine, the
// HTTP surface and graceful shutdown.
type Application struct {
	cfg     config.Config
	logger  *slog.Logger
	logFile *os.File
	server  *http.Server
	health  *httpserver.HealthState

	store      *state.Store
	dispatcher *control.Dispatcher
	monitor    *dashboard.Monitor
	feed       *logfeed.Feed
	hub        *stream.Hub
	forwarder  *telemetry.Forwarder
}

// New prepares a fully wired service instance. It validates basic
// settings, opens the log file and builds every component; nothing runs
// until Run.
func New(cfg config.Config) (*Application, error) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		return nil, errors.New("listen address cannot be empty")
	}
	logPath := filepath.Clean(cfg.LogFilePath)
	if logPath == "" || logPath == "." {
		return nil, errors.New("log file path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	lf, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	logger := newLogger(lf, slog.LevelInfo)

	a, err := build(cfg, logger)
	if err != nil {
		_ = lf.Close()
		return nil, err
	}
	a.logFile = lf
	return a, nil
}

func build(cfg config.Config, logger *slog.Logger) (*Application, error) {
	m := metrics.New()

	profile := state.DefaultProfile()
	profile.UseJitter = cfg.InitialJitter
	store := state.New(profile, state.WithLogger(logger.With(slog.String("component", "state"))))
	m.RegisterSubscriberGauge(store.Subscribers)

	tuning := control.DefaultTuning()
	tuning.DiagnosticsTempJitter = cfg.DiagnosticsTempJitter
	tuning.DiagnosticsHumidityJitter = cfg.DiagnosticsHumidityJitter
	dispatcher := control.NewDispatcher(store,
		control.Config{SettleDelay: cfg.FlushSettleDelay, Tuning: tuning},
		logger.With(slog.String("component", "control")),
		nil, m)

	catalog, err := logfeed.LoadCatalog(cfg.LogCatalogPath)
	if err != nil {
		return nil, fmt.Errorf("log catalog: %w", err)
	}
	feed := logfeed.NewFeed(logfeed.NewGenerator(catalog),
		logfeed.FeedConfig{Capacity: cfg.LogFeedCapacity, Interval: cfg.LogFeedInterval, Chance: cfg.LogFeedChance},
		logger.With(slog.String("component", "log_feed")), m)

	monitor := dashboard.NewMonitor(store, cfg.SampleInterval, logger.With(slog.String("component", "dashboard")))
	hub := stream.NewHub(logger.With(slog.String("component", "stream")), cfg.CORSOrigins, func() any { return monitor.View() })
	monitor.OnUpdate(m.ObserveUpdate)
	monitor.OnUpdate(hub.ObserveUpdate)

	var forwarder *telemetry.Forwarder
	if sinks := buildSinks(cfg, logger, m); len(sinks) > 0 {
		forwarder = telemetry.NewForwarder(sinks, telemetry.DefaultConfig(), logger.With(slog.String("component", "telemetry")), m)
		monitor.OnUpdate(forwarder.ObserveUpdate)
		store.Subscribe(forwarder.ObserveState)
	}

	provider := auth.NewMemoryProvider(auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL), logger.With(slog.String("component", "auth")))
	if err := provider.SeedAdmin(cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return nil, err
	}

	health := httpserver.NewHealthState()
	handler := httpserver.NewRouter(httpserver.Deps{
		Logger:      logger.With(slog.String("component", "http")),
		Health:      health,
		State:       store,
		Controls:    dispatcher,
		Dashboard:   monitor,
		Logs:        feed,
		Auth:        provider,
		Stream:      hub,
		Metrics:     m,
		CORSOrigins: cfg.CORSOrigins,
	})
	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPWriteTimeout,
	}

	return &Application{
		cfg:        cfg,
		logger:     logger,
		server:     server,
		health:     health,
		store:      store,
		dispatcher: dispatcher,
		monitor:    monitor,
		feed:       feed,
		hub:        hub,
		forwarder:  forwarder,
	}, nil
}

// buildSinks returns the enabled telemetry sinks, each behind its own
// breaker. A sink that cannot connect is skipped with a warning.
func buildSinks(cfg config.Config, logger *slog.Logger, m *metrics.Metrics) []telemetry.Sink {
	log := logger.With(slog.String("component", "telemetry"))
	brkCfg := breaker.Config{MaxFailures: cfg.BreakerMaxFailures, ResetTimeout: cfg.BreakerReset, SuccessesToClose: 1}
	guard := func(s telemetry.Sink) telemetry.Sink {
		brk := breaker.New(s.Name(), brkCfg, log, breaker.WithStateHook(m.SetCircuitBreakerState))
		m.SetCircuitBreakerState(s.Name(), breaker.Closed)
		return telemetry.Guard(s, brk)
	}

	var sinks []telemetry.Sink
	if cfg.KafkaEnabled {
		sinks = append(sinks, guard(telemetry.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopicPrefix, log)))
		log.Info("kafka_sink_enabled",
			slog.String("brokers", strings.Join(cfg.KafkaBrokers, ",")),
			slog.String("prefix", cfg.KafkaTopicPrefix),
		)
	}
	if cfg.MQTTEnabled {
		s, err := telemetry.NewMQTTSink(cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTTopicPrefix, log)
		if err != nil {
			log.Warn("mqtt_sink_unavailable", slog.String("broker", cfg.MQTTBroker), slog.Any("err", err))
		} else {
			sinks = append(sinks, guard(s))
			log.Info("mqtt_sink_enabled", slog.String("broker", cfg.MQTTBroker), slog.String("prefix", cfg.MQTTTopicPrefix))
		}
	}
	return sinks
}

// Logger exposes the configured slog logger.
func (a *Application) Logger() *slog.Logger {
	return a.logger
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *Application) Handler() http.Handler {
	return a.server.Handler
}

// Run blocks until ctx is cancelled or the HTTP server fails. On the way
// out it stops accepting requests, waits for pending flush refills, then
// stops the background loops.
func (a *Application) Run(ctx context.Context) error {
	loopCtx, stopLoops := context.WithCancel(context.Background())
	defer stopLoops()

	var loops sync.WaitGroup
	start := func(name string, fn func(context.Context)) {
		loops.Add(1)
		go func() {
			defer loops.Done()
			fn(loopCtx)
			a.logger.Info("loop_stopped", slog.String("loop", name))
		}()
	}
	start("stream_hub", a.hub.Run)
	start("dashboard_monitor", a.monitor.Run)
	start("log_feed", a.feed.Run)
	if a.forwarder != nil {
		start("telemetry_forwarder", a.forwarder.Run)
	}

	httpCh := make(chan error, 1)
	go func() {
		a.health.SetReady(true)
		a.logger.Info("http_server_listen", slog.String("address", a.cfg.ListenAddress))
		httpCh <- a.server.ListenAndServe()
	}()

	var runErr error
	select {
	case err := <-httpCh:
		httpCh = nil
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http_server_error", slog.Any("err", err))
			runErr = err
		}
	case <-ctx.Done():
		a.logger.Info("shutdown_signal")
	}

	a.health.SetReady(false)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server_shutdown_failed", slog.Any("err", err))
		if runErr == nil {
			runErr = fmt.Errorf("shutdown: %w", err)
		}
	}
	if httpCh != nil {
		if err := <-httpCh; err != nil && !errors.Is(err, http.ErrServerClosed) && runErr == nil {
			runErr = err
		}
	}

	a.dispatcher.Wait()
	stopLoops()
	loops.Wait()

	if runErr != nil {
		return runErr
	}
	a.logger.Info("shutdown_complete")
	return nil
}

// Close releases resources owned by the application.
func (a *Application) Close() error {
	if a.logFile == nil {
		return nil
	}
	if err := a.logFile.Close(); err != nil {
		return err
	}
	a.logFile = nil
	return nil
}
