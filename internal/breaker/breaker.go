// v0
// internal/breaker/breaker.go

// Package breaker guards outbound telemetry sinks with a consecutive-failure
// circuit breaker.
package breaker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

// State is the breaker position.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "Closed"
	case Open:
		return "Open"
	case HalfOpen:
		return "HalfOpen"
	default:
		return "Unknown"
	}
}

// ErrOpen is returned while the breaker fast-fails.
var ErrOpen = errors.New("circuit breaker is open; fast-fail")

// Config holds the breaker tunables.
type Config struct {
	MaxFailures      int           // consecutive failures before opening
	ResetTimeout     time.Duration // wait before probing again
	SuccessesToClose int           // successes required in HalfOpen before closing
}

// DefaultConfig opens after 5 failures and probes again after 10s.
func DefaultConfig() Config {
	return Config{MaxFailures: 5, ResetTimeout: 10 * time.Second, SuccessesToClose: 1}
}

// Breaker is safe for concurrent use.
type Breaker struct {
	name   string
	cfg    Config
	logger *slog.Logger
	probe  func(ctx context.Context) error
	now    func() time.Time

	mu          sync.Mutex
	state       State
	recentFails int
	halfOpenOK  int
	openedAt    time.Time
	onChange    func(name string, s State)
}

// Option customises a Breaker.
type Option func(*Breaker)

// WithProbe sets the health check run before leaving Open.
func WithProbe(probe func(ctx context.Context) error) Option {
	return func(b *Breaker) { b.probe = probe }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

// WithStateHook is called after every state change, outside the breaker lock.
func WithStateHook(fn func(name string, s State)) Option {
	return func(b *Breaker) { b.onChange = fn }
}

// New builds a closed breaker.
func New(name string, cfg Config, logger *slog.Logger, opts ...Option) *Breaker {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = DefaultConfig().MaxFailures
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = DefaultConfig().ResetTimeout
	}
	if cfg.SuccessesToClose <= 0 {
		cfg.SuccessesToClose = 1
	}
	b := &Breaker{name: name, cfg: cfg, logger: logger, now: time.Now, state: Closed}
	for _, opt := range opts {
		opt(b)
	}
	b.logger.Info("breaker_created", "name", name, "max_failures", cfg.MaxFailures, "reset_timeout", cfg.ResetTimeout.String())
	return b
}

// Name returns the breaker name.
func (b *Breaker) Name() string { return b.name }

// Execute runs op unless the breaker is open. Once the reset timeout has
// elapsed an open breaker moves to HalfOpen, runs the probe and lets op
// through.
func (b *Breaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	b.mu.Lock()
	state := b.state
	if state == Open {
		since := b.now().Sub(b.openedAt)
		if since < b.cfg.ResetTimeout {
			b.mu.Unlock()
			b.logger.Debug("breaker_fast_fail", "name", b.name, "since_open", since.String())
			return ErrOpen
		}
		b.state = HalfOpen
		b.halfOpenOK = 0
		state = HalfOpen
	}
	b.mu.Unlock()

	if state == HalfOpen {
		b.changed(HalfOpen)
		b.logger.Info("breaker_probe_start", "name", b.name)
		if b.probe != nil {
			if err := b.probe(ctx); err != nil {
				b.logger.Warn("breaker_probe_failed", "name", b.name, "error", err.Error())
				b.trip()
				return ErrOpen
			}
		}
	}

	if err := op(ctx); err != nil {
		b.onFailure(err)
		return err
	}
	b.onSuccess()
	return nil
}

func (b *Breaker) onSuccess() {
	b.mu.Lock()
	from := b.state
	closed := false
	switch from {
	case HalfOpen:
		b.halfOpenOK++
		if b.halfOpenOK >= b.cfg.SuccessesToClose {
			b.state = Closed
			b.recentFails = 0
			closed = true
		}
	default:
		b.recentFails = 0
	}
	b.mu.Unlock()
	if closed {
		b.logger.Info("breaker_closed_after_probe", "name", b.name)
		b.changed(Closed)
	}
}

func (b *Breaker) onFailure(err error) {
	b.mu.Lock()
	b.recentFails++
	fails := b.recentFails
	open := b.state == HalfOpen || fails >= b.cfg.MaxFailures
	b.mu.Unlock()
	b.logger.Warn("operation_failure", "name", b.name, "failures", fails, "error", err.Error())
	if open {
		b.trip()
	}
}

func (b *Breaker) trip() {
	b.mu.Lock()
	b.state = Open
	b.openedAt = b.now()
	b.halfOpenOK = 0
	b.mu.Unlock()
	b.logger.Error("breaker_opened", "name", b.name, "max_failures", b.cfg.MaxFailures)
	b.changed(Open)
}

func (b *Breaker) changed(s State) {
	b.mu.Lock()
	fn := b.onChange
	b.mu.Unlock()
	if fn != nil {
		fn(b.name, s)
	}
}

// State returns the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
