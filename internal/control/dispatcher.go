// v0
// internal/control/dispatcher.go

// Package control translates the named control actions of the admin panel
// into mutations of the shared system state.
package control

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/MayorChristopher/poultry-management-system/internal/state"
)

// DefaultSettleDelay is how long Flush Water System waits before refilling.
const DefaultSettleDelay = 3 * time.Second

// Scheduler runs f once after d. time.AfterFunc satisfies it through
// TimerScheduler.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

// TimerScheduler schedules on real timers.
type TimerScheduler struct{}

// AfterFunc implements Scheduler.
func (TimerScheduler) AfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}

// Observer receives dispatcher events. metrics.Metrics implements it.
type Observer interface {
	ControlExecuted(action string, effect string)
	FlushPending(delta int)
}

// Config tunes the dispatcher.
type Config struct {
	SettleDelay time.Duration
	Tuning      Tuning
}

// DefaultConfig returns a 3s flush settle and the default diagnostics tuning.
func DefaultConfig() Config {
	return Config{SettleDelay: DefaultSettleDelay, Tuning: DefaultTuning()}
}

// Dispatcher executes control actions against a Store.
type Dispatcher struct {
	store *state.Store
	cfg   Config
	log   *slog.Logger
	sched Scheduler
	obs   Observer

	pending sync.WaitGroup
}

// NewDispatcher wires a dispatcher. A nil logger discards, a nil scheduler
// uses real timers and a nil observer is ignored.
func NewDispatcher(store *state.Store, cfg Config, log *slog.Logger, sched Scheduler, obs Observer) *Dispatcher {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if sched == nil {
		sched = TimerScheduler{}
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	return &Dispatcher{store: store, cfg: cfg, log: log, sched: sched, obs: obs}
}

// Execute applies the named action and returns once the immediate effect
// is applied and every subscriber has been notified. Names outside the
// vocabulary are recorded with effect "multiple" and change nothing.
//
// Flush Water System also schedules a refill after the settle delay. That
// second change notifies subscribers again; it cannot be awaited here and
// cannot be cancelled. A concurrent action may land between the two halves.
//
// The only error is a context that is already done on entry. That is the
// caller having gone away before the request reached the store (a client
// disconnect, for instance), so nothing is applied or recorded.
func (d *Dispatcher) Execute(ctx context.Context, name string) (state.ControlAction, error) {
	if err := ctx.Err(); err != nil {
		return state.ControlAction{}, err
	}
	action := Parse(name)
	if action == Unrecognized {
		d.log.Warn("control_unrecognized", slog.String("action", name))
	}
	effect, fn := d.cfg.Tuning.effect(action)
	rec := d.store.ApplyControl(name, effect, fn)

	if action == FlushWaterSystem {
		d.scheduleSettle(rec.ID)
	}
	if d.obs != nil {
		d.obs.ControlExecuted(action.String(), string(effect))
	}
	d.log.Info("control_executed",
		slog.String("id", rec.ID),
		slog.String("action", name),
		slog.String("effect", string(effect)),
		slog.String("description", action.Description()),
	)
	return rec, nil
}

func (d *Dispatcher) scheduleSettle(id string) {
	d.pending.Add(1)
	if d.obs != nil {
		d.obs.FlushPending(1)
	}
	d.log.Info("flush_settle_scheduled", slog.String("id", id), slog.Duration("delay", d.cfg.SettleDelay))
	d.sched.AfterFunc(d.cfg.SettleDelay, func() {
		defer d.pending.Done()
		d.store.Settle(settleFlush)
		if d.obs != nil {
			d.obs.FlushPending(-1)
		}
		d.log.Info("flush_settled", slog.String("id", id))
	})
}

// Wait blocks until every scheduled follow-up has fired.
func (d *Dispatcher) Wait() {
	d.pending.Wait()
}
