// v0
// internal/state/store.go

// Package state owns the simulated farm system state: the four channel
// readings, the bounded control action history, natural drift and change
// notification.
package state

import (
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MayorChristopher/poultry-management-system/internal/sensor"
)

// HistoryLimit is the number of control actions retained, newest first.
const HistoryLimit = 10

// Effect names the channel a control action touched.
type Effect string

const (
	EffectTemperature Effect = "temperature"
	EffectHumidity    Effect = "humidity"
	EffectWaterLevel  Effect = "waterLevel"
	EffectFeedLevel   Effect = "feedLevel"
	EffectMultiple    Effect = "multiple"
)

// Channel returns the single channel behind the effect, if any.
func (e Effect) Channel() (sensor.Channel, bool) {
	switch e {
	case EffectTemperature:
		return sensor.Temperature, true
	case EffectHumidity:
		return sensor.Humidity, true
	case EffectWaterLevel:
		return sensor.WaterLevel, true
	case EffectFeedLevel:
		return sensor.FeedLevel, true
	}
	return "", false
}

// ControlAction records one executed control action. Records are created by
// ApplyControl and never modified afterwards.
type ControlAction struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	Effect    Effect    `json:"effect"`
	Value     *float64  `json:"value,omitempty"`
}

func (a ControlAction) clone() ControlAction {
	if a.Value != nil {
		v := *a.Value
		a.Value = &v
	}
	return a
}

// SystemState is a point-in-time copy of the store.
type SystemState struct {
	Temperature    float64         `json:"temperature"`
	Humidity       float64         `json:"humidity"`
	WaterLevel     float64         `json:"waterLevel"`
	FeedLevel      float64         `json:"feedLevel"`
	LastUpdated    time.Time       `json:"lastUpdated"`
	ControlActions []ControlAction `json:"controlActions"`
}

// Reading returns the channel values rounded to one decimal.
func (s SystemState) Reading() sensor.Reading {
	return s.Levels().reading(s.LastUpdated)
}

// Levels returns the raw channel values.
func (s SystemState) Levels() Levels {
	return Levels{Temperature: s.Temperature, Humidity: s.Humidity, WaterLevel: s.WaterLevel, FeedLevel: s.FeedLevel}
}

// Levels is the mutable view of the four channels handed to control effects.
type Levels struct {
	Temperature float64
	Humidity    float64
	WaterLevel  float64
	FeedLevel   float64
}

// Get returns one channel value.
func (l Levels) Get(ch sensor.Channel) float64 {
	switch ch {
	case sensor.Temperature:
		return l.Temperature
	case sensor.Humidity:
		return l.Humidity
	case sensor.WaterLevel:
		return l.WaterLevel
	case sensor.FeedLevel:
		return l.FeedLevel
	}
	return 0
}

func (l *Levels) clamp(p Profile) {
	l.Temperature = p.Bounds[sensor.Temperature].Clamp(l.Temperature)
	l.Humidity = p.Bounds[sensor.Humidity].Clamp(l.Humidity)
	l.WaterLevel = p.Bounds[sensor.WaterLevel].Clamp(l.WaterLevel)
	l.FeedLevel = p.Bounds[sensor.FeedLevel].Clamp(l.FeedLevel)
}

func (l Levels) reading(ts time.Time) sensor.Reading {
	return sensor.Reading{
		Temperature: l.Temperature,
		Humidity:    l.Humidity,
		WaterLevel:  l.WaterLevel,
		FeedLevel:   l.FeedLevel,
		Timestamp:   ts,
	}.Rounded()
}

// Profile holds channel bounds, per-tick drift and the initial values.
type Profile struct {
	Bounds    map[sensor.Channel]sensor.Bounds
	MaxDrift  map[sensor.Channel]float64
	Initial   Levels
	Jitter    Levels
	UseJitter bool
}

// DefaultProfile returns the farm defaults. Initial jitter is enabled.
func DefaultProfile() Profile {
	return Profile{
		Bounds: map[sensor.Channel]sensor.Bounds{
			sensor.Temperature: {Min: 15, Max: 40},
			sensor.Humidity:    {Min: 20, Max: 90},
			sensor.WaterLevel:  {Min: 0, Max: 100},
			sensor.FeedLevel:   {Min: 0, Max: 100},
		},
		MaxDrift: map[sensor.Channel]float64{
			sensor.Temperature: 0.5,
			sensor.Humidity:    1,
			sensor.WaterLevel:  2,
			sensor.FeedLevel:   1,
		},
		Initial:   Levels{Temperature: 25, Humidity: 55, WaterLevel: 75, FeedLevel: 80},
		Jitter:    Levels{Temperature: 2, Humidity: 5, WaterLevel: 10, FeedLevel: 10},
		UseJitter: true,
	}
}

// Listener receives a copy of the state after every notified change.
type Listener func(SystemState)

type registration struct {
	id uint64
	fn Listener
}

// Store is the single owner of the system state. All mutation goes through
// Advance, ApplyControl and Settle.
type Store struct {
	log     *slog.Logger
	profile Profile
	now     func() time.Time
	newID   func() string

	mu        sync.Mutex
	rng       sensor.Rand
	levels    Levels
	updated   time.Time
	history   []ControlAction
	listeners []registration
	nextSubID uint64
}

// Option customises a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithRand replaces the random source used for drift and effects.
func WithRand(r sensor.Rand) Option {
	return func(s *Store) { s.rng = r }
}

// WithIDs replaces the control action id generator.
func WithIDs(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New builds a store from profile.
func New(profile Profile, opts ...Option) *Store {
	s := &Store{
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		profile: profile,
		now:     time.Now,
		newID:   uuid.NewString,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.levels = profile.Initial
	if profile.UseJitter {
		s.levels.Temperature += sensor.Symmetric(s.rng, profile.Jitter.Temperature)
		s.levels.Humidity += sensor.Symmetric(s.rng, profile.Jitter.Humidity)
		s.levels.WaterLevel += sensor.Symmetric(s.rng, profile.Jitter.WaterLevel)
		s.levels.FeedLevel += sensor.Symmetric(s.rng, profile.Jitter.FeedLevel)
	}
	s.levels.clamp(profile)
	s.updated = s.now()
	s.log.Info("state_initialized",
		slog.Float64("temperature", s.levels.Temperature),
		slog.Float64("humidity", s.levels.Humidity),
		slog.Float64("water_level", s.levels.WaterLevel),
		slog.Float64("feed_level", s.levels.FeedLevel),
	)
	return s
}

// Profile returns the bounds and drift the store was built with.
func (s *Store) Profile() Profile {
	return s.profile
}

// State returns a deep copy of the current state.
func (s *Store) State() SystemState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() SystemState {
	hist := make([]ControlAction, len(s.history))
	for i, a := range s.history {
		hist[i] = a.clone()
	}
	return SystemState{
		Temperature:    s.levels.Temperature,
		Humidity:       s.levels.Humidity,
		WaterLevel:     s.levels.WaterLevel,
		FeedLevel:      s.levels.FeedLevel,
		LastUpdated:    s.updated,
		ControlActions: hist,
	}
}

// Advance applies one tick of natural drift. Temperature and humidity move
// symmetrically; water and feed only ever decrease. Subscribers are not
// notified.
func (s *Store) Advance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advanceLocked()
}

func (s *Store) advanceLocked() {
	d := s.profile.MaxDrift
	s.levels.Temperature += sensor.Symmetric(s.rng, d[sensor.Temperature])
	s.levels.Humidity += sensor.Symmetric(s.rng, d[sensor.Humidity])
	s.levels.WaterLevel = max(0, s.levels.WaterLevel-s.rng.Float64()*d[sensor.WaterLevel])
	s.levels.FeedLevel = max(0, s.levels.FeedLevel-s.rng.Float64()*d[sensor.FeedLevel])
	s.levels.clamp(s.profile)
	s.touchLocked()
}

// GenerateReading advances drift and returns the resulting rounded reading
// stamped with the update time. It does not notify subscribers.
func (s *Store) GenerateReading() sensor.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advanceLocked()
	return s.levels.reading(s.updated)
}

// Effector mutates channel values on behalf of a control action. Values are
// clamped to the store bounds after it returns.
type Effector func(l *Levels, r sensor.Rand)

// ApplyControl runs fn, records a ControlAction at the head of the history
// and synchronously notifies every subscriber. A nil fn records the action
// without changing any channel.
func (s *Store) ApplyControl(action string, effect Effect, fn Effector) ControlAction {
	s.mu.Lock()
	if fn != nil {
		fn(&s.levels, s.rng)
	}
	s.levels.clamp(s.profile)
	s.touchLocked()

	rec := ControlAction{
		ID:        s.newID(),
		Action:    action,
		Timestamp: s.updated,
		Effect:    effect,
	}
	if ch, ok := effect.Channel(); ok {
		v := s.levels.Get(ch)
		rec.Value = &v
	}
	s.history = append([]ControlAction{rec}, s.history...)
	if len(s.history) > HistoryLimit {
		s.history = s.history[:HistoryLimit]
	}
	snap := s.snapshotLocked()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	s.log.Info("control_applied",
		slog.String("id", rec.ID),
		slog.String("action", action),
		slog.String("effect", string(effect)),
		slog.Int("listeners", len(listeners)),
	)
	notify(listeners, snap)
	return rec.clone()
}

// Settle applies a follow-up mutation that belongs to an earlier action. It
// updates the timestamp and notifies subscribers but adds no history record.
func (s *Store) Settle(fn Effector) {
	s.mu.Lock()
	if fn != nil {
		fn(&s.levels, s.rng)
	}
	s.levels.clamp(s.profile)
	s.touchLocked()
	snap := s.snapshotLocked()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	s.log.Info("control_settled", slog.Int("listeners", len(listeners)))
	notify(listeners, snap)
}

func (s *Store) touchLocked() {
	now := s.now()
	if now.Before(s.updated) {
		now = s.updated
	}
	s.updated = now
}

func (s *Store) listenersLocked() []Listener {
	out := make([]Listener, len(s.listeners))
	for i, r := range s.listeners {
		out[i] = r.fn
	}
	return out
}

// notify runs on the caller's goroutine; a slow listener delays the rest.
func notify(listeners []Listener, snap SystemState) {
	for _, fn := range listeners {
		fn(cloneState(snap))
	}
}

func cloneState(s SystemState) SystemState {
	hist := make([]ControlAction, len(s.ControlActions))
	for i, a := range s.ControlActions {
		hist[i] = a.clone()
	}
	s.ControlActions = hist
	return s
}
