// v0
// internal/sensor/walker.go
package sensor

import (
	"sync"
	"time"
)

// WalkProfile describes the bounds, per-step change and starting point of a
// standalone random walk.
type WalkProfile struct {
	Bounds    map[Channel]Bounds
	MaxChange map[Channel]float64
	Start     map[Channel]float64
}

// DefaultWalkProfile matches the standalone demo generator: values move by
// at most 1.5°C, 3%, 5% and 2% per step.
func DefaultWalkProfile() WalkProfile {
	return WalkProfile{
		Bounds: map[Channel]Bounds{
			Temperature: {Min: 18, Max: 35},
			Humidity:    {Min: 30, Max: 80},
			WaterLevel:  {Min: 0, Max: 100},
			FeedLevel:   {Min: 0, Max: 100},
		},
		MaxChange: map[Channel]float64{
			Temperature: 1.5,
			Humidity:    3,
			WaterLevel:  5,
			FeedLevel:   2,
		},
		Start: map[Channel]float64{
			Temperature: 25,
			Humidity:    55,
			WaterLevel:  75,
			FeedLevel:   80,
		},
	}
}

// Walker is the standalone simulator. It walks each channel from its own
// previous value and has no coupling to the shared system state or to
// control actions; it exists for demos and isolated tests.
type Walker struct {
	mu      sync.Mutex
	profile WalkProfile
	rng     Rand
	prev    map[Channel]float64
}

// NewWalker returns a walker positioned at the profile's start values.
func NewWalker(profile WalkProfile, rng Rand) *Walker {
	prev := make(map[Channel]float64, len(Channels))
	for _, ch := range Channels {
		prev[ch] = profile.Start[ch]
	}
	return &Walker{profile: profile, rng: rng, prev: prev}
}

// Next advances every channel by a symmetric bounded step and returns the
// rounded reading stamped with now.
func (w *Walker) Next(now time.Time) Reading {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, ch := range Channels {
		v := w.prev[ch] + Symmetric(w.rng, w.profile.MaxChange[ch])
		w.prev[ch] = w.profile.Bounds[ch].Clamp(v)
	}
	return Reading{
		Temperature: w.prev[Temperature],
		Humidity:    w.prev[Humidity],
		WaterLevel:  w.prev[WaterLevel],
		FeedLevel:   w.prev[FeedLevel],
		Timestamp:   now,
	}.Rounded()
}
