// v0
// internal/sensor/channel.go
package sensor

import "math"

// Channel identifies one of the four simulated measurements.
type Channel string

const (
	Temperature Channel = "temperature"
	Humidity    Channel = "humidity"
	WaterLevel  Channel = "waterLevel"
	FeedLevel   Channel = "feedLevel"
)

// Channels lists every channel in display order.
var Channels = []Channel{Temperature, Humidity, WaterLevel, FeedLevel}

// Unit returns the display unit used by the dashboard cards.
func (c Channel) Unit() string {
	if c == Temperature {
		return "°C"
	}
	return "%"
}

// IsLevel reports whether the channel is a tank level (water or feed).
func (c Channel) IsLevel() bool {
	return c == WaterLevel || c == FeedLevel
}

// Bounds is a closed interval a channel value must stay within.
type Bounds struct {
	Min float64
	Max float64
}

// Clamp pins v into [Min, Max].
func (b Bounds) Clamp(v float64) float64 {
	return math.Max(b.Min, math.Min(b.Max, v))
}

// Contains reports whether v lies within the bounds.
func (b Bounds) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Rand is the subset of *math/rand.Rand used by the simulators.
type Rand interface {
	Float64() float64
}

// Symmetric returns a uniform sample in [-max, +max].
func Symmetric(r Rand, max float64) float64 {
	return (r.Float64() - 0.5) * 2 * max
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
