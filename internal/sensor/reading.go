// v0
// internal/sensor/reading.go
package sensor

import "time"

// Reading is one sample of all four channels. Values are rounded to one
// decimal by the simulators before they are handed out.
type Reading struct {
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	WaterLevel  float64   `json:"waterLevel"`
	FeedLevel   float64   `json:"feedLevel"`
	Timestamp   time.Time `json:"timestamp"`
}

// Value returns the reading for a single channel.
func (r Reading) Value(ch Channel) float64 {
	switch ch {
	case Temperature:
		return r.Temperature
	case Humidity:
		return r.Humidity
	case WaterLevel:
		return r.WaterLevel
	case FeedLevel:
		return r.FeedLevel
	}
	return 0
}

// Rounded returns a copy with every channel rounded to one decimal.
func (r Reading) Rounded() Reading {
	return Reading{
		Temperature: Round1(r.Temperature),
		Humidity:    Round1(r.Humidity),
		WaterLevel:  Round1(r.WaterLevel),
		FeedLevel:   Round1(r.FeedLevel),
		Timestamp:   r.Timestamp,
	}
}
