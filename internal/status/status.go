// v0
// internal/status/status.go

// Package status maps raw channel values onto the Normal/Warning/Critical
// severity bands shown on the dashboard.
package status

import (
	"strings"

	"github.com/MayorChristopher/poultry-management-system/internal/sensor"
)

// Band is a severity level. Higher values are more severe.
type Band int

const (
	Unknown Band = iota
	Normal
	Warning
	Critical
)

func (b Band) String() string {
	switch b {
	case Normal:
		return "Normal"
	case Warning:
		return "Warning"
	case Critical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// MarshalText renders the band the way the dashboard labels it.
func (b Band) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText accepts the labels produced by MarshalText, case-insensitively.
func (b *Band) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "normal":
		*b = Normal
	case "warning":
		*b = Warning
	case "critical":
		*b = Critical
	default:
		*b = Unknown
	}
	return nil
}

// Kind selects the threshold table. Water and feed share the level table.
type Kind string

const (
	KindTemperature Kind = "temperature"
	KindHumidity    Kind = "humidity"
	KindLevel       Kind = "level"
)

// KindOf returns the threshold table used for a channel.
func KindOf(ch sensor.Channel) Kind {
	switch ch {
	case sensor.Temperature:
		return KindTemperature
	case sensor.Humidity:
		return KindHumidity
	default:
		return KindLevel
	}
}

// Classify maps value onto a band using fixed thresholds:
//
//	temperature  critical <18 or >32, warning <22 or >28
//	humidity     critical <30 or >80, warning <40 or >70
//	level        critical <20,        warning <40
func Classify(value float64, kind Kind) Band {
	switch kind {
	case KindTemperature:
		return classifyRange(value, 18, 32, 22, 28)
	case KindHumidity:
		return classifyRange(value, 30, 80, 40, 70)
	case KindLevel:
		if value < 20 {
			return Critical
		}
		if value < 40 {
			return Warning
		}
		return Normal
	}
	return Unknown
}

func classifyRange(v, critLow, critHigh, warnLow, warnHigh float64) Band {
	if v < critLow || v > critHigh {
		return Critical
	}
	if v < warnLow || v > warnHigh {
		return Warning
	}
	return Normal
}

// ClassifyChannel classifies a single channel value.
func ClassifyChannel(ch sensor.Channel, value float64) Band {
	return Classify(value, KindOf(ch))
}

// Worst reduces bands by max severity. Unknown never wins over a known band.
func Worst(bands ...Band) Band {
	worst := Unknown
	for _, b := range bands {
		if b > worst {
			worst = b
		}
	}
	return worst
}

// Overall is the worst band across the four channels of r.
func Overall(r sensor.Reading) Band {
	return Evaluate(r).Overall
}

// Report holds the per-channel bands and their reduction.
type Report struct {
	Channels map[sensor.Channel]Band `json:"channels"`
	Overall  Band                    `json:"overall"`
}

// Evaluate classifies every channel of r independently and reduces them.
func Evaluate(r sensor.Reading) Report {
	rep := Report{Channels: make(map[sensor.Channel]Band, len(sensor.Channels))}
	for _, ch := range sensor.Channels {
		b := ClassifyChannel(ch, r.Value(ch))
		rep.Channels[ch] = b
		rep.Overall = Worst(rep.Overall, b)
	}
	return rep
}
