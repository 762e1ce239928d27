// v0
// internal/control/action.go
package control

import (
	"math"

	"github.com/MayorChristopher/poultry-management-system/internal/sensor"
	"github.com/MayorChristopher/poultry-management-system/internal/state"
)

// Action is the closed vocabulary of control actions. Unrecognized is the
// explicit fallback for any name outside the vocabulary; executing it
// records the request without touching the channels.
type Action int

const (
	Unrecognized Action = iota
	ActivateFeeder
	EmergencyFeed
	RefillWaterTank
	FlushWaterSystem
	StartCoolingSystem
	EmergencyVentilation
	SystemDiagnostics
	ResetAllSystems
)

var actionNames = map[Action]string{
	ActivateFeeder:       "Activate Feeder",
	EmergencyFeed:        "Emergency Feed",
	RefillWaterTank:      "Refill Water Tank",
	FlushWaterSystem:     "Flush Water System",
	StartCoolingSystem:   "Start Cooling System",
	EmergencyVentilation: "Emergency Ventilation",
	SystemDiagnostics:    "System Diagnostics",
	ResetAllSystems:      "Reset All Systems",
}

var actionsByName = func() map[string]Action {
	m := make(map[string]Action, len(actionNames))
	for a, n := range actionNames {
		m[n] = a
	}
	return m
}()

func (a Action) String() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	return "Unrecognized"
}

// Known reports whether a is part of the vocabulary.
func (a Action) Known() bool {
	_, ok := actionNames[a]
	return ok
}

// Parse matches name exactly (case-sensitive). Anything else is Unrecognized.
func Parse(name string) Action {
	if a, ok := actionsByName[name]; ok {
		return a
	}
	return Unrecognized
}

// Actions lists the vocabulary in panel order.
func Actions() []Action {
	return []Action{
		ActivateFeeder,
		EmergencyFeed,
		RefillWaterTank,
		FlushWaterSystem,
		StartCoolingSystem,
		EmergencyVentilation,
		SystemDiagnostics,
		ResetAllSystems,
	}
}

// Description is the operator-facing summary shown after an action runs.
func (a Action) Description() string {
	switch a {
	case ActivateFeeder:
		return "Manual feeding cycle initiated"
	case EmergencyFeed:
		return "Emergency feeding protocol activated"
	case RefillWaterTank:
		return "Water tank refill initiated"
	case FlushWaterSystem:
		return "Water system maintenance cycle started"
	case StartCoolingSystem:
		return "Cooling system activated"
	case EmergencyVentilation:
		return "Emergency ventilation protocol activated"
	case SystemDiagnostics:
		return "System diagnostics initiated"
	case ResetAllSystems:
		return "Complete system reset initiated"
	}
	return "Unrecognized action recorded"
}

// Optimal is the state Reset All Systems restores.
var Optimal = state.Levels{Temperature: 24, Humidity: 55, WaterLevel: 85, FeedLevel: 90}

// Tuning holds the adjustable parts of the effect table.
type Tuning struct {
	// DiagnosticsTempJitter bounds the random temperature nudge, in °C.
	DiagnosticsTempJitter float64
	// DiagnosticsHumidityJitter bounds the random humidity nudge, in %.
	DiagnosticsHumidityJitter float64
	DiagnosticsTempBand       sensor.Bounds
	DiagnosticsHumidityBand   sensor.Bounds
}

// DefaultTuning nudges by at most ±1°C and ±2.5% and pulls into the
// 20-28°C and 40-70% bands.
func DefaultTuning() Tuning {
	return Tuning{
		DiagnosticsTempJitter:     1,
		DiagnosticsHumidityJitter: 2.5,
		DiagnosticsTempBand:       sensor.Bounds{Min: 20, Max: 28},
		DiagnosticsHumidityBand:   sensor.Bounds{Min: 40, Max: 70},
	}
}

// effect returns the immediate mutation and the effect tag for a. The flush
// follow-up is handled by the dispatcher.
func (t Tuning) effect(a Action) (state.Effect, state.Effector) {
	switch a {
	case ActivateFeeder:
		return state.EffectFeedLevel, func(l *state.Levels, _ sensor.Rand) {
			l.FeedLevel = math.Min(100, l.FeedLevel+30)
		}
	case EmergencyFeed:
		return state.EffectFeedLevel, func(l *state.Levels, _ sensor.Rand) {
			l.FeedLevel = math.Min(100, l.FeedLevel+50)
		}
	case RefillWaterTank:
		return state.EffectWaterLevel, func(l *state.Levels, _ sensor.Rand) {
			l.WaterLevel = math.Min(100, l.WaterLevel+40)
		}
	case FlushWaterSystem:
		return state.EffectWaterLevel, func(l *state.Levels, _ sensor.Rand) {
			l.WaterLevel = math.Max(20, l.WaterLevel-10)
		}
	case StartCoolingSystem:
		return state.EffectMultiple, func(l *state.Levels, _ sensor.Rand) {
			l.Temperature = math.Max(18, l.Temperature-3)
			l.Humidity = math.Max(30, l.Humidity-5)
		}
	case EmergencyVentilation:
		return state.EffectMultiple, func(l *state.Levels, _ sensor.Rand) {
			l.Temperature = math.Max(18, l.Temperature-5)
			l.Humidity = math.Max(30, l.Humidity-10)
		}
	case SystemDiagnostics:
		return state.EffectMultiple, func(l *state.Levels, r sensor.Rand) {
			l.Temperature = t.DiagnosticsTempBand.Clamp(l.Temperature + sensor.Symmetric(r, t.DiagnosticsTempJitter))
			l.Humidity = t.DiagnosticsHumidityBand.Clamp(l.Humidity + sensor.Symmetric(r, t.DiagnosticsHumidityJitter))
		}
	case ResetAllSystems:
		return state.EffectMultiple, func(l *state.Levels, _ sensor.Rand) {
			*l = Optimal
		}
	}
	return state.EffectMultiple, nil
}

// settleFlush is the delayed half of Flush Water System.
func settleFlush(l *state.Levels, _ sensor.Rand) {
	l.WaterLevel = math.Min(100, l.WaterLevel+20)
}
