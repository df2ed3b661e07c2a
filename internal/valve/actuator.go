package valve

import (
	"math"

	"github.com/san-kum/pidtune/internal/signal"
)

// Nonlinearity holds the actuator imperfections, all in percent of stroke.
type Nonlinearity struct {
	Deadband  float64 `json:"deadband" yaml:"deadband"`
	Stiction  float64 `json:"stiction" yaml:"stiction"`
	Overshoot float64 `json:"overshoot" yaml:"overshoot"`
}

// Actuator tracks the position of one valve between ticks. Each physical
// valve needs its own instance since the hysteresis depends on its history.
type Actuator struct {
	nl         Nonlinearity
	lastOutput float64
	lastDelta  float64
}

func NewActuator(nl Nonlinearity) *Actuator {
	return &Actuator{nl: nl}
}

// Reset places the valve at position (clamped to [0, 100]) with no motion history.
func (a *Actuator) Reset(position float64) {
	a.lastOutput = signal.Clamp(position, 0, 100)
	a.lastDelta = 0
}

// Apply moves the valve towards op and returns the effective position.
//
// Moves smaller than the deadband are absorbed. A reversal smaller than the
// stiction band leaves the valve stuck. Any other move travels the full delta,
// plus the positioner overshoot in the direction of travel.
func (a *Actuator) Apply(op float64) float64 {
	op = signal.Clamp(op, 0, 100)
	delta := op - a.lastOutput

	eff := a.lastOutput
	if math.Abs(delta) >= a.nl.Deadband {
		reversed := a.lastDelta != 0 && signal.Sign(delta) != signal.Sign(a.lastDelta)
		if !reversed || math.Abs(delta) >= a.nl.Stiction {
			eff = a.lastOutput + delta
			if math.Abs(delta) > a.nl.Deadband && a.nl.Overshoot > 0 {
				eff += signal.Sign(delta) * a.nl.Overshoot
			}
		}
	}

	eff = signal.Clamp(eff, 0, 100)
	a.lastDelta = delta
	a.lastOutput = eff
	return eff
}

func (a *Actuator) Position() float64 { return a.lastOutput }

func (a *Actuator) LastDelta() float64 { return a.lastDelta }
