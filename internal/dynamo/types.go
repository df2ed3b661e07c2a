package dynamo

import (
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Input is what drives a process for one tick: the normalized actuator
// signal and an additive load disturbance.
type Input struct {
	U float64
	D float64
}

type System interface {
	Derive(x State, in Input) State
	StateDim() int
}

type Integrator interface {
	Step(sys System, x State, in Input, dt float64) State
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}
