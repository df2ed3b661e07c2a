package process

import (
	"math"

	"github.com/san-kum/pidtune/internal/dynamo"
)

const minTau = 1e-9

// fopdt: dy/dt = (-y + K*u + d) / tau
type fopdt struct {
	k, tau float64
}

func (s fopdt) Derive(x dynamo.State, in dynamo.Input) dynamo.State {
	return dynamo.State{(-x[0] + s.k*in.U + in.D) / math.Max(minTau, s.tau)}
}

func (s fopdt) StateDim() int { return 1 }

// sopdt carries [y, dy/dt]:
// d(dy)/dt = (K*u + d - y - (tau1+tau2)*dy) / (tau1*tau2)
type sopdt struct {
	k, tau1, tau2 float64
}

func (s sopdt) Derive(x dynamo.State, in dynamo.Input) dynamo.State {
	a := math.Max(minTau, s.tau1*s.tau2)
	b := s.tau1 + s.tau2
	return dynamo.State{x[1], (s.k*in.U + in.D - x[0] - b*x[1]) / a}
}

func (s sopdt) StateDim() int { return 2 }

// integrating: dy/dt = Ki*(K*u + d) - leak*(y - y_ss)
type integrating struct {
	k, ki, leak, yss float64
}

func (s integrating) Derive(x dynamo.State, in dynamo.Input) dynamo.State {
	return dynamo.State{s.ki*(s.k*in.U+in.D) - math.Max(0, s.leak)*(x[0]-s.yss)}
}

func (s integrating) StateDim() int { return 1 }
