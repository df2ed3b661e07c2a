package integrators

import "github.com/san-kum/pidtune/internal/dynamo"

// Euler is the explicit forward Euler method, the plants' default.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(sys dynamo.System, x dynamo.State, in dynamo.Input, dt float64) dynamo.State {
	result := make(dynamo.State, len(x))
	axpy(result, x, dt, sys.Derive(x, in))
	return result
}
