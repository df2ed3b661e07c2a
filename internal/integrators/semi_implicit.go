package integrators

import "github.com/san-kum/pidtune/internal/dynamo"

// SemiImplicitEuler treats the first half of the state as positions and the
// second half as their rates. Rates are advanced first, and positions are
// then advanced with the updated rates.
type SemiImplicitEuler struct{}

func NewSemiImplicitEuler() *SemiImplicitEuler {
	return &SemiImplicitEuler{}
}

func (s *SemiImplicitEuler) Step(sys dynamo.System, x dynamo.State, in dynamo.Input, dt float64) dynamo.State {
	n := len(x)
	half := n / 2
	dx := sys.Derive(x, in)

	result := make(dynamo.State, n)
	for i := 0; i < half; i++ {
		result[half+i] = x[half+i] + dt*dx[half+i]
		result[i] = x[i] + dt*result[half+i]
	}
	if n%2 == 1 {
		result[n-1] = x[n-1] + dt*dx[n-1]
	}
	return result
}
