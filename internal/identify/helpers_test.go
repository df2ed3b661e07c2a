package identify

import (
	"math"

	"github.com/san-kum/pidtune/internal/dynamo"
)

// stepTest builds a 100 s test sampled at 0.1 s with a unit-scaled step of
// size du at t = 20 and the given response to the shifted time axis.
func stepTest(du float64, response func(tt float64) float64) dynamo.Series {
	const n = 1001
	s := dynamo.Series{T: make([]float64, n), U: make([]float64, n), Y: make([]float64, n)}
	for i := range s.T {
		s.T[i] = float64(i) * 0.1
		if i >= 200 {
			s.U[i] = du
		}
	}
	t0 := s.T[200]
	for i := range s.T {
		s.Y[i] = response(s.T[i] - t0)
	}
	return s
}

func fopdtResponse(k, du, tau, theta float64) func(float64) float64 {
	return func(tt float64) float64 {
		if tt-theta <= 0 {
			return 0
		}
		return k * du * (1 - math.Exp(-(tt-theta)/tau))
	}
}

func sopdtResponse(k, du, tau1, tau2, theta float64) func(float64) float64 {
	return func(tt float64) float64 {
		x := tt - theta
		if x < 0 {
			return 0
		}
		return k * du * (1 - (tau1*math.Exp(-x/tau1)-tau2*math.Exp(-x/tau2))/(tau1-tau2))
	}
}
