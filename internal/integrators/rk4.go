package integrators

import "github.com/san-kum/pidtune/internal/dynamo"

// RK4 is the classical fourth-order Runge-Kutta method. It keeps its stage
// buffers between steps, so one RK4 must not be shared between plants.
type RK4 struct {
	k       [4]dynamo.State
	scratch dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(n int) {
	if len(r.scratch) == n {
		return
	}
	for i := range r.k {
		r.k[i] = make(dynamo.State, n)
	}
	r.scratch = make(dynamo.State, n)
}

// Step holds the input constant across the interval (zero-order hold).
func (r *RK4) Step(sys dynamo.System, x dynamo.State, in dynamo.Input, dt float64) dynamo.State {
	r.ensureScratch(len(x))

	weights := [4]float64{0, dt / 2, dt / 2, dt}
	for s := range r.k {
		probe := x
		if s > 0 {
			axpy(r.scratch, x, weights[s], r.k[s-1])
			probe = r.scratch
		}
		copy(r.k[s], sys.Derive(probe, in))
	}

	result := make(dynamo.State, len(x))
	for i := range x {
		result[i] = x[i] + dt/6*(r.k[0][i]+2*r.k[1][i]+2*r.k[2][i]+r.k[3][i])
	}
	return result
}

// axpy sets dst = x + a*k.
func axpy(dst, x dynamo.State, a float64, k dynamo.State) {
	for i := range x {
		dst[i] = x[i] + a*k[i]
	}
}
