package signal

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Clamp saturates v to [lo, hi].
func Clamp[T constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Lowpass advances a first-order exponential filter by one sample.
// A non-positive tau bypasses the filter and returns x unchanged.
func Lowpass(prev, x, tau, dt float64) float64 {
	if tau <= 0 {
		return x
	}
	a := math.Exp(-dt / math.Max(tau, 1e-12))
	return a*prev + (1-a)*x
}

// DeadTime is a fixed-length delay line. Each Push stores one sample and
// returns the sample pushed Steps() ticks earlier, zero until the line has
// filled. A zero-length line passes samples straight through.
type DeadTime struct {
	buf   []float64
	idx   int
	steps int
}

func NewDeadTime(steps int) *DeadTime {
	if steps < 0 {
		steps = 0
	}
	return &DeadTime{
		buf:   make([]float64, max(1, steps)),
		steps: steps,
	}
}

// DeadTimeFor sizes a delay line for a transport delay in seconds at step dt.
func DeadTimeFor(delay, dt float64) *DeadTime {
	if dt <= 0 || delay <= 0 {
		return NewDeadTime(0)
	}
	return NewDeadTime(int(math.Round(delay / dt)))
}

func (d *DeadTime) Push(x float64) float64 {
	if d.steps == 0 {
		return x
	}
	out := d.buf[d.idx]
	d.buf[d.idx] = x
	d.idx = (d.idx + 1) % len(d.buf)
	return out
}

func (d *DeadTime) Steps() int { return d.steps }

// Reset fills the line with v, as if the input had been constant.
func (d *DeadTime) Reset(v float64) {
	for i := range d.buf {
		d.buf[i] = v
	}
	d.idx = 0
}
