package dynamo

import "fmt"

// Sample is a single timestamped measurement.
type Sample struct {
	T float64 `json:"t"`
	V float64 `json:"v"`
}

// Series holds step-test data: time, drive signal and measured response.
type Series struct {
	T []float64 `json:"t"`
	U []float64 `json:"u"`
	Y []float64 `json:"y"`
}

func (s Series) Len() int { return len(s.T) }

// Validate checks that all three sequences have the same length and that
// time is strictly increasing.
func (s Series) Validate() error {
	if len(s.U) != len(s.T) || len(s.Y) != len(s.T) {
		return fmt.Errorf("%w: t=%d u=%d y=%d", ErrLengthMismatch, len(s.T), len(s.U), len(s.Y))
	}
	for i := 1; i < len(s.T); i++ {
		if s.T[i] <= s.T[i-1] {
			return fmt.Errorf("%w: t[%d]=%g after t[%d]=%g", ErrNotMonotonic, i, s.T[i], i-1, s.T[i-1])
		}
	}
	return nil
}

// Slice returns the half-open window [i, j) sharing the underlying arrays.
func (s Series) Slice(i, j int) Series {
	if i < 0 {
		i = 0
	}
	if j > len(s.T) {
		j = len(s.T)
	}
	if j < i {
		j = i
	}
	return Series{T: s.T[i:j], U: s.U[i:j], Y: s.Y[i:j]}
}

// StepEvent describes one detected step in a drive signal. It is produced
// by the detector and consumed once by a fitter.
type StepEvent struct {
	Index0 int     `json:"idx0"`
	T0     float64 `json:"t0"`
	Du     float64 `json:"du"`
	PV0    float64 `json:"pv0"`
	OP0    float64 `json:"op0"`
	Index1 int     `json:"idx1"`
}
