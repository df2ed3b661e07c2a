package identify

import (
	"fmt"
	"math"

	"github.com/san-kum/pidtune/internal/dynamo"
	"github.com/san-kum/pidtune/internal/signal"
)

// StepOptions controls DetectSteps. Dwell times are in the units of t.
type StepOptions struct {
	MinStep      float64 `json:"min_step" yaml:"min_step"`
	DwellPre     float64 `json:"dwell_pre" yaml:"dwell_pre"`
	DwellPost    float64 `json:"dwell_post" yaml:"dwell_post"`
	SmoothWindow int     `json:"smooth_window" yaml:"smooth_window"`
}

func DefaultStepOptions() StepOptions {
	return StepOptions{
		MinStep:      0.01,
		DwellPre:     1,
		DwellPost:    5,
		SmoothWindow: 5,
	}
}

// DetectSteps finds steps in a drive signal. The signal is median smoothed
// and differenced; samples whose change reaches MinStep become candidates.
// Candidates within DwellPre of the start or DwellPost of the end are
// dropped, and of two candidates closer than half the combined dwell the
// larger one is kept.
//
// PV0 is left at zero; use DetectSeriesSteps to fill it from a measurement.
func DetectSteps(t, act []float64, opts StepOptions) ([]dynamo.StepEvent, error) {
	if len(t) != len(act) {
		return nil, fmt.Errorf("%w: t=%d act=%d", dynamo.ErrLengthMismatch, len(t), len(act))
	}
	if len(t) < 4 {
		return nil, nil
	}

	sm := signal.MovingMedian(act, opts.SmoothWindow)
	d := signal.Diff(sm)

	var out []dynamo.StepEvent
	for k, dk := range d {
		if math.Abs(dk) < opts.MinStep {
			continue
		}
		tt := t[k]
		if tt-t[0] < opts.DwellPre || t[len(t)-1]-tt < opts.DwellPost {
			continue
		}
		ev := dynamo.StepEvent{
			Index0: k,
			T0:     tt,
			Du:     dk,
			OP0:    act[max(0, k-1)],
		}
		if n := len(out); n > 0 && math.Abs(tt-out[n-1].T0) < 0.5*(opts.DwellPre+opts.DwellPost) {
			if math.Abs(dk) > math.Abs(out[n-1].Du) {
				out[n-1] = ev
			}
			continue
		}
		out = append(out, ev)
	}

	for i := range out {
		if i+1 < len(out) {
			out[i].Index1 = out[i+1].Index0
		} else {
			out[i].Index1 = len(t)
		}
	}
	return out, nil
}

// DetectSeriesSteps runs DetectSteps on the drive signal of s and records
// the pre-step measurement of each event.
func DetectSeriesSteps(s dynamo.Series, opts StepOptions) ([]dynamo.StepEvent, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	events, err := DetectSteps(s.T, s.U, opts)
	if err != nil {
		return nil, err
	}
	for i := range events {
		events[i].PV0 = s.Y[max(0, events[i].Index0-1)]
	}
	return events, nil
}

const (
	DefaultCUSUMDrift     = 0.5
	DefaultCUSUMThreshold = 5.0
)

// CUSUM runs a two-sided cumulative sum test on x standardised by its median
// and MAD. drift is subtracted from each standardised sample and an alarm is
// raised when either sum passes threshold. After an alarm both sums restart
// and the reference level is re-estimated from the samples seen so far.
// It returns the alarm indices.
func CUSUM(x []float64, drift, threshold float64) []int {
	if len(x) == 0 {
		return nil
	}
	mu := signal.Median(x)
	scale := signal.MAD(x, mu) + 1e-9

	var idx []int
	gpos, gneg := 0.0, 0.0
	for i, xi := range x {
		z := (xi - mu) / scale
		gpos = math.Max(0, gpos+z-drift)
		gneg = math.Min(0, gneg+z+drift)
		if gpos > threshold || gneg < -threshold {
			idx = append(idx, i)
			gpos, gneg = 0, 0
			mu = signal.Median(x[:i+1])
		}
	}
	return idx
}
