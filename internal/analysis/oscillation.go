package analysis

import (
	"fmt"
	"math"

	"github.com/san-kum/pidtune/internal/dynamo"
)

type OscillationOptions struct {
	// MinCycles is the number of full periods the error must complete.
	MinCycles int
	// MinStrength is the least share of spectral power at the peak.
	MinStrength float64
	// Hysteresis, as a fraction of the error's standard deviation, keeps
	// noise from counting as zero crossings.
	Hysteresis float64
}

func DefaultOscillationOptions() OscillationOptions {
	return OscillationOptions{MinCycles: 3, MinStrength: 0.5, Hysteresis: 0.1}
}

type Oscillation struct {
	Period      float64 `json:"period"`
	Amplitude   float64 `json:"amplitude"`
	Strength    float64 `json:"strength"`
	Crossings   int     `json:"crossings"`
	Oscillating bool    `json:"oscillating"`
}

// DetectOscillation looks for a sustained oscillation in e sampled at
// times t. Sampling is taken to be uniform.
func DetectOscillation(t, e []float64, opts OscillationOptions) (Oscillation, error) {
	if len(t) != len(e) {
		return Oscillation{}, fmt.Errorf("%w: t=%d e=%d", dynamo.ErrLengthMismatch, len(t), len(e))
	}
	n := len(e)
	if n < 8 {
		return Oscillation{}, fmt.Errorf("%w: oscillation check needs at least 8 samples, got %d", dynamo.ErrInsufficientData, n)
	}
	dt := (t[n-1] - t[0]) / float64(n-1)

	freqs, power, err := Spectrum(e, dt)
	if err != nil {
		return Oscillation{}, err
	}
	k, strength := dominant(power)

	var osc Oscillation
	osc.Strength = strength
	if freqs[k] > 0 && power[k] > 0 {
		osc.Period = 1 / freqs[k]
	}

	mean, std := meanStd(e)
	lo, hi := e[0], e[0]
	for _, v := range e {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	osc.Amplitude = (hi - lo) / 2
	osc.Crossings = crossings(e, mean, opts.Hysteresis*std)

	osc.Oscillating = std > 0 &&
		osc.Crossings >= 2*opts.MinCycles &&
		strength >= opts.MinStrength
	return osc, nil
}

func meanStd(x []float64) (float64, float64) {
	mean := 0.0
	for _, v := range x {
		mean += v
	}
	mean /= float64(len(x))
	ss := 0.0
	for _, v := range x {
		ss += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(ss / float64(len(x)))
}

// crossings counts sign changes of x-level. The sign only flips once x
// leaves the band of half-width band around level.
func crossings(x []float64, level, band float64) int {
	sign, count := 0, 0
	for _, v := range x {
		d := v - level
		switch {
		case d > band && sign <= 0:
			if sign < 0 {
				count++
			}
			sign = 1
		case d < -band && sign >= 0:
			if sign > 0 {
				count++
			}
			sign = -1
		}
	}
	return count
}
