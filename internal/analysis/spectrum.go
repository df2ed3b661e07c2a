package analysis

import (
	"fmt"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/san-kum/pidtune/internal/dynamo"
)

// Spectrum returns the one-sided power spectrum of x sampled every dt,
// after removing the mean. The zero-frequency bin is left out, so freqs[0]
// is 1/(n*dt).
func Spectrum(x []float64, dt float64) (freqs, power []float64, err error) {
	n := len(x)
	if n < 4 {
		return nil, nil, fmt.Errorf("%w: spectrum needs at least 4 samples, got %d", dynamo.ErrInsufficientData, n)
	}
	if !(dt > 0) {
		return nil, nil, fmt.Errorf("%w: dt must be positive, got %g", dynamo.ErrInvalidParameter, dt)
	}

	mean := 0.0
	for _, v := range x {
		mean += v
	}
	mean /= float64(n)
	centred := make([]float64, n)
	for i, v := range x {
		centred[i] = v - mean
	}

	coeffs := fft.FFTReal(centred)
	half := n / 2
	freqs = make([]float64, half)
	power = make([]float64, half)
	for k := 1; k <= half; k++ {
		a := cmplx.Abs(coeffs[k])
		freqs[k-1] = float64(k) / (float64(n) * dt)
		power[k-1] = a * a
	}
	return freqs, power, nil
}

// dominant returns the index of the strongest bin and the share of total
// power held by it and its two neighbours.
func dominant(power []float64) (int, float64) {
	best, total := 0, 0.0
	for i, p := range power {
		total += p
		if p > power[best] {
			best = i
		}
	}
	if total <= 0 {
		return best, 0
	}
	peak := power[best]
	if best > 0 {
		peak += power[best-1]
	}
	if best+1 < len(power) {
		peak += power[best+1]
	}
	return best, peak / total
}
