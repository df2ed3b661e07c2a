package signal

import (
	"math"

	"golang.org/x/exp/slices"
)

// Median returns the median of x, averaging the two middle values for even
// lengths. The median of an empty slice is NaN.
func Median(x []float64) float64 {
	n := len(x)
	if n == 0 {
		return math.NaN()
	}
	s := slices.Clone(x)
	slices.Sort(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return 0.5 * (s[n/2-1] + s[n/2])
}

// MAD is the median absolute deviation of x around center.
func MAD(x []float64, center float64) float64 {
	dev := make([]float64, len(x))
	for i, v := range x {
		dev[i] = math.Abs(v - center)
	}
	return Median(dev)
}

// MovingMedian smooths x with a centred window of win samples, truncated at
// the edges. Windows of one sample or less return a copy of x.
func MovingMedian(x []float64, win int) []float64 {
	if win <= 1 {
		return slices.Clone(x)
	}
	half := win / 2
	out := make([]float64, len(x))
	for i := range x {
		a := max(0, i-half)
		b := min(len(x), i+half+1)
		out[i] = Median(x[a:b])
	}
	return out
}

// Diff returns the first difference of x with x[0] prepended, so the result
// has the same length as x and out[0] is zero.
func Diff(x []float64) []float64 {
	out := make([]float64, len(x))
	for i := 1; i < len(x); i++ {
		out[i] = x[i] - x[i-1]
	}
	return out
}

// ArgMaxAbs returns the index of the element with the largest magnitude,
// the earliest on ties, or -1 for an empty slice.
func ArgMaxAbs(x []float64) int {
	k, best := -1, math.Inf(-1)
	for i, v := range x {
		if a := math.Abs(v); a > best {
			k, best = i, a
		}
	}
	return k
}

// LargestStep finds the largest absolute change between consecutive samples.
// It returns the index k of the sample before the change and x[k+1]-x[k].
// Ties resolve to the earliest index.
func LargestStep(x []float64) (int, float64) {
	if len(x) < 2 {
		return 0, 0
	}
	k := ArgMaxAbs(Diff(x)[1:])
	return k, x[k+1] - x[k]
}

// MedianStep is the median sample spacing of a time axis.
func MedianStep(t []float64) float64 {
	if len(t) < 2 {
		return 0
	}
	d := make([]float64, len(t)-1)
	for i := range d {
		d[i] = t[i+1] - t[i]
	}
	return Median(d)
}

func Sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
