package signal

import "math"

// Linspace returns n evenly spaced values from a to b inclusive.
func Linspace(a, b float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = a
		return out
	}
	step := (b - a) / float64(n-1)
	for i := range out {
		out[i] = a + float64(i)*step
	}
	out[n-1] = b
	return out
}

// Geomspace returns n values from a to b inclusive spaced evenly on a log
// scale. Both ends must be positive.
func Geomspace(a, b float64, n int) []float64 {
	if n <= 0 || a <= 0 || b <= 0 {
		return nil
	}
	out := Linspace(math.Log(a), math.Log(b), n)
	for i := range out {
		out[i] = math.Exp(out[i])
	}
	out[0] = a
	if n > 1 {
		out[n-1] = b
	}
	return out
}
