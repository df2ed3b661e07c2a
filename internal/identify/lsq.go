package identify

// linearFit solves y ≈ a*x + b in the least-squares sense. A regressor with
// no spread gives a = 0 and b = mean(y).
func linearFit(x, y []float64) (a, b float64) {
	n := float64(len(x))
	if n == 0 {
		return 0, 0
	}
	var xm, ym float64
	for i := range x {
		xm += x[i]
		ym += y[i]
	}
	xm /= n
	ym /= n

	var sxx, sxy float64
	for i := range x {
		dx := x[i] - xm
		sxx += dx * dx
		sxy += dx * (y[i] - ym)
	}
	if sxx == 0 {
		return 0, ym
	}
	a = sxy / sxx
	return a, ym - a*xm
}

// residual returns sum((y - (a*x+b))^2).
func residual(x, y []float64, a, b float64) float64 {
	var sse float64
	for i := range x {
		r := y[i] - (a*x[i] + b)
		sse += r * r
	}
	return sse
}

// profile scales kernel g by du into x and returns the gain, offset and SSE
// of the best linear fit of y.
func profile(x, g, y []float64, du float64) (k, y0, sse float64) {
	for i, gi := range g {
		x[i] = du * gi
	}
	k, y0 = linearFit(x, y)
	return k, y0, residual(x, y, k, y0)
}
