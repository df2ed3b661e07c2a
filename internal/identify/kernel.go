package identify

import "math"

const minTau = 1e-9

// fopdtKernel fills g with the unit step response of a first-order lag
// starting at t = start.
func fopdtKernel(g, t []float64, start, tau float64) {
	tau = math.Max(minTau, tau)
	for i, ti := range t {
		tt := ti - start
		if tt <= 0 {
			g[i] = 0
			continue
		}
		g[i] = 1 - math.Exp(-tt/tau)
	}
}

// sopdtKernel fills g with the unit step response of two lags in series.
// Equal poles use the repeated-root form.
func sopdtKernel(g, t []float64, start, tau1, tau2 float64) {
	tau1 = math.Max(minTau, tau1)
	tau2 = math.Max(minTau, tau2)
	equal := math.Abs(tau1-tau2) < 1e-9
	tau := (tau1 + tau2) / 2
	for i, ti := range t {
		tt := ti - start
		switch {
		case tt < 0:
			g[i] = 0
		case equal:
			g[i] = 1 - (1+tt/tau)*math.Exp(-tt/tau)
		default:
			g[i] = 1 - (tau1*math.Exp(-tt/tau1)-tau2*math.Exp(-tt/tau2))/(tau1-tau2)
		}
	}
}

// rampKernel fills g with a unit ramp starting at t = start.
func rampKernel(g, t []float64, start float64) {
	for i, ti := range t {
		g[i] = math.Max(0, ti-start)
	}
}
