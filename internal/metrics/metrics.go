// Package metrics scores closed-loop responses.
//
// Each Metric observes a trajectory one sample at a time. Integral metrics
// use rectangle integration over the sample spacing.
package metrics

import "math"

// Sample is one tick of a closed loop.
type Sample struct {
	T  float64
	SP float64
	Y  float64
	U  float64
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

// Standard returns a fresh set of the usual loop metrics.
func Standard() []Metric {
	return []Metric{
		NewIAE(),
		NewISE(),
		NewITAE(),
		NewOvershoot(),
		NewSettlingTime(0.02),
		NewControlEffort(),
	}
}

// Evaluate feeds samples through every metric and returns the values by name.
func Evaluate(ms []Metric, samples []Sample) map[string]float64 {
	for _, m := range ms {
		m.Reset()
	}
	for _, s := range samples {
		for _, m := range ms {
			m.Observe(s)
		}
	}
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}

// errorIntegral integrates weight(t)*f(e) over the samples it observes.
type errorIntegral struct {
	name   string
	f      func(e float64) float64
	timed  bool
	sum    float64
	t0     float64
	prevT  float64
	primed bool
}

func (m *errorIntegral) Name() string { return m.name }

func (m *errorIntegral) Observe(s Sample) {
	if !m.primed {
		m.t0, m.prevT, m.primed = s.T, s.T, true
		return
	}
	dt := s.T - m.prevT
	m.prevT = s.T
	v := m.f(s.SP - s.Y)
	if m.timed {
		v *= s.T - m.t0
	}
	m.sum += v * dt
}

func (m *errorIntegral) Value() float64 { return m.sum }

func (m *errorIntegral) Reset() {
	m.sum, m.t0, m.prevT, m.primed = 0, 0, 0, false
}

func NewIAE() Metric {
	return &errorIntegral{name: "iae", f: math.Abs}
}

func NewISE() Metric {
	return &errorIntegral{name: "ise", f: func(e float64) float64 { return e * e }}
}

func NewITAE() Metric {
	return &errorIntegral{name: "itae", f: math.Abs, timed: true}
}

// Finite returns a copy of values without NaN or infinite entries, which
// have no JSON encoding. An unsettled loop reports an infinite settling
// time, for example.
func Finite(values map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(values))
	for k, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[k] = v
	}
	return out
}
