package metrics

import "math"

// Overshoot is the peak excursion beyond the final setpoint as a percentage
// of the change from the first measurement to that setpoint.
type Overshoot struct {
	name   string
	y0     float64
	sp     float64
	maxY   float64
	minY   float64
	primed bool
}

func NewOvershoot() *Overshoot {
	return &Overshoot{name: "overshoot_pct"}
}

func (o *Overshoot) Name() string { return o.name }

func (o *Overshoot) Observe(s Sample) {
	if !o.primed {
		o.y0, o.maxY, o.minY, o.primed = s.Y, s.Y, s.Y, true
	}
	o.sp = s.SP
	o.maxY = math.Max(o.maxY, s.Y)
	o.minY = math.Min(o.minY, s.Y)
}

func (o *Overshoot) Value() float64 {
	step := o.sp - o.y0
	if !o.primed || math.Abs(step) < 1e-12 {
		return 0
	}
	if step > 0 {
		return math.Max(0, o.maxY-o.sp) / step * 100
	}
	return math.Max(0, o.sp-o.minY) / -step * 100
}

func (o *Overshoot) Reset() {
	*o = Overshoot{name: o.name}
}

// SettlingTime is the time from the first sample until the measurement
// enters and stays within a band around the final setpoint. The band is a
// fraction of the setpoint change. A response still outside the band at the
// end never settled and reports +Inf.
type SettlingTime struct {
	name    string
	band    float64
	samples []Sample
}

func NewSettlingTime(band float64) *SettlingTime {
	return &SettlingTime{name: "settling_time", band: band}
}

func (m *SettlingTime) Name() string { return m.name }

func (m *SettlingTime) Observe(s Sample) {
	m.samples = append(m.samples, s)
}

func (m *SettlingTime) Value() float64 {
	n := len(m.samples)
	if n == 0 {
		return 0
	}
	sp := m.samples[n-1].SP
	step := math.Abs(sp - m.samples[0].Y)
	if step < 1e-12 {
		step = math.Max(math.Abs(sp), 1)
	}
	tol := m.band * step

	last := -1
	for i, s := range m.samples {
		if math.Abs(s.Y-sp) > tol {
			last = i
		}
	}
	switch {
	case last < 0:
		return 0
	case last == n-1:
		return math.Inf(1)
	}
	return m.samples[last+1].T - m.samples[0].T
}

func (m *SettlingTime) Reset() {
	m.samples = m.samples[:0]
}

// ControlEffort is the mean absolute change of the controller output per tick.
type ControlEffort struct {
	name    string
	sum     float64
	prevU   float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(s Sample) {
	if c.samples > 0 {
		c.sum += math.Abs(s.U - c.prevU)
	}
	c.prevU = s.U
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples < 2 {
		return 0
	}
	return c.sum / float64(c.samples-1)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.prevU = 0
	c.samples = 0
}
