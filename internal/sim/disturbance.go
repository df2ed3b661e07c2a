package sim

import "sort"

// Disturbance gives the load disturbance at time t.
type Disturbance func(t float64) float64

// StepDisturbance is zero before at and magnitude from then on.
func StepDisturbance(magnitude, at float64) Disturbance {
	return func(t float64) float64 {
		if t >= at {
			return magnitude
		}
		return 0
	}
}

// ScheduleDisturbance holds each breakpoint's value until the next one and
// is zero before the first.
func ScheduleDisturbance(points []Breakpoint) Disturbance {
	sorted := make([]Breakpoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].T < sorted[j].T })

	return func(t float64) float64 {
		i := sort.Search(len(sorted), func(i int) bool { return sorted[i].T > t })
		if i == 0 {
			return 0
		}
		return sorted[i-1].D
	}
}

func (c Config) disturbance() Disturbance {
	switch {
	case c.DisturbanceFunc != nil:
		return c.DisturbanceFunc
	case len(c.Disturbance.Schedule) > 0:
		return ScheduleDisturbance(c.Disturbance.Schedule)
	}
	return StepDisturbance(c.Disturbance.Step, c.Disturbance.At)
}
