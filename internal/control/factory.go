package control

// NewEmerson returns DeltaV-style parameters, optionally with error-squared
// integral action.
func NewEmerson(kp, ti, td float64, errorSquared bool) Params {
	p := Tuned(kp, ti, td)
	p.Vendor = Emerson
	p.ErrorSquared = errorSquared
	return p
}

// NewHoneywell returns Experion-style parameters with a gap band around the
// setpoint in which P and I action is suspended.
func NewHoneywell(kp, ti, td, gap float64) Params {
	p := Tuned(kp, ti, td)
	p.Vendor = Honeywell
	p.Gap = gap
	return p
}

// NewYokogawa returns CENTUM-style parameters. velocity selects the
// incremental algorithm.
func NewYokogawa(kp, ti, td float64, velocity bool) Params {
	p := Tuned(kp, ti, td)
	p.Vendor = Yokogawa
	p.VelocityMode = velocity
	return p
}
