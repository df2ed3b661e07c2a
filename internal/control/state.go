package control

import "github.com/san-kum/pidtune/internal/signal"

// Terms breaks the last output into its contributions. In velocity mode
// they are the increments applied on that tick.
type Terms struct {
	P     float64 `json:"p"`
	I     float64 `json:"i"`
	D     float64 `json:"d"`
	Error float64 `json:"error"`
}

// State is the running memory of a controller between ticks.
type State struct {
	I       float64
	DFilter float64
	YPrev   float64
	EPrev   float64
	EPPrev  float64
	SPFilt  float64
	PVFilt  float64
	U       float64
	UPrev   float64
	Last    Terms
	// Primed is false until the first step has seeded the previous values.
	Primed bool
}

// Reset returns a fresh state with the integral at i0 and the output at u0.
func (p Params) Reset(u0, i0 float64) State {
	return State{I: i0, U: u0, UPrev: u0}
}

// Step runs one controller tick and returns the advanced state and the
// clamped output. p is not modified.
func (p Params) Step(s State, sp, pv, dt float64) (State, float64) {
	if !s.Primed {
		s.SPFilt, s.PVFilt = sp, pv
	}
	sp = signal.Lowpass(s.SPFilt, sp, p.TauSP, dt)
	s.SPFilt = sp
	y := signal.Lowpass(s.PVFilt, pv, p.TauPV, dt)
	s.PVFilt = y

	if !s.Primed {
		s.YPrev = y
		s.EPrev = sp - y
		s.EPPrev = p.Beta*sp - y
		s.Primed = true
	}

	var u float64
	s, u = vendorFor(p.Vendor).Step(p, s, sp, y, dt)

	s.YPrev = y
	s.EPrev = sp - y
	s.EPPrev = p.Beta*sp - y
	s.UPrev = s.U
	s.U = u
	return s, u
}
