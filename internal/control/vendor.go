package control

import (
	"math"

	"github.com/san-kum/pidtune/internal/signal"
)

// Vendor is one DCS flavour of the PID law. Implementations receive the
// filtered setpoint and measurement and return the new state and clamped
// output; the previous-value bookkeeping is done by Params.Step.
type Vendor interface {
	Kind() VendorKind
	Step(p Params, s State, sp, y, dt float64) (State, float64)
}

var vendors = map[VendorKind]Vendor{
	ISA:       isa{},
	Emerson:   emerson{},
	Honeywell: honeywell{},
	Yokogawa:  yokogawa{},
}

func vendorFor(kind VendorKind) Vendor {
	if v, ok := vendors[kind]; ok {
		return v
	}
	return isa{}
}

// filteredDerivative advances the derivative filter for source x, returning
// the new filter output Kp*Td*s/(1+s*Td/N) applied to x. For a constant rate
// the output settles at Kp*Td*rate; N only sets the filter time constant.
func filteredDerivative(p Params, dFilter, x, xPrev, dt float64) float64 {
	rate := (x - xPrev) / math.Max(1e-12, dt)
	a := p.Td / (p.Td + p.N*dt)
	return a*dFilter + (1-a)*p.Kp*p.Td*rate
}

// derivative returns the filtered D term for the configured source.
func derivative(p Params, s *State, on DerivativeOn, e, y, dt float64) float64 {
	if !p.hasDerivative() {
		return 0
	}
	if on == OnError {
		s.DFilter = filteredDerivative(p, s.DFilter, e, s.EPrev, dt)
	} else {
		s.DFilter = filteredDerivative(p, s.DFilter, -y, -s.YPrev, dt)
	}
	return s.DFilter
}

// antiWindup clamps u and, when it saturates, moves the integral by the
// clamp error so that P+I+D sits on the limit.
func antiWindup(p Params, s *State, u float64) float64 {
	lim := signal.Clamp(u, p.UMin, p.UMax)
	if lim != u && p.hasIntegral() {
		s.I += lim - u
	}
	return lim
}

func integralStep(p Params, e, dt float64) float64 {
	return p.Kp * (dt / p.Ti) * e
}

type isa struct{}

func (isa) Kind() VendorKind { return ISA }

func (isa) Step(p Params, s State, sp, y, dt float64) (State, float64) {
	e := sp - y
	P := p.Kp * (p.Beta*sp - y)
	if p.hasIntegral() {
		s.I += integralStep(p, e, dt)
	}
	D := derivative(p, &s, p.DerivOn, e, y, dt)

	u := antiWindup(p, &s, P+s.I+D)
	s.Last = Terms{P: P, I: s.I, D: D, Error: e}
	return s, u
}

// emersonErrorSquaredGain scales the error-squared integral. It is an
// empirical constant carried over for compatibility with existing tunings.
const emersonErrorSquaredGain = 0.1

type emerson struct{}

func (emerson) Kind() VendorKind { return Emerson }

func (emerson) Step(p Params, s State, sp, y, dt float64) (State, float64) {
	e := sp - y
	P := p.Kp * (p.Beta*sp - y)
	if p.hasIntegral() {
		if p.ErrorSquared {
			sign := 1.0
			if e < 0 {
				sign = -1
			}
			s.I += integralStep(p, sign*e*e*emersonErrorSquaredGain, dt)
		} else {
			s.I += integralStep(p, e, dt)
		}
	}
	D := derivative(p, &s, p.DerivOn, e, y, dt)

	u := antiWindup(p, &s, P+s.I+D)
	s.Last = Terms{P: P, I: s.I, D: D, Error: e}
	return s, u
}

// honeywell applies gap action to P and I. D always acts on PV and ignores the gap.
type honeywell struct{}

func (honeywell) Kind() VendorKind { return Honeywell }

func (honeywell) Step(p Params, s State, sp, y, dt float64) (State, float64) {
	e := sp - y
	inGap := p.Gap > 0 && math.Abs(e) < p.Gap

	P := 0.0
	if !inGap {
		P = p.Kp * (p.Beta*sp - y)
		if p.hasIntegral() {
			s.I += integralStep(p, e, dt)
		}
	}
	D := derivative(p, &s, OnPV, e, y, dt)

	u := antiWindup(p, &s, P+s.I+D)
	s.Last = Terms{P: P, I: s.I, D: D, Error: e}
	return s, u
}

// yokogawa runs the position algorithm by default. In velocity mode it adds
// an increment to the last output; there is no absolute integral to wind up,
// so back-calculation is skipped.
type yokogawa struct{}

func (yokogawa) Kind() VendorKind { return Yokogawa }

func (yokogawa) Step(p Params, s State, sp, y, dt float64) (State, float64) {
	if !p.VelocityMode {
		return isa{}.Step(p, s, sp, y, dt)
	}

	e := sp - y
	dP := p.Kp * ((p.Beta*sp - y) - s.EPPrev)
	dI := 0.0
	if p.hasIntegral() {
		dI = integralStep(p, e, dt)
	}
	prevD := s.DFilter
	dD := derivative(p, &s, p.DerivOn, e, y, dt) - prevD

	u := signal.Clamp(s.U+dP+dI+dD, p.UMin, p.UMax)
	s.Last = Terms{P: dP, I: dI, D: dD, Error: e}
	return s, u
}
