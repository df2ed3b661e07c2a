package process

import (
	"fmt"

	"github.com/san-kum/pidtune/internal/dynamo"
	"github.com/san-kum/pidtune/internal/integrators"
	"github.com/san-kum/pidtune/internal/model"
)

// Plant is a running instance of a process model. The model is fixed for
// the life of the plant; only the integrated state changes between ticks.
// Dead time is not applied here; the simulator owns the delay line.
type Plant struct {
	model model.Model
	sys   dynamo.System
	integ dynamo.Integrator
	x     dynamo.State
}

type Option func(*Plant)

// WithIntegrator replaces the default stepping method.
func WithIntegrator(integ dynamo.Integrator) Option {
	return func(p *Plant) { p.integ = integ }
}

// New validates the model and returns a plant at rest at y=0. FOPDT and
// integrating plants default to explicit Euler; SOPDT advances its rate
// state first (semi-implicit Euler).
func New(m model.Model, opts ...Option) (*Plant, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil model", dynamo.ErrInvalidModel)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	p := &Plant{model: m}
	switch v := m.(type) {
	case model.FOPDT:
		p.sys = fopdt{k: v.K, tau: v.Tau}
		p.integ = integrators.NewEuler()
	case model.SOPDT:
		p.sys = sopdt{k: v.K, tau1: v.Tau1, tau2: v.Tau2}
		p.integ = integrators.NewSemiImplicitEuler()
	case model.Integrator:
		p.sys = integrating{k: v.K, ki: v.Ki, leak: v.Leak, yss: v.YSS}
		p.integ = integrators.NewEuler()
	default:
		return nil, fmt.Errorf("%w: unsupported model %T", dynamo.ErrInvalidModel, m)
	}
	for _, opt := range opts {
		opt(p)
	}
	p.x = make(dynamo.State, p.sys.StateDim())
	return p, nil
}

// Reset puts the plant at y0 with all rates zero.
func (p *Plant) Reset(y0 float64) {
	for i := range p.x {
		p.x[i] = 0
	}
	p.x[0] = y0
}

// Step advances one tick with input u and disturbance d, returning y.
func (p *Plant) Step(u, d, dt float64) float64 {
	p.x = p.integ.Step(p.sys, p.x, dynamo.Input{U: u, D: d}, dt)
	return p.x[0]
}

func (p *Plant) Y() float64 { return p.x[0] }

func (p *Plant) State() dynamo.State { return p.x.Clone() }

func (p *Plant) Model() model.Model { return p.model }
