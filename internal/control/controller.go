package control

import (
	"fmt"

	"github.com/san-kum/pidtune/internal/dynamo"
)

type Controller struct {
	params Params
	state  State
}

func New(p Params) (*Controller, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Controller{params: p, state: p.Reset(0, 0)}, nil
}

func (c *Controller) Reset(u0, i0 float64) {
	c.state = c.params.Reset(u0, i0)
}

func (c *Controller) Step(sp, pv, dt float64) float64 {
	var u float64
	c.state, u = c.params.Step(c.state, sp, pv, dt)
	return u
}

func (c *Controller) Terms() Terms   { return c.state.Last }
func (c *Controller) State() State   { return c.state }
func (c *Controller) Params() Params { return c.params }

// SetParams swaps the configuration and keeps the running state, giving a
// bumpless retune.
func (c *Controller) SetParams(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	c.params = p
	return nil
}

func (c *Controller) GetParams() map[string]float64 {
	p := c.params
	return map[string]float64{
		"Kp":     p.Kp,
		"Ti":     p.Ti,
		"Td":     p.Td,
		"N":      p.N,
		"beta":   p.Beta,
		"umin":   p.UMin,
		"umax":   p.UMax,
		"tau_sp": p.TauSP,
		"tau_pv": p.TauPV,
		"gap":    p.Gap,
	}
}

func (c *Controller) SetParam(name string, value float64) error {
	p := c.params
	switch name {
	case "Kp", "kp":
		p.Kp = value
	case "Ti", "ti":
		p.Ti = value
	case "Td", "td":
		p.Td = value
	case "N", "n":
		p.N = value
	case "alpha":
		if value <= 0 {
			return fmt.Errorf("%w: alpha must be positive, got %g", dynamo.ErrInvalidParameter, value)
		}
		p.N = 1 / value
	case "beta":
		p.Beta = value
	case "umin":
		p.UMin = value
	case "umax":
		p.UMax = value
	case "tau_sp":
		p.TauSP = value
	case "tau_pv":
		p.TauPV = value
	case "gap":
		p.Gap = value
	default:
		return fmt.Errorf("%w: unknown parameter: %s", dynamo.ErrInvalidParameter, name)
	}
	return c.SetParams(p)
}

var _ dynamo.Configurable = (*Controller)(nil)
