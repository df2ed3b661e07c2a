package model

import (
	"fmt"
	"math"

	"github.com/san-kum/pidtune/internal/dynamo"
)

type Kind string

const (
	KindFOPDT      Kind = "FOPDT"
	KindSOPDT      Kind = "SOPDT"
	KindIntegrator Kind = "Integrating"
)

// Model is one of FOPDT, SOPDT or Integrator.
type Model interface {
	Kind() Kind
	DeadTime() float64
	Validate() error
	Record() Record
	String() string
	isModel()
}

// FOPDT is a first-order lag with gain K, time constant Tau and dead time Theta.
type FOPDT struct {
	K     float64 `json:"K" yaml:"K"`
	Tau   float64 `json:"tau" yaml:"tau"`
	Theta float64 `json:"theta" yaml:"theta"`
}

// SOPDT is two first-order lags in series. By convention Tau1 >= Tau2.
type SOPDT struct {
	K     float64 `json:"K" yaml:"K"`
	Tau1  float64 `json:"tau1" yaml:"tau1"`
	Tau2  float64 `json:"tau2" yaml:"tau2"`
	Theta float64 `json:"theta" yaml:"theta"`
}

// Integrator is an integrating process with an optional leak towards YSS.
// Its open-loop slope per unit input is K*Ki.
type Integrator struct {
	K     float64 `json:"K" yaml:"K"`
	Ki    float64 `json:"Ki" yaml:"Ki"`
	Leak  float64 `json:"leak" yaml:"leak"`
	YSS   float64 `json:"y_ss" yaml:"y_ss"`
	Theta float64 `json:"theta" yaml:"theta"`
}

func (FOPDT) Kind() Kind      { return KindFOPDT }
func (SOPDT) Kind() Kind      { return KindSOPDT }
func (Integrator) Kind() Kind { return KindIntegrator }

func (m FOPDT) DeadTime() float64      { return m.Theta }
func (m SOPDT) DeadTime() float64      { return m.Theta }
func (m Integrator) DeadTime() float64 { return m.Theta }

func (FOPDT) isModel()      {}
func (SOPDT) isModel()      {}
func (Integrator) isModel() {}

func (m FOPDT) Validate() error {
	if err := finite(m.K, m.Tau, m.Theta); err != nil {
		return err
	}
	if m.Tau <= 0 {
		return fmt.Errorf("%w: tau must be positive, got %g", dynamo.ErrInvalidParameter, m.Tau)
	}
	return checkDeadTime(m.Theta)
}

func (m SOPDT) Validate() error {
	if err := finite(m.K, m.Tau1, m.Tau2, m.Theta); err != nil {
		return err
	}
	if m.Tau1 <= 0 || m.Tau2 <= 0 {
		return fmt.Errorf("%w: tau1 and tau2 must be positive, got %g and %g", dynamo.ErrInvalidParameter, m.Tau1, m.Tau2)
	}
	return checkDeadTime(m.Theta)
}

func (m Integrator) Validate() error {
	if err := finite(m.K, m.Ki, m.Leak, m.YSS, m.Theta); err != nil {
		return err
	}
	if m.Leak < 0 {
		return fmt.Errorf("%w: leak must be non-negative, got %g", dynamo.ErrInvalidParameter, m.Leak)
	}
	return checkDeadTime(m.Theta)
}

// Ordered returns the model with Tau1 >= Tau2.
func (m SOPDT) Ordered() SOPDT {
	if m.Tau1 < m.Tau2 {
		m.Tau1, m.Tau2 = m.Tau2, m.Tau1
	}
	return m
}

// Slope is the integrating gain k' seen by tuning rules.
func (m Integrator) Slope() float64 {
	return m.K * m.Ki
}

func (m FOPDT) String() string {
	return fmt.Sprintf("FOPDT(K=%.4g, tau=%.4g, theta=%.4g)", m.K, m.Tau, m.Theta)
}

func (m SOPDT) String() string {
	return fmt.Sprintf("SOPDT(K=%.4g, tau1=%.4g, tau2=%.4g, theta=%.4g)", m.K, m.Tau1, m.Tau2, m.Theta)
}

func (m Integrator) String() string {
	return fmt.Sprintf("Integrating(K=%.4g, Ki=%.4g, leak=%.4g, theta=%.4g)", m.K, m.Ki, m.Leak, m.Theta)
}

func finite(vals ...float64) error {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value %g", dynamo.ErrInvalidParameter, v)
		}
	}
	return nil
}

func checkDeadTime(theta float64) error {
	if theta < 0 {
		return fmt.Errorf("%w: theta must be non-negative, got %g", dynamo.ErrInvalidParameter, theta)
	}
	return nil
}

// ScaleGain returns m with its steady-state gain multiplied by f. It converts
// between gains per percent of output and gains per unit fraction.
func ScaleGain(m Model, f float64) Model {
	switch v := m.(type) {
	case FOPDT:
		v.K *= f
		return v
	case SOPDT:
		v.K *= f
		return v
	case Integrator:
		v.K *= f
		return v
	}
	return m
}
