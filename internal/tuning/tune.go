package tuning

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/pidtune/internal/control"
	"github.com/san-kum/pidtune/internal/dynamo"
	"github.com/san-kum/pidtune/internal/model"
	"github.com/san-kum/pidtune/internal/optim"
)

type Rule string

const (
	SIMC           Rule = "simc"
	Lambda         Rule = "lambda"
	ZieglerNichols Rule = "zn"
)

var Rules = []Rule{SIMC, Lambda, ZieglerNichols}

func ParseRule(s string) (Rule, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "simc", "skogestad":
		return SIMC, nil
	case "lambda", "imc":
		return Lambda, nil
	case "zn", "ziegler-nichols", "zieglernichols":
		return ZieglerNichols, nil
	}
	return "", fmt.Errorf("%w: %q", dynamo.ErrUnknownRule, s)
}

// FromModel applies rule to m. knob is tau_c for SIMC and lambda for
// Lambda; a knob that is not positive selects the default for the model
// type. A default SIMC tau_c comes with the improved rule (tau + theta/3),
// an explicit one with the original rule. Ziegler-Nichols has no knob.
func FromModel(m model.Model, rule Rule, knob float64) (Settings, error) {
	if m == nil {
		return Settings{}, fmt.Errorf("%w: no model", dynamo.ErrInvalidModel)
	}
	if err := m.Validate(); err != nil {
		return Settings{}, fmt.Errorf("%w: %v", dynamo.ErrInvalidModel, err)
	}
	useDefault := !(knob > 0)

	var s Settings
	switch rule {
	case SIMC:
		s = simc(m, knob, useDefault)
	case Lambda:
		s = lambda(m, knob, useDefault)
	case ZieglerNichols:
		s = zieglerNichols(m)
	default:
		return Settings{}, fmt.Errorf("%w: %q", dynamo.ErrUnknownRule, rule)
	}

	if !s.finite() {
		return Settings{}, fmt.Errorf("%w: %s gives non-finite settings for %s", dynamo.ErrInvalidModel, rule, m)
	}
	return s, nil
}

func simc(m model.Model, tauC float64, useDefault bool) Settings {
	switch m := m.(type) {
	case model.FOPDT:
		if useDefault {
			tauC = TauCRecommendation(m.Theta)
		}
		return SIMCFOPDT(m.K, m.Tau, m.Theta, tauC, useDefault)
	case model.SOPDT:
		m = m.Ordered()
		if useDefault {
			tauC = TauCRecommendation(m.Theta)
		}
		return SIMCSOPDT(m.K, m.Tau1, m.Tau2, m.Theta, tauC, useDefault)
	case model.Integrator:
		if useDefault {
			tauC = math.Max(1, m.Theta)
		}
		return SIMCIntegrator(m.Slope(), m.Theta, tauC)
	}
	return Settings{Kp: math.NaN()}
}

func lambda(m model.Model, lam float64, useDefault bool) Settings {
	switch m := m.(type) {
	case model.FOPDT:
		if useDefault {
			lam = math.Max(m.Theta, 1)
		}
		return LambdaFOPDT(m.K, m.Tau, m.Theta, lam)
	case model.SOPDT:
		m = m.Ordered()
		if useDefault {
			lam = math.Max(m.Theta, 1)
		}
		return LambdaSOPDT(m.K, m.Tau1, m.Tau2, m.Theta, lam)
	case model.Integrator:
		if useDefault {
			lam = math.Max(2*m.Theta, 1)
		}
		return LambdaIntegrator(m.Slope(), m.Theta, lam)
	}
	return Settings{Kp: math.NaN()}
}

func zieglerNichols(m model.Model) Settings {
	switch m := m.(type) {
	case model.FOPDT:
		return ZieglerNicholsFOPDT(m.K, m.Tau, m.Theta)
	case model.SOPDT:
		return ZieglerNicholsSOPDT(m.K, m.Tau1, m.Tau2, m.Theta)
	case model.Integrator:
		return ZieglerNicholsIntegrator(m.Slope(), m.Theta)
	}
	return Settings{Kp: math.NaN()}
}

// FromRecord is FromModel for a tagged model record.
func FromRecord(r model.Record, rule Rule, knob float64) (Settings, error) {
	m, err := model.FromRecord(r)
	if err != nil {
		return Settings{}, err
	}
	return FromModel(m, rule, knob)
}

// Params returns controller parameters carrying this tuning, with the form
// chosen from the active terms.
func (s Settings) Params() control.Params {
	return control.Tuned(s.Kp, s.Ti, s.Td)
}

// Apply copies the tuning onto existing controller parameters, keeping
// limits, vendor and filters.
func (s Settings) Apply(p control.Params) control.Params {
	t := s.Params()
	p.Kp, p.Ti, p.Td, p.Form = t.Kp, t.Ti, t.Td, t.Form
	return p
}

type SweepPoint struct {
	TauC     float64  `json:"tau_c"`
	Settings Settings `json:"settings"`
}

// SweepTauC evaluates the SIMC rule over a range of closed-loop time
// constants. Non-positive entries are skipped.
func SweepTauC(m model.Model, grid []float64) ([]SweepPoint, error) {
	g := optim.NewGridSearch([]string{"tau_c"}, [][]float64{grid})
	out := make([]SweepPoint, 0, g.Size())
	for x := range g.Points() {
		if x[0] <= 0 {
			continue
		}
		s, err := FromModel(m, SIMC, x[0])
		if err != nil {
			return nil, err
		}
		out = append(out, SweepPoint{TauC: x[0], Settings: s})
	}
	return out, nil
}
