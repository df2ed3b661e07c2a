// Package tuning turns process models into PID settings.
//
// The rule functions are pure. FromModel picks the rule variant for the
// model type and supplies a default tuning knob when none is given.
package tuning

import "math"

// Settings is a PID tuning in ISA standard form.
type Settings struct {
	Kp float64 `json:"Kp" yaml:"kp"`
	Ti float64 `json:"Ti" yaml:"ti"`
	Td float64 `json:"Td" yaml:"td"`
}

func (s Settings) finite() bool {
	for _, v := range []float64{s.Kp, s.Ti, s.Td} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// TauCRecommendation is the tight but robust SIMC closed-loop time
// constant: the dead time itself.
func TauCRecommendation(theta float64) float64 {
	return theta
}

// SIMCFOPDT is Skogestad's PI rule. improved replaces tau by tau + theta/3.
func SIMCFOPDT(k, tau, theta, tauC float64, improved bool) Settings {
	tauEff := tau
	if improved {
		tauEff += theta / 3
	}
	return Settings{
		Kp: tauEff / (k * (tauC + theta)),
		Ti: math.Min(tauEff, 4*(tauC+theta)),
	}
}

// SIMCSOPDT applies the PI rule to the dominant pole and cancels the second
// pole with derivative action.
func SIMCSOPDT(k, tau1, tau2, theta, tauC float64, improved bool) Settings {
	s := SIMCFOPDT(k, tau1, theta, tauC, improved)
	s.Td = tau2
	return s
}

func SIMCIntegrator(kprime, theta, tauC float64) Settings {
	return Settings{
		Kp: 1 / (kprime * (tauC + theta)),
		Ti: 4 * (tauC + theta),
	}
}

// LambdaFOPDT is the IMC PI rule with closed-loop time constant lambda.
func LambdaFOPDT(k, tau, theta, lambda float64) Settings {
	return Settings{
		Kp: tau / (k * (lambda + theta)),
		Ti: tau,
	}
}

// LambdaSOPDT treats the pole sum as the integral time and places the
// remaining interaction in Td.
func LambdaSOPDT(k, tau1, tau2, theta, lambda float64) Settings {
	sum := tau1 + tau2
	return Settings{
		Kp: sum / (k * (lambda + theta)),
		Ti: sum,
		Td: tau1 * tau2 / math.Max(1e-12, sum),
	}
}

// LambdaIntegrator returns Kp = 0 for a non-positive lambda.
func LambdaIntegrator(kprime, theta, lambda float64) Settings {
	s := Settings{Ti: 2*lambda + theta}
	if lambda > 0 {
		s.Kp = 1 / (kprime * lambda)
	}
	return s
}

// ZieglerNicholsFOPDT is the reaction-curve PID rule. Without dead time the
// rule is undefined and (1, 1, 0) is returned.
func ZieglerNicholsFOPDT(k, tau, theta float64) Settings {
	if theta <= 0 {
		return Settings{Kp: 1, Ti: 1}
	}
	return Settings{
		Kp: 1.2 * tau / (k * theta),
		Ti: 2 * theta,
		Td: 0.5 * theta,
	}
}

func ZieglerNicholsSOPDT(k, tau1, tau2, theta float64) Settings {
	return ZieglerNicholsFOPDT(k, tau1+tau2, theta)
}

// ZieglerNicholsIntegrator uses the Tyreus-Luyben variant.
func ZieglerNicholsIntegrator(kprime, theta float64) Settings {
	s := Settings{Kp: 1, Ti: 4 * theta}
	if theta > 0 {
		s.Kp = 0.5 / (kprime * theta)
	}
	return s
}
