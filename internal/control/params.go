package control

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/pidtune/internal/dynamo"
)

type Form string

const (
	FormP   Form = "P"
	FormPI  Form = "PI"
	FormPID Form = "PID"
)

type DerivativeOn string

const (
	OnPV    DerivativeOn = "PV"
	OnError DerivativeOn = "ERROR"
)

type VendorKind string

const (
	ISA       VendorKind = "ISA"
	Emerson   VendorKind = "EMERSON"
	Honeywell VendorKind = "HONEYWELL"
	Yokogawa  VendorKind = "YOKOGAWA"
)

const (
	DefaultN    = 10.0
	DefaultUMin = 0.0
	DefaultUMax = 100.0
)

// Params is the controller configuration. It is a plain value: stepping a
// controller never modifies it.
type Params struct {
	Kp float64 `json:"Kp" yaml:"kp"`
	Ti float64 `json:"Ti" yaml:"ti"`
	Td float64 `json:"Td" yaml:"td"`
	// N sets the derivative filter time constant Td/N.
	N    float64 `json:"N" yaml:"n"`
	UMin float64 `json:"umin" yaml:"umin"`
	UMax float64 `json:"umax" yaml:"umax"`
	Beta float64 `json:"beta" yaml:"beta"`

	Form    Form         `json:"form" yaml:"form"`
	DerivOn DerivativeOn `json:"deriv_on" yaml:"deriv_on"`
	Vendor  VendorKind   `json:"vendor" yaml:"vendor"`

	TauSP float64 `json:"tau_sp" yaml:"tau_sp"`
	TauPV float64 `json:"tau_pv" yaml:"tau_pv"`

	Gap          float64 `json:"gap" yaml:"gap"`
	ErrorSquared bool    `json:"error_squared" yaml:"error_squared"`
	VelocityMode bool    `json:"velocity_mode" yaml:"velocity_mode"`
}

func DefaultParams() Params {
	return Params{
		Kp:      1,
		Ti:      1,
		N:       DefaultN,
		UMin:    DefaultUMin,
		UMax:    DefaultUMax,
		Beta:    1,
		Form:    FormPID,
		DerivOn: OnPV,
		Vendor:  ISA,
	}
}

// Tuned returns DefaultParams with the given tuning. The form follows from
// which terms are active.
func Tuned(kp, ti, td float64) Params {
	p := DefaultParams()
	p.Kp, p.Ti, p.Td = kp, ti, td
	switch {
	case td > 0:
		p.Form = FormPID
	case ti > 0:
		p.Form = FormPI
	default:
		p.Form = FormP
	}
	return p
}

// Validate rejects configurations that cannot be run. Kp may be negative:
// reverse-acting loops carry the sign in the gain.
func (p Params) Validate() error {
	for name, v := range map[string]float64{
		"Kp": p.Kp, "Ti": p.Ti, "Td": p.Td, "N": p.N, "umin": p.UMin, "umax": p.UMax,
		"beta": p.Beta, "tau_sp": p.TauSP, "tau_pv": p.TauPV, "gap": p.Gap,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not finite", dynamo.ErrInvalidParameter, name)
		}
	}
	switch {
	case p.Ti < 0:
		return fmt.Errorf("%w: Ti must be non-negative, got %g", dynamo.ErrInvalidParameter, p.Ti)
	case p.Td < 0:
		return fmt.Errorf("%w: Td must be non-negative, got %g", dynamo.ErrInvalidParameter, p.Td)
	case p.N <= 0:
		return fmt.Errorf("%w: N must be positive, got %g", dynamo.ErrInvalidParameter, p.N)
	case p.Beta < 0 || p.Beta > 2:
		return fmt.Errorf("%w: beta must lie in [0, 2], got %g", dynamo.ErrInvalidParameter, p.Beta)
	case p.UMin >= p.UMax:
		return fmt.Errorf("%w: umin %g must be below umax %g", dynamo.ErrInvalidParameter, p.UMin, p.UMax)
	case p.Gap < 0:
		return fmt.Errorf("%w: gap must be non-negative, got %g", dynamo.ErrInvalidParameter, p.Gap)
	}
	if _, err := ParseForm(string(p.Form)); err != nil {
		return err
	}
	if _, err := ParseDerivativeOn(string(p.DerivOn)); err != nil {
		return err
	}
	if _, err := ParseVendor(string(p.Vendor)); err != nil {
		return err
	}
	return nil
}

func ParseForm(s string) (Form, error) {
	switch Form(strings.ToUpper(s)) {
	case FormP:
		return FormP, nil
	case FormPI:
		return FormPI, nil
	case FormPID, "":
		return FormPID, nil
	}
	return "", fmt.Errorf("%w: unknown form %q", dynamo.ErrInvalidParameter, s)
}

func ParseDerivativeOn(s string) (DerivativeOn, error) {
	switch strings.ToUpper(s) {
	case "PV", "":
		return OnPV, nil
	case "ERROR", "E":
		return OnError, nil
	}
	return "", fmt.Errorf("%w: unknown derivative source %q", dynamo.ErrInvalidParameter, s)
}

// ParseVendor accepts vendor names as well as the product names used on site.
func ParseVendor(s string) (VendorKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ISA", "":
		return ISA, nil
	case "EMERSON", "DELTAV":
		return Emerson, nil
	case "HONEYWELL", "EXPERION", "TDC":
		return Honeywell, nil
	case "YOKOGAWA", "CENTUM":
		return Yokogawa, nil
	}
	return "", fmt.Errorf("%w: %q", dynamo.ErrUnknownVendor, s)
}

func (p Params) hasIntegral() bool {
	return (p.Form == FormPI || p.Form == FormPID) && p.Ti > 1e-12
}

func (p Params) hasDerivative() bool {
	return p.Form == FormPID && p.Td > 0
}
