package experiment

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/san-kum/pidtune/internal/control"
	"github.com/san-kum/pidtune/internal/dynamo"
	"github.com/san-kum/pidtune/internal/identify"
	"github.com/san-kum/pidtune/internal/integrators"
	"github.com/san-kum/pidtune/internal/metrics"
	"github.com/san-kum/pidtune/internal/model"
	"github.com/san-kum/pidtune/internal/tuning"
)

// Fitter identifies one model type from a step test.
type Fitter func(ctx context.Context, s dynamo.Series, opts identify.FitOptions) (*identify.FitResult, error)

// Registry resolves the names used in scenarios and on the command line.
type Registry struct {
	fitters map[string]Fitter
	rules   map[string]tuning.Rule
	vendors map[string]func(kp, ti, td float64) control.Params
}

func NewRegistry() *Registry {
	r := &Registry{
		fitters: make(map[string]Fitter),
		rules:   make(map[string]tuning.Rule),
		vendors: make(map[string]func(kp, ti, td float64) control.Params),
	}

	r.fitters[strings.ToLower(string(model.KindFOPDT))] = identify.FitFOPDT
	r.fitters[strings.ToLower(string(model.KindSOPDT))] = identify.FitSOPDT
	r.fitters[strings.ToLower(string(model.KindIntegrator))] = identify.FitIntegrator

	for _, rule := range tuning.Rules {
		r.rules[string(rule)] = rule
	}

	r.vendors["isa"] = control.Tuned
	r.vendors["emerson"] = func(kp, ti, td float64) control.Params {
		return control.NewEmerson(kp, ti, td, false)
	}
	r.vendors["honeywell"] = func(kp, ti, td float64) control.Params {
		return control.NewHoneywell(kp, ti, td, 0)
	}
	r.vendors["yokogawa"] = func(kp, ti, td float64) control.Params {
		return control.NewYokogawa(kp, ti, td, false)
	}

	return r
}

// GetFitter accepts every spelling model.ParseKind does.
func (r *Registry) GetFitter(name string) (Fitter, error) {
	kind, err := model.ParseKind(name)
	if err != nil {
		return nil, err
	}
	fn, ok := r.fitters[strings.ToLower(string(kind))]
	if !ok {
		return nil, fmt.Errorf("%w: no fitter for %s", dynamo.ErrInvalidModel, kind)
	}
	return fn, nil
}

func (r *Registry) GetRule(name string) (tuning.Rule, error) {
	if name == "" {
		return tuning.SIMC, nil
	}
	return tuning.ParseRule(name)
}

// GetController builds vendor-specific parameters carrying a tuning.
func (r *Registry) GetController(vendor string, s tuning.Settings) (control.Params, error) {
	kind, err := control.ParseVendor(vendor)
	if err != nil {
		return control.Params{}, err
	}
	fn, ok := r.vendors[strings.ToLower(string(kind))]
	if !ok {
		return control.Params{}, fmt.Errorf("%w: %s", dynamo.ErrUnknownVendor, vendor)
	}
	return fn(s.Kp, s.Ti, s.Td), nil
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	return integrators.ByName(name)
}

func (r *Registry) ListModels() []string {
	return sortedKeys(r.fitters)
}

func (r *Registry) ListRules() []string {
	return sortedKeys(r.rules)
}

func (r *Registry) ListVendors() []string {
	return sortedKeys(r.vendors)
}

func (r *Registry) DefaultMetrics() []metrics.Metric {
	return metrics.Standard()
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
