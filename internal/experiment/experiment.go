// Package experiment chains identification, tuning and closed-loop
// simulation of one step test.
package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/pidtune/internal/control"
	"github.com/san-kum/pidtune/internal/dynamo"
	"github.com/san-kum/pidtune/internal/identify"
	"github.com/san-kum/pidtune/internal/model"
	"github.com/san-kum/pidtune/internal/sim"
	"github.com/san-kum/pidtune/internal/signal"
	"github.com/san-kum/pidtune/internal/tuning"
)

// Config selects how each stage runs. The step test's drive signal is taken
// to be controller output in percent.
type Config struct {
	// Kind is the model type to fit. Empty fits every type and keeps the
	// one with the lowest SSE.
	Kind string
	// Event restricts the fit to the window of the largest detected step.
	Event bool
	Steps identify.StepOptions
	Fit   identify.FitOptions

	Rule   string
	Knob   float64
	Vendor string

	// Loop is the closed-loop template. Its model and controller are
	// replaced by the identified model and the tuned controller.
	Loop sim.Config
}

func DefaultConfig() Config {
	return Config{
		Steps: identify.DefaultStepOptions(),
		Rule:  string(tuning.SIMC),
		Loop:  sim.DefaultConfig(),
	}
}

// Report is everything one pipeline run produced.
type Report struct {
	Events   []dynamo.StepEvent
	Fits     []*identify.FitResult
	Best     *identify.FitResult
	Settings tuning.Settings
	Params   control.Params
	Result   *sim.Result
}

func (r *Report) Model() model.Model {
	if r.Best == nil {
		return nil
	}
	return r.Best.Model
}

type Experiment struct {
	cfg      Config
	registry *Registry
}

func New(cfg Config, registry *Registry) *Experiment {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Experiment{cfg: cfg, registry: registry}
}

func (e *Experiment) Config() Config { return e.cfg }

// Identify fits the configured model type, or all of them, to s. With
// Event set the fit uses the window of the largest detected step and fails
// with ErrNoStep when there is none.
func (e *Experiment) Identify(ctx context.Context, s dynamo.Series) ([]*identify.FitResult, []dynamo.StepEvent, error) {
	if err := s.Validate(); err != nil {
		return nil, nil, err
	}
	events, err := identify.DetectSeriesSteps(s, e.cfg.Steps)
	if err != nil {
		return nil, nil, err
	}

	data := s
	if e.cfg.Event {
		if len(events) == 0 {
			return nil, events, dynamo.ErrNoStep
		}
		ev := largest(events)
		data = identify.EventWindow(s, ev, e.cfg.Fit.Lead)
	}

	if e.cfg.Kind == "" {
		fits, err := identify.FitAll(ctx, data, e.cfg.Fit)
		return fits, events, err
	}

	fit, err := e.registry.GetFitter(e.cfg.Kind)
	if err != nil {
		return nil, events, err
	}
	res, err := fit(ctx, data, e.cfg.Fit)
	if err != nil {
		return nil, events, err
	}
	return []*identify.FitResult{res}, events, nil
}

func largest(events []dynamo.StepEvent) dynamo.StepEvent {
	du := make([]float64, len(events))
	for i, ev := range events {
		du[i] = ev.Du
	}
	return events[signal.ArgMaxAbs(du)]
}

// Tune applies the configured rule and vendor to m.
func (e *Experiment) Tune(m model.Model) (tuning.Settings, control.Params, error) {
	rule, err := e.registry.GetRule(e.cfg.Rule)
	if err != nil {
		return tuning.Settings{}, control.Params{}, err
	}
	settings, err := tuning.FromModel(m, rule, e.cfg.Knob)
	if err != nil {
		return settings, control.Params{}, err
	}
	vendor := e.cfg.Vendor
	if vendor == "" {
		vendor = string(e.cfg.Loop.Controller.Vendor)
	}
	params, err := e.registry.GetController(vendor, settings)
	if err != nil {
		return settings, params, err
	}
	// keep the template's limits and filters
	base := e.cfg.Loop.Controller
	params.UMin, params.UMax = base.UMin, base.UMax
	params.TauSP, params.TauPV = base.TauSP, base.TauPV
	return settings, params, nil
}

// LoopConfig returns the closed-loop template with m as the plant and p as
// the controller. m is per percent of output, the plant takes a fraction.
func (e *Experiment) LoopConfig(m model.Model, p control.Params) sim.Config {
	cfg := e.cfg.Loop
	cfg.Model = model.ScaleGain(m, 100).Record()
	cfg.Controller = p
	return cfg
}

func (e *Experiment) Simulate(ctx context.Context, m model.Model, p control.Params) (*sim.Result, error) {
	return sim.Run(ctx, e.LoopConfig(m, p))
}

// Run executes all three stages. The report is returned with whatever
// stages completed, even on error.
func (e *Experiment) Run(ctx context.Context, s dynamo.Series) (*Report, error) {
	report := &Report{}

	fits, events, err := e.Identify(ctx, s)
	report.Events, report.Fits = events, fits
	if err != nil {
		return report, fmt.Errorf("identify: %w", err)
	}
	report.Best = identify.Best(fits)

	report.Settings, report.Params, err = e.Tune(report.Best.Model)
	if err != nil {
		return report, fmt.Errorf("tune: %w", err)
	}

	report.Result, err = e.Simulate(ctx, report.Best.Model, report.Params)
	if err != nil {
		return report, fmt.Errorf("simulate: %w", err)
	}
	return report, nil
}
