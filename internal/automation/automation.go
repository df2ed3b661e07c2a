package automation

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/pidtune/internal/control"
	"github.com/san-kum/pidtune/internal/experiment"
	"github.com/san-kum/pidtune/internal/identify"
	"github.com/san-kum/pidtune/internal/model"
	"github.com/san-kum/pidtune/internal/sim"
	"github.com/san-kum/pidtune/internal/storage"
	"github.com/san-kum/pidtune/internal/tuning"
	"github.com/san-kum/pidtune/internal/ui"
)

const (
	ActionIdentify = "identify"
	ActionTune     = "tune"
	ActionSimulate = "simulate"
	ActionCompare  = "compare"
)

// Scenario defines a scripted identify, tune and simulate sequence. Steps
// run in order and each sees the model and controller left by the ones
// before it.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Data        string         `yaml:"data"`
	Loop        *sim.Config    `yaml:"loop"`
	Steps       []ScenarioStep `yaml:"steps"`

	// baseDir resolves relative data paths.
	baseDir string
}

// ScenarioStep is a single step in a scenario
type ScenarioStep struct {
	Action string `yaml:"action"`

	// identify
	Data  string               `yaml:"data"`
	Kind  string               `yaml:"kind"`
	Event bool                 `yaml:"event"`
	Fit   identify.FitOptions  `yaml:"fit"`
	Steps identify.StepOptions `yaml:"steps"`

	// tune, and compare by knob
	Rule   string    `yaml:"rule"`
	Knob   float64   `yaml:"knob"`
	Knobs  []float64 `yaml:"knobs"`
	Vendor string    `yaml:"vendor"`

	// Model replaces the current model. Gains are per percent of output.
	Model *model.Record `yaml:"model"`

	// compare by explicit parameters
	Controllers []control.Params `yaml:"controllers"`

	SaveAs string `yaml:"save_as"`
}

// StepResult is what one step produced.
type StepResult struct {
	Step     int
	Action   string
	Fit      *identify.FitResult
	Model    model.Model
	Settings *tuning.Settings
	Params   *control.Params
	Results  []*sim.Result
	RunIDs   []string
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// the loop template is decoded over the defaults; its model is always
	// replaced by the scenario's current model
	loop := sim.DefaultConfig()
	loop.Model = model.Record{}
	scenario := Scenario{Loop: &loop}
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	var probe struct {
		Loop *yaml.Node `yaml:"loop"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	if probe.Loop == nil {
		scenario.Loop = nil
	}
	scenario.baseDir = filepath.Dir(path)

	for i, step := range scenario.Steps {
		switch strings.ToLower(step.Action) {
		case ActionIdentify, ActionTune, ActionSimulate, ActionCompare:
			scenario.Steps[i].Action = strings.ToLower(step.Action)
		default:
			return nil, fmt.Errorf("step %d: unknown action %q", i+1, step.Action)
		}
	}
	return &scenario, nil
}

func (s *Scenario) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || s.baseDir == "" {
		return path
	}
	return filepath.Join(s.baseDir, path)
}

// Runner executes scenarios. Store may be nil, in which case save_as is
// ignored.
type Runner struct {
	Registry *experiment.Registry
	Store    *storage.Store
}

type runState struct {
	model    model.Model
	settings *tuning.Settings
	params   *control.Params
}

// RunScenario executes all steps in a scenario
func (r *Runner) RunScenario(ctx context.Context, scenario *Scenario) ([]StepResult, error) {
	if r.Registry == nil {
		r.Registry = experiment.NewRegistry()
	}
	results := make([]StepResult, 0, len(scenario.Steps))
	var st runState

	for i, step := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		ui.Info("Running step %d/%d: %s", i+1, len(scenario.Steps), step.Action)

		cfg := experiment.DefaultConfig()
		if scenario.Loop != nil {
			cfg.Loop = *scenario.Loop
		}
		cfg.Kind, cfg.Event, cfg.Fit = step.Kind, step.Event, step.Fit
		if step.Steps != (identify.StepOptions{}) {
			cfg.Steps = step.Steps
		}
		cfg.Rule, cfg.Knob, cfg.Vendor = step.Rule, step.Knob, step.Vendor
		exp := experiment.New(cfg, r.Registry)

		if step.Model != nil {
			m, err := model.FromRecord(*step.Model)
			if err != nil {
				return results, fmt.Errorf("step %d: %w", i+1, err)
			}
			st.model = m
		}

		res := StepResult{Step: i + 1, Action: step.Action}
		var err error
		switch step.Action {
		case ActionIdentify:
			err = r.identify(ctx, scenario, step, exp, &st, &res)
		case ActionTune:
			err = r.tune(exp, &st, &res)
		case ActionSimulate:
			err = r.simulate(ctx, step, exp, &st, &res)
		case ActionCompare:
			err = r.compare(ctx, step, exp, &st, &res)
		default:
			err = fmt.Errorf("unknown action %q", step.Action)
		}
		if err != nil {
			return results, fmt.Errorf("step %d %s: %w", i+1, step.Action, err)
		}
		res.Model = st.model
		results = append(results, res)
	}

	return results, nil
}

func (r *Runner) identify(ctx context.Context, sc *Scenario, step ScenarioStep, exp *experiment.Experiment, st *runState, res *StepResult) error {
	path := step.Data
	if path == "" {
		path = sc.Data
	}
	if path == "" {
		return fmt.Errorf("no data file")
	}
	series, err := storage.LoadSeries(sc.resolve(path))
	if err != nil {
		return err
	}
	fits, _, err := exp.Identify(ctx, series)
	if err != nil {
		return err
	}
	res.Fit = identify.Best(fits)
	st.model = res.Fit.Model
	st.settings, st.params = nil, nil
	ui.Info("Identified %s (R2 %.4f)", st.model, res.Fit.Stats.R2)
	return nil
}

func (r *Runner) tune(exp *experiment.Experiment, st *runState, res *StepResult) error {
	if st.model == nil {
		return fmt.Errorf("no model to tune")
	}
	settings, params, err := exp.Tune(st.model)
	if err != nil {
		return err
	}
	st.settings, st.params = &settings, &params
	res.Settings, res.Params = st.settings, st.params
	ui.Info("Tuned Kp=%.4g Ti=%.4g Td=%.4g", settings.Kp, settings.Ti, settings.Td)
	return nil
}

func (r *Runner) simulate(ctx context.Context, step ScenarioStep, exp *experiment.Experiment, st *runState, res *StepResult) error {
	if st.params == nil {
		if err := r.tune(exp, st, res); err != nil {
			return err
		}
	}
	loop := exp.LoopConfig(st.model, *st.params)
	result, err := sim.Run(ctx, loop)
	if err != nil {
		return err
	}
	res.Results = []*sim.Result{result}
	res.Params = st.params
	return r.save(step.SaveAs, []sim.Config{loop}, res)
}

func (r *Runner) compare(ctx context.Context, step ScenarioStep, exp *experiment.Experiment, st *runState, res *StepResult) error {
	if st.model == nil {
		return fmt.Errorf("no model to compare on")
	}
	params := append([]control.Params(nil), step.Controllers...)
	for _, knob := range step.Knobs {
		cfg := exp.Config()
		cfg.Knob = knob
		_, p, err := experiment.New(cfg, r.Registry).Tune(st.model)
		if err != nil {
			return err
		}
		params = append(params, p)
	}
	if len(params) == 0 {
		return fmt.Errorf("nothing to compare")
	}

	base := exp.LoopConfig(st.model, params[0])
	results, err := sim.Compare(ctx, base, params)
	if err != nil {
		return err
	}
	res.Results = results

	loops := make([]sim.Config, len(params))
	for i, p := range params {
		loops[i] = exp.LoopConfig(st.model, p)
	}
	return r.save(step.SaveAs, loops, res)
}

func (r *Runner) save(name string, loops []sim.Config, res *StepResult) error {
	if name == "" || r.Store == nil {
		return nil
	}
	if err := r.Store.Init(); err != nil {
		return err
	}
	for i, result := range res.Results {
		runName := name
		if len(res.Results) > 1 {
			runName = fmt.Sprintf("%s-%d", name, i+1)
		}
		id, err := r.Store.Save(runName, loops[i], result)
		if err != nil {
			return err
		}
		res.RunIDs = append(res.RunIDs, id)
		ui.Info("Saved run %s", id)
	}
	return nil
}

// SweepResult holds one point of a tau_c sweep.
type SweepResult struct {
	TauC     float64
	Settings tuning.Settings
	Metrics  map[string]float64
}

// RunTauCSweep tunes m by SIMC at every tau_c in grid and simulates each
// tuning on loop. m is per percent of output.
func RunTauCSweep(ctx context.Context, loop sim.Config, m model.Model, grid []float64) ([]SweepResult, error) {
	points, err := tuning.SweepTauC(m, grid)
	if err != nil {
		return nil, err
	}
	params := make([]control.Params, len(points))
	for i, p := range points {
		params[i] = p.Settings.Apply(loop.Controller)
	}

	loop.Model = model.ScaleGain(m, 100).Record()
	runs, err := sim.Compare(ctx, loop, params)
	if err != nil {
		return nil, err
	}

	results := make([]SweepResult, len(points))
	for i, p := range points {
		results[i] = SweepResult{TauC: p.TauC, Settings: p.Settings, Metrics: runs[i].Metrics}
		ui.Debug("Sweep %d/%d: tau_c=%.4f iae=%.4f", i+1, len(points), p.TauC, runs[i].Metrics["iae"])
	}
	return results, nil
}

// MonteCarloConfig checks a fixed tuning against model uncertainty. Each
// trial scales the gain, time constants and dead time of Loop's model by
// independent factors drawn from [1-Perturbation, 1+Perturbation].
type MonteCarloConfig struct {
	Loop         sim.Config
	Perturbation float64
	NumTrials    int
	Seed         int64
}

// MonteCarloResult holds statistics from Monte Carlo runs
type MonteCarloResult struct {
	TrialID int
	Model   model.Record
	Metrics map[string]float64
	Settled bool
}

// RunMonteCarlo executes multiple trials with random perturbations
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig) ([]MonteCarloResult, error) {
	if _, err := model.FromRecord(cfg.Loop.Model); err != nil {
		return nil, err
	}
	results := make([]MonteCarloResult, 0, cfg.NumTrials)

	rng := rand.New(rand.NewSource(cfg.Seed))
	if cfg.Seed == 0 {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	for trial := 0; trial < cfg.NumTrials; trial++ {
		loop := cfg.Loop
		loop.Model = perturb(cfg.Loop.Model, cfg.Perturbation, rng)

		result, err := sim.Run(ctx, loop)
		if err != nil {
			return results, err
		}

		settled := !math.IsInf(result.Metrics["settling_time"], 0)
		results = append(results, MonteCarloResult{
			TrialID: trial,
			Model:   loop.Model,
			Metrics: result.Metrics,
			Settled: settled,
		})

		if (trial+1)%10 == 0 {
			ui.Debug("Monte Carlo: %d/%d trials complete", trial+1, cfg.NumTrials)
		}
	}

	return results, nil
}

var perturbedKeys = []string{"K", "tau", "tau1", "tau2", "Ki", "theta"}

func perturb(r model.Record, p float64, rng *rand.Rand) model.Record {
	out := model.Record{Type: r.Type, Params: make(map[string]float64, len(r.Params))}
	for k, v := range r.Params {
		out.Params[k] = v
	}
	for _, k := range perturbedKeys {
		if v, ok := out.Params[k]; ok {
			out.Params[k] = v * (1 + (rng.Float64()-0.5)*2*p)
		}
	}
	return out
}

// MonteCarloStats computes summary statistics from Monte Carlo runs
func MonteCarloStats(results []MonteCarloResult) (settledCount int, unsettledCount int) {
	for _, r := range results {
		if r.Settled {
			settledCount++
		} else {
			unsettledCount++
		}
	}
	return
}
