package main

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/pidtune/internal/config"
	"github.com/san-kum/pidtune/internal/control"
	"github.com/san-kum/pidtune/internal/export"
	"github.com/san-kum/pidtune/internal/model"
	"github.com/san-kum/pidtune/internal/sim"
	"github.com/san-kum/pidtune/internal/statistics"
	"github.com/san-kum/pidtune/internal/tui"
	"github.com/san-kum/pidtune/internal/tuning"
	"github.com/san-kum/pidtune/internal/ui"
)

var (
	configFile string
	preset     string

	kp       float64
	ti       float64
	td       float64
	sp       float64
	dt       float64
	duration float64
	deadTime float64
	noise    float64
	seed     int64

	saveRun  bool
	runName  string
	plotFile string
	rules    []string
	speed    float64
	runs     int
)

func addLoopFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "loop config file (yaml)")
	cmd.Flags().StringVarP(&preset, "preset", "p", "", "use a preset loop, as kind/name")
	cmd.Flags().Float64Var(&kp, "kp", 1, "controller gain")
	cmd.Flags().Float64Var(&ti, "ti", 1, "integral time (0 = off)")
	cmd.Flags().Float64Var(&td, "td", 0, "derivative time")
	cmd.Flags().Float64Var(&sp, "sp", config.DefaultSP, "setpoint")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultTEnd, "duration")
	cmd.Flags().Float64Var(&deadTime, "deadtime", 0, "transport delay added to the model")
	cmd.Flags().Float64Var(&noise, "noise", 0, "measurement noise standard deviation")
	cmd.Flags().Int64Var(&seed, "seed", 0, "noise seed")
	cmd.Flags().StringVar(&vendor, "vendor", "", "controller vendor: isa, emerson, honeywell or yokogawa")
}

// loadLoop builds the loop from a preset or config file, then applies the
// flags the user set explicitly.
func loadLoop(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		kind, name, ok := strings.Cut(preset, "/")
		if !ok {
			return nil, fmt.Errorf("preset must be kind/name, got %q", preset)
		}
		if cfg = config.GetPreset(kind, name); cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(kind))
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	s := &cfg.Simulation
	flags := cmd.Flags()
	if flags.Changed("kp") {
		s.Controller.Kp = kp
	}
	if flags.Changed("ti") {
		s.Controller.Ti = ti
	}
	if flags.Changed("td") {
		s.Controller.Td = td
	}
	if flags.Changed("sp") {
		s.SP = sp
	}
	if flags.Changed("dt") {
		s.Dt = dt
	}
	if flags.Changed("time") {
		s.TEnd = duration
	}
	if flags.Changed("deadtime") {
		s.DeadTime = deadTime
	}
	if flags.Changed("noise") {
		s.NoiseStd = noise
	}
	if flags.Changed("seed") {
		s.Seed = seed
	}
	if flags.Changed("vendor") {
		s.Controller.Vendor = control.VendorKind(vendor)
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = strings.ToLower(cfg.Simulation.Model.Type)
	}
	return cfg, nil
}

func simulateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "run a closed-loop simulation",
		Args:  cobra.NoArgs,
		RunE:  runSimulate,
	}
	addLoopFlags(cmd)
	cmd.Flags().BoolVar(&saveRun, "save", true, "store the run")
	cmd.Flags().StringVar(&runName, "name", "", "run name (default the config name)")
	cmd.Flags().BoolVar(&showPlot, "plot", false, "plot PV and SP in the terminal")
	cmd.Flags().StringVarP(&plotFile, "output", "o", "", "write a plot to this .svg or .png file")
	cmd.Flags().IntVar(&runs, "runs", 1, "repeat with consecutive noise seeds and summarize the metrics")
	return cmd
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadLoop(cmd)
	if err != nil {
		return err
	}
	m, err := cfg.Model()
	if err != nil {
		return err
	}
	ui.Info("Simulating %s with %s controller", m, cfg.Simulation.Controller.Vendor)
	ui.Debug("Controller: %v", cfg.GetControllerParams())

	if runs > 1 {
		return runEnsemble(cmd, cfg)
	}

	start := time.Now()
	result, err := sim.Run(cmd.Context(), cfg.Simulation)
	if err != nil {
		return err
	}
	ui.Debug("Completed %d steps in %v", len(result.Trajectory.T), time.Since(start))

	if err := printMetrics(result.Metrics); err != nil {
		return err
	}
	if showPlot {
		plotTrajectory(result.Trajectory, cfg.Name)
	}
	if plotFile != "" {
		if err := export.SaveFile(plotFile, result.Trajectory, cfg.Name); err != nil {
			return err
		}
		ui.Success("Plot written to %s", plotFile)
	}
	if saveRun {
		st, err := runStore()
		if err != nil {
			return err
		}
		name := runName
		if name == "" {
			name = cfg.Name
		}
		id, err := st.Save(name, cfg.Simulation, result)
		if err != nil {
			return err
		}
		ui.Success("Run id: %s", id)
	}
	return nil
}

// runEnsemble repeats the loop with seeds Seed..Seed+runs-1 and prints the
// spread of each metric. Nothing is stored.
func runEnsemble(cmd *cobra.Command, cfg *config.Config) error {
	if cfg.Simulation.NoiseStd == 0 {
		ui.Warning("Noise is zero, every run will be identical")
	}
	results, err := sim.Ensemble(cmd.Context(), cfg.Simulation, runs, cfg.Simulation.Seed)
	if err != nil {
		return err
	}
	names := make([]string, 0)
	for name := range results[0].Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	rows := make([][]string, len(names))
	for i, name := range names {
		lo, hi, sum := math.Inf(1), math.Inf(-1), 0.0
		for _, r := range results {
			v := r.Metrics[name]
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
			sum += v
		}
		rows[i] = []string{name, formatMetric(sum / float64(len(results))), formatMetric(lo), formatMetric(hi)}
	}
	ui.Info("%d runs", len(results))
	return ui.Table([]string{"METRIC", "MEAN", "MIN", "MAX"}, rows)
}

func printMetrics(values map[string]float64) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	rows := make([][]string, len(names))
	for i, name := range names {
		rows[i] = []string{name, formatMetric(values[name])}
	}
	return ui.Table([]string{"METRIC", "VALUE"}, rows)
}

func formatMetric(v float64) string {
	if math.IsInf(v, 1) {
		return "not settled"
	}
	return fmt.Sprintf("%.6g", v)
}

func plotTrajectory(tr sim.Trajectory, caption string) {
	y, setpoint := downsample(tr.Y, 120), downsample(tr.SP, 120)
	fmt.Println()
	fmt.Println(asciigraph.PlotMany([][]float64{y, setpoint},
		asciigraph.Height(15), asciigraph.Width(len(y)),
		asciigraph.SeriesColors(asciigraph.Green, asciigraph.Yellow),
		asciigraph.Caption(caption+": PV and SP")))
	fmt.Println()
	fmt.Println(asciigraph.Plot(downsample(tr.U, 120),
		asciigraph.Height(6), asciigraph.Caption("OP %")))
}

// downsample keeps every k-th point so that at most n remain.
func downsample(data []float64, n int) []float64 {
	if len(data) <= n {
		return data
	}
	step := (len(data) + n - 1) / n
	out := make([]float64, 0, n)
	for i := 0; i < len(data); i += step {
		out = append(out, data[i])
	}
	return out
}

func compareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "compare tuning rules on the same loop",
		Long: `compare tunes the loop's model with each rule and simulates all of them
concurrently, each with its own controller, valve and plant.`,
		Args: cobra.NoArgs,
		RunE: runCompare,
	}
	addLoopFlags(cmd)
	cmd.Flags().StringSliceVar(&rules, "rules", []string{string(tuning.SIMC), string(tuning.Lambda), string(tuning.ZieglerNichols)}, "rules to compare")
	cmd.Flags().Float64Var(&knob, "knob", 0, "tau_c or lambda for every rule (0 = rule default)")
	return cmd
}

func runCompare(cmd *cobra.Command, args []string) error {
	cfg, err := loadLoop(cmd)
	if err != nil {
		return err
	}
	m, err := cfg.Model()
	if err != nil {
		return err
	}
	// the simulated plant is driven by valve flow as a fraction
	perPercent := model.ScaleGain(m, 0.01)

	params := make([]control.Params, 0, len(rules))
	settings := make([]tuning.Settings, 0, len(rules))
	names := make([]string, 0, len(rules))
	for _, name := range rules {
		r, err := tuning.ParseRule(name)
		if err != nil {
			return err
		}
		s, err := tuning.FromModel(perPercent, r, knob)
		if err != nil {
			return err
		}
		names = append(names, string(r))
		settings = append(settings, s)
		params = append(params, s.Apply(cfg.Simulation.Controller))
	}

	results, err := sim.Compare(cmd.Context(), cfg.Simulation, params)
	if err != nil {
		return err
	}
	rows := make([][]string, len(results))
	for i, res := range results {
		row := settingsRow(names[i], settings[i])
		for _, metric := range []string{"iae", "overshoot_pct", "settling_time", "control_effort"} {
			row = append(row, formatMetric(res.Metrics[metric]))
		}
		rows[i] = row
	}
	return ui.Table([]string{"RULE", "KP", "TI", "TD", "IAE", "OVERSHOOT %", "SETTLING", "EFFORT"}, rows)
}

func liveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "live",
		Short: "run the loop in real time with a terminal dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadLoop(cmd)
			if err != nil {
				return err
			}
			live, err := sim.NewLive(cfg.Simulation)
			if err != nil {
				return err
			}
			s := settings.Live.Speed
			if cmd.Flags().Changed("speed") {
				s = speed
			}
			return tui.RunLive(live, tui.Options{
				Title:     cfg.Name,
				Speed:     s,
				Collector: statistics.NewLoopCollector(cfg.Name, settings.Live.ErrorWindow),
			})
		},
	}
	addLoopFlags(cmd)
	cmd.Flags().Float64Var(&speed, "speed", 1, "simulated seconds per second")
	return cmd
}
