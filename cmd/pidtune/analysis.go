package main

import (
	"fmt"
	"strconv"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/pidtune/internal/experiment"
	"github.com/san-kum/pidtune/internal/identify"
	"github.com/san-kum/pidtune/internal/model"
	"github.com/san-kum/pidtune/internal/persistence"
	"github.com/san-kum/pidtune/internal/storage"
	"github.com/san-kum/pidtune/internal/tuning"
	"github.com/san-kum/pidtune/internal/ui"
)

var (
	fitKind   string
	fitEvent  bool
	fitRefine bool
	stepOpts  = identify.DefaultStepOptions()
	saveModel bool
	modelName string
	showPlot  bool

	modelID    string
	modelType  string
	modelK     float64
	modelTau   float64
	modelTau1  float64
	modelTau2  float64
	modelTheta float64
	modelKi    float64
	modelLeak  float64
	rule       string
	knob       float64
	vendor     string
	sweepGrid  []float64
)

func addStepFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&stepOpts.MinStep, "min-step", stepOpts.MinStep, "smallest drive change counted as a step")
	cmd.Flags().Float64Var(&stepOpts.DwellPre, "dwell-pre", stepOpts.DwellPre, "quiet time required before a step")
	cmd.Flags().Float64Var(&stepOpts.DwellPost, "dwell-post", stepOpts.DwellPost, "time required after a step")
	cmd.Flags().IntVar(&stepOpts.SmoothWindow, "smooth", stepOpts.SmoothWindow, "median smoothing window in samples")
}

func identifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identify [csv]",
		Short: "fit process models to a step test",
		Long: `identify reads a step test with columns t,u,y and fits the requested
model type, or all of them when --type is empty. u is controller output
in percent.`,
		Args: cobra.ExactArgs(1),
		RunE: runIdentify,
	}
	cmd.Flags().StringVarP(&fitKind, "type", "t", "", "model type: fopdt, sopdt or integrating (default all)")
	cmd.Flags().BoolVar(&fitEvent, "event", false, "fit only the window of the largest detected step")
	cmd.Flags().BoolVar(&fitRefine, "refine", false, "refine the grid search around the best point")
	cmd.Flags().BoolVar(&saveModel, "save", false, "store the best model")
	cmd.Flags().StringVar(&modelName, "name", "", "name of the stored model")
	cmd.Flags().BoolVar(&showPlot, "plot", false, "plot measured and fitted response")
	addStepFlags(cmd)
	return cmd
}

func runIdentify(cmd *cobra.Command, args []string) error {
	series, err := storage.LoadSeries(args[0])
	if err != nil {
		return err
	}

	cfg := experiment.DefaultConfig()
	cfg.Kind = fitKind
	cfg.Event = fitEvent
	cfg.Steps = stepOpts
	cfg.Fit.Refine = fitRefine
	exp := experiment.New(cfg, experiment.NewRegistry())

	ui.Info("Fitting %d samples from %s", series.Len(), args[0])
	fits, events, err := exp.Identify(cmd.Context(), series)
	if err != nil {
		return err
	}
	if fitEvent && len(events) > 0 {
		ui.Debug("Detected %d step(s)", len(events))
	}

	best := identify.Best(fits)
	rows := make([][]string, 0, len(fits))
	for _, f := range fits {
		mark := ""
		if f == best {
			mark = "*"
		}
		rows = append(rows, []string{
			mark,
			f.Model.String(),
			fmt.Sprintf("%.6g", f.SSE),
			fmt.Sprintf("%.4f", f.Stats.R2),
			strconv.Itoa(f.Stats.N),
		})
	}
	if err := ui.Table([]string{"", "MODEL", "SSE", "R2", "N"}, rows); err != nil {
		return err
	}

	if showPlot && best != nil {
		plotFit(series.Y, best)
	}

	if saveModel && best != nil {
		pers, err := modelStore()
		if err != nil {
			return err
		}
		name := modelName
		if name == "" {
			name = args[0]
		}
		rec, err := pers.SaveModel(persistence.NewFitRecord(name, best))
		if err != nil {
			return err
		}
		ui.Success("Stored model %s", rec.ID)
	}
	return nil
}

func plotFit(y []float64, fit *identify.FitResult) {
	series := [][]float64{fit.YHat}
	if len(y) == len(fit.YHat) {
		series = [][]float64{y, fit.YHat}
	}
	fmt.Println()
	fmt.Println(asciigraph.PlotMany(series,
		asciigraph.Height(12), asciigraph.Width(70),
		asciigraph.SeriesColors(asciigraph.Default, asciigraph.Green),
		asciigraph.Caption("measured and fitted y")))
}

func stepsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "steps [csv]",
		Short: "detect steps in the drive signal of a step test",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			series, err := storage.LoadSeries(args[0])
			if err != nil {
				return err
			}
			events, err := identify.DetectSeriesSteps(series, stepOpts)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				ui.Warning("No steps found")
				return nil
			}
			rows := make([][]string, len(events))
			for i, ev := range events {
				rows[i] = []string{
					strconv.Itoa(i + 1),
					fmt.Sprintf("%.4g", ev.T0),
					fmt.Sprintf("%+.4g", ev.Du),
					fmt.Sprintf("%.4g", ev.OP0),
					fmt.Sprintf("%.4g", ev.PV0),
					fmt.Sprintf("%d-%d", ev.Index0, ev.Index1),
				}
			}
			return ui.Table([]string{"#", "T0", "DU", "OP0", "PV0", "SAMPLES"}, rows)
		},
	}
	addStepFlags(cmd)
	return cmd
}

func tuneCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tune",
		Short: "derive PID settings from a process model",
		Long: `tune applies a tuning rule to a stored model (--model-id) or to one given
by flags. Gains are per percent of controller output.`,
		Args: cobra.NoArgs,
		RunE: runTune,
	}
	cmd.Flags().StringVar(&modelID, "model-id", "", "id of a stored model")
	cmd.Flags().StringVarP(&modelType, "type", "t", "fopdt", "model type")
	cmd.Flags().Float64Var(&modelK, "k", 1, "process gain")
	cmd.Flags().Float64Var(&modelTau, "tau", 10, "time constant (fopdt)")
	cmd.Flags().Float64Var(&modelTau1, "tau1", 10, "first time constant (sopdt)")
	cmd.Flags().Float64Var(&modelTau2, "tau2", 2, "second time constant (sopdt)")
	cmd.Flags().Float64Var(&modelTheta, "theta", 1, "dead time")
	cmd.Flags().Float64Var(&modelKi, "ki", 1, "integrating rate (integrating)")
	cmd.Flags().Float64Var(&modelLeak, "leak", 0, "self-regulation rate (integrating)")
	cmd.Flags().StringVarP(&rule, "rule", "r", string(tuning.SIMC), "tuning rule: simc, lambda or zn")
	cmd.Flags().Float64Var(&knob, "knob", 0, "tau_c for simc, lambda for lambda (0 = rule default)")
	cmd.Flags().StringVar(&vendor, "vendor", "", "also print the controller parameters for this vendor")
	cmd.Flags().Float64SliceVar(&sweepGrid, "sweep", nil, "list of tau_c values to sweep with simc")
	return cmd
}

func modelFromFlags() (model.Model, error) {
	if modelID != "" {
		pers, err := modelStore()
		if err != nil {
			return nil, err
		}
		rec, err := pers.LoadModel(modelID)
		if err != nil {
			return nil, err
		}
		return model.FromRecord(rec.Model)
	}
	kind, err := model.ParseKind(modelType)
	if err != nil {
		return nil, err
	}
	switch kind {
	case model.KindSOPDT:
		return model.FromRecord(model.SOPDT{K: modelK, Tau1: modelTau1, Tau2: modelTau2, Theta: modelTheta}.Record())
	case model.KindIntegrator:
		return model.FromRecord(model.Integrator{K: modelK, Ki: modelKi, Leak: modelLeak, Theta: modelTheta}.Record())
	}
	return model.FromRecord(model.FOPDT{K: modelK, Tau: modelTau, Theta: modelTheta}.Record())
}

func runTune(cmd *cobra.Command, args []string) error {
	m, err := modelFromFlags()
	if err != nil {
		return err
	}
	ui.Info("Model: %s", m)

	if len(sweepGrid) > 0 {
		points, err := tuning.SweepTauC(m, sweepGrid)
		if err != nil {
			return err
		}
		rows := make([][]string, len(points))
		for i, p := range points {
			rows[i] = settingsRow(fmt.Sprintf("%.4g", p.TauC), p.Settings)
		}
		return ui.Table([]string{"TAU_C", "KP", "TI", "TD"}, rows)
	}

	registry := experiment.NewRegistry()
	r, err := registry.GetRule(rule)
	if err != nil {
		return err
	}
	s, err := tuning.FromModel(m, r, knob)
	if err != nil {
		return err
	}
	if err := ui.Table([]string{"RULE", "KP", "TI", "TD"}, [][]string{settingsRow(string(r), s)}); err != nil {
		return err
	}

	if vendor != "" {
		p, err := registry.GetController(vendor, s)
		if err != nil {
			return err
		}
		ui.Printfln("%s: Kp=%.4g Ti=%.4g Td=%.4g N=%g beta=%g deriv_on=%s", p.Vendor, p.Kp, p.Ti, p.Td, p.N, p.Beta, p.DerivOn)
	}
	return nil
}

func settingsRow(label string, s tuning.Settings) []string {
	return []string{label, fmt.Sprintf("%.4g", s.Kp), fmt.Sprintf("%.4g", s.Ti), fmt.Sprintf("%.4g", s.Td)}
}
