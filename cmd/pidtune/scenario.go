package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/san-kum/pidtune/internal/automation"
	"github.com/san-kum/pidtune/internal/experiment"
	"github.com/san-kum/pidtune/internal/model"
	"github.com/san-kum/pidtune/internal/signal"
	"github.com/san-kum/pidtune/internal/ui"
)

var (
	trials       int
	perturbation float64
)

func scenarioCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted identify, tune and simulate sequence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := automation.LoadScenario(args[0])
			if err != nil {
				return err
			}
			ui.Section(sc.Name)
			if sc.Description != "" {
				ui.Printfln("%s", sc.Description)
			}
			st, err := runStore()
			if err != nil {
				return err
			}
			runner := &automation.Runner{Registry: experiment.NewRegistry(), Store: st}
			results, err := runner.RunScenario(cmd.Context(), sc)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(results))
			for _, r := range results {
				m := "-"
				if r.Model != nil {
					m = r.Model.String()
				}
				tuned := "-"
				if r.Params != nil {
					tuned = fmt.Sprintf("Kp=%.4g Ti=%.4g Td=%.4g", r.Params.Kp, r.Params.Ti, r.Params.Td)
				}
				iae := make([]string, len(r.Results))
				for i, res := range r.Results {
					iae[i] = formatMetric(res.Metrics["iae"])
				}
				rows = append(rows, []string{
					strconv.Itoa(r.Step), r.Action, m, tuned, strings.Join(iae, " "), strings.Join(r.RunIDs, " "),
				})
			}
			return ui.Table([]string{"#", "ACTION", "MODEL", "CONTROLLER", "IAE", "RUNS"}, rows)
		},
	}
}

func sweepCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "sweep the SIMC closed-loop time constant over a loop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadLoop(cmd)
			if err != nil {
				return err
			}
			m, err := cfg.Model()
			if err != nil {
				return err
			}
			grid := sweepGrid
			if len(grid) == 0 {
				theta := math.Max(m.DeadTime()+cfg.Simulation.DeadTime, cfg.Simulation.Dt)
				grid = signal.Geomspace(theta/2, 8*theta, 9)
			}
			results, err := automation.RunTauCSweep(cmd.Context(), cfg.Simulation, model.ScaleGain(m, 0.01), grid)
			if err != nil {
				return err
			}
			rows := make([][]string, len(results))
			for i, r := range results {
				row := settingsRow(fmt.Sprintf("%.4g", r.TauC), r.Settings)
				for _, metric := range []string{"iae", "overshoot_pct", "settling_time"} {
					row = append(row, formatMetric(r.Metrics[metric]))
				}
				rows[i] = row
			}
			return ui.Table([]string{"TAU_C", "KP", "TI", "TD", "IAE", "OVERSHOOT %", "SETTLING"}, rows)
		},
	}
	addLoopFlags(cmd)
	cmd.Flags().Float64SliceVar(&sweepGrid, "grid", nil, "tau_c values (default derived from the dead time)")
	return cmd
}

func monteCarloCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "check a tuning against random model error",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadLoop(cmd)
			if err != nil {
				return err
			}
			results, err := automation.RunMonteCarlo(cmd.Context(), &automation.MonteCarloConfig{
				Loop:         cfg.Simulation,
				Perturbation: perturbation,
				NumTrials:    trials,
				Seed:         cfg.Simulation.Seed,
			})
			if err != nil {
				return err
			}
			settled, unsettled := automation.MonteCarloStats(results)

			var worst automation.MonteCarloResult
			for _, r := range results {
				if r.Metrics["iae"] > worst.Metrics["iae"] {
					worst = r
				}
			}
			ui.Printfln("trials: %d, settled: %d, not settled: %d", len(results), settled, unsettled)
			if worst.Metrics != nil {
				ui.Printfln("worst iae %.4g with model %v", worst.Metrics["iae"], worst.Model.Params)
			}
			if unsettled > 0 {
				ui.Warning("%d of %d perturbed loops did not settle", unsettled, len(results))
			}
			return nil
		},
	}
	addLoopFlags(cmd)
	cmd.Flags().IntVar(&trials, "trials", 100, "number of trials")
	cmd.Flags().Float64Var(&perturbation, "perturbation", 0.2, "relative model error, 0.2 = ±20%")
	return cmd
}
