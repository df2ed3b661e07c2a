package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/san-kum/pidtune/internal/analysis"
	"github.com/san-kum/pidtune/internal/config"
	"github.com/san-kum/pidtune/internal/export"
	"github.com/san-kum/pidtune/internal/sim"
	"github.com/san-kum/pidtune/internal/storage"
	"github.com/san-kum/pidtune/internal/ui"
)

var outputFile string

func listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(settings.DataDir)
			runs, err := st.List()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				ui.Info("no runs found")
				return nil
			}
			rows := make([][]string, len(runs))
			for i, run := range runs {
				rows[i] = []string{
					run.ID,
					run.Name,
					run.Model.Type,
					run.Timestamp.Format("2006-01-02 15:04:05"),
					fmt.Sprintf("%.2fs", run.Duration),
					fmt.Sprintf("%.4gs", run.Dt),
					string(run.Controller.Vendor),
					formatMetric(run.Metrics["iae"]),
				}
			}
			return ui.Table([]string{"ID", "NAME", "MODEL", "TIME", "DURATION", "DT", "VENDOR", "IAE"}, rows)
		},
	}
}

func loadRun(id string) (*storage.RunMetadata, *sim.Result, error) {
	st := storage.New(settings.DataDir)
	meta, err := st.Load(id)
	if err != nil {
		return nil, nil, err
	}
	tr, err := st.LoadTrajectory(id)
	if err != nil {
		return nil, nil, err
	}
	return meta, &sim.Result{Trajectory: tr, Metrics: meta.Metrics}, nil
}

func plotCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, result, err := loadRun(args[0])
			if err != nil {
				return err
			}
			if result.Trajectory.Len() == 0 {
				return fmt.Errorf("no data to plot")
			}
			ui.Printfln("run: %s", meta.ID)
			ui.Printfln("model: %s %v", meta.Model.Type, meta.Model.Params)
			ui.Printfln("controller: Kp=%.4g Ti=%.4g Td=%.4g (%s)", meta.Controller.Kp, meta.Controller.Ti, meta.Controller.Td, meta.Controller.Vendor)
			plotTrajectory(result.Trajectory, meta.ID)
			return nil
		},
	}
}

// createOutput opens the --output file, or stdout when none is given.
func createOutput() (*os.File, func() error, error) {
	if outputFile == "" || outputFile == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(outputFile)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func exportCSVCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, result, err := loadRun(args[0])
			if err != nil {
				return err
			}
			w, done, err := createOutput()
			if err != nil {
				return err
			}
			if err := storage.ExportCSV(w, result); err != nil {
				_ = done()
				return err
			}
			return done()
		},
	}
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default stdout)")
	return cmd
}

func exportJSONCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, result, err := loadRun(args[0])
			if err != nil {
				return err
			}
			w, done, err := createOutput()
			if err != nil {
				return err
			}
			data := storage.NewExportData(meta.Name, meta.Config(), result)
			if err := storage.ExportJSON(w, data); err != nil {
				_ = done()
				return err
			}
			return done()
		},
	}
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default stdout)")
	return cmd
}

func exportPlotCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export-plot [run_id] [file]",
		Short: "render a run to an .svg or .png file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, result, err := loadRun(args[0])
			if err != nil {
				return err
			}
			title := meta.Name
			if title == "" {
				title = meta.ID
			}
			if err := export.SaveFile(args[1], result.Trajectory, title); err != nil {
				return err
			}
			ui.Success("Plot written to %s", args[1])
			return nil
		},
	}
}

func analyzeCommand() *cobra.Command {
	var from float64
	cmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "check a run for sustained oscillation and plot PV against OP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, result, err := loadRun(args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("from") {
				// skip the setpoint response
				from = meta.Duration / 4
			}
			rep, err := analysis.Analyze(result.Trajectory, from, analysis.DefaultOscillationOptions())
			if err != nil {
				return err
			}
			osc := rep.Oscillation
			ui.Printfln("from t=%.4g: period %.4g, amplitude %.4g, strength %.2f, %d zero crossings",
				from, osc.Period, osc.Amplitude, osc.Strength, osc.Crossings)
			if osc.Oscillating {
				ui.Warning("loop is oscillating")
			} else {
				ui.Success("no sustained oscillation")
			}
			fmt.Println()
			fmt.Print(rep.Portrait.ASCII(60, 16))
			return nil
		},
	}
	cmd.Flags().Float64Var(&from, "from", 0, "start of the analysed window (default a quarter of the run)")
	return cmd
}

func deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [run_id]",
		Short: "delete a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := storage.New(settings.DataDir).Delete(args[0]); err != nil {
				return err
			}
			ui.Success("Deleted run %s", args[0])
			return nil
		},
	}
}

func presetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "presets [kind]",
		Short: "list preset loops",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := config.Kinds()
			if len(args) == 1 {
				kinds = []string{strings.ToLower(args[0])}
			}
			var rows [][]string
			for _, kind := range kinds {
				for _, name := range config.ListPresets(kind) {
					cfg := config.GetPreset(kind, name)
					p := cfg.Simulation.Controller
					rows = append(rows, []string{
						kind + "/" + name,
						fmt.Sprintf("%v", cfg.Simulation.Model.Params),
						fmt.Sprintf("Kp=%.3g Ti=%.3g Td=%.3g", p.Kp, p.Ti, p.Td),
					})
				}
			}
			if len(rows) == 0 {
				ui.Warning("no presets for: %s", args[0])
				return nil
			}
			return ui.Table([]string{"PRESET", "MODEL", "CONTROLLER"}, rows)
		},
	}
}

func modelsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "manage stored models",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "list stored models, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				pers, err := modelStore()
				if err != nil {
					return err
				}
				recs, err := pers.ListModels()
				if err != nil {
					return err
				}
				if len(recs) == 0 {
					ui.Info("no models stored")
					return nil
				}
				rows := make([][]string, len(recs))
				for i, rec := range recs {
					rows[i] = []string{
						rec.ID,
						rec.Name,
						rec.Model.Type,
						rec.Created.Local().Format("2006-01-02 15:04:05"),
						fmt.Sprintf("%.4f", rec.Stats.R2),
					}
				}
				return ui.Table([]string{"ID", "NAME", "TYPE", "CREATED", "R2"}, rows)
			},
		},
		&cobra.Command{
			Use:   "show [id]",
			Short: "show a stored model",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				pers, err := modelStore()
				if err != nil {
					return err
				}
				rec, err := pers.LoadModel(args[0])
				if err != nil {
					return err
				}
				ui.Printfln("id: %s", rec.ID)
				ui.Printfln("name: %s", rec.Name)
				ui.Printfln("created: %s", rec.Created.Local().Format("2006-01-02 15:04:05"))
				ui.Printfln("model: %s %v", rec.Model.Type, rec.Model.Params)
				ui.Printfln("fit: rss=%.6g n=%d r2=%.4f", rec.Stats.RSS, rec.Stats.N, rec.Stats.R2)
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete [id]",
			Short: "delete a stored model",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				pers, err := modelStore()
				if err != nil {
					return err
				}
				if err := pers.DeleteModel(args[0]); err != nil {
					return err
				}
				ui.Success("Deleted model %s", args[0])
				return nil
			},
		},
	)
	return cmd
}
