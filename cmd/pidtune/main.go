package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/san-kum/pidtune/internal/tui"
	"github.com/san-kum/pidtune/internal/ui"
)

var (
	settingsFile string
	verbose      bool
	noColor      bool
)

// main registers the command tree and runs it. With no subcommand the
// interactive preset picker starts.
func main() {
	rootCmd := &cobra.Command{
		Use:   "pidtune",
		Short: "step-test identification and PID tuning lab",
		Long: `pidtune fits FOPDT, SOPDT and integrating models to step-test data,
derives PID settings from them and checks the result in closed-loop
simulation with a valve and a vendor-specific controller.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupUi()
			return initSettings(settingsFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return tui.RunInteractive()
		},
	}

	rootCmd.PersistentFlags().StringVar(&settingsFile, "settings", "", "settings file (default is ./pidtune.yaml, $HOME/.pidtune/pidtune.yaml or /etc/pidtune/pidtune.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "run data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "more verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable terminal colors")

	rootCmd.AddCommand(
		identifyCommand(), stepsCommand(), tuneCommand(),
		simulateCommand(), compareCommand(), liveCommand(),
		listCommand(), plotCommand(), exportCSVCommand(), exportJSONCommand(), exportPlotCommand(), analyzeCommand(), deleteCommand(),
		presetsCommand(), modelsCommand(),
		scenarioCommand(), sweepCommand(), monteCarloCommand(),
		serveCommand(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupUi() {
	ui.SetDebugEnabled(verbose)
	if noColor {
		ui.SetColorEnabled(false)
	}
}
