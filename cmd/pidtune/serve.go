package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/san-kum/pidtune/internal/api"
	"github.com/san-kum/pidtune/internal/sim"
	"github.com/san-kum/pidtune/internal/statistics"
	"github.com/san-kum/pidtune/internal/ui"
)

var (
	apiHost string
	apiPort int
	noLoop  bool
)

func serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the REST API and run a live loop exported to /metrics/",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	addLoopFlags(cmd)
	cmd.Flags().StringVar(&apiHost, "host", "", "listen host (default from settings)")
	cmd.Flags().IntVar(&apiPort, "port", 0, "listen port (default from settings)")
	cmd.Flags().Float64Var(&speed, "speed", 1, "simulated seconds per second for the live loop")
	cmd.Flags().BoolVar(&noLoop, "no-loop", false, "serve the API only")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	host, port := settings.Api.Host, settings.Api.Port
	if cmd.Flags().Changed("host") {
		host = apiHost
	}
	if cmd.Flags().Changed("port") {
		port = apiPort
	}
	if port <= 0 || port >= 65535 {
		port = 9000
	}
	addr := fmt.Sprintf("%s:%d", host, port)

	pers, err := modelStore()
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	if err := statistics.Register(registry, collectors.NewGoCollector()); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var g run.Group
	{
		// === REST API and metrics
		server := api.CreateRestService(api.Service{Models: pers, Registry: registry, Logging: verbose})
		g.Add(func() error {
			ui.Info("Serving API at http://%s", addr)
			if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}, func(err error) {
			ui.Info("Stopping API server...")
			timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer timeoutCancel()
			if err := server.Shutdown(timeoutCtx); err != nil {
				ui.Warning("Error stopping API server: %v", err)
			}
		})
	}
	if !noLoop {
		// === live loop
		cfg, err := loadLoop(cmd)
		if err != nil {
			return err
		}
		live, err := sim.NewLive(cfg.Simulation)
		if err != nil {
			return err
		}
		collector := statistics.NewLoopCollector(cfg.Name, settings.Live.ErrorWindow)
		if err := statistics.Register(registry, collector); err != nil {
			return err
		}
		s := settings.Live.Speed
		if cmd.Flags().Changed("speed") {
			s = speed
		}

		g.Add(func() error {
			ui.Info("Running live loop %s at x%g", cfg.Name, s)
			for tk := range live.Ticks(ctx, s) {
				collector.Observe(tk)
			}
			ui.Info("Live loop %s stopped.", cfg.Name)
			return ctx.Err()
		}, func(err error) {
			cancel()
		})
	}
	{
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

		g.Add(func() error {
			select {
			case <-sig:
				ui.Info("Received signal, exiting...")
			case <-ctx.Done():
			}
			return nil
		}, func(err error) {
			signal.Stop(sig)
			cancel()
		})
	}

	if err := g.Run(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	ui.Info("Done.")
	return nil
}
