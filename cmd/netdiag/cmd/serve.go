package cmd

import (
	"context"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/netdiag/internal/api"
	"github.com/hugo-lorenzo-mato/netdiag/internal/probe"
	"github.com/hugo-lorenzo-mato/netdiag/internal/schedule"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the status API, with the scheduler when enabled",
	Long: `Starts the HTTP status API (/health, /api/v1/...). When schedule.enabled
is set, diagnosis batches and monitoring cycles run in the background on
their configured intervals. Runs until interrupted.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		addr := serveAddr
		if addr == "" {
			addr = cfg.Server.Addr
		}

		var sched *schedule.Scheduler
		if cfg.Schedule.Enabled {
			var targets atomic.Value
			targets.Store(cfg.Targets)

			sched = schedule.New(cfg.Schedule.Interval, cfg.Schedule.MonitorInterval,
				func(ctx context.Context) {
					list, _ := targets.Load().([]probe.Target)
					if len(list) == 0 {
						return
					}
					if _, err := app.runner.Run(ctx, list); err != nil {
						app.log.Error("scheduled batch failed", "error", err)
					}
				},
				app.monitoringCycle,
				app.log.Logger,
			)
			sched.Start(ctx)
			defer sched.Stop()
		}

		server := api.NewServer(app.snap, app.mon, app.engine, app.sup,
			api.WithLogger(app.log.Logger),
			api.WithAllowedOrigins(cfg.Server.AllowedOrigins),
			api.WithReports(cfg.Paths.OutputDir, cfg.Name),
		)
		return server.ListenAndServe(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}
