package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/netdiag/internal/config"
	"github.com/hugo-lorenzo-mato/netdiag/internal/probe"
	"github.com/hugo-lorenzo-mato/netdiag/internal/schedule"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run diagnosis batches on the configured schedule",
	Long: `Starts the scheduler: diagnosis batches on schedule.interval and
monitoring cycles on schedule.monitor_interval. Changes to the targets file
are picked up live. Runs until interrupted.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if len(cfg.Targets) == 0 && cfg.TargetsFile == "" {
			return fmt.Errorf("no targets configured; add targets or set targets_file")
		}

		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// The watcher swaps the target list between batches.
		var targets atomic.Value
		targets.Store(cfg.Targets)

		if cfg.TargetsFile != "" {
			w, err := config.NewWatcher(cfg.TargetsFile, 0, func() {
				loaded, err := config.LoadTargets(cfg.TargetsFile)
				if err != nil {
					app.log.Error("reloading targets failed", "error", err)
					return
				}
				targets.Store(loaded)
				app.log.Info("targets reloaded", "count", len(loaded))
			}, app.log.Logger)
			if err != nil {
				return err
			}
			defer w.Close()
		}

		sched := schedule.New(cfg.Schedule.Interval, cfg.Schedule.MonitorInterval,
			func(ctx context.Context) {
				list, _ := targets.Load().([]probe.Target)
				if len(list) == 0 {
					app.log.Warn("scheduled batch skipped, no targets")
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
		<-ctx.Done()
		sched.Stop()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
