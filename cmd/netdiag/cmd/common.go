package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/hugo-lorenzo-mato/netdiag/internal/diagnostics"
	"github.com/hugo-lorenzo-mato/netdiag/internal/logging"
	"github.com/hugo-lorenzo-mato/netdiag/internal/monitor"
	"github.com/hugo-lorenzo-mato/netdiag/internal/probe"
	"github.com/hugo-lorenzo-mato/netdiag/internal/recovery"
	"github.com/hugo-lorenzo-mato/netdiag/internal/report"
	"github.com/hugo-lorenzo-mato/netdiag/internal/runner"
	"github.com/hugo-lorenzo-mato/netdiag/internal/supervise"
)

// app holds the wired toolkit. One supervisor instance is built at startup
// and injected everywhere; Close tears it down.
type app struct {
	log    *logging.Logger
	files  *logging.FileManager
	sup    *supervise.Supervisor
	snap   *diagnostics.Snapshotter
	mon    *monitor.Monitor
	engine *recovery.Engine
	prober *probe.Prober
	runner *runner.Runner
	writer *report.Writer
}

func newApp() (*app, error) {
	a := &app{}

	level := logging.ParseLevel(cfg.Log.Level)
	a.files = logging.NewFileManager(cfg.Paths.LogDir, level)
	if _, err := a.files.Setup(cfg.Name); err != nil {
		return nil, err
	}

	console := logging.NewHandler(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
	a.log = &logging.Logger{Logger: slog.New(logging.NewFanoutHandler(console, a.files.Handler()))}

	a.sup = supervise.New(a.log.Logger)
	a.snap = diagnostics.NewSnapshotter(a.sup, a.files, a.log.Logger)

	mon, err := monitor.New(cfg.Paths.DataDir, a.log.Logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.mon = mon
	a.mon.SetEnabled(cfg.Monitor.Enabled)
	for _, o := range cfg.Monitor.Rules {
		if err := a.mon.AddRule(o.ToRule()); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.engine = recovery.New(a.sup, a.files, a.log.Logger,
		recovery.WithCacheDir(cfg.Paths.CacheDir),
		recovery.WithPostSnapshot(a.snap.Collect),
	)
	if !cfg.Recovery.Enabled {
		a.engine.Disable()
	}
	for _, o := range cfg.Recovery.Rules {
		if err := a.engine.AddRule(o.ToRule()); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.prober = probe.NewProber(cfg.Probe.ToProbe(), a.sup, a.log.Logger)

	writer, err := report.NewWriter(cfg.Paths.OutputDir, cfg.Name, a.log.Logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.writer = writer

	a.runner = runner.New(a.prober, cfg.Name, cfg.Runner.Concurrency, a.log.Logger,
		runner.WithWriter(a.writer),
		runner.WithTimeout(cfg.Runner.RunTimeout),
		runner.WithCycle(a.monitoringCycle),
	)

	return a, nil
}

// monitoringCycle feeds one snapshot through the monitor and the recovery
// engine. Alert and action failures are logged, never fatal.
func (a *app) monitoringCycle(_ context.Context) {
	snap := a.snap.Collect()
	if err := a.mon.ProcessSnapshot(snap); err != nil {
		a.log.Error("monitoring cycle failed", "error", err)
	}
	a.engine.RunCycle(snap)
}

// Close kills every supervised child and releases the log handlers.
func (a *app) Close() {
	if a.sup != nil {
		a.sup.CleanupAll()
	}
	if a.files != nil {
		_ = a.files.Close()
	}
}
