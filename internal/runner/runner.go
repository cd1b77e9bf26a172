// Package runner fans a batch of diagnosis targets out over a bounded worker
// pool and folds the outcomes into one persisted run report.
package runner

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/hugo-lorenzo-mato/netdiag/internal/probe"
	"github.com/hugo-lorenzo-mato/netdiag/internal/report"
)

// Diagnoser runs the probe stages for one target.
type Diagnoser interface {
	Diagnose(ctx context.Context, target probe.Target) probe.Result
}

// CycleFunc runs one monitoring cycle. The runner invokes it after every
// batch so resource state is evaluated at a quiet point.
type CycleFunc func(ctx context.Context)

// Runner executes diagnosis batches.
type Runner struct {
	diagnoser   Diagnoser
	writer      *report.Writer
	configName  string
	concurrency int64
	timeout     time.Duration
	cycle       CycleFunc
	logger      *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithWriter persists each run report through the writer.
func WithWriter(w *report.Writer) Option {
	return func(r *Runner) { r.writer = w }
}

// WithCycle registers the post-batch monitoring cycle.
func WithCycle(fn CycleFunc) Option {
	return func(r *Runner) { r.cycle = fn }
}

// WithTimeout bounds one whole batch run.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) { r.timeout = d }
}

// New creates a runner. concurrency caps how many targets are diagnosed at
// once.
func New(diagnoser Diagnoser, configName string, concurrency int, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	r := &Runner{
		diagnoser:   diagnoser,
		configName:  configName,
		concurrency: int64(concurrency),
		timeout:     10 * time.Minute,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run diagnoses every target and returns the run report. Individual target
// failures land in the per-target results; Run itself fails only on context
// cancellation or report persistence errors.
func (r *Runner) Run(ctx context.Context, targets []probe.Target) (report.RunReport, error) {
	runID := uuid.NewString()[:8]
	started := time.Now()
	logger := r.logger.With("run_id", runID)
	logger.Info("runner: batch started", "targets", len(targets), "concurrency", r.concurrency)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	results := make([]probe.Result, len(targets))
	sem := semaphore.NewWeighted(r.concurrency)
	g, gctx := errgroup.WithContext(ctx)

	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			results[i] = r.diagnoser.Diagnose(gctx, target)
			return nil
		})
	}

	err := g.Wait()
	duration := time.Since(started)

	rep := report.RunReport{
		RunID:      runID,
		ConfigName: r.configName,
		Timestamp:  started,
		Summary:    report.Summarize(results, duration),
		Results:    results,
	}
	if err != nil {
		logger.Warn("runner: batch aborted", "error", err, "duration", duration)
		return rep, err
	}

	logger.Info("runner: batch finished",
		"succeeded", rep.Summary.Succeeded, "failed", rep.Summary.Failed,
		"duration", duration)

	if r.writer != nil {
		if _, werr := r.writer.Write(rep); werr != nil {
			return rep, werr
		}
	}
	if r.cycle != nil {
		r.cycle(ctx)
	}
	return rep, nil
}
