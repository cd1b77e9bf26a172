// Package schedule drives repeated diagnosis runs and the independent
// monitoring cadence on fixed intervals.
package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Task is one unit of scheduled work.
type Task func(ctx context.Context)

// Scheduler runs the batch task and the monitoring task on their own
// tickers. Both fire immediately on Start and then on every interval.
type Scheduler struct {
	runInterval     time.Duration
	monitorInterval time.Duration
	run             Task
	monitor         Task
	logger          *slog.Logger

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
	started  bool
	mu       sync.Mutex
}

// New creates a scheduler. monitor may be nil to disable the monitoring
// cadence.
func New(runInterval, monitorInterval time.Duration, run, monitor Task, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		runInterval:     runInterval,
		monitorInterval: monitorInterval,
		run:             run,
		monitor:         monitor,
		logger:          logger,
	}
}

// Start launches the ticker goroutines. The parent context cancels them;
// Stop also cancels and joins.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.loop(ctx, "run", s.runInterval, s.run)

	if s.monitor != nil && s.monitorInterval > 0 {
		s.wg.Add(1)
		go s.loop(ctx, "monitor", s.monitorInterval, s.monitor)
	}
	s.logger.Info("scheduler: started",
		"run_interval", s.runInterval, "monitor_interval", s.monitorInterval)
}

// loop fires the task immediately, then on every tick. Task overruns delay
// the next fire; cycles never overlap within one loop.
func (s *Scheduler) loop(ctx context.Context, name string, interval time.Duration, task Task) {
	defer s.wg.Done()

	task(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("scheduler: loop stopped", "loop", name)
			return
		case <-ticker.C:
			task(ctx)
		}
	}
}

// Stop cancels both loops and waits for in-flight tasks to return. Safe to
// call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		cancel := s.cancel
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		s.wg.Wait()
		s.logger.Info("scheduler: stopped")
	})
}
