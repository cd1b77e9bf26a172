package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hugo-lorenzo-mato/netdiag/internal/logging"
)

func TestScheduler_FiresImmediatelyAndOnInterval(t *testing.T) {
	var runs atomic.Int32
	s := New(50*time.Millisecond, 0, func(ctx context.Context) {
		runs.Add(1)
	}, nil, logging.NewNop().Logger)

	s.Start(context.Background())
	defer s.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for runs.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := runs.Load(); got < 3 {
		t.Fatalf("got %d runs, want at least 3 (immediate + ticks)", got)
	}
}

func TestScheduler_IndependentMonitorCadence(t *testing.T) {
	var runs, cycles atomic.Int32
	s := New(time.Hour, 30*time.Millisecond,
		func(ctx context.Context) { runs.Add(1) },
		func(ctx context.Context) { cycles.Add(1) },
		logging.NewNop().Logger)

	s.Start(context.Background())
	defer s.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for cycles.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if cycles.Load() < 3 {
		t.Fatalf("monitor cadence did not fire: %d", cycles.Load())
	}
	if runs.Load() != 1 {
		t.Fatalf("run loop fired %d times, want only the immediate run", runs.Load())
	}
}

func TestScheduler_StopJoinsInFlightTask(t *testing.T) {
	release := make(chan struct{})
	var finished atomic.Bool

	s := New(time.Hour, 0, func(ctx context.Context) {
		<-release
		finished.Store(true)
	}, nil, logging.NewNop().Logger)

	s.Start(context.Background())

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Stop returned while a task was still running")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Stop did not return after the task finished")
	}
	if !finished.Load() {
		t.Fatal("task did not finish before Stop returned")
	}
}

func TestScheduler_ParentContextCancels(t *testing.T) {
	var runs atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())

	s := New(20*time.Millisecond, 0, func(ctx context.Context) {
		runs.Add(1)
	}, nil, logging.NewNop().Logger)
	s.Start(ctx)

	deadline := time.Now().Add(time.Second)
	for runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	time.Sleep(100 * time.Millisecond)
	after := runs.Load()
	time.Sleep(100 * time.Millisecond)
	if runs.Load() != after {
		t.Fatal("loops kept firing after context cancellation")
	}

	s.Stop() // must not hang after parent cancellation
}

func TestScheduler_StartIdempotent(t *testing.T) {
	var runs atomic.Int32
	s := New(time.Hour, 0, func(ctx context.Context) {
		runs.Add(1)
	}, nil, logging.NewNop().Logger)

	s.Start(context.Background())
	s.Start(context.Background())
	defer s.Stop()

	deadline := time.Now().Add(time.Second)
	for runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	if got := runs.Load(); got != 1 {
		t.Fatalf("double Start produced %d immediate runs, want 1", got)
	}
}
