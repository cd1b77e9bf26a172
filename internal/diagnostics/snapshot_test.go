package diagnostics

import (
	"testing"
	"time"

	"github.com/hugo-lorenzo-mato/netdiag/internal/core"
	"github.com/hugo-lorenzo-mato/netdiag/internal/logging"
)

type fakeLister struct {
	infos []core.ProcessInfo
}

func (f *fakeLister) ActiveCount() int                { return len(f.infos) }
func (f *fakeLister) ListActive() []core.ProcessInfo  { return f.infos }

type fakeLogManager struct {
	handlers int
}

func (f *fakeLogManager) FileHandlerCount() int { return f.handlers }
func (f *fakeLogManager) Restart() error        { return nil }
func (f *fakeLogManager) Close() error          { return nil }

func TestSnapshotter_Collect(t *testing.T) {
	procs := &fakeLister{infos: []core.ProcessInfo{
		{PID: 1, RunningTime: time.Minute},
		{PID: 2, RunningTime: 11 * time.Minute},
		{PID: 3, RunningTime: 20 * time.Second, Timeout: 10 * time.Second},
	}}
	logs := &fakeLogManager{handlers: 2}

	s := NewSnapshotter(procs, logs, logging.NewNop().Logger)
	snap := s.Collect()

	if snap.Timestamp().IsZero() {
		t.Error("expected non-zero timestamp")
	}

	checks := map[string]float64{
		core.MetricActiveProcesses:      3,
		core.MetricLongRunningProcesses: 1,
		core.MetricTimeoutProcesses:     1,
		core.MetricFileHandlers:         2,
	}
	for name, want := range checks {
		got, ok := snap.Value(name)
		if !ok {
			t.Errorf("metric %q missing", name)
			continue
		}
		if got != want {
			t.Errorf("metric %q = %v, want %v", name, got, want)
		}
	}

	// open_files should either be a real count or the -1 sentinel, never
	// absent.
	if _, ok := snap.Value(core.MetricOpenFiles); !ok {
		t.Error("open_files missing from snapshot")
	}
}

func TestSnapshotter_NilCollaborators(t *testing.T) {
	s := NewSnapshotter(nil, nil, logging.NewNop().Logger)
	snap := s.Collect()

	if v, _ := snap.Value(core.MetricActiveProcesses); v != 0 {
		t.Errorf("active_processes = %v, want 0", v)
	}
	if v, _ := snap.Value(core.MetricFileHandlers); v != 0 {
		t.Errorf("file_handlers = %v, want 0", v)
	}
}

func snapWith(values map[string]float64) core.MetricsSnapshot {
	return core.NewMetricsSnapshot(time.Now(), values)
}

func TestDeriveStatus_FDRatio(t *testing.T) {
	// 850/1024 ≈ 0.83: warning.
	report := DeriveStatus(snapWith(nil), 850, 1024)
	if report.Overall != core.HealthWarning {
		t.Errorf("850/1024: status = %s, want warning", report.Overall)
	}
	if len(report.Warnings) == 0 {
		t.Error("850/1024: expected warning string")
	}

	// 950/1024 ≈ 0.93: critical.
	report = DeriveStatus(snapWith(nil), 950, 1024)
	if report.Overall != core.HealthCritical {
		t.Errorf("950/1024: status = %s, want critical", report.Overall)
	}
	if len(report.Errors) == 0 {
		t.Error("950/1024: expected error string")
	}

	// 100/1024: healthy.
	report = DeriveStatus(snapWith(nil), 100, 1024)
	if report.Overall != core.HealthHealthy {
		t.Errorf("100/1024: status = %s, want healthy", report.Overall)
	}
}

func TestDeriveStatus_SentinelFDsIgnored(t *testing.T) {
	report := DeriveStatus(snapWith(nil), -1, 0)
	if report.Overall != core.HealthHealthy {
		t.Errorf("sentinel fds: status = %s, want healthy", report.Overall)
	}
}

func TestDeriveStatus_HandlerLeak(t *testing.T) {
	report := DeriveStatus(snapWith(map[string]float64{core.MetricFileHandlers: 3}), 10, 1024)
	if report.Overall != core.HealthWarning {
		t.Errorf("3 handlers: status = %s, want warning", report.Overall)
	}

	report = DeriveStatus(snapWith(map[string]float64{core.MetricFileHandlers: 11}), 10, 1024)
	if report.Overall != core.HealthCritical {
		t.Errorf("11 handlers: status = %s, want critical", report.Overall)
	}
}

func TestDeriveStatus_ProcessPressure(t *testing.T) {
	report := DeriveStatus(snapWith(map[string]float64{
		core.MetricActiveProcesses:      12,
		core.MetricLongRunningProcesses: 0,
	}), 10, 1024)
	if report.Overall != core.HealthWarning {
		t.Errorf("12 active: status = %s, want warning", report.Overall)
	}

	report = DeriveStatus(snapWith(map[string]float64{
		core.MetricActiveProcesses:  4,
		core.MetricTimeoutProcesses: 1,
	}), 10, 1024)
	if report.Overall != core.HealthCritical {
		t.Errorf("timed-out process: status = %s, want critical", report.Overall)
	}
}

func TestDeriveStatus_WorstOfCombination(t *testing.T) {
	// FD warning + handler critical must combine to critical.
	report := DeriveStatus(snapWith(map[string]float64{core.MetricFileHandlers: 20}), 800, 1024)
	if report.Overall != core.HealthCritical {
		t.Errorf("combined: status = %s, want critical", report.Overall)
	}
	if len(report.Warnings) == 0 || len(report.Errors) == 0 {
		t.Error("combined: expected both warning and error strings")
	}
}
