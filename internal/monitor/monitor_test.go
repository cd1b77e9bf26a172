package monitor

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/netdiag/internal/core"
	"github.com/hugo-lorenzo-mato/netdiag/internal/logging"
)

// captureSink records every event it receives.
type captureSink struct {
	name   string
	events []AlertEvent
	fail   bool
}

func (s *captureSink) Name() string { return s.name }

func (s *captureSink) Notify(event AlertEvent) error {
	if s.fail {
		return errors.New("sink unavailable")
	}
	s.events = append(s.events, event)
	return nil
}

func newTestMonitor(t *testing.T) (*Monitor, *captureSink) {
	t.Helper()
	m, err := New(t.TempDir(), logging.NewNop().Logger)
	require.NoError(t, err)

	sink := &captureSink{name: "capture"}
	m.AddSink(sink)
	return m, sink
}

func snapshotOf(values map[string]float64) core.MetricsSnapshot {
	return core.NewMetricsSnapshot(time.Now(), values)
}

func TestProcessSnapshot_AlertDedup(t *testing.T) {
	m, sink := newTestMonitor(t)

	// The same critical breach across five cycles must notify exactly once.
	for i := 0; i < 5; i++ {
		err := m.ProcessSnapshot(snapshotOf(map[string]float64{core.MetricOpenFiles: 960}))
		require.NoError(t, err)
	}

	require.Len(t, sink.events, 1)
	require.Equal(t, core.SeverityCritical, sink.events[0].Severity)
	require.Equal(t, core.MetricOpenFiles, sink.events[0].Metric)
	require.Equal(t, 1, m.ActiveAlertCount())
}

func TestProcessSnapshot_Hysteresis(t *testing.T) {
	m, sink := newTestMonitor(t)

	// Breach critical (open_files: warning 800, critical 950).
	require.NoError(t, m.ProcessSnapshot(snapshotOf(map[string]float64{core.MetricOpenFiles: 960})))
	require.Len(t, sink.events, 1)

	// A value between warning and critical must NOT resolve the alert.
	require.NoError(t, m.ProcessSnapshot(snapshotOf(map[string]float64{core.MetricOpenFiles: 870})))
	require.Equal(t, 2, m.ActiveAlertCount(), "870 re-breaches warning; critical stays active")

	// Only a value below the warning level resolves, with exactly one
	// resolution event per active alert.
	require.NoError(t, m.ProcessSnapshot(snapshotOf(map[string]float64{core.MetricOpenFiles: 400})))
	require.Equal(t, 0, m.ActiveAlertCount())

	var resolutions int
	for _, e := range sink.events {
		if e.Resolved {
			resolutions++
			require.Equal(t, core.SeverityInfo, e.Severity)
		}
	}
	require.Equal(t, 2, resolutions, "one resolution per previously active severity")
}

func TestProcessSnapshot_SeverityEscalation(t *testing.T) {
	m, sink := newTestMonitor(t)

	require.NoError(t, m.ProcessSnapshot(snapshotOf(map[string]float64{core.MetricOpenFiles: 850})))
	require.Len(t, sink.events, 1)
	require.Equal(t, core.SeverityWarning, sink.events[0].Severity)

	// Escalation to critical is a new breach transition and must notify.
	require.NoError(t, m.ProcessSnapshot(snapshotOf(map[string]float64{core.MetricOpenFiles: 990})))

	var critical int
	for _, e := range sink.events {
		if e.Severity == core.SeverityCritical {
			critical++
		}
	}
	require.Equal(t, 1, critical)
}

func TestProcessSnapshot_SinkFailureIsolation(t *testing.T) {
	m, err := New(t.TempDir(), logging.NewNop().Logger)
	require.NoError(t, err)

	broken := &captureSink{name: "broken", fail: true}
	working := &captureSink{name: "working"}
	m.AddSink(broken)
	m.AddSink(working)

	require.NoError(t, m.ProcessSnapshot(snapshotOf(map[string]float64{core.MetricOpenFiles: 960})))
	require.Len(t, working.events, 1, "failure in one sink must not block the others")
}

func TestProcessSnapshot_PersistsMetricsLog(t *testing.T) {
	dir := t.TempDir()
	m, err := New(dir, logging.NewNop().Logger)
	require.NoError(t, err)

	want := map[string]float64{
		core.MetricOpenFiles:    123,
		core.MetricFileHandlers: 1,
	}
	require.NoError(t, m.ProcessSnapshot(snapshotOf(want)))

	snaps, err := ReadMetricsLog(dir)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	for name, value := range want {
		got, ok := snaps[0].Value(name)
		require.True(t, ok, "metric %s missing", name)
		require.Equal(t, value, got)
	}
}

func TestAddRule_Validation(t *testing.T) {
	m, _ := newTestMonitor(t)

	err := m.AddRule(ThresholdRule{Metric: "", Comparison: core.CompareGreater})
	require.Error(t, err)
	require.True(t, core.IsCategory(err, core.ErrCatValidation))

	err = m.AddRule(ThresholdRule{Metric: "x", Comparison: "between"})
	require.Error(t, err)

	// Inverted levels for a greater comparison.
	err = m.AddRule(ThresholdRule{Metric: "x", Warning: 100, Critical: 50, Comparison: core.CompareGreater})
	require.Error(t, err)

	// Valid less-comparison rule: critical below warning.
	err = m.AddRule(ThresholdRule{Metric: "free_mb", Warning: 500, Critical: 100, Comparison: core.CompareLess, Enabled: true})
	require.NoError(t, err)
}

func TestProcessSnapshot_LessComparison(t *testing.T) {
	m, sink := newTestMonitor(t)

	require.NoError(t, m.AddRule(ThresholdRule{
		Metric: "free_mb", Warning: 500, Critical: 100,
		Comparison: core.CompareLess, Enabled: true,
	}))

	require.NoError(t, m.ProcessSnapshot(snapshotOf(map[string]float64{"free_mb": 50})))
	require.Len(t, sink.events, 1)
	require.Equal(t, core.SeverityCritical, sink.events[0].Severity)

	// Recovery requires rising above the warning level.
	require.NoError(t, m.ProcessSnapshot(snapshotOf(map[string]float64{"free_mb": 300})))
	require.Equal(t, 2, m.ActiveAlertCount(), "300 is still under warning")

	require.NoError(t, m.ProcessSnapshot(snapshotOf(map[string]float64{"free_mb": 900})))
	require.Equal(t, 0, m.ActiveAlertCount())
}

func TestMonitor_Disabled(t *testing.T) {
	m, sink := newTestMonitor(t)
	m.SetEnabled(false)

	require.NoError(t, m.ProcessSnapshot(snapshotOf(map[string]float64{core.MetricOpenFiles: 990})))
	require.Empty(t, sink.events)
}

func TestMonitor_Status(t *testing.T) {
	m, _ := newTestMonitor(t)
	require.NoError(t, m.ProcessSnapshot(snapshotOf(map[string]float64{core.MetricOpenFiles: 960})))

	st := m.Status()
	require.True(t, st.Enabled)
	require.Len(t, st.ActiveAlerts, 1)
	require.Equal(t, len(DefaultRules()), st.RuleCount)
	require.Equal(t, 3, st.SinkCount) // log + file + capture
	require.False(t, st.LastCycle.IsZero())
}
