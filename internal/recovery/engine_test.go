package recovery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/netdiag/internal/core"
	"github.com/hugo-lorenzo-mato/netdiag/internal/logging"
)

type fakeReaper struct {
	active     []core.ProcessInfo
	killed     []int
	sweeps     int
	killErrPID int
}

func (f *fakeReaper) ActiveCount() int               { return len(f.active) }
func (f *fakeReaper) ListActive() []core.ProcessInfo { return f.active }
func (f *fakeReaper) KillAll()                       { f.sweeps++ }

func (f *fakeReaper) KillProcess(pid int, force bool) error {
	if pid == f.killErrPID {
		return errors.New("kill refused")
	}
	f.killed = append(f.killed, pid)
	return nil
}

type fakeLogs struct {
	restarts   int
	closes     int
	restartErr error
}

func (f *fakeLogs) FileHandlerCount() int { return 1 }
func (f *fakeLogs) Restart() error        { f.restarts++; return f.restartErr }
func (f *fakeLogs) Close() error          { f.closes++; return nil }

func snapshotOf(values map[string]float64) core.MetricsSnapshot {
	return core.NewMetricsSnapshot(time.Now(), values)
}

func newTestEngine(t *testing.T, procs core.ProcessReaper, logs core.LogManager, opts ...Option) *Engine {
	t.Helper()
	return New(procs, logs, logging.NewNop().Logger, opts...)
}

func TestAddRule_Validation(t *testing.T) {
	e := newTestEngine(t, nil, nil)

	cases := []struct {
		name string
		rule Rule
	}{
		{"empty name", Rule{Metric: "m", Comparison: core.CompareGreater, Action: ActionClearCache, Cooldown: time.Minute, MaxAttempts: 1}},
		{"empty metric", Rule{Name: "r", Comparison: core.CompareGreater, Action: ActionClearCache, Cooldown: time.Minute, MaxAttempts: 1}},
		{"bad comparison", Rule{Name: "r", Metric: "m", Comparison: "between", Action: ActionClearCache, Cooldown: time.Minute, MaxAttempts: 1}},
		{"bad action", Rule{Name: "r", Metric: "m", Comparison: core.CompareGreater, Action: "reboot", Cooldown: time.Minute, MaxAttempts: 1}},
		{"zero cooldown", Rule{Name: "r", Metric: "m", Comparison: core.CompareGreater, Action: ActionClearCache, MaxAttempts: 1}},
		{"zero attempts", Rule{Name: "r", Metric: "m", Comparison: core.CompareGreater, Action: ActionClearCache, Cooldown: time.Minute}},
		{"attempt budget over cap", Rule{Name: "r", Metric: "m", Comparison: core.CompareGreater, Action: ActionClearCache, Cooldown: time.Minute, MaxAttempts: 101}},
	}
	for _, tc := range cases {
		err := e.AddRule(tc.rule)
		require.Error(t, err, tc.name)
		require.True(t, core.IsCategory(err, core.ErrCatValidation), tc.name)
	}
}

func TestRunCycle_CooldownAndAttemptBudget(t *testing.T) {
	logs := &fakeLogs{}
	e := newTestEngine(t, &fakeReaper{}, logs)

	base := time.Now()
	clock := base
	e.now = func() time.Time { return clock }

	require.NoError(t, e.AddRule(Rule{
		Name: "leak", Metric: core.MetricFileHandlers, Threshold: 5,
		Comparison: core.CompareGreater, Action: ActionRestartLogging,
		Cooldown: 60 * time.Second, MaxAttempts: 3, Enabled: true,
	}))

	breach := snapshotOf(map[string]float64{core.MetricFileHandlers: 9})

	fires := func(offset time.Duration) bool {
		clock = base.Add(offset)
		for _, a := range e.RunCycle(breach) {
			if a.Rule == "leak" {
				return true
			}
		}
		return false
	}

	// With a 60s cooldown and 3 attempts, only t=0, t=65 and t=130 fire.
	offsets := []struct {
		at   time.Duration
		want bool
	}{
		{0, true},
		{30 * time.Second, false},
		{65 * time.Second, true},
		{90 * time.Second, false},
		{130 * time.Second, true},
		{200 * time.Second, false}, // budget exhausted
		{10 * time.Minute, false},
	}
	for _, o := range offsets {
		require.Equal(t, o.want, fires(o.at), "at offset %s", o.at)
	}
	require.Equal(t, 3, logs.restarts)

	// ResetAttempts re-arms the rule.
	e.ResetAttempts()
	require.True(t, fires(11*time.Minute))
}

func TestRunCycle_BudgetConsumedOnFailure(t *testing.T) {
	logs := &fakeLogs{restartErr: errors.New("disk full")}
	e := newTestEngine(t, &fakeReaper{}, logs)

	clock := time.Now()
	e.now = func() time.Time { return clock }

	require.NoError(t, e.AddRule(Rule{
		Name: "leak", Metric: core.MetricFileHandlers, Threshold: 5,
		Comparison: core.CompareGreater, Action: ActionRestartLogging,
		Cooldown: time.Second, MaxAttempts: 2, Enabled: true,
	}))
	breach := snapshotOf(map[string]float64{core.MetricFileHandlers: 9})

	var attempts []Attempt
	for i := 0; i < 4; i++ {
		for _, a := range e.RunCycle(breach) {
			if a.Rule == "leak" {
				attempts = append(attempts, a)
			}
		}
		clock = clock.Add(2 * time.Second)
	}

	require.Len(t, attempts, 2, "failed attempts still consume the budget")
	for _, a := range attempts {
		require.False(t, a.Succeeded)
		require.Contains(t, a.Error, "disk full")
	}
}

func TestRunCycle_EmergencyShortCircuit(t *testing.T) {
	procs := &fakeReaper{}
	logs := &fakeLogs{}
	e := newTestEngine(t, procs, logs)

	// Registered after the stock rules, so it sits behind the emergency rule
	// in evaluation order and must never fire in the same cycle.
	require.NoError(t, e.AddRule(Rule{
		Name: "after-emergency", Metric: core.MetricMemoryUsageMB, Threshold: 100,
		Comparison: core.CompareGreater, Action: ActionRestartLogging,
		Cooldown: time.Minute, MaxAttempts: 5, Enabled: true,
	}))

	snap := snapshotOf(map[string]float64{
		core.MetricMemoryUsageMB: 2000, // breaches clear-cache AND the emergency rule
	})

	fired := e.RunCycle(snap)
	require.NotEmpty(t, fired)
	last := fired[len(fired)-1]
	require.Equal(t, ActionEmergencyShutdown, last.Action, "cycle stops at emergency shutdown")
	for _, a := range fired {
		require.NotEqual(t, "after-emergency", a.Rule)
	}

	st := e.Status()
	require.True(t, st.Emergency)
	require.False(t, st.Enabled)
	require.Equal(t, 1, procs.sweeps)
	require.Equal(t, 1, logs.closes)

	// Nothing fires while the emergency flag is set.
	require.Empty(t, e.RunCycle(snap))
	require.Empty(t, e.Evaluate(snap))

	// Enable clears the flag; cooldowns still apply to the rules that fired.
	e.Enable()
	require.False(t, e.Status().Emergency)
}

func TestRunCycle_KillStaleProcesses(t *testing.T) {
	procs := &fakeReaper{active: []core.ProcessInfo{
		{PID: 11, Command: "mtr", RunningTime: 15 * time.Minute},
		{PID: 12, Command: "ping", RunningTime: 30 * time.Second},
		{PID: 13, Command: "traceroute", RunningTime: time.Hour},
	}}
	e := newTestEngine(t, procs, &fakeLogs{})

	fired := e.RunCycle(snapshotOf(map[string]float64{core.MetricLongRunningProcesses: 2}))
	require.Len(t, fired, 1)
	require.Equal(t, ActionKillStaleProcesses, fired[0].Action)
	require.True(t, fired[0].Succeeded)
	require.ElementsMatch(t, []int{11, 13}, procs.killed, "only stale processes are killed")
}

func TestRunCycle_ClearCache(t *testing.T) {
	cacheDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(cacheDir, "a.tmp"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(cacheDir, "sub"), 0o755))

	e := newTestEngine(t, nil, nil, WithCacheDir(cacheDir))
	fired := e.RunCycle(snapshotOf(map[string]float64{core.MetricMemoryUsageMB: 900}))
	require.Len(t, fired, 1)
	require.Equal(t, ActionClearCache, fired[0].Action)
	require.True(t, fired[0].Succeeded)

	entries, err := os.ReadDir(cacheDir)
	require.NoError(t, err)
	require.Empty(t, entries, "cache contents removed, directory kept")
}

func TestRunCycle_PreAndPostSnapshotsRecorded(t *testing.T) {
	post := snapshotOf(map[string]float64{core.MetricFileHandlers: 1})
	e := newTestEngine(t, nil, &fakeLogs{},
		WithPostSnapshot(func() core.MetricsSnapshot { return post }))

	fired := e.RunCycle(snapshotOf(map[string]float64{core.MetricFileHandlers: 20}))
	require.Len(t, fired, 1)

	pre, ok := fired[0].Pre.Value(core.MetricFileHandlers)
	require.True(t, ok)
	require.Equal(t, 20.0, pre, "triggering snapshot carried on the attempt")

	got, ok := fired[0].Post.Value(core.MetricFileHandlers)
	require.True(t, ok)
	require.Equal(t, 1.0, got)
}

func TestRunCycle_ThresholdIsExclusive(t *testing.T) {
	logs := &fakeLogs{}
	e := newTestEngine(t, nil, logs)

	require.NoError(t, e.AddRule(Rule{
		Name: "leak", Metric: core.MetricFileHandlers, Threshold: 5,
		Comparison: core.CompareGreater, Action: ActionRestartLogging,
		Cooldown: time.Minute, MaxAttempts: 3, Enabled: true,
	}))

	// Sitting exactly on the threshold does not trigger recovery.
	require.Empty(t, e.Evaluate(snapshotOf(map[string]float64{core.MetricFileHandlers: 5})))
	require.Empty(t, e.RunCycle(snapshotOf(map[string]float64{core.MetricFileHandlers: 5})))
	require.Zero(t, logs.restarts)

	fired := e.RunCycle(snapshotOf(map[string]float64{core.MetricFileHandlers: 5.1}))
	require.Len(t, fired, 1)
	require.Equal(t, 1, logs.restarts)
}

func TestEvaluate_RegistrationOrder(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	require.NoError(t, e.AddRule(Rule{
		Name: "custom-fd", Metric: core.MetricOpenFiles, Threshold: 100,
		Comparison: core.CompareGreater, Action: ActionClearCache,
		Cooldown: time.Minute, MaxAttempts: 1, Enabled: true,
	}))

	names := e.Evaluate(snapshotOf(map[string]float64{core.MetricOpenFiles: 950}))
	require.Equal(t, []string{"fd-pressure", "custom-fd"}, names)
}

func TestEngine_DisableEnable(t *testing.T) {
	e := newTestEngine(t, nil, &fakeLogs{})
	breach := snapshotOf(map[string]float64{core.MetricFileHandlers: 20})

	e.Disable()
	require.Empty(t, e.RunCycle(breach))
	e.Enable()
	require.NotEmpty(t, e.RunCycle(breach))
}

func TestRing_OverwritesOldest(t *testing.T) {
	r := newRing[int](3)
	for i := 1; i <= 5; i++ {
		r.Append(i)
	}
	require.Equal(t, 3, r.Len())
	require.Equal(t, []int{3, 4, 5}, r.Items())
}

func TestAttemptHistory_Bounded(t *testing.T) {
	e := newTestEngine(t, nil, &fakeLogs{})
	clock := time.Now()
	e.now = func() time.Time { return clock }

	require.NoError(t, e.AddRule(Rule{
		Name: "ticker", Metric: "tick", Threshold: 0,
		Comparison: core.CompareGreater, Action: ActionRestartLogging,
		Cooldown: time.Millisecond, MaxAttempts: maxAttemptBudget, Enabled: true,
	}))
	breach := snapshotOf(map[string]float64{"tick": 1})

	for i := 0; i < 120; i++ {
		e.RunCycle(breach)
		clock = clock.Add(time.Second)
		if i == 99 {
			e.ResetAttempts()
		}
	}
	require.Equal(t, attemptHistorySize, len(e.Attempts()))
}

func TestRestartService_MarksIntent(t *testing.T) {
	procs := &fakeReaper{}
	e := newTestEngine(t, procs, &fakeLogs{})
	require.NoError(t, e.AddRule(Rule{
		Name: "svc", Metric: "errors_total", Threshold: 10,
		Comparison: core.CompareGreater, Action: ActionRestartService,
		Cooldown: time.Minute, MaxAttempts: 1, Enabled: true,
	}))

	fired := e.RunCycle(snapshotOf(map[string]float64{"errors_total": 50}))
	require.Len(t, fired, 1)
	require.True(t, e.Status().RestartRequested)
	require.Equal(t, 1, procs.sweeps)
}

func TestStatus_RuleCounters(t *testing.T) {
	e := newTestEngine(t, nil, &fakeLogs{})
	e.RunCycle(snapshotOf(map[string]float64{core.MetricFileHandlers: 20}))

	st := e.Status()
	require.True(t, st.Enabled)
	var found bool
	for _, rs := range st.Rules {
		if rs.Name == "handler-leak" {
			found = true
			require.Equal(t, 1, rs.Attempts)
			require.False(t, rs.LastFire.IsZero())
			require.NotEmpty(t, rs.Condition, "stock rules describe their condition")
		}
	}
	require.True(t, found, fmt.Sprintf("handler-leak missing from %v", st.Rules))
	require.Equal(t, 1, st.AttemptCount)
}
