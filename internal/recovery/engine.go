// Package recovery runs rule-driven remediation against metrics snapshots.
// Each rule ties a threshold condition to one action with a cooldown and an
// attempt budget; the engine evaluates rules in registration order and keeps
// a bounded history of every attempt it makes.
package recovery

import (
	"log/slog"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/netdiag/internal/core"
)

const (
	attemptHistorySize = 100
	maxAttemptBudget   = 100
)

// Rule describes one recovery trigger. Condition is a human-readable
// description of what the rule guards; it is carried through status output
// and attempt logs but never evaluated.
type Rule struct {
	Name        string          `json:"name"`
	Condition   string          `json:"condition,omitempty"`
	Metric      string          `json:"metric"`
	Threshold   float64         `json:"threshold"`
	Comparison  core.Comparison `json:"comparison"`
	Action      Action          `json:"action"`
	Cooldown    time.Duration   `json:"cooldown"`
	MaxAttempts int             `json:"max_attempts"`
	Enabled     bool            `json:"enabled"`
}

// Validate checks the rule parameters at registration time.
func (r Rule) Validate() error {
	if r.Name == "" {
		return core.ErrValidation("RULE_NAME", "recovery rule name must not be empty")
	}
	if r.Metric == "" {
		return core.ErrValidation("RULE_METRIC", "recovery rule metric must not be empty")
	}
	if !r.Comparison.Valid() {
		return core.ErrValidation("RULE_COMPARISON", "comparison must be greater or less")
	}
	if !r.Action.Valid() {
		return core.ErrValidation("RULE_ACTION", "unknown recovery action "+string(r.Action))
	}
	if r.Cooldown <= 0 {
		return core.ErrValidation("RULE_COOLDOWN", "cooldown must be positive")
	}
	if r.MaxAttempts < 1 || r.MaxAttempts > maxAttemptBudget {
		return core.ErrValidation("RULE_ATTEMPTS", "max attempts must be between 1 and 100")
	}
	return nil
}

// Attempt records one executed recovery action, bracketed by the snapshot
// that triggered it and the snapshot taken after it ran.
type Attempt struct {
	Timestamp time.Time            `json:"timestamp"`
	Rule      string               `json:"rule"`
	Action    Action               `json:"action"`
	Metric    string               `json:"metric"`
	Value     float64              `json:"value"`
	Succeeded bool                 `json:"succeeded"`
	Error     string               `json:"error,omitempty"`
	Pre       core.MetricsSnapshot `json:"pre_snapshot"`
	Post      core.MetricsSnapshot `json:"post_snapshot"`
}

type ruleState struct {
	Rule
	lastFire time.Time
	attempts int
}

// Engine evaluates recovery rules against snapshots and executes their
// actions. A single caller drives RunCycle; the mutex exists for the status
// and administration methods.
type Engine struct {
	mu    sync.Mutex
	rules []*ruleState

	procs    core.ProcessReaper
	logs     core.LogManager
	snapshot func() core.MetricsSnapshot
	cacheDir string
	logger   *slog.Logger
	now      func() time.Time

	enabled          bool
	emergency        bool
	restartRequested bool
	attempts         *ring[Attempt]
}

// Option configures an Engine.
type Option func(*Engine)

// WithCacheDir sets the directory the clear-cache action empties.
func WithCacheDir(dir string) Option {
	return func(e *Engine) { e.cacheDir = dir }
}

// WithPostSnapshot sets the source for the post-action snapshot attached to
// each attempt record.
func WithPostSnapshot(fn func() core.MetricsSnapshot) Option {
	return func(e *Engine) { e.snapshot = fn }
}

// New creates an engine with the default rule set. procs and logs may be nil;
// actions that need them degrade to no-ops.
func New(procs core.ProcessReaper, logs core.LogManager, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		procs:    procs,
		logs:     logs,
		logger:   logger,
		now:      time.Now,
		enabled:  true,
		attempts: newRing[Attempt](attemptHistorySize),
	}
	for _, opt := range opts {
		opt(e)
	}
	for _, rule := range DefaultRules() {
		// Stock rules are known-valid.
		_ = e.AddRule(rule)
	}
	return e
}

// DefaultRules returns the stock recovery ruleset.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "fd-pressure", Condition: "open file descriptors above 900",
			Metric: core.MetricOpenFiles, Threshold: 900,
			Comparison: core.CompareGreater, Action: ActionCleanupResources,
			Cooldown: 5 * time.Minute, MaxAttempts: 3, Enabled: true},
		{Name: "handler-leak", Condition: "file-backed log handlers above 15",
			Metric: core.MetricFileHandlers, Threshold: 15,
			Comparison: core.CompareGreater, Action: ActionRestartLogging,
			Cooldown: 2 * time.Minute, MaxAttempts: 5, Enabled: true},
		{Name: "stale-processes", Condition: "more than one long-running child",
			Metric: core.MetricLongRunningProcesses, Threshold: 1,
			Comparison: core.CompareGreater, Action: ActionKillStaleProcesses,
			Cooldown: time.Minute, MaxAttempts: 10, Enabled: true},
		{Name: "memory-pressure", Condition: "resident memory above 800 MB",
			Metric: core.MetricMemoryUsageMB, Threshold: 800,
			Comparison: core.CompareGreater, Action: ActionClearCache,
			Cooldown: 5 * time.Minute, MaxAttempts: 3, Enabled: true},
		{Name: "memory-exhaustion", Condition: "resident memory above 1500 MB",
			Metric: core.MetricMemoryUsageMB, Threshold: 1500,
			Comparison: core.CompareGreater, Action: ActionEmergencyShutdown,
			Cooldown: 10 * time.Minute, MaxAttempts: 1, Enabled: true},
	}
}

// AddRule appends a rule to the evaluation order, or replaces an existing
// rule of the same name in place. Replacement resets its fire history.
func (e *Engine) AddRule(rule Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, rs := range e.rules {
		if rs.Name == rule.Name {
			e.rules[i] = &ruleState{Rule: rule}
			return nil
		}
	}
	e.rules = append(e.rules, &ruleState{Rule: rule})
	return nil
}

func (rs *ruleState) eligible(now time.Time, snap core.MetricsSnapshot) (float64, bool) {
	if !rs.Enabled || rs.attempts >= rs.MaxAttempts {
		return 0, false
	}
	if !rs.lastFire.IsZero() && now.Before(rs.lastFire.Add(rs.Cooldown)) {
		return 0, false
	}
	value, ok := snap.Value(rs.Metric)
	if !ok || !rs.Comparison.HoldsStrict(value, rs.Threshold) {
		return 0, false
	}
	return value, true
}

// Evaluate reports which rules would fire for the snapshot, in registration
// order, without executing anything.
func (e *Engine) Evaluate(snap core.MetricsSnapshot) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.enabled || e.emergency {
		return nil
	}
	now := e.now()
	var names []string
	for _, rs := range e.rules {
		if _, ok := rs.eligible(now, snap); ok {
			names = append(names, rs.Name)
		}
	}
	return names
}

// RunCycle evaluates every rule against the snapshot and executes the
// eligible ones. Fire time and attempt count are committed before the action
// runs, so a failing or hanging action still consumes its budget. Action
// failures are recorded in the attempt history, never propagated. An
// emergency-shutdown action short-circuits the rest of the cycle and leaves
// the engine disabled until Enable is called.
func (e *Engine) RunCycle(snap core.MetricsSnapshot) []Attempt {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.enabled || e.emergency {
		return nil
	}

	now := e.now()
	var fired []Attempt
	for _, rs := range e.rules {
		value, ok := rs.eligible(now, snap)
		if !ok {
			continue
		}

		rs.lastFire = now
		rs.attempts++

		attempt := Attempt{
			Timestamp: now,
			Rule:      rs.Name,
			Action:    rs.Action,
			Metric:    rs.Metric,
			Value:     value,
			Pre:       snap,
		}
		e.logger.Warn("recovery: executing action",
			"rule", rs.Name, "action", string(rs.Action),
			"metric", rs.Metric, "value", value, "attempt", rs.attempts)

		if err := e.execute(rs.Action); err != nil {
			attempt.Error = err.Error()
			e.logger.Error("recovery: action failed",
				"rule", rs.Name, "action", string(rs.Action), "error", err)
		} else {
			attempt.Succeeded = true
		}
		if e.snapshot != nil {
			attempt.Post = e.snapshot()
		}
		e.attempts.Append(attempt)
		fired = append(fired, attempt)

		if rs.Action == ActionEmergencyShutdown {
			e.emergency = true
			e.logger.Error("recovery: emergency shutdown, engine disabled", "rule", rs.Name)
			break
		}
	}
	return fired
}

// Enable re-arms the engine, clearing the emergency flag.
func (e *Engine) Enable() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = true
	e.emergency = false
}

// Disable stops all evaluation until Enable.
func (e *Engine) Disable() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = false
}

// ResetAttempts zeroes the per-rule attempt counters and fire history.
func (e *Engine) ResetAttempts() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, rs := range e.rules {
		rs.attempts = 0
		rs.lastFire = time.Time{}
	}
}

// RuleStatus is the externally visible state of one rule.
type RuleStatus struct {
	Name        string        `json:"name"`
	Condition   string        `json:"condition,omitempty"`
	Action      Action        `json:"action"`
	Enabled     bool          `json:"enabled"`
	Attempts    int           `json:"attempts"`
	MaxAttempts int           `json:"max_attempts"`
	LastFire    time.Time     `json:"last_fire,omitempty"`
	Cooldown    time.Duration `json:"cooldown"`
}

// Status summarizes the engine state.
type Status struct {
	Enabled          bool         `json:"enabled"`
	Emergency        bool         `json:"emergency"`
	RestartRequested bool         `json:"restart_requested"`
	Rules            []RuleStatus `json:"rules"`
	AttemptCount     int          `json:"attempt_count"`
}

// Status returns a snapshot of the engine state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := Status{
		Enabled:          e.enabled && !e.emergency,
		Emergency:        e.emergency,
		RestartRequested: e.restartRequested,
		AttemptCount:     e.attempts.Len(),
	}
	for _, rs := range e.rules {
		st.Rules = append(st.Rules, RuleStatus{
			Name:        rs.Name,
			Condition:   rs.Condition,
			Action:      rs.Action,
			Enabled:     rs.Enabled,
			Attempts:    rs.attempts,
			MaxAttempts: rs.MaxAttempts,
			LastFire:    rs.lastFire,
			Cooldown:    rs.Cooldown,
		})
	}
	return st
}

// Attempts returns the recorded attempt history, oldest first.
func (e *Engine) Attempts() []Attempt {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attempts.Items()
}
