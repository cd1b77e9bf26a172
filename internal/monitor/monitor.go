// Package monitor evaluates metrics snapshots against configurable threshold
// rules, deduplicates the resulting alerts, and fans them out to pluggable
// notification sinks. Snapshots and alert transitions are persisted as
// append-only NDJSON under the data directory.
package monitor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/netdiag/internal/core"
	"github.com/hugo-lorenzo-mato/netdiag/internal/fsutil"
)

const (
	metricsFileName = "metrics.jsonl"
	alertsFileName  = "alerts.jsonl"
)

type alertKey struct {
	metric   string
	severity core.Severity
}

// Monitor owns threshold rules and the active alert set. One caller drives
// it, one snapshot per cycle; the invariant it guards is at most one active
// alert per (metric, severity) key, so each breach transition produces
// exactly one notification.
type Monitor struct {
	mu      sync.Mutex
	rules   map[string]ThresholdRule
	active  map[alertKey]AlertEvent
	sinks   []Sink
	enabled bool

	dataDir     string
	metricsPath string
	lastCycle   time.Time
	logger      *slog.Logger
}

// New creates a monitor with the default rule set and the default sinks
// (structured log plus alerts.jsonl).
func New(dataDir string, logger *slog.Logger) (*Monitor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := fsutil.EnsureDir(dataDir); err != nil {
		return nil, fmt.Errorf("creating monitoring data directory: %w", err)
	}

	m := &Monitor{
		rules:       make(map[string]ThresholdRule),
		active:      make(map[alertKey]AlertEvent),
		enabled:     true,
		dataDir:     dataDir,
		metricsPath: filepath.Join(dataDir, metricsFileName),
		logger:      logger,
	}

	for _, rule := range DefaultRules() {
		// Stock rules are known-valid.
		_ = m.AddRule(rule)
	}

	fileSink, err := NewFileSink(filepath.Join(dataDir, alertsFileName))
	if err != nil {
		return nil, err
	}
	m.sinks = append(m.sinks, NewLogSink(logger), fileSink)

	return m, nil
}

// AddRule registers or replaces the threshold rule for a metric.
func (m *Monitor) AddRule(rule ThresholdRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[rule.Metric] = rule
	return nil
}

// AddSink appends a notification sink.
func (m *Monitor) AddSink(sink Sink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinks = append(m.sinks, sink)
}

// SetEnabled toggles snapshot processing.
func (m *Monitor) SetEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = enabled
}

// ProcessSnapshot runs one monitoring cycle: persist the snapshot, classify
// it against every enabled rule, dispatch new breaches, then resolve alerts
// whose metric has recovered below the warning level.
func (m *Monitor) ProcessSnapshot(snap core.MetricsSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.enabled {
		return nil
	}

	// Persistence happens before evaluation; a write failure is logged but
	// never blocks alerting.
	if err := m.persistSnapshot(snap); err != nil {
		m.logger.Error("monitor: persisting snapshot failed", "error", err)
	}

	now := time.Now()
	for _, event := range m.classify(snap, now) {
		key := alertKey{metric: event.Metric, severity: event.Severity}
		if existing, ok := m.active[key]; ok && existing.Severity == event.Severity {
			// Same breach still in flight; the anti-spam invariant says no
			// repeat notification.
			continue
		}
		m.active[key] = event
		m.dispatch(event)
	}

	m.resolve(snap, now)

	m.lastCycle = now
	return nil
}

func (m *Monitor) classify(snap core.MetricsSnapshot, now time.Time) []AlertEvent {
	var events []AlertEvent
	for _, rule := range m.rules {
		value, ok := snap.Value(rule.Metric)
		if !ok {
			continue
		}
		severity, threshold, breached := rule.classify(value)
		if !breached {
			continue
		}
		events = append(events, AlertEvent{
			Timestamp: now,
			Severity:  severity,
			Metric:    rule.Metric,
			Value:     value,
			Threshold: threshold,
			Message:   fmt.Sprintf("%s %s threshold: %g vs %g", rule.Metric, rule.Comparison, value, threshold),
		})
	}
	return events
}

func (m *Monitor) resolve(snap core.MetricsSnapshot, now time.Time) {
	for key, alert := range m.active {
		rule, ok := m.rules[alert.Metric]
		if !ok {
			continue
		}
		value, ok := snap.Value(alert.Metric)
		if !ok {
			continue
		}
		if !rule.recovered(value) {
			continue
		}

		resolvedAt := now
		resolution := AlertEvent{
			Timestamp:  now,
			Severity:   core.SeverityInfo,
			Metric:     alert.Metric,
			Value:      value,
			Threshold:  alert.Threshold,
			Message:    fmt.Sprintf("%s recovered: %g", alert.Metric, value),
			Resolved:   true,
			ResolvedAt: &resolvedAt,
		}
		m.dispatch(resolution)
		delete(m.active, key)
	}
}

// dispatch delivers one event to every sink. A failing sink is logged and
// skipped; it never prevents delivery to the rest.
func (m *Monitor) dispatch(event AlertEvent) {
	for _, sink := range m.sinks {
		if err := sink.Notify(event); err != nil {
			wrapped := core.ErrSink(sink.Name(), err)
			m.logger.Error("monitor: sink delivery failed",
				"sink", sink.Name(), "metric", event.Metric, "error", wrapped)
		}
	}
}

func (m *Monitor) persistSnapshot(snap core.MetricsSnapshot) error {
	line, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	f, err := os.OpenFile(m.metricsPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening metrics log: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("appending snapshot: %w", err)
	}
	return nil
}

// ReadMetricsLog decodes every persisted snapshot, newest last. Used by the
// status API and by tests verifying the round trip.
func ReadMetricsLog(dataDir string) ([]core.MetricsSnapshot, error) {
	data, err := os.ReadFile(filepath.Join(dataDir, metricsFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var snaps []core.MetricsSnapshot
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var snap core.MetricsSnapshot
		if err := dec.Decode(&snap); err != nil {
			return snaps, fmt.Errorf("decoding metrics log: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

// Status describes the monitor for operators.
type Status struct {
	Enabled      bool         `json:"enabled"`
	LastCycle    time.Time    `json:"last_cycle"`
	ActiveAlerts []AlertEvent `json:"active_alerts"`
	RuleCount    int          `json:"rule_count"`
	SinkCount    int          `json:"sink_count"`
	DataDir      string       `json:"data_dir"`
}

// Status returns a point-in-time view of the monitor.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	alerts := make([]AlertEvent, 0, len(m.active))
	for _, alert := range m.active {
		alerts = append(alerts, alert)
	}

	return Status{
		Enabled:      m.enabled,
		LastCycle:    m.lastCycle,
		ActiveAlerts: alerts,
		RuleCount:    len(m.rules),
		SinkCount:    len(m.sinks),
		DataDir:      m.dataDir,
	}
}

// ActiveAlertCount reports how many alerts are currently unresolved.
func (m *Monitor) ActiveAlertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}
