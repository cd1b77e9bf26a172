package monitor

import (
	"fmt"
	"time"

	"github.com/hugo-lorenzo-mato/netdiag/internal/core"
)

// ThresholdRule compares one metric against a warning and a critical level.
// Static configuration; evaluation never mutates it.
type ThresholdRule struct {
	Metric     string          `json:"metric"`
	Warning    float64         `json:"warning"`
	Critical   float64         `json:"critical"`
	Comparison core.Comparison `json:"comparison"`
	Enabled    bool            `json:"enabled"`
}

// Validate rejects malformed rules at registration time, before any
// evaluation can observe them.
func (r ThresholdRule) Validate() error {
	if r.Metric == "" {
		return core.ErrValidation("RULE_METRIC", "threshold rule needs a metric name")
	}
	if !r.Comparison.Valid() {
		return core.ErrValidation("RULE_COMPARISON",
			fmt.Sprintf("unknown comparison %q for metric %s", r.Comparison, r.Metric))
	}
	switch r.Comparison {
	case core.CompareGreater:
		if r.Critical < r.Warning {
			return core.ErrValidation("RULE_LEVELS",
				fmt.Sprintf("metric %s: critical level %g below warning level %g", r.Metric, r.Critical, r.Warning))
		}
	case core.CompareLess:
		if r.Critical > r.Warning {
			return core.ErrValidation("RULE_LEVELS",
				fmt.Sprintf("metric %s: critical level %g above warning level %g", r.Metric, r.Critical, r.Warning))
		}
	}
	return nil
}

// classify returns the severity the value triggers under this rule, if any.
func (r ThresholdRule) classify(value float64) (core.Severity, float64, bool) {
	if !r.Enabled {
		return "", 0, false
	}
	if r.Comparison.Holds(value, r.Critical) {
		return core.SeverityCritical, r.Critical, true
	}
	if r.Comparison.Holds(value, r.Warning) {
		return core.SeverityWarning, r.Warning, true
	}
	return "", 0, false
}

// recovered reports whether the value has fallen back under the warning
// level. Resolution deliberately requires crossing the lower threshold, not
// merely the breached one, so alerts cannot flap.
func (r ThresholdRule) recovered(value float64) bool {
	switch r.Comparison {
	case core.CompareLess:
		return value > r.Warning
	default:
		return value < r.Warning
	}
}

// AlertEvent records one breach transition or its resolution.
type AlertEvent struct {
	Timestamp  time.Time     `json:"timestamp"`
	Severity   core.Severity `json:"severity"`
	Metric     string        `json:"metric"`
	Value      float64       `json:"value"`
	Threshold  float64       `json:"threshold"`
	Message    string        `json:"message"`
	Resolved   bool          `json:"resolved"`
	ResolvedAt *time.Time    `json:"resolved_at,omitempty"`
}

// DefaultRules returns the stock threshold set for the diagnosis workload.
func DefaultRules() []ThresholdRule {
	return []ThresholdRule{
		{Metric: core.MetricOpenFiles, Warning: 800, Critical: 950, Comparison: core.CompareGreater, Enabled: true},
		{Metric: core.MetricFileHandlers, Warning: 10, Critical: 20, Comparison: core.CompareGreater, Enabled: true},
		{Metric: core.MetricActiveProcesses, Warning: 5, Critical: 10, Comparison: core.CompareGreater, Enabled: true},
		{Metric: core.MetricMemoryUsageMB, Warning: 500, Critical: 1000, Comparison: core.CompareGreater, Enabled: true},
		{Metric: core.MetricCPUUsagePercent, Warning: 80, Critical: 95, Comparison: core.CompareGreater, Enabled: true},
	}
}
