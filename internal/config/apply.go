package config

import (
	"github.com/hugo-lorenzo-mato/netdiag/internal/core"
	"github.com/hugo-lorenzo-mato/netdiag/internal/monitor"
	"github.com/hugo-lorenzo-mato/netdiag/internal/recovery"
)

// ToRule converts a threshold override into a monitor rule.
func (o ThresholdOverride) ToRule() monitor.ThresholdRule {
	return monitor.ThresholdRule{
		Metric:     o.Metric,
		Warning:    o.Warning,
		Critical:   o.Critical,
		Comparison: core.Comparison(o.Comparison),
		Enabled:    o.Enabled,
	}
}

// ToRule converts a recovery override into an engine rule.
func (o RecoveryRuleOverride) ToRule() recovery.Rule {
	return recovery.Rule{
		Name:        o.Name,
		Condition:   o.Condition,
		Metric:      o.Metric,
		Threshold:   o.Threshold,
		Comparison:  core.Comparison(o.Comparison),
		Action:      recovery.Action(o.Action),
		Cooldown:    o.Cooldown,
		MaxAttempts: o.MaxAttempts,
		Enabled:     o.Enabled,
	}
}
