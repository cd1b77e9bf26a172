package core

// HealthState is the coarse classification derived from a snapshot.
type HealthState string

const (
	HealthHealthy  HealthState = "healthy"
	HealthWarning  HealthState = "warning"
	HealthCritical HealthState = "critical"
)

// rank orders health states from best to worst.
func (h HealthState) rank() int {
	switch h {
	case HealthCritical:
		return 2
	case HealthWarning:
		return 1
	default:
		return 0
	}
}

// Worst returns the more severe of two states.
func (h HealthState) Worst(other HealthState) HealthState {
	if other.rank() > h.rank() {
		return other
	}
	return h
}

// Severity is the level attached to an alert or notification.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Comparison selects the direction of a threshold check.
type Comparison string

const (
	CompareGreater Comparison = "greater"
	CompareLess    Comparison = "less"
)

// Holds reports whether value crosses threshold in this direction, threshold
// included. Alert classification uses this inclusive form.
func (c Comparison) Holds(value, threshold float64) bool {
	switch c {
	case CompareLess:
		return value <= threshold
	default:
		return value >= threshold
	}
}

// HoldsStrict is Holds with the threshold excluded. Recovery rules fire only
// when the metric has actually passed the threshold, not when it sits on it.
func (c Comparison) HoldsStrict(value, threshold float64) bool {
	switch c {
	case CompareLess:
		return value < threshold
	default:
		return value > threshold
	}
}

// Valid reports whether the comparison is a known direction.
func (c Comparison) Valid() bool {
	return c == CompareGreater || c == CompareLess
}
