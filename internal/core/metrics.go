package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// Metric names observed by the monitoring core.
const (
	MetricOpenFiles            = "open_files"
	MetricFileHandlers         = "file_handlers"
	MetricActiveProcesses      = "active_processes"
	MetricMemoryUsageMB        = "memory_usage_mb"
	MetricCPUUsagePercent      = "cpu_usage_percent"
	MetricLongRunningProcesses = "long_running_processes"
	MetricTimeoutProcesses     = "timeout_processes"
)

// MetricsSnapshot is an immutable point-in-time mapping from metric name to
// value. Created fresh on every monitoring cycle and never mutated.
type MetricsSnapshot struct {
	timestamp time.Time
	values    map[string]float64
}

// NewMetricsSnapshot builds a snapshot from a value map. The map is copied so
// later mutation by the caller cannot affect the snapshot.
func NewMetricsSnapshot(ts time.Time, values map[string]float64) MetricsSnapshot {
	copied := make(map[string]float64, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return MetricsSnapshot{timestamp: ts, values: copied}
}

// Timestamp returns when the snapshot was taken.
func (s MetricsSnapshot) Timestamp() time.Time {
	return s.timestamp
}

// Value returns the named metric and whether it was observed.
func (s MetricsSnapshot) Value(name string) (float64, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Values returns a copy of the metric map.
func (s MetricsSnapshot) Values() map[string]float64 {
	copied := make(map[string]float64, len(s.values))
	for k, v := range s.values {
		copied[k] = v
	}
	return copied
}

// Len returns the number of observed metrics.
func (s MetricsSnapshot) Len() int {
	return len(s.values)
}

// IsZero reports whether the snapshot holds no data.
func (s MetricsSnapshot) IsZero() bool {
	return s.timestamp.IsZero() && len(s.values) == 0
}

// MarshalJSON encodes the snapshot as one flat object so a persisted line
// reads back field-for-field identical.
func (s MetricsSnapshot) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(s.values)+1)
	flat["timestamp"] = s.timestamp.Format(time.RFC3339Nano)
	for k, v := range s.values {
		flat[k] = v
	}
	return json.Marshal(flat)
}

// UnmarshalJSON decodes the flat object form produced by MarshalJSON.
func (s *MetricsSnapshot) UnmarshalJSON(data []byte) error {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}

	values := make(map[string]float64, len(flat))
	var ts time.Time
	for k, raw := range flat {
		if k == "timestamp" {
			var str string
			if err := json.Unmarshal(raw, &str); err != nil {
				return fmt.Errorf("decoding snapshot timestamp: %w", err)
			}
			parsed, err := time.Parse(time.RFC3339Nano, str)
			if err != nil {
				return fmt.Errorf("parsing snapshot timestamp: %w", err)
			}
			ts = parsed
			continue
		}
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("decoding metric %q: %w", k, err)
		}
		values[k] = v
	}

	s.timestamp = ts
	s.values = values
	return nil
}
