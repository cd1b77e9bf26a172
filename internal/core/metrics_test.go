package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMetricsSnapshot_Immutable(t *testing.T) {
	values := map[string]float64{MetricOpenFiles: 120, MetricFileHandlers: 2}
	snap := NewMetricsSnapshot(time.Now(), values)

	values[MetricOpenFiles] = 999
	if v, _ := snap.Value(MetricOpenFiles); v != 120 {
		t.Errorf("snapshot mutated through source map: got %v", v)
	}

	out := snap.Values()
	out[MetricFileHandlers] = 999
	if v, _ := snap.Value(MetricFileHandlers); v != 2 {
		t.Errorf("snapshot mutated through Values copy: got %v", v)
	}
}

func TestMetricsSnapshot_RoundTrip(t *testing.T) {
	ts := time.Date(2025, 3, 14, 9, 26, 53, 589793000, time.UTC)
	snap := NewMetricsSnapshot(ts, map[string]float64{
		MetricOpenFiles:       850,
		MetricFileHandlers:    3,
		MetricActiveProcesses: 7,
		MetricMemoryUsageMB:   412.5,
		MetricCPUUsagePercent: 31.25,
	})

	line, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded MetricsSnapshot
	if err := json.Unmarshal(line, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !decoded.Timestamp().Equal(snap.Timestamp()) {
		t.Errorf("timestamp changed: %v != %v", decoded.Timestamp(), snap.Timestamp())
	}
	for name, want := range snap.Values() {
		got, ok := decoded.Value(name)
		if !ok {
			t.Errorf("metric %q missing after round trip", name)
			continue
		}
		if got != want {
			t.Errorf("metric %q: got %v, want %v", name, got, want)
		}
	}
	if decoded.Len() != snap.Len() {
		t.Errorf("metric count changed: %d != %d", decoded.Len(), snap.Len())
	}
}

func TestHealthState_Worst(t *testing.T) {
	if got := HealthHealthy.Worst(HealthWarning); got != HealthWarning {
		t.Errorf("Worst(healthy, warning) = %v", got)
	}
	if got := HealthCritical.Worst(HealthWarning); got != HealthCritical {
		t.Errorf("Worst(critical, warning) = %v", got)
	}
	if got := HealthHealthy.Worst(HealthHealthy); got != HealthHealthy {
		t.Errorf("Worst(healthy, healthy) = %v", got)
	}
}

func TestComparison_Holds(t *testing.T) {
	if !CompareGreater.Holds(10, 5) {
		t.Error("greater should hold for 10 vs 5")
	}
	if CompareGreater.Holds(4, 5) {
		t.Error("greater should not hold for 4 vs 5")
	}
	if !CompareLess.Holds(1, 5) {
		t.Error("less should hold for 1 vs 5")
	}
	if CompareLess.Holds(6, 5) {
		t.Error("less should not hold for 6 vs 5")
	}

	// Holds includes the threshold, HoldsStrict excludes it.
	if !CompareGreater.Holds(5, 5) || !CompareLess.Holds(5, 5) {
		t.Error("Holds should include the threshold itself")
	}
	if CompareGreater.HoldsStrict(5, 5) || CompareLess.HoldsStrict(5, 5) {
		t.Error("HoldsStrict should exclude the threshold itself")
	}
	if !CompareGreater.HoldsStrict(6, 5) {
		t.Error("greater strict should hold for 6 vs 5")
	}
	if !CompareLess.HoldsStrict(4, 5) {
		t.Error("less strict should hold for 4 vs 5")
	}
}
