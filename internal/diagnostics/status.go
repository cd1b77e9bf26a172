package diagnostics

import (
	"fmt"
	"time"

	"github.com/hugo-lorenzo-mato/netdiag/internal/core"
)

// Coarse classification thresholds. These are deliberately fixed: the
// snapshotter's status is an always-on sanity check, while the monitor
// package carries the configurable rules.
const (
	fdRatioWarning  = 0.7
	fdRatioCritical = 0.9

	handlerWarning  = 2
	handlerCritical = 10

	processWarning  = 10
	processCritical = 50
)

// StatusReport is the coarse point-in-time health classification returned
// alongside a raw snapshot for direct operator display.
type StatusReport struct {
	Timestamp time.Time            `json:"timestamp"`
	Overall   core.HealthState     `json:"overall_status"`
	Warnings  []string             `json:"warnings,omitempty"`
	Errors    []string             `json:"errors,omitempty"`
	OpenFDs   int                  `json:"open_fds"`
	SoftLimit int                  `json:"fd_soft_limit"`
	FDRatio   float64              `json:"fd_usage_ratio"`
	Snapshot  core.MetricsSnapshot `json:"snapshot"`
}

// Status collects a snapshot and derives the coarse classification by
// combining independent per-source rules worst-of.
func (s *Snapshotter) Status() StatusReport {
	snap := s.Collect()
	open, limit := CountFDs()
	return DeriveStatus(snap, open, limit)
}

// DeriveStatus classifies a snapshot against the fixed coarse thresholds.
func DeriveStatus(snap core.MetricsSnapshot, openFDs, softLimit int) StatusReport {
	report := StatusReport{
		Timestamp: snap.Timestamp(),
		Overall:   core.HealthHealthy,
		OpenFDs:   openFDs,
		SoftLimit: softLimit,
		Snapshot:  snap,
	}

	// File descriptor usage ratio.
	if softLimit > 0 && openFDs >= 0 {
		ratio := float64(openFDs) / float64(softLimit)
		report.FDRatio = ratio
		switch {
		case ratio >= fdRatioCritical:
			report.Overall = report.Overall.Worst(core.HealthCritical)
			report.Errors = append(report.Errors,
				fmt.Sprintf("critical file descriptor usage: %.1f%% (%d of %d)", ratio*100, openFDs, softLimit))
		case ratio >= fdRatioWarning:
			report.Overall = report.Overall.Worst(core.HealthWarning)
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("high file descriptor usage: %.1f%% (%d of %d)", ratio*100, openFDs, softLimit))
		}
	}

	// Log handler leak indicator.
	if handlers, ok := snap.Value(core.MetricFileHandlers); ok {
		switch {
		case handlers > handlerCritical:
			report.Overall = report.Overall.Worst(core.HealthCritical)
			report.Errors = append(report.Errors,
				fmt.Sprintf("too many log handlers: %.0f", handlers))
		case handlers > handlerWarning:
			report.Overall = report.Overall.Worst(core.HealthWarning)
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("unusual log handler count: %.0f", handlers))
		}
	}

	// Supervised process pressure.
	active, _ := snap.Value(core.MetricActiveProcesses)
	longRunning, _ := snap.Value(core.MetricLongRunningProcesses)
	timedOut, _ := snap.Value(core.MetricTimeoutProcesses)
	switch {
	case active > processCritical || timedOut > 0:
		report.Overall = report.Overall.Worst(core.HealthCritical)
		report.Errors = append(report.Errors,
			fmt.Sprintf("critical process pressure: %.0f active, %.0f past their timeout", active, timedOut))
	case active > processWarning || longRunning > 0:
		report.Overall = report.Overall.Worst(core.HealthWarning)
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("process concerns: %.0f active, %.0f long-running", active, longRunning))
	}

	return report
}
