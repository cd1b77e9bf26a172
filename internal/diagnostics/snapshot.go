package diagnostics

import (
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/hugo-lorenzo-mato/netdiag/internal/core"
)

const longRunningThreshold = 10 * time.Minute

// Snapshotter collects one metrics snapshot per monitoring cycle. It holds
// no mutable state of its own; every call re-queries its sources.
type Snapshotter struct {
	procs  core.ProcessLister
	logs   core.LogManager
	self   *process.Process
	logger *slog.Logger
}

// NewSnapshotter wires the snapshotter to its collaborators. Either may be
// nil, in which case the corresponding metrics degrade to zero.
func NewSnapshotter(procs core.ProcessLister, logs core.LogManager, logger *slog.Logger) *Snapshotter {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Snapshotter{
		procs:  procs,
		logs:   logs,
		logger: logger,
	}
	// Best-effort: process introspection may be unsupported on this platform.
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		s.self = p
	} else {
		logger.Debug("diagnostics: process introspection unavailable", "error", err)
	}
	return s
}

// Collect builds a fresh metrics snapshot. It never fails; unavailable
// sources report sentinels (open_files) or zeros (memory, cpu).
func (s *Snapshotter) Collect() core.MetricsSnapshot {
	values := make(map[string]float64, 8)

	open, _ := CountFDs()
	values[core.MetricOpenFiles] = float64(open)

	if s.logs != nil {
		values[core.MetricFileHandlers] = float64(s.logs.FileHandlerCount())
	} else {
		values[core.MetricFileHandlers] = 0
	}

	active, longRunning, timedOut := s.processCounts()
	values[core.MetricActiveProcesses] = float64(active)
	values[core.MetricLongRunningProcesses] = float64(longRunning)
	values[core.MetricTimeoutProcesses] = float64(timedOut)

	memMB, cpuPct := s.selfUsage()
	values[core.MetricMemoryUsageMB] = memMB
	values[core.MetricCPUUsagePercent] = cpuPct

	return core.NewMetricsSnapshot(time.Now(), values)
}

func (s *Snapshotter) processCounts() (active, longRunning, timedOut int) {
	if s.procs == nil {
		return 0, 0, 0
	}

	infos := s.procs.ListActive()
	active = len(infos)
	for _, info := range infos {
		if info.RunningTime > longRunningThreshold {
			longRunning++
		}
		if info.Timeout > 0 && info.RunningTime > info.Timeout {
			timedOut++
		}
	}
	return active, longRunning, timedOut
}

func (s *Snapshotter) selfUsage() (memMB, cpuPct float64) {
	if s.self == nil {
		return 0, 0
	}
	if mi, err := s.self.MemoryInfo(); err == nil && mi != nil {
		memMB = float64(mi.RSS) / 1024 / 1024
	}
	if pct, err := s.self.CPUPercent(); err == nil {
		cpuPct = pct
	}
	return memMB, cpuPct
}
