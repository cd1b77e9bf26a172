package core

import "time"

// ProcessInfo is a read-only view of one supervised child process.
type ProcessInfo struct {
	PID         int           `json:"pid"`
	Command     string        `json:"command"`
	Description string        `json:"description"`
	CreatedAt   time.Time     `json:"created_at"`
	RunningTime time.Duration `json:"running_time"`
	Timeout     time.Duration `json:"timeout,omitempty"`
	Exited      bool          `json:"exited"`
	ExitCode    int           `json:"exit_code"`
}

// ProcessLister exposes the supervisor's registry to the snapshotter without
// granting lifecycle control.
type ProcessLister interface {
	ActiveCount() int
	ListActive() []ProcessInfo
}

// ProcessReaper extends ProcessLister with the operations the recovery engine
// needs: targeted kills of stale entries and a mass kill sweep. KillAll must
// leave the implementation accepting new spawns afterwards; terminal shutdown
// stays with the supervisor's owner.
type ProcessReaper interface {
	ProcessLister
	KillProcess(pid int, force bool) error
	KillAll()
}

// LogManager is the logging collaborator consumed by the snapshotter and the
// recovery engine. Implementations own every file-backed log handler.
type LogManager interface {
	// FileHandlerCount returns the number of currently open file-backed
	// handlers. Steady state is a small constant; growth indicates a leak.
	FileHandlerCount() int
	// Restart closes and recreates the file handles under the last-applied
	// configuration.
	Restart() error
	// Close releases all file handles.
	Close() error
}
