package recovery

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/hugo-lorenzo-mato/netdiag/internal/core"
)

// Action names a remediation the engine knows how to perform.
type Action string

const (
	ActionCleanupResources   Action = "cleanup-resources"
	ActionRestartLogging     Action = "restart-logging"
	ActionKillStaleProcesses Action = "kill-stale-processes"
	ActionClearCache         Action = "clear-cache"
	ActionRestartService     Action = "restart-service"
	ActionEmergencyShutdown  Action = "emergency-shutdown"
)

// Valid reports whether the action is one the engine can dispatch.
func (a Action) Valid() bool {
	switch a {
	case ActionCleanupResources, ActionRestartLogging, ActionKillStaleProcesses,
		ActionClearCache, ActionRestartService, ActionEmergencyShutdown:
		return true
	}
	return false
}

// staleAfter marks a supervised process as stale for kill-stale-processes.
const staleAfter = 10 * time.Minute

// execute dispatches one action. Callers hold the engine mutex.
func (e *Engine) execute(action Action) error {
	switch action {
	case ActionCleanupResources:
		return e.cleanupResources()
	case ActionRestartLogging:
		return e.restartLogging()
	case ActionKillStaleProcesses:
		return e.killStaleProcesses()
	case ActionClearCache:
		return e.clearCache()
	case ActionRestartService:
		return e.restartService()
	case ActionEmergencyShutdown:
		return e.emergencyShutdown()
	default:
		return core.ErrRecovery(string(action), fmt.Errorf("unknown action"))
	}
}

// cleanupResources reclaims descriptors and memory: reopen log handles, kill
// every supervised child, then nudge the collector. The supervisor stays open
// so later diagnosis runs can still spawn.
func (e *Engine) cleanupResources() error {
	var firstErr error
	if e.logs != nil {
		if err := e.logs.Restart(); err != nil {
			firstErr = core.ErrRecovery(string(ActionCleanupResources), err)
		}
	}
	if e.procs != nil {
		e.procs.KillAll()
	}
	runtime.GC()
	return firstErr
}

func (e *Engine) restartLogging() error {
	if e.logs == nil {
		return nil
	}
	if err := e.logs.Restart(); err != nil {
		return core.ErrRecovery(string(ActionRestartLogging), err)
	}
	return nil
}

// killStaleProcesses force-kills supervised children that have been running
// past the stale threshold. Individual kill failures are collected into one
// error; the sweep continues regardless.
func (e *Engine) killStaleProcesses() error {
	if e.procs == nil {
		return nil
	}
	var failed int
	for _, info := range e.procs.ListActive() {
		if info.RunningTime < staleAfter {
			continue
		}
		if err := e.procs.KillProcess(info.PID, true); err != nil {
			failed++
			e.logger.Warn("recovery: killing stale process failed",
				"pid", info.PID, "command", info.Command, "error", err)
		}
	}
	if failed > 0 {
		return core.ErrRecovery(string(ActionKillStaleProcesses),
			fmt.Errorf("%d stale processes could not be killed", failed))
	}
	return nil
}

// clearCache removes everything under the cache directory but keeps the
// directory itself. Best effort; a missing directory is not an error.
func (e *Engine) clearCache() error {
	if e.cacheDir == "" {
		return nil
	}
	entries, err := os.ReadDir(e.cacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return core.ErrRecovery(string(ActionClearCache), err)
	}
	var firstErr error
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(e.cacheDir, entry.Name())); err != nil && firstErr == nil {
			firstErr = core.ErrRecovery(string(ActionClearCache), err)
		}
	}
	return firstErr
}

// restartService performs a full resource cleanup and records the restart
// intent. The actual restart belongs to the external process manager.
func (e *Engine) restartService() error {
	err := e.cleanupResources()
	e.restartRequested = true
	return err
}

// emergencyShutdown releases every resource the engine can reach. The caller
// flips the terminal emergency flag afterwards; the supervisor itself stays
// open so an operator Enable can resume without restarting the process.
func (e *Engine) emergencyShutdown() error {
	var firstErr error
	if e.procs != nil {
		e.procs.KillAll()
	}
	if e.logs != nil {
		if err := e.logs.Close(); err != nil {
			firstErr = core.ErrRecovery(string(ActionEmergencyShutdown), err)
		}
	}
	return firstErr
}
