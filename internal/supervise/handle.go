package supervise

import (
	"context"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/netdiag/internal/core"
)

// Handle is the short-lived caller-side wrapper around a supervised process.
// All lifecycle decisions delegate to the supervisor that created it.
type Handle struct {
	supervisor *Supervisor
	entry      *entry

	cleanupOnce sync.Once
}

// PID returns the operating system process ID.
func (h *Handle) PID() int {
	return h.entry.pid
}

// State returns the last known lifecycle state.
func (h *Handle) State() State {
	return h.entry.getState()
}

// ExitCode returns the exit code once the process has exited; -1 before.
func (h *Handle) ExitCode() int {
	if !h.entry.exited() {
		return -1
	}
	return h.entry.exitCode
}

// Communicate optionally writes input to the process, waits for completion
// bounded by the spawn timeout, and returns the captured stdout and stderr.
// On timeout the process is force-killed and a timeout error returned; the
// registry entry is removed before the call returns either way.
func (h *Handle) Communicate(ctx context.Context, input []byte) (stdout, stderr []byte, err error) {
	e := h.entry

	// Write input and close stdin so the child sees EOF. Done in a goroutine
	// so a child that never reads cannot wedge the caller before the timeout.
	go func() {
		if len(input) > 0 {
			_, _ = e.stdin.Write(input)
		}
		_ = e.stdin.Close()
	}()

	if waitErr := h.waitDone(ctx); waitErr != nil {
		return e.stdout.Bytes(), e.stderr.Bytes(), waitErr
	}

	h.deregister()
	return e.stdout.Bytes(), e.stderr.Bytes(), nil
}

// Wait blocks until the process exits or the spawn timeout fires, returning
// the exit code. Timeout semantics match Communicate.
func (h *Handle) Wait(ctx context.Context) (int, error) {
	if err := h.waitDone(ctx); err != nil {
		return -1, err
	}
	h.deregister()
	return h.entry.exitCode, nil
}

func (h *Handle) waitDone(ctx context.Context) error {
	e := h.entry

	var timeoutCh <-chan time.Time
	if e.spec.Timeout > 0 {
		timer := time.NewTimer(e.spec.Timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case <-e.done:
		return nil
	case <-timeoutCh:
		h.supervisor.logger.Warn("supervise: process timed out",
			"pid", e.pid, "timeout", e.spec.Timeout, "command", commandLine(e.spec))
		e.setState(StateTimedOut)
		h.killOnce()
		return core.ErrTimeout(e.pid, e.spec.Timeout)
	case <-ctx.Done():
		h.killOnce()
		return ctx.Err()
	}
}

// Kill terminates the process. Idempotent; errors are best-effort and the
// entry is always removed on confirmed exit.
func (h *Handle) Kill(force bool) error {
	var err error
	h.cleanupOnce.Do(func() {
		err = h.supervisor.KillProcess(h.entry.pid, force)
	})
	return err
}

func (h *Handle) killOnce() {
	h.cleanupOnce.Do(func() {
		terminal := h.entry.getState()
		if terminal != StateTimedOut {
			terminal = StateKilled
		}
		if err := h.supervisor.killEntry(h.entry, true, terminal); err != nil {
			h.supervisor.logger.Warn("supervise: kill after wait failure",
				"pid", h.entry.pid, "error", err)
		}
	})
}

func (h *Handle) deregister() {
	h.cleanupOnce.Do(func() {
		h.supervisor.remove(h.entry.pid)
	})
}
