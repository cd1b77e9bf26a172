// Package supervise owns the lifecycle of every external command the
// diagnosis toolkit spawns: ping, mtr, traceroute and friends. Each spawned
// process is tracked in a registry, reaped in the background once its exit
// status is known, and force-terminated at shutdown so no child outlives the
// host process.
package supervise

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/netdiag/internal/core"
)

const (
	defaultReapInterval = 5 * time.Second
	defaultGracePeriod  = 5 * time.Second
	longRunningAfter    = 10 * time.Minute
)

// State is the last known lifecycle state of a supervised process.
type State string

const (
	StateRunning  State = "running"
	StateExited   State = "exited"
	StateKilled   State = "killed"
	StateTimedOut State = "timed_out"
)

// Spec describes one external command to spawn.
type Spec struct {
	Command     string
	Args        []string
	Timeout     time.Duration // zero means unbounded
	Description string
	Dir         string
	Env         []string
}

// entry is the registry record for one spawned process. The supervisor's
// mutex guards the registry map; per-entry exit state is published by the
// waiter goroutine through the done channel, so status checks never block.
type entry struct {
	pid       int
	cmd       *exec.Cmd
	spec      Spec
	createdAt time.Time

	stdout bytes.Buffer
	stderr bytes.Buffer
	stdin  io.WriteCloser

	done     chan struct{}
	waitErr  error
	exitCode int

	stateMu sync.Mutex
	state   State
}

func (e *entry) exited() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

func (e *entry) setState(s State) {
	e.stateMu.Lock()
	e.state = s
	e.stateMu.Unlock()
}

func (e *entry) getState() State {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.state
}

// Supervisor spawns, tracks, reaps and force-terminates child processes.
// Construct one per process at startup and inject it everywhere it is
// needed; CleanupAll must run at shutdown.
type Supervisor struct {
	mu    sync.Mutex
	procs map[int]*entry

	logger       *slog.Logger
	reapInterval time.Duration
	gracePeriod  time.Duration

	reapCancel context.CancelFunc
	reapWG     sync.WaitGroup
	waitWG     sync.WaitGroup

	closed bool
}

// Option configures the supervisor.
type Option func(*Supervisor)

// WithReapInterval overrides the background reaper cadence.
func WithReapInterval(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.reapInterval = d
		}
	}
}

// WithGracePeriod overrides how long a terminate signal may take before the
// kill escalates.
func WithGracePeriod(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.gracePeriod = d
		}
	}
}

// New creates a supervisor and starts its background reaper.
func New(logger *slog.Logger, opts ...Option) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Supervisor{
		procs:        make(map[int]*entry),
		logger:       logger,
		reapInterval: defaultReapInterval,
		gracePeriod:  defaultGracePeriod,
	}
	for _, opt := range opts {
		opt(s)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.reapCancel = cancel
	s.reapWG.Add(1)
	go s.reapLoop(ctx)

	return s
}

// Spawn starts the external command and registers it. The returned handle
// delegates communicate/wait/kill back to the supervisor.
func (s *Supervisor) Spawn(spec Spec) (*Handle, error) {
	cmd := exec.Command(spec.Command, spec.Args...)
	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}
	if len(spec.Env) > 0 {
		cmd.Env = spec.Env
	}
	configureProcAttr(cmd)

	e := &entry{
		cmd:       cmd,
		spec:      spec,
		createdAt: time.Now(),
		done:      make(chan struct{}),
		state:     StateRunning,
	}
	cmd.Stdout = &e.stdout
	cmd.Stderr = &e.stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, core.ErrSpawn(spec.Command, err)
	}
	e.stdin = stdin

	// Closed check, start, registration and the waiter accounting form one
	// critical section, so a Spawn racing CleanupAll either sees closed or
	// lands in the registry before the shutdown sweep copies it.
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = stdin.Close()
		return nil, core.ErrSpawn(spec.Command, context.Canceled)
	}
	if err := cmd.Start(); err != nil {
		s.mu.Unlock()
		_ = stdin.Close()
		return nil, core.ErrSpawn(spec.Command, err)
	}
	e.pid = cmd.Process.Pid
	s.procs[e.pid] = e
	s.waitWG.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.waitWG.Done()
		err := cmd.Wait()
		e.waitErr = err
		e.exitCode = cmd.ProcessState.ExitCode()
		if e.getState() == StateRunning {
			e.setState(StateExited)
		}
		close(e.done)
	}()

	s.logger.Debug("supervise: process started",
		"pid", e.pid,
		"command", spec.Command,
		"description", spec.Description,
		"timeout", spec.Timeout,
	)

	return &Handle{supervisor: s, entry: e}, nil
}

// KillProcess terminates the given process. A graceful terminate signal is
// sent first unless force is set; if the process has not exited within the
// grace period the kill escalates. The entry is removed from the registry on
// confirmed exit. Killing an unknown or already-dead process is a no-op.
func (s *Supervisor) KillProcess(pid int, force bool) error {
	s.mu.Lock()
	e, ok := s.procs[pid]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return s.killEntry(e, force, StateKilled)
}

func (s *Supervisor) killEntry(e *entry, force bool, terminal State) error {
	if e.exited() {
		s.remove(e.pid)
		return nil
	}

	e.setState(terminal)

	var killErr error
	if force {
		killErr = forceKill(e.cmd)
	} else {
		killErr = terminate(e.cmd)
	}
	if killErr != nil {
		// Best effort: the process may already be gone.
		s.logger.Warn("supervise: signal failed", "pid", e.pid, "error", killErr)
	}

	select {
	case <-e.done:
	case <-time.After(s.gracePeriod):
		if !force {
			s.logger.Warn("supervise: process ignored terminate, escalating", "pid", e.pid)
			if err := forceKill(e.cmd); err != nil {
				s.logger.Warn("supervise: force kill failed", "pid", e.pid, "error", err)
			}
			select {
			case <-e.done:
			case <-time.After(s.gracePeriod):
				s.logger.Error("supervise: process survived force kill", "pid", e.pid)
			}
		} else {
			s.logger.Error("supervise: process survived force kill", "pid", e.pid)
		}
	}

	s.remove(e.pid)

	if killErr != nil {
		return core.ErrKill(e.pid, killErr)
	}
	return nil
}

func (s *Supervisor) remove(pid int) {
	s.mu.Lock()
	delete(s.procs, pid)
	s.mu.Unlock()
}

// ActiveCount returns the number of registered processes.
func (s *Supervisor) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.procs)
}

// ListActive returns a snapshot of the registry.
func (s *Supervisor) ListActive() []core.ProcessInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	infos := make([]core.ProcessInfo, 0, len(s.procs))
	for _, e := range s.procs {
		info := core.ProcessInfo{
			PID:         e.pid,
			Command:     commandLine(e.spec),
			Description: e.spec.Description,
			CreatedAt:   e.createdAt,
			RunningTime: now.Sub(e.createdAt),
			Timeout:     e.spec.Timeout,
			Exited:      e.exited(),
		}
		if info.Exited {
			info.ExitCode = e.exitCode
		}
		infos = append(infos, info)
	}
	return infos
}

// LongRunning returns registry entries running longer than the stale
// threshold. Used by the kill-stale-processes recovery action.
func (s *Supervisor) LongRunning() []core.ProcessInfo {
	var stale []core.ProcessInfo
	for _, info := range s.ListActive() {
		if info.RunningTime > longRunningAfter {
			stale = append(stale, info)
		}
	}
	return stale
}

// KillAll force-kills every tracked process but leaves the supervisor open:
// the reaper keeps running and new spawns are still accepted. This is the
// sweep recovery actions use to reclaim descriptors mid-flight.
func (s *Supervisor) KillAll() {
	killed := s.killTracked()
	if killed > 0 {
		s.logger.Info("supervise: killed all tracked processes", "count", killed)
	}
}

func (s *Supervisor) killTracked() int {
	s.mu.Lock()
	entries := make([]*entry, 0, len(s.procs))
	for _, e := range s.procs {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	for _, e := range entries {
		if err := s.killEntry(e, true, StateKilled); err != nil {
			s.logger.Warn("supervise: cleanup kill failed", "pid", e.pid, "error", err)
		}
	}
	return len(entries)
}

// CleanupAll force-kills every tracked process and stops the background
// reaper. The supervisor is closed for good; call it once at shutdown and
// nowhere else.
func (s *Supervisor) CleanupAll() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.killTracked()

	s.reapCancel()
	s.reapWG.Wait()
	s.waitWG.Wait()

	s.logger.Debug("supervise: shutdown complete")
}

// reapLoop removes finished processes whose callers never waited on them.
// This bounds registry growth even for fire-and-forget spawns.
func (s *Supervisor) reapLoop(ctx context.Context) {
	defer s.reapWG.Done()

	ticker := time.NewTicker(s.reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reapFinished()
		}
	}
}

func (s *Supervisor) reapFinished() {
	s.mu.Lock()
	var finished []*entry
	for _, e := range s.procs {
		if e.exited() {
			finished = append(finished, e)
		}
	}
	for _, e := range finished {
		delete(s.procs, e.pid)
	}
	s.mu.Unlock()

	for _, e := range finished {
		s.logger.Debug("supervise: reaped finished process",
			"pid", e.pid,
			"command", commandLine(e.spec),
			"exit_code", e.exitCode,
		)
	}
}

func commandLine(spec Spec) string {
	if len(spec.Args) == 0 {
		return spec.Command
	}
	return spec.Command + " " + strings.Join(spec.Args, " ")
}
