//go:build windows

package supervise

import "os/exec"

// configureProcAttr is a no-op on Windows; there is no process group
// equivalent that exec can arm for us here.
func configureProcAttr(cmd *exec.Cmd) {}

// terminate kills the process directly. Windows has no SIGTERM, so graceful
// and forced termination collapse into the same operation.
func terminate(cmd *exec.Cmd) error {
	return forceKill(cmd)
}

func forceKill(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
