//go:build unix

package daemon

import (
	"os/exec"
	"syscall"
)

// detach starts the monitor in its own session, away from the terminal and
// process group of the command that spawned it.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
