//go:build unix

package backend

import (
	"os/exec"
	"syscall"
)

// configureProcessGroup starts the command in its own process group so the
// whole tree (docker/ssh plus anything they spawn) is killed on cancel.
func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
