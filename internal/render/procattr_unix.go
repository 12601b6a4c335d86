//go:build unix

package render

import (
	"os/exec"
	"syscall"
)

// killProcessGroup starts cmd in its own process group and kills the whole group on cancel,
// so interpreters spawned by the render tool do not outlive it.
func killProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
