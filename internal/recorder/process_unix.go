//go:build unix

package recorder

import (
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcessGroup signals the whole group so helper processes the encoder
// spawned do not outlive it.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return os.ErrProcessDone
	}
	if err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL); err != nil {
		if err == unix.ESRCH {
			return os.ErrProcessDone
		}
		return cmd.Process.Kill()
	}
	return nil
}
