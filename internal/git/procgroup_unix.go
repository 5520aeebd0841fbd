//go:build unix

package git

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// setProcessGroup starts git in its own process group and kills the whole
// group on cancellation, so helpers such as git-remote-https and
// index-pack die with it.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		if errors.Is(err, syscall.ESRCH) {
			return os.ErrProcessDone
		}
		return err
	}
}
