// SPDX-License-Identifier: MPL-2.0

//go:build unix

package validate

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// killTreeOnCancel runs cmd in its own process group and makes cancellation
// kill the whole group, so plugins docker started die with it.
func killTreeOnCancel(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
	cmd.Cancel = func() error {
		err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		if errors.Is(err, syscall.ESRCH) {
			return os.ErrProcessDone
		}
		return err
	}
}
