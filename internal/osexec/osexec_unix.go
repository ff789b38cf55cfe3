//go:build !windows

// Package osexec configures attributes of child processes spawned by shellfs.
package osexec

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// DisableInterruptSignal modifies child process attributes so that parent Ctrl-C is not propagated to a child.
func DisableInterruptSignal(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// KillGroupOnCancel makes cancellation of the command's context kill the child's whole process group,
// so that elevation wrappers (sudo, su) do not leave the wrapped shell behind.
// The command must have been created with exec.CommandContext and passed to DisableInterruptSignal.
func KillGroupOnCancel(c *exec.Cmd) {
	c.Cancel = func() error {
		if c.Process == nil {
			return nil
		}

		//nolint:wrapcheck
		return unix.Kill(-c.Process.Pid, unix.SIGKILL)
	}
}
