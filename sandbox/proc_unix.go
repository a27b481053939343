//go:build unix && !linux

package sandbox

import (
	"errors"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

var errMemoryLimitUnsupported = errors.New("per-process memory limits are not supported on this platform")

func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// applyMemoryLimit has no per-child mechanism here; the run continues
// without a memory ceiling.
func applyMemoryLimit(_ int, profile LanguageProfile) error {
	if !profile.EnforceMemory || profile.MemoryLimitBytes <= 0 {
		return nil
	}
	return errMemoryLimitUnsupported
}

func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil || cmd.Process.Pid <= 0 {
		return nil
	}

	err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	if err == nil || errors.Is(err, unix.ESRCH) {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
