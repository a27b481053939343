//go:build linux

package sandbox

import (
	"errors"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// configureProcess places the child in its own process group so a kill
// reaches everything it spawned, and ties its lifetime to ours.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}
}

// applyMemoryLimit caps the address space of a started child. The limit is
// set right after start, so a program that allocates in its first
// instructions can briefly exceed it.
func applyMemoryLimit(pid int, profile LanguageProfile) error {
	if !profile.EnforceMemory || profile.MemoryLimitBytes <= 0 {
		return nil
	}

	limit := uint64(profile.MemoryLimitBytes)
	return unix.Prlimit(pid, unix.RLIMIT_AS, &unix.Rlimit{Cur: limit, Max: limit}, nil)
}

// killProcessGroup sends SIGKILL to the child's whole process group
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
