//go:build !unix

package sandbox

import (
	"errors"
	"os"
	"os/exec"
)

var errMemoryLimitUnsupported = errors.New("per-process memory limits are not supported on this platform")

func configureProcess(*exec.Cmd) {}

func applyMemoryLimit(_ int, profile LanguageProfile) error {
	if !profile.EnforceMemory || profile.MemoryLimitBytes <= 0 {
		return nil
	}
	return errMemoryLimitUnsupported
}

// killProcessGroup can only reach the direct child on this platform
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
