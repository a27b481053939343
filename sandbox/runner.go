package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// CommandRunner runs a bounded, non-interactive command to completion.
// The orchestrator uses it for compile steps.
type CommandRunner interface {
	RunCommand(ctx context.Context, dir string, args []string) (stdout, stderr string, exitCode int, err error)
}

// RealCommandRunner implements CommandRunner using actual exec commands.
// Cancelling ctx kills the command's whole process group.
type RealCommandRunner struct {
	// MaxOutputBytes caps each captured stream; zero means unbounded
	MaxOutputBytes int
	// WaitDelay bounds how long output pipes are drained after the command exits
	WaitDelay time.Duration
}

// RunCommand executes the given command with arguments in dir. A non-zero
// exit is reported through exitCode, not err.
func (r RealCommandRunner) RunCommand(ctx context.Context, dir string, args []string) (stdout, stderr string, exitCode int, err error) {
	if len(args) < 1 {
		return "", "", 0, fmt.Errorf("no command provided")
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...) //nolint:gosec // toolchain paths come from the resolved registry
	cmd.Dir = dir
	configureProcess(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = r.WaitDelay

	stdoutBuf := newCappedBuffer(r.MaxOutputBytes)
	stderrBuf := newCappedBuffer(r.MaxOutputBytes)
	cmd.Stdout = stdoutBuf
	cmd.Stderr = stderrBuf

	err = cmd.Run()
	// compilers may leave helpers behind in the group
	_ = killProcessGroup(cmd)

	stdout, stderr = stdoutBuf.String(), stderrBuf.String()
	if stderrBuf.Truncated() || stdoutBuf.Truncated() {
		stderr = withTruncationMarker(stderr)
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout, stderr, exitErr.ExitCode(), nil
		}
		if errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil {
			return stdout, stderr, cmd.ProcessState.ExitCode(), nil
		}
		return stdout, stderr, 0, err
	}

	return stdout, stderr, 0, nil
}
