package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

// Orchestrator defaults
const (
	DefaultCompileTimeout = 10 * time.Second
	DefaultMaxOutputBytes = 1 << 20
	DefaultWaitDelay      = 500 * time.Millisecond
)

// Orchestrator spawns the compile and run steps of one submission, feeds
// stdin, captures output, and enforces the wall-clock budget. It keeps no
// state between calls.
type Orchestrator struct {
	logger         *zap.Logger
	compileTimeout time.Duration
	maxOutputBytes int
	waitDelay      time.Duration
	runner         CommandRunner
}

// OrchestratorOption defines a functional option for Orchestrator
type OrchestratorOption func(*Orchestrator)

// WithCompileTimeout sets the budget of the compile step
func WithCompileTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d > 0 {
			o.compileTimeout = d
		}
	}
}

// WithMaxOutputBytes sets the per-stream capture cap
func WithMaxOutputBytes(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		o.maxOutputBytes = n
	}
}

// WithCompileRunner sets the CommandRunner used for compile steps
func WithCompileRunner(r CommandRunner) OrchestratorOption {
	return func(o *Orchestrator) {
		o.runner = r
	}
}

// NewOrchestrator creates an Orchestrator with default limits
func NewOrchestrator(logger *zap.Logger, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		logger:         logger,
		compileTimeout: DefaultCompileTimeout,
		maxOutputBytes: DefaultMaxOutputBytes,
		waitDelay:      DefaultWaitDelay,
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.runner == nil {
		o.runner = RealCommandRunner{MaxOutputBytes: o.maxOutputBytes, WaitDelay: o.waitDelay}
	}

	return o
}

// Run compiles the workspace source when the profile needs it, then runs the
// program. Cancelling ctx stops the program through the same kill path as
// the timeout.
func (o *Orchestrator) Run(ctx context.Context, ws *Workspace, profile LanguageProfile, stdin string) Outcome {
	var compile *StepResult
	if profile.Strategy() == StrategyCompiled {
		compile = o.compile(ctx, ws, profile)
		if compile.Status != StatusSuccess {
			return Compose(compile, nil)
		}
	}

	return Compose(compile, o.run(ctx, ws, profile, stdin))
}

func (o *Orchestrator) compile(ctx context.Context, ws *Workspace, profile LanguageProfile) *StepResult {
	// recorded up front so a half-written artifact is still released
	for _, name := range profile.Artifacts {
		ws.AddArtifact(ws.ArtifactPath(name))
	}

	args := append([]string{profile.Compile.executable()}, expandArgs(profile.Compile.Args, ws, profile)...)

	cctx, cancel := context.WithTimeout(ctx, o.compileTimeout)
	defer cancel()

	o.logger.Debug("compiling",
		zap.String("workspace", ws.ID),
		zap.String("language", profile.ID),
		zap.Strings("argv", args))

	start := time.Now()
	stdout, stderr, code, err := o.runner.RunCommand(cctx, ws.Dir, args)
	elapsed := time.Since(start)

	if (err != nil || code != 0) && cctx.Err() != nil {
		msg := fmt.Sprintf("Compilation timed out after %s", o.compileTimeout)
		if errors.Is(cctx.Err(), context.Canceled) {
			msg = MessageCancelled
		}
		return &StepResult{Status: StatusTimeout, Stdout: stdout, Stderr: stderr, Message: msg, Elapsed: elapsed}
	}

	if err != nil {
		return &StepResult{
			Status:  StatusSpawnError,
			Stderr:  err.Error(),
			Message: fmt.Sprintf("Failed to start compiler %s", args[0]),
			Elapsed: elapsed,
		}
	}

	if code != 0 {
		return &StepResult{
			Status:   StatusCompileError,
			Stdout:   stdout,
			Stderr:   stderr,
			Message:  "Compilation failed",
			ExitCode: &code,
			Elapsed:  elapsed,
		}
	}

	return &StepResult{Status: StatusSuccess, Stdout: stdout, Stderr: stderr, Elapsed: elapsed}
}

// runArgv picks the program to start: the interpreter or runtime named by
// the profile, or the native artifact a compile step produced.
func runArgv(ws *Workspace, profile LanguageProfile) (string, []string) {
	args := expandArgs(profile.Run.Args, ws, profile)
	if len(profile.Run.Candidates) > 0 || profile.Run.Path != "" {
		return profile.Run.executable(), args
	}
	return ws.ArtifactPath(ArtifactName()), args
}

func (o *Orchestrator) run(ctx context.Context, ws *Workspace, profile LanguageProfile, stdin string) *StepResult {
	name, args := runArgv(ws, profile)

	cmd := exec.Command(name, args...) //nolint:gosec // executing submitted programs is the purpose of this package
	cmd.Dir = ws.Dir
	configureProcess(cmd)
	cmd.WaitDelay = o.waitDelay

	stdout := newCappedBuffer(o.maxOutputBytes)
	stderr := newCappedBuffer(o.maxOutputBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		return &StepResult{Status: StatusSpawnError, Stderr: err.Error(), Message: "Failed to open standard input"}
	}

	// elapsed covers the whole budget
	start := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, profile.Timeout())
	defer cancel()

	if err := cmd.Start(); err != nil {
		return &StepResult{
			Status:  StatusSpawnError,
			Stderr:  err.Error(),
			Message: fmt.Sprintf("Failed to start %s", name),
			Elapsed: time.Since(start),
		}
	}

	o.logger.Debug("process started",
		zap.String("workspace", ws.ID),
		zap.String("language", profile.ID),
		zap.Int("pid", cmd.Process.Pid),
		zap.Duration("timeout", profile.Timeout()))

	if err := applyMemoryLimit(cmd.Process.Pid, profile); err != nil {
		o.logger.Debug("memory limit not applied",
			zap.String("workspace", ws.ID),
			zap.Int64("limit_bytes", profile.MemoryLimitBytes),
			zap.Error(err))
	}

	input := NormalizeInput(stdin)
	go func() {
		// write errors mean the program exited or closed stdin without reading
		defer stdinPipe.Close()
		if input != "" {
			_, _ = io.WriteString(stdinPipe, input)
		}
	}()

	waitCh := make(chan error, 1)
	go func() {
		waitCh <- cmd.Wait()
	}()

	select {
	case waitErr := <-waitCh:
		elapsed := time.Since(start)
		// the leader is gone but anything it forked may still be running
		if err := killProcessGroup(cmd); err != nil {
			o.logger.Warn("failed to kill process group",
				zap.String("workspace", ws.ID),
				zap.Int("pid", cmd.Process.Pid),
				zap.Error(err))
		}
		return o.exited(ws, cmd, waitErr, stdout, stderr, elapsed)

	case <-runCtx.Done():
		stdout.freeze()
		stderr.freeze()
		elapsed := time.Since(start)

		if err := killProcessGroup(cmd); err != nil {
			o.logger.Warn("failed to kill process group",
				zap.String("workspace", ws.ID),
				zap.Int("pid", cmd.Process.Pid),
				zap.Error(err))
		}
		<-waitCh

		msg := MessageTimeout
		if errors.Is(runCtx.Err(), context.Canceled) {
			msg = MessageCancelled
		}
		o.logger.Debug("process killed",
			zap.String("workspace", ws.ID),
			zap.Duration("elapsed", elapsed),
			zap.String("reason", runCtx.Err().Error()))

		return o.withTruncation(ws, &StepResult{
			Status:    StatusTimeout,
			Stdout:    stdout.String(),
			Stderr:    stderr.String(),
			Message:   msg,
			Elapsed:   elapsed,
			Truncated: stdout.Truncated() || stderr.Truncated(),
		})
	}
}

func (o *Orchestrator) exited(ws *Workspace, cmd *exec.Cmd, waitErr error, stdout, stderr *cappedBuffer, elapsed time.Duration) *StepResult {
	res := &StepResult{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Elapsed:   elapsed,
		Truncated: stdout.Truncated() || stderr.Truncated(),
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil, errors.As(waitErr, &exitErr), errors.Is(waitErr, exec.ErrWaitDelay):
	default:
		res.Status = StatusSpawnError
		res.Stderr = waitErr.Error()
		res.Message = "Failed to wait for program"
		return res
	}

	state := cmd.ProcessState
	code := state.ExitCode()
	switch {
	case code == 0:
		res.Status = StatusSuccess
		res.ExitCode = &code
	case code > 0:
		res.Status = StatusRuntimeError
		res.ExitCode = &code
	default:
		// terminated by a signal it did not get from us
		res.Status = StatusRuntimeError
		res.Message = "Program terminated: " + state.String()
	}

	return o.withTruncation(ws, res)
}

func (o *Orchestrator) withTruncation(ws *Workspace, res *StepResult) *StepResult {
	if res.Truncated {
		res.Stderr = withTruncationMarker(res.Stderr)
		o.logger.Debug("output truncated",
			zap.String("workspace", ws.ID),
			zap.Int("limit_bytes", o.maxOutputBytes))
	}
	return res
}
