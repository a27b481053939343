package sandbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/flowstate/coderunner/config"
)

// BackendLocal names the local subprocess backend in health reports
const BackendLocal = config.BackendLocal

// LocalExecutor runs submissions as subprocesses on the host using the
// toolchains the registry found at startup.
type LocalExecutor struct {
	logger       *zap.Logger
	registry     *Registry
	filter       *Filter
	workspaces   *WorkspaceManager
	orchestrator *Orchestrator
}

// LocalExecutorOption defines a functional option for LocalExecutor
type LocalExecutorOption func(*LocalExecutor)

// WithLocalFilter sets the Filter for LocalExecutor
func WithLocalFilter(f *Filter) LocalExecutorOption {
	return func(l *LocalExecutor) {
		l.filter = f
	}
}

// WithLocalWorkspaceManager sets the WorkspaceManager for LocalExecutor
func WithLocalWorkspaceManager(m *WorkspaceManager) LocalExecutorOption {
	return func(l *LocalExecutor) {
		l.workspaces = m
	}
}

// WithLocalOrchestrator sets the Orchestrator for LocalExecutor
func WithLocalOrchestrator(o *Orchestrator) LocalExecutorOption {
	return func(l *LocalExecutor) {
		l.orchestrator = o
	}
}

// DefaultWorkDir is the base directory for workspaces when none is configured
func DefaultWorkDir() string {
	return filepath.Join(os.TempDir(), "flowstate-playground")
}

// NewLocalExecutor creates a new LocalExecutor with default implementations and optional overrides
func NewLocalExecutor(logger *zap.Logger, registry *Registry, opts ...LocalExecutorOption) *LocalExecutor {
	l := &LocalExecutor{
		logger:   logger,
		registry: registry,
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.filter == nil {
		l.filter = DefaultFilter()
	}
	if l.workspaces == nil {
		l.workspaces = NewWorkspaceManager(logger, DefaultWorkDir())
	}
	if l.orchestrator == nil {
		l.orchestrator = NewOrchestrator(logger)
	}

	return l
}

// Execute filters, materializes, compiles, and runs one submission. The
// workspace is released on every path once it has been acquired.
func (l *LocalExecutor) Execute(ctx context.Context, req Request) Outcome {
	language := strings.ToLower(strings.TrimSpace(req.Language))

	if err := l.filter.Check(req.Code, language); err != nil {
		l.logger.Info("submission rejected", zap.String("language", language), zap.Error(err))
		return Rejected(err)
	}

	profile, err := l.registry.Resolve(language)
	if err != nil {
		return Unsupported(err)
	}

	ws, err := l.workspaces.Acquire(profile, req.Code)
	if err != nil {
		l.logger.Error("failed to acquire workspace", zap.String("language", language), zap.Error(err))
		return SpawnFailure(err)
	}
	defer func() {
		// Release logs its own failures; the outcome is already decided
		_ = l.workspaces.Release(ws)
	}()

	outcome := l.orchestrator.Run(ctx, ws, profile, req.Stdin)
	outcome.WorkspaceID = ws.ID

	l.logger.Info("execution finished",
		zap.String("workspace", ws.ID),
		zap.String("language", language),
		zap.Stringer("status", outcome.Status),
		zap.Duration("elapsed", outcome.Elapsed),
		zap.Duration("compile", outcome.CompileDur))

	return outcome
}

// Languages returns the catalog of languages whose toolchain was found
func (l *LocalExecutor) Languages() []LanguageInfo {
	return l.registry.Languages()
}

// Health reports the local backend usable when at least one toolchain was found
func (l *LocalExecutor) Health(_ context.Context) Health {
	ids := l.registry.IDs()
	h := Health{
		Available: len(ids) > 0,
		Backend:   BackendLocal,
		Details: map[string]any{
			"languages":   ids,
			"unavailable": l.registry.Unavailable(),
			"work_dir":    l.workspaces.BaseDir(),
		},
	}

	if h.Available {
		h.Message = fmt.Sprintf("Local execution is available for %d languages", len(ids))
	} else {
		h.Message = "No language toolchains were found on the server"
	}
	return h
}
