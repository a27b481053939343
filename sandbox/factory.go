package sandbox

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/flowstate/coderunner/config"
)

// NewExecutor creates the executor backend selected by the configuration
func NewExecutor(logger *zap.Logger, cfg *config.Config) (Executor, error) {
	switch cfg.Sandbox.Backend {
	case config.BackendLocal:
		return newLocalFromConfig(logger, cfg)
	case config.BackendRemote:
		return NewRemoteExecutor(logger, cfg.Remote.BaseURL, cfg.RemoteTimeout(),
			WithRemoteStageTimeouts(cfg.Remote.RunTimeoutMs, cfg.Remote.CompileTimeoutMs),
			WithRemoteMaxOutputBytes(cfg.Sandbox.MaxOutputBytes),
		), nil
	default:
		return nil, fmt.Errorf("unsupported backend: %s", cfg.Sandbox.Backend)
	}
}

func newLocalFromConfig(logger *zap.Logger, cfg *config.Config) (*LocalExecutor, error) {
	profiles := DefaultProfiles()
	if cfg.Sandbox.ProfilesFile != "" {
		loaded, err := LoadProfiles(cfg.Sandbox.ProfilesFile)
		if err != nil {
			return nil, err
		}
		profiles = loaded
		logger.Info("loaded language profiles",
			zap.String("file", cfg.Sandbox.ProfilesFile),
			zap.Int("count", len(profiles)))
	}

	registry := NewRegistry(logger, ApplyOverrides(profiles, cfg.Languages), nil)

	return NewLocalExecutor(logger, registry,
		WithLocalWorkspaceManager(NewWorkspaceManager(logger, cfg.Sandbox.WorkDir)),
		WithLocalOrchestrator(NewOrchestrator(logger,
			WithCompileTimeout(cfg.CompileTimeout()),
			WithMaxOutputBytes(cfg.Sandbox.MaxOutputBytes),
		)),
	), nil
}

var (
	_ Executor = (*LocalExecutor)(nil)
	_ Executor = (*RemoteExecutor)(nil)
)
