package main

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/flowstate/coderunner/config"
	"github.com/flowstate/coderunner/httpapi"
	"github.com/flowstate/coderunner/logger"
	"github.com/flowstate/coderunner/mcpserver"
	"github.com/flowstate/coderunner/playground"
	"github.com/flowstate/coderunner/sandbox"
)

func newPlayground(cfg *config.Config, log *zap.Logger, executor sandbox.Executor) (*playground.Service, error) {
	return playground.NewService(log, executor, int64(cfg.Sandbox.MaxConcurrent))
}

func runMCP(lc fx.Lifecycle, shutdowner fx.Shutdowner, log *zap.Logger, server *mcpserver.MCPServer) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := server.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("MCP server stopped", zap.Error(err))
				}
				// stdio returns once the client closes its end
				_ = shutdowner.Shutdown()
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			config.New,
			logger.NewFromConfig,
			sandbox.NewExecutor,
			newPlayground,
			httpapi.NewHandler,
			mcpserver.New,
		),

		fx.Invoke(
			logger.RegisterSync,
			httpapi.Register,
			runMCP,
		),

		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
	)

	app.Run()
}
