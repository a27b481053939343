package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/flowstate/coderunner/config"
)

const readHeaderTimeout = 10 * time.Second

// Server owns the HTTP listener of the playground API
type Server struct {
	logger     *zap.Logger
	httpServer *http.Server
	listener   net.Listener
}

// NewServer creates a Server bound to addr
func NewServer(logger *zap.Logger, addr string, router *gin.Engine) *Server {
	return &Server{
		logger: logger,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}
}

// Start binds the listener and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	s.listener = ln

	s.logger.Info("playground API started", zap.String("addr", ln.Addr().String()))
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("playground API stopped", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound address once started
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.httpServer.Addr
	}
	return s.listener.Addr().String()
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Register wires the API into the fx lifecycle. A zero server.api_port
// leaves the API disabled.
func Register(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger, h *Handler) {
	if cfg.Server.APIPort == 0 {
		logger.Info("playground API disabled")
		return
	}

	gin.SetMode(gin.ReleaseMode)
	srv := NewServer(logger, fmt.Sprintf(":%d", cfg.Server.APIPort), NewRouter(logger, h))

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return srv.Start()
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
