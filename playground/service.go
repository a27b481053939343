package playground

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/flowstate/coderunner/sandbox"
)

// Sentinel errors
var (
	ErrInvalidRequest    = errors.New("code and language are required")
	ErrTemplatesNotFound = errors.New("templates not found for language")
)

// Response is the result of one execute call as callers see it
type Response struct {
	Success       bool   `json:"success"`
	Output        string `json:"output"`
	Error         string `json:"error,omitempty"`
	ExitCode      int    `json:"exitCode"`
	ExecutionTime string `json:"executionTime"`
	Status        string `json:"status"`
	Language      string `json:"language"`
	Online        bool   `json:"online"`
	Truncated     bool   `json:"truncated,omitempty"`
	Timestamp     string `json:"timestamp"`
}

// Service bounds how many executions run at once and shapes outcomes into
// responses. It is safe for concurrent use.
type Service struct {
	logger        *zap.Logger
	executor      sandbox.Executor
	sem           *semaphore.Weighted
	maxConcurrent int64
	online        bool
	templates     map[string]Templates
	now           func() time.Time
}

// Option defines a functional option for Service
type Option func(*Service)

// WithClock sets the time source used for response timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a Service allowing at most maxConcurrent executions in flight
func NewService(logger *zap.Logger, executor sandbox.Executor, maxConcurrent int64, opts ...Option) (*Service, error) {
	if maxConcurrent <= 0 {
		return nil, fmt.Errorf("max concurrent executions must be positive, got %d", maxConcurrent)
	}

	templates, err := loadTemplates(templatesYAML)
	if err != nil {
		return nil, err
	}

	_, online := executor.(*sandbox.RemoteExecutor)

	s := &Service{
		logger:        logger,
		executor:      executor,
		sem:           semaphore.NewWeighted(maxConcurrent),
		maxConcurrent: maxConcurrent,
		online:        online,
		templates:     templates,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Execute runs code in the given language with optional stdin. The only
// errors are an invalid request and ctx ending while waiting for a slot;
// every execution result, failed or not, is a Response.
func (s *Service) Execute(ctx context.Context, code, language, input string) (Response, error) {
	if strings.TrimSpace(code) == "" || strings.TrimSpace(language) == "" {
		return Response{}, ErrInvalidRequest
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return Response{}, fmt.Errorf("waiting for an execution slot: %w", err)
	}
	defer s.sem.Release(1)

	outcome := s.executor.Execute(ctx, sandbox.Request{
		Language: language,
		Code:     code,
		Stdin:    input,
	})

	s.logger.Debug("execute",
		zap.String("language", language),
		zap.Stringer("status", outcome.Status),
		zap.Duration("elapsed", outcome.Elapsed))

	return s.toResponse(language, outcome), nil
}

func (s *Service) toResponse(language string, outcome sandbox.Outcome) Response {
	return Response{
		Success:       outcome.Success(),
		Output:        outcome.Stdout,
		Error:         outcome.ErrorText(),
		ExitCode:      outcome.ExitCodeOr(-1),
		ExecutionTime: sandbox.FormatElapsed(outcome.Elapsed),
		Status:        outcome.Status.String(),
		Language:      language,
		Online:        s.online,
		Truncated:     outcome.Truncated,
		Timestamp:     s.now().UTC().Format(time.RFC3339),
	}
}

// Online reports whether executions are delegated to the hosted API
func (s *Service) Online() bool {
	return s.online
}

// ListSupportedLanguages returns the catalog of the active backend
func (s *Service) ListSupportedLanguages() []sandbox.LanguageInfo {
	return s.executor.Languages()
}

// CheckHealth reports whether the active backend can execute code
func (s *Service) CheckHealth(ctx context.Context) sandbox.Health {
	h := s.executor.Health(ctx)
	if h.Details == nil {
		h.Details = map[string]any{}
	}
	h.Details["max_concurrent"] = s.maxConcurrent
	h.Details["online"] = s.online
	return h
}
