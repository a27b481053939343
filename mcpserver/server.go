package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/flowstate/coderunner/config"
	"github.com/flowstate/coderunner/playground"
)

// Tool names
const (
	ToolExecuteCode   = "execute_code"
	ToolListLanguages = "list_languages"
	ToolCheckHealth   = "check_health"
)

// Transports
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// MCPServer represents the MCP server
type MCPServer struct {
	config     *config.Config
	logger     *zap.Logger
	playground *playground.Service
	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
}

// New creates a new MCPServer
func New(cfg *config.Config, logger *zap.Logger, svc *playground.Service) (*MCPServer, error) {
	s := &MCPServer{
		config:     cfg,
		logger:     logger,
		playground: svc,
	}

	logger.Info("configuration loaded",
		zap.String("server.transport", cfg.Server.Transport),
		zap.Int("server.http_port", cfg.Server.HTTPPort),
		zap.Int("server.api_port", cfg.Server.APIPort),
		zap.String("sandbox.backend", cfg.Sandbox.Backend),
		zap.String("sandbox.work_dir", cfg.Sandbox.WorkDir),
		zap.Int("sandbox.max_output_bytes", cfg.Sandbox.MaxOutputBytes),
		zap.Int("sandbox.max_concurrent", cfg.Sandbox.MaxConcurrent),
		zap.Int("sandbox.compile_timeout_ms", cfg.Sandbox.CompileTimeoutMs),
		zap.String("remote.base_url", cfg.Remote.BaseURL),
		zap.Int("language_overrides", len(cfg.Languages)),
	)

	s.mcpServer = server.NewMCPServer("coderunner", "1.0.0", server.WithToolCapabilities(false))

	s.registerExecuteCodeTool()
	s.registerListLanguagesTool()
	s.registerCheckHealthTool()

	if cfg.Server.Transport == TransportHTTP {
		s.httpServer = server.NewStreamableHTTPServer(s.mcpServer)
	}

	return s, nil
}

func (s *MCPServer) languageNames() []string {
	langs := s.playground.ListSupportedLanguages()
	names := make([]string, 0, len(langs))
	for _, l := range langs {
		names = append(names, l.Name)
	}
	return names
}

func (s *MCPServer) registerExecuteCodeTool() {
	s.mcpServer.AddTool(s.executeCodeTool(), s.handleExecuteCode)
}

func (s *MCPServer) executeCodeTool() mcp.Tool {
	languageOpts := []mcp.PropertyOption{
		mcp.Required(),
		mcp.Description("Language identifier"),
	}
	// an empty enum would fail schema validation for every call
	if names := s.languageNames(); len(names) > 0 {
		languageOpts = append(languageOpts, mcp.Enum(names...))
	}

	return mcp.NewTool(ToolExecuteCode,
		mcp.WithDescription("Compile and run a program in one of the supported languages and return its output"),
		mcp.WithString("code",
			mcp.Required(),
			mcp.Description("Complete program source"),
		),
		mcp.WithString("language", languageOpts...),
		mcp.WithString("input",
			mcp.Description("Text fed to the program on stdin, one value per line"),
		),
	)
}

func (s *MCPServer) registerListLanguagesTool() {
	tool := mcp.NewTool(ToolListLanguages,
		mcp.WithDescription("List the languages this server can execute with their time and memory limits"),
	)
	s.mcpServer.AddTool(tool, s.handleListLanguages)
}

func (s *MCPServer) registerCheckHealthTool() {
	tool := mcp.NewTool(ToolCheckHealth,
		mcp.WithDescription("Report whether the execution backend is currently usable"),
	)
	s.mcpServer.AddTool(tool, s.handleCheckHealth)
}

func (s *MCPServer) handleExecuteCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := request.RequireString("code")
	if err != nil {
		return nil, fmt.Errorf("code parameter is required: %w", err)
	}

	language, err := request.RequireString("language")
	if err != nil {
		return nil, fmt.Errorf("language parameter is required: %w", err)
	}

	input := request.GetString("input", "")

	s.logger.Info("code execution requested",
		zap.String("language", language),
		zap.Bool("has_input", input != ""))

	resp, err := s.playground.Execute(ctx, code, language, input)
	if err != nil {
		if errors.Is(err, playground.ErrInvalidRequest) {
			return errorResult(err.Error()), nil
		}
		s.logger.Warn("execution not started", zap.String("language", language), zap.Error(err))
		return errorResult(fmt.Sprintf("Execution failed: %v", err)), nil
	}

	s.logger.Info("code execution completed",
		zap.String("language", language),
		zap.String("status", resp.Status),
		zap.Int("exit_code", resp.ExitCode),
		zap.Int("stdout_len", len(resp.Output)),
		zap.String("execution_time", resp.ExecutionTime))

	return jsonResult(resp)
}

func (s *MCPServer) handleListLanguages(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.playground.ListSupportedLanguages())
}

func (s *MCPServer) handleCheckHealth(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.playground.CheckHealth(ctx))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: string(data),
			},
		},
	}, nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: msg,
			},
		},
		IsError: true,
	}
}

// Serve runs the configured transport until it stops
func (s *MCPServer) Serve() error {
	switch s.config.Server.Transport {
	case TransportStdio:
		return s.ServeStdio()
	case TransportHTTP:
		return s.ServeHTTP()
	default:
		return fmt.Errorf("unsupported transport: %s", s.config.Server.Transport)
	}
}

// ServeStdio starts the server on stdio
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server on stdio")
	return server.ServeStdio(s.mcpServer)
}

// ServeHTTP starts the server on HTTP
func (s *MCPServer) ServeHTTP() error {
	if s.httpServer == nil {
		return fmt.Errorf("http transport not configured")
	}
	port := s.config.Server.HTTPPort
	s.logger.Info("starting MCP server on HTTP", zap.Int("port", port))
	return s.httpServer.Start(fmt.Sprintf(":%d", port))
}

// Shutdown stops the HTTP transport. Stdio ends with its input stream.
func (s *MCPServer) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// GetMCPServer returns the underlying MCP server for fx
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}
