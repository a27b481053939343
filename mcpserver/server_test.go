package mcpserver

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/flowstate/coderunner/config"
	"github.com/flowstate/coderunner/playground"
	"github.com/flowstate/coderunner/sandbox"
)

// MockExecutor implements sandbox.Executor for testing
type MockExecutor struct {
	outcome sandbox.Outcome
	last    sandbox.Request
}

func (m *MockExecutor) Execute(_ context.Context, req sandbox.Request) sandbox.Outcome {
	m.last = req
	return m.outcome
}

func (m *MockExecutor) Languages() []sandbox.LanguageInfo {
	return []sandbox.LanguageInfo{
		{Name: "c", Extension: ".c", TimeoutMs: 15000, MemoryLimitBytes: 256 << 20},
		{Name: "python", Extension: ".py", TimeoutMs: 15000, MemoryLimitBytes: 256 << 20},
	}
}

func (m *MockExecutor) Health(context.Context) sandbox.Health {
	return sandbox.Health{Available: true, Backend: sandbox.BackendLocal, Message: "ready"}
}

func testConfig(transport string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Transport: transport,
			HTTPPort:  8080,
		},
		Sandbox: config.SandboxConfig{
			Backend:          config.BackendLocal,
			WorkDir:          "/tmp/coderunner-test",
			MaxOutputBytes:   1 << 20,
			MaxConcurrent:    2,
			CompileTimeoutMs: 10000,
		},
		Logging: config.LoggingConfig{
			Mode:  "production",
			Level: "info",
		},
	}
}

func newTestServer(t *testing.T, transport string, exec *MockExecutor) *MCPServer {
	t.Helper()
	logger := zaptest.NewLogger(t)
	svc, err := playground.NewService(logger, exec, 2)
	require.NoError(t, err)

	s, err := New(testConfig(transport), logger, svc)
	require.NoError(t, err)
	return s
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestNewMCPServer(t *testing.T) {
	exec := &MockExecutor{}

	t.Run("Stdio", func(t *testing.T) {
		s := newTestServer(t, TransportStdio, exec)
		assert.NotNil(t, s.GetMCPServer())
		assert.Nil(t, s.httpServer)
		assert.NoError(t, s.Shutdown(context.Background()))
	})

	t.Run("HTTP", func(t *testing.T) {
		s := newTestServer(t, TransportHTTP, exec)
		assert.NotNil(t, s.httpServer)
	})

	t.Run("LanguageEnumFollowsCatalog", func(t *testing.T) {
		s := newTestServer(t, TransportStdio, exec)
		assert.Equal(t, []string{"c", "python"}, s.languageNames())
	})
}

// emptyCatalogExecutor models a host where no toolchain was found
type emptyCatalogExecutor struct {
	MockExecutor
}

func (e *emptyCatalogExecutor) Languages() []sandbox.LanguageInfo {
	return nil
}

func languageSchema(t *testing.T, tool mcp.Tool) map[string]any {
	t.Helper()
	prop, ok := tool.InputSchema.Properties["language"].(map[string]any)
	require.True(t, ok)
	return prop
}

func TestExecuteCodeToolSchema(t *testing.T) {
	t.Run("EnumFromCatalog", func(t *testing.T) {
		s := newTestServer(t, TransportStdio, &MockExecutor{})
		tool := s.executeCodeTool()
		assert.Equal(t, ToolExecuteCode, tool.Name)
		assert.ElementsMatch(t, []string{"code", "language"}, tool.InputSchema.Required)
		assert.Equal(t, []string{"c", "python"}, languageSchema(t, tool)["enum"])
	})

	t.Run("NoEnumWithoutLanguages", func(t *testing.T) {
		logger := zaptest.NewLogger(t)
		svc, err := playground.NewService(logger, &emptyCatalogExecutor{}, 1)
		require.NoError(t, err)
		s, err := New(testConfig(TransportStdio), logger, svc)
		require.NoError(t, err)

		assert.NotContains(t, languageSchema(t, s.executeCodeTool()), "enum")
	})
}

func TestHandleExecuteCode(t *testing.T) {
	code := 0
	exec := &MockExecutor{outcome: sandbox.Outcome{
		Status:   sandbox.StatusSuccess,
		Stdout:   "Hello, World!\n",
		ExitCode: &code,
		Elapsed:  12 * time.Millisecond,
	}}
	s := newTestServer(t, TransportStdio, exec)

	res, err := s.handleExecuteCode(context.Background(), callRequest(ToolExecuteCode, map[string]any{
		"code":     `print("Hello, World!")`,
		"language": "python",
		"input":    "ignored",
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var resp playground.Response
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Hello, World!\n", resp.Output)
	assert.Equal(t, "12ms", resp.ExecutionTime)
	assert.Equal(t, "Success", resp.Status)

	assert.Equal(t, sandbox.Request{Language: "python", Code: `print("Hello, World!")`, Stdin: "ignored"}, exec.last)
}

func TestHandleExecuteCodeFailedOutcome(t *testing.T) {
	exec := &MockExecutor{outcome: sandbox.Outcome{
		Status:  sandbox.StatusRejected,
		Message: "Potentially dangerous code detected: system() call",
	}}
	s := newTestServer(t, TransportStdio, exec)

	res, err := s.handleExecuteCode(context.Background(), callRequest(ToolExecuteCode, map[string]any{
		"code":     `int main(){system("ls");}`,
		"language": "c",
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var resp playground.Response
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "RejectedBySecurityFilter", resp.Status)
	assert.Contains(t, resp.Error, "system() call")
}

func TestHandleExecuteCodeMissingArguments(t *testing.T) {
	s := newTestServer(t, TransportStdio, &MockExecutor{})

	_, err := s.handleExecuteCode(context.Background(), callRequest(ToolExecuteCode, map[string]any{"language": "python"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code parameter is required")

	_, err = s.handleExecuteCode(context.Background(), callRequest(ToolExecuteCode, map[string]any{"code": "print(1)"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "language parameter is required")

	res, err := s.handleExecuteCode(context.Background(), callRequest(ToolExecuteCode, map[string]any{"code": " ", "language": "python"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, playground.ErrInvalidRequest.Error(), resultText(t, res))
}

func TestHandleListLanguages(t *testing.T) {
	s := newTestServer(t, TransportStdio, &MockExecutor{})

	res, err := s.handleListLanguages(context.Background(), callRequest(ToolListLanguages, nil))
	require.NoError(t, err)

	var langs []sandbox.LanguageInfo
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &langs))
	require.Len(t, langs, 2)
	assert.Equal(t, "c", langs[0].Name)
	assert.Equal(t, int64(256<<20), langs[1].MemoryLimitBytes)
}

func TestHandleCheckHealth(t *testing.T) {
	s := newTestServer(t, TransportStdio, &MockExecutor{})

	res, err := s.handleCheckHealth(context.Background(), callRequest(ToolCheckHealth, nil))
	require.NoError(t, err)

	var h sandbox.Health
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &h))
	assert.True(t, h.Available)
	assert.Equal(t, sandbox.BackendLocal, h.Backend)
	assert.Equal(t, float64(2), h.Details["max_concurrent"])
}

func TestServeRejectsUnknownTransport(t *testing.T) {
	s := newTestServer(t, TransportStdio, &MockExecutor{})
	s.config.Server.Transport = "carrier-pigeon"

	err := s.Serve()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported transport")
}
