package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/flowstate/coderunner/config"
)

// BackendRemote names the hosted execution backend in health reports
const BackendRemote = config.BackendRemote

// Remote delegate defaults
const (
	DefaultRemoteTimeout        = 15 * time.Second
	DefaultRemoteRunTimeoutMs   = 3000
	DefaultRemoteCompileTimeout = 10000
	remoteHealthTimeout         = 5 * time.Second
	maxRemoteResponseBytes      = 16 << 20
)

// RemoteRuntime maps a language identifier onto the hosted API's runtime
type RemoteRuntime struct {
	Language string
	Version  string
	FileName string
}

// DefaultRemoteCatalog returns the hosted runtimes requests are mapped to
func DefaultRemoteCatalog() map[string]RemoteRuntime {
	return map[string]RemoteRuntime{
		"javascript": {Language: "javascript", Version: "18.15.0", FileName: "main.js"},
		"python":     {Language: "python", Version: "3.10.0", FileName: "main.py"},
		"java":       {Language: "java", Version: "15.0.2", FileName: "Main.java"},
		"cpp":        {Language: "c++", Version: "10.2.0", FileName: "main.cpp"},
		"c":          {Language: "c", Version: "10.2.0", FileName: "main.c"},
		"csharp":     {Language: "csharp", Version: "6.12.0", FileName: "Main.cs"},
		"go":         {Language: "go", Version: "1.16.2", FileName: "main.go"},
		"rust":       {Language: "rust", Version: "1.68.2", FileName: "main.rs"},
		"php":        {Language: "php", Version: "8.2.3", FileName: "main.php"},
		"typescript": {Language: "typescript", Version: "5.0.3", FileName: "main.ts"},
		"ruby":       {Language: "ruby", Version: "3.0.1", FileName: "main.rb"},
		"swift":      {Language: "swift", Version: "5.3.3", FileName: "main.swift"},
		"kotlin":     {Language: "kotlin", Version: "1.8.20", FileName: "Main.kt"},
		"scala":      {Language: "scala", Version: "3.2.2", FileName: "Main.scala"},
		"perl":       {Language: "perl", Version: "5.36.0", FileName: "main.pl"},
		"lua":        {Language: "lua", Version: "5.4.4", FileName: "main.lua"},
		"r":          {Language: "r", Version: "4.1.1", FileName: "main.r"},
		"dart":       {Language: "dart", Version: "2.19.6", FileName: "main.dart"},
		"elixir":     {Language: "elixir", Version: "1.11.3", FileName: "main.exs"},
		"haskell":    {Language: "haskell", Version: "9.0.1", FileName: "main.hs"},
	}
}

type pistonFile struct {
	Name    string `json:"name,omitempty"`
	Content string `json:"content"`
}

type pistonRequest struct {
	Language           string       `json:"language"`
	Version            string       `json:"version"`
	Files              []pistonFile `json:"files"`
	Stdin              string       `json:"stdin"`
	Args               []string     `json:"args"`
	CompileTimeout     int          `json:"compile_timeout"`
	RunTimeout         int          `json:"run_timeout"`
	CompileMemoryLimit int64        `json:"compile_memory_limit"`
	RunMemoryLimit     int64        `json:"run_memory_limit"`
}

type pistonStage struct {
	Stdout string  `json:"stdout"`
	Stderr string  `json:"stderr"`
	Output string  `json:"output"`
	Code   *int    `json:"code"`
	Signal *string `json:"signal"`
	Status *string `json:"status"`
}

type pistonResponse struct {
	Language string       `json:"language"`
	Version  string       `json:"version"`
	Run      *pistonStage `json:"run"`
	Compile  *pistonStage `json:"compile"`
	Message  string       `json:"message"`
}

// pistonTimedOut is the stage status the hosted API reports for a wall-clock kill
const pistonTimedOut = "TO"

// RemoteExecutor forwards submissions to a Piston-compatible execution API
type RemoteExecutor struct {
	logger           *zap.Logger
	baseURL          string
	timeout          time.Duration
	runTimeoutMs     int
	compileTimeoutMs int
	maxOutputBytes   int
	client           *http.Client
	filter           *Filter
	catalog          map[string]RemoteRuntime
}

// RemoteExecutorOption defines a functional option for RemoteExecutor
type RemoteExecutorOption func(*RemoteExecutor)

// WithRemoteHTTPClient sets the http.Client for RemoteExecutor
func WithRemoteHTTPClient(c *http.Client) RemoteExecutorOption {
	return func(r *RemoteExecutor) {
		r.client = c
	}
}

// WithRemoteFilter sets the Filter for RemoteExecutor
func WithRemoteFilter(f *Filter) RemoteExecutorOption {
	return func(r *RemoteExecutor) {
		r.filter = f
	}
}

// WithRemoteStageTimeouts sets the run and compile budgets sent to the API
func WithRemoteStageTimeouts(runMs, compileMs int) RemoteExecutorOption {
	return func(r *RemoteExecutor) {
		if runMs > 0 {
			r.runTimeoutMs = runMs
		}
		if compileMs > 0 {
			r.compileTimeoutMs = compileMs
		}
	}
}

// WithRemoteMaxOutputBytes sets the per-stream cap applied to API output
func WithRemoteMaxOutputBytes(n int) RemoteExecutorOption {
	return func(r *RemoteExecutor) {
		r.maxOutputBytes = n
	}
}

// WithRemoteCatalog replaces the language to runtime mapping
func WithRemoteCatalog(catalog map[string]RemoteRuntime) RemoteExecutorOption {
	return func(r *RemoteExecutor) {
		r.catalog = catalog
	}
}

// NewRemoteExecutor creates a RemoteExecutor. timeout bounds every call to
// the API, including reading the response.
func NewRemoteExecutor(logger *zap.Logger, baseURL string, timeout time.Duration, opts ...RemoteExecutorOption) *RemoteExecutor {
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}

	r := &RemoteExecutor{
		logger:           logger,
		baseURL:          strings.TrimRight(baseURL, "/"),
		timeout:          timeout,
		runTimeoutMs:     DefaultRemoteRunTimeoutMs,
		compileTimeoutMs: DefaultRemoteCompileTimeout,
		maxOutputBytes:   DefaultMaxOutputBytes,
		client:           &http.Client{},
		catalog:          DefaultRemoteCatalog(),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.filter == nil {
		r.filter = DefaultFilter()
	}

	return r
}

// Execute submits one program to the API and maps the response onto an Outcome
func (r *RemoteExecutor) Execute(ctx context.Context, req Request) Outcome {
	language := strings.ToLower(strings.TrimSpace(req.Language))

	if err := r.filter.Check(req.Code, language); err != nil {
		return Rejected(err)
	}

	rt, ok := r.catalog[language]
	if !ok {
		return Unsupported(fmt.Errorf("%w: %s. Supported languages: %s",
			ErrUnsupportedLanguage, req.Language, strings.Join(r.ids(), ", ")))
	}

	body, err := json.Marshal(pistonRequest{
		Language:           rt.Language,
		Version:            rt.Version,
		Files:              []pistonFile{{Name: rt.FileName, Content: req.Code}},
		Stdin:              NormalizeInput(req.Stdin),
		Args:               []string{},
		CompileTimeout:     r.compileTimeoutMs,
		RunTimeout:         r.runTimeoutMs,
		CompileMemoryLimit: -1,
		RunMemoryLimit:     -1,
	})
	if err != nil {
		return SpawnFailure(fmt.Errorf("failed to encode request: %w", err))
	}

	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	status, respBody, err := r.do(cctx, http.MethodPost, "/execute", body)
	elapsed := time.Since(start)

	if err != nil {
		if cctx.Err() != nil {
			msg := MessageTimeout
			if errors.Is(cctx.Err(), context.Canceled) {
				msg = MessageCancelled
			}
			r.logger.Warn("remote execution did not answer in time",
				zap.String("language", language),
				zap.Duration("elapsed", elapsed))
			return Outcome{Status: StatusTimeout, Message: msg, Elapsed: elapsed}
		}
		r.logger.Error("remote execution failed", zap.String("language", language), zap.Error(err))
		out := SpawnFailure(err)
		out.Elapsed = elapsed
		return out
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		out := SpawnFailure(fmt.Errorf("API Error: status %d: %s", status, apiMessage(respBody)))
		out.Elapsed = elapsed
		return out
	}

	var resp pistonResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		out := SpawnFailure(fmt.Errorf("malformed API response: %w", err))
		out.Elapsed = elapsed
		return out
	}
	if resp.Run == nil && resp.Compile == nil {
		out := SpawnFailure(fmt.Errorf("malformed API response: no run or compile stage"))
		out.Elapsed = elapsed
		return out
	}

	var compile, run *StepResult
	if resp.Compile != nil {
		compile = r.stage(resp.Compile, true)
	}
	if resp.Run != nil && (compile == nil || compile.Status == StatusSuccess) {
		run = r.stage(resp.Run, false)
	}

	out := Compose(compile, run)
	out.Elapsed = elapsed
	return out
}

// stage classifies one stage of the API response
func (r *RemoteExecutor) stage(s *pistonStage, compile bool) *StepResult {
	stdout, outCut := capString(s.Stdout, r.maxOutputBytes)
	stderr, errCut := capString(s.Stderr, r.maxOutputBytes)
	res := &StepResult{
		Stdout:    stdout,
		Stderr:    stderr,
		Truncated: outCut || errCut,
	}
	if res.Truncated {
		res.Stderr = withTruncationMarker(res.Stderr)
	}

	switch {
	case s.Status != nil && *s.Status == pistonTimedOut:
		res.Status = StatusTimeout
		res.Message = MessageTimeout
		if compile {
			res.Message = "Compilation timed out"
		}
	case s.Code == nil:
		signal := "unknown"
		if s.Signal != nil {
			signal = *s.Signal
		}
		res.Status = StatusRuntimeError
		if compile {
			res.Status = StatusCompileError
		}
		res.Message = "Program terminated by signal " + signal
	case *s.Code == 0:
		res.Status = StatusSuccess
		res.ExitCode = s.Code
	default:
		res.Status = StatusRuntimeError
		res.Message = "Runtime error"
		if compile {
			res.Status = StatusCompileError
			res.Message = "Compilation failed"
		}
		res.ExitCode = s.Code
	}

	return res
}

// Languages returns the hosted catalog in identifier order
func (r *RemoteExecutor) Languages() []LanguageInfo {
	ids := r.ids()
	out := make([]LanguageInfo, 0, len(ids))
	for _, id := range ids {
		rt := r.catalog[id]
		out = append(out, LanguageInfo{
			Name:      id,
			Extension: path.Ext(rt.FileName),
			Version:   rt.Version,
			TimeoutMs: r.runTimeoutMs,
		})
	}
	return out
}

// Health probes the runtime listing of the API
func (r *RemoteExecutor) Health(ctx context.Context) Health {
	h := Health{
		Backend: BackendRemote,
		Details: map[string]any{"base_url": r.baseURL, "runtimes": 0},
	}

	cctx, cancel := context.WithTimeout(ctx, remoteHealthTimeout)
	defer cancel()

	status, body, err := r.do(cctx, http.MethodGet, "/runtimes", nil)
	if err == nil && (status < http.StatusOK || status >= http.StatusMultipleChoices) {
		err = fmt.Errorf("status %d: %s", status, apiMessage(body))
	}

	var runtimes []json.RawMessage
	if err == nil {
		if uerr := json.Unmarshal(body, &runtimes); uerr != nil {
			err = fmt.Errorf("malformed runtimes listing: %w", uerr)
		}
	}

	if err != nil {
		h.Message = "Service unavailable: " + err.Error()
		return h
	}

	h.Available = true
	h.Message = "Online compiler service is available"
	h.Details["runtimes"] = len(runtimes)
	return h
}

func (r *RemoteExecutor) ids() []string {
	ids := make([]string, 0, len(r.catalog))
	for id := range r.catalog {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *RemoteExecutor) do(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response body failed: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

// apiMessage extracts the error message the API puts in failed responses
func apiMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(body))
}

func capString(s string, limit int) (string, bool) {
	if limit <= 0 || len(s) <= limit {
		return s, false
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut], true
}
