package sandbox

import (
	"fmt"
	"strings"
	"time"
)

// Status is the terminal classification of one execution request
type Status int

const (
	StatusSuccess Status = iota
	StatusRuntimeError
	StatusTimeout
	StatusCompileError
	StatusSpawnError
	StatusUnsupportedLanguage
	StatusRejected
)

// Statuses lists every status in ascending precedence
var Statuses = []Status{
	StatusSuccess,
	StatusRuntimeError,
	StatusTimeout,
	StatusCompileError,
	StatusSpawnError,
	StatusUnsupportedLanguage,
	StatusRejected,
}

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusRuntimeError:
		return "RuntimeError"
	case StatusTimeout:
		return "Timeout"
	case StatusCompileError:
		return "CompileError"
	case StatusSpawnError:
		return "SpawnError"
	case StatusUnsupportedLanguage:
		return "UnsupportedLanguage"
	case StatusRejected:
		return "RejectedBySecurityFilter"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// precedence orders statuses so the most severe one wins when several apply.
// The constant values already encode it; the function keeps callers honest.
func (s Status) precedence() int {
	return int(s)
}

// Messages shown for outcomes that carry no process diagnostics of their own
const (
	MessageTimeout   = "Execution timeout - Program took too long to complete. Check for infinite loops or missing input."
	MessageCancelled = "Execution cancelled before the program finished."
	MessageTruncated = "[output truncated: limit reached]"
)

// Outcome is the single, immutable result of one execution request. Status
// decides which fields are meaningful: rejected and unsupported outcomes
// carry only Message; ExitCode is set only when a process exited on its own.
type Outcome struct {
	Status     Status
	Stdout     string
	Stderr     string
	Message    string
	ExitCode   *int
	Elapsed    time.Duration
	CompileDur time.Duration
	Truncated  bool
	// WorkspaceID is empty when no workspace was allocated
	WorkspaceID string
}

// Success reports whether the program ran to completion with exit code zero
func (o Outcome) Success() bool {
	return o.Status == StatusSuccess
}

// ExitCodeOr returns the exit code, or def when the process never exited on its own
func (o Outcome) ExitCodeOr(def int) int {
	if o.ExitCode == nil {
		return def
	}
	return *o.ExitCode
}

// ErrorText renders the diagnostic text a caller should show
func (o Outcome) ErrorText() string {
	switch o.Status {
	case StatusSuccess:
		return o.Stderr
	case StatusRuntimeError:
		return joinNonEmpty(o.Stderr, o.Message)
	case StatusCompileError:
		diag := o.Stderr
		if strings.TrimSpace(diag) == "" {
			diag = o.Stdout
		}
		if strings.TrimSpace(diag) == "" {
			diag = o.Message
		}
		return "Compilation failed: " + diag
	default:
		return joinNonEmpty(o.Message, o.Stderr)
	}
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, strings.TrimRight(p, "\n"))
		}
	}
	return strings.Join(kept, "\n")
}

// StepResult is what one compile or run step produced
type StepResult struct {
	Status    Status
	Stdout    string
	Stderr    string
	Message   string
	ExitCode  *int
	Elapsed   time.Duration
	Truncated bool
}

// Compose folds the optional compile and run results into one Outcome. The
// higher-precedence status wins; elapsed time is always the run step's, and
// compile time is reported separately.
func Compose(compile, run *StepResult) Outcome {
	if compile == nil && run == nil {
		return Outcome{Status: StatusSpawnError, Message: "nothing was executed"}
	}

	winner := run
	if winner == nil || (compile != nil && compile.Status.precedence() > run.Status.precedence()) {
		winner = compile
	}

	out := Outcome{
		Status:    winner.Status,
		Stdout:    winner.Stdout,
		Stderr:    winner.Stderr,
		Message:   winner.Message,
		ExitCode:  winner.ExitCode,
		Truncated: winner.Truncated,
	}
	if compile != nil {
		out.CompileDur = compile.Elapsed
		out.Truncated = out.Truncated || compile.Truncated
	}
	if run != nil {
		out.Elapsed = run.Elapsed
		out.Truncated = out.Truncated || run.Truncated
	}
	return out
}

// Rejected builds the outcome for a submission the filter refused
func Rejected(err error) Outcome {
	return Outcome{Status: StatusRejected, Message: err.Error()}
}

// Unsupported builds the outcome for an unknown or unavailable language
func Unsupported(err error) Outcome {
	return Outcome{Status: StatusUnsupportedLanguage, Message: err.Error()}
}

// SpawnFailure builds the outcome for an infrastructure failure; the
// underlying error is preserved in Stderr.
func SpawnFailure(err error) Outcome {
	return Outcome{Status: StatusSpawnError, Stderr: err.Error(), Message: "Execution failed"}
}

// FormatElapsed renders a duration the way callers display it, e.g. "142ms"
func FormatElapsed(d time.Duration) string {
	return fmt.Sprintf("%dms", d.Milliseconds())
}
