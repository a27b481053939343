package sandbox

import (
	"fmt"
	"regexp"
	"strings"
)

// AdvisoryNote is appended to every rejection. The filter matches raw text
// before any parsing, so string concatenation, aliasing, or reflection
// trivially bypass it. It deters casual misuse and is not an isolation boundary.
const AdvisoryNote = "static filtering is best-effort and is not a security guarantee"

// Rule is one denylist entry
type Rule struct {
	Construct string
	Pattern   *regexp.Regexp
}

// RejectionError reports the construct that triggered a rule
type RejectionError struct {
	Language  string
	Construct string
	Pattern   string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("Potentially dangerous code detected: %s (%s; %s)", e.Construct, e.Pattern, AdvisoryNote)
}

func (e *RejectionError) Unwrap() error {
	return ErrRejected
}

// Filter applies an ordered, per-language denylist to submitted source
type Filter struct {
	rules map[string][]Rule
}

// NewFilter creates a Filter from explicit rules
func NewFilter(rules map[string][]Rule) *Filter {
	normalized := make(map[string][]Rule, len(rules))
	for lang, rs := range rules {
		normalized[strings.ToLower(lang)] = rs
	}
	return &Filter{rules: normalized}
}

// Check returns nil when no rule matches, or a *RejectionError for the first
// rule that does. Languages without rules are always allowed.
func (f *Filter) Check(code, language string) error {
	lang := strings.ToLower(language)
	for _, r := range f.rules[lang] {
		if r.Pattern.MatchString(code) {
			return &RejectionError{
				Language:  lang,
				Construct: r.Construct,
				Pattern:   r.Pattern.String(),
			}
		}
	}
	return nil
}

// Languages reports which languages have at least one rule
func (f *Filter) Languages() []string {
	out := make([]string, 0, len(f.rules))
	for lang, rs := range f.rules {
		if len(rs) > 0 {
			out = append(out, lang)
		}
	}
	return out
}

func rule(construct, pattern string) Rule {
	return Rule{Construct: construct, Pattern: regexp.MustCompile(pattern)}
}

// DefaultFilter returns the built-in denylist
func DefaultFilter() *Filter {
	return NewFilter(map[string][]Rule{
		"javascript": {
			rule("filesystem module", `(?i)require\s*\(\s*['"`+"`"+`]fs['"`+"`"+`]\s*\)`),
			rule("process spawning", `(?i)require\s*\(\s*['"`+"`"+`]child_process['"`+"`"+`]\s*\)`),
			rule("process termination", `(?i)process\.exit`),
			rule("dynamic evaluation", `(?i)\beval\s*\(`),
			rule("dynamic evaluation", `\bFunction\s*\(`),
		},
		"python": {
			rule("os module", `(?im)^\s*(import\s+os\b|from\s+os\b)`),
			rule("process spawning", `(?im)^\s*(import\s+subprocess\b|from\s+subprocess\b)`),
			rule("sys module", `(?im)^\s*(import\s+sys\b|from\s+sys\b)`),
			rule("dynamic evaluation", `(?i)\bexec\s*\(`),
			rule("dynamic evaluation", `(?i)\beval\s*\(`),
			rule("dynamic import", `__import__`),
		},
		"java": {
			rule("process spawning", `(?i)Runtime\.getRuntime`),
			rule("process spawning", `(?i)ProcessBuilder`),
			rule("process termination", `(?i)System\.exit`),
		},
		"cpp": {
			rule("cstdlib header", `(?i)#include\s*<cstdlib>`),
			rule("process spawning", `(?i)\bsystem\s*\(`),
			rule("process spawning", `(?i)\bexec[lv]?p?e?\s*\(`),
			rule("process spawning", `(?i)\bpopen\s*\(`),
		},
		"c": {
			rule("stdlib header", `(?i)#include\s*<stdlib\.h>`),
			rule("process spawning", `(?i)\bsystem\s*\(`),
			rule("process spawning", `(?i)\bexec[lv]?p?e?\s*\(`),
			rule("process spawning", `(?i)\bpopen\s*\(`),
		},
		"go": {
			rule("process spawning", `"os/exec"`),
			rule("raw system calls", `"syscall"`),
			rule("process termination", `\bos\.Exit\s*\(`),
		},
		"rust": {
			rule("process spawning", `std::process::Command`),
			rule("process termination", `process::exit`),
		},
		"php": {
			rule("process spawning", `(?i)\b(shell_exec|exec|system|passthru|proc_open|popen)\s*\(`),
			rule("dynamic evaluation", `(?i)\beval\s*\(`),
		},
	})
}
