package sandbox

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flowstate/coderunner/config"
)

// Strategy is the closed set of ways a language is executed
type Strategy int

const (
	// StrategyInterpreted runs the source file through an interpreter
	StrategyInterpreted Strategy = iota
	// StrategyCompiled builds an artifact first and runs that
	StrategyCompiled
)

func (s Strategy) String() string {
	switch s {
	case StrategyInterpreted:
		return "interpreted"
	case StrategyCompiled:
		return "compiled"
	default:
		return "unknown"
	}
}

// Placeholders expanded in command argument templates
const (
	PlaceholderSource   = "{{SRC_PATH}}"
	PlaceholderArtifact = "{{EXE_PATH}}"
	PlaceholderWorkDir  = "{{WORK_DIR}}"
	PlaceholderMemoryMB = "{{MEMORY_MB}}"
)

// Command describes one step's executable and argument template.
// Candidates are probed in order at startup; the first one found on the host
// becomes Path. A run Command without candidates executes the compiled artifact.
type Command struct {
	Candidates []string `yaml:"candidates"`
	Args       []string `yaml:"args"`
	Path       string   `yaml:"-"`
}

// executable returns the resolved path, or the first candidate when the
// profile was never probed.
func (c Command) executable() string {
	if c.Path != "" {
		return c.Path
	}
	if len(c.Candidates) > 0 {
		return c.Candidates[0]
	}
	return ""
}

// LanguageProfile is the static descriptor of how to compile and run one language
type LanguageProfile struct {
	ID               string   `yaml:"id"`
	Extension        string   `yaml:"extension"`
	SourceFile       string   `yaml:"source_file"`
	Compile          Command  `yaml:"compile"`
	Run              Command  `yaml:"run"`
	Artifacts        []string `yaml:"artifacts"`
	TimeoutMs        int      `yaml:"timeout_ms"`
	MemoryLimitBytes int64    `yaml:"memory_limit_bytes"`
	// EnforceMemory applies the limit as an address-space rlimit. Runtimes
	// that reserve large virtual regions up front (JVM, V8, Go) cannot start
	// under RLIMIT_AS and get their ceiling through MEMORY_MB flags instead.
	EnforceMemory bool   `yaml:"enforce_memory"`
	InstallHint   string `yaml:"install_hint"`
}

// Strategy reports whether the profile has a compile step
func (p LanguageProfile) Strategy() Strategy {
	if len(p.Compile.Candidates) > 0 {
		return StrategyCompiled
	}
	return StrategyInterpreted
}

// Timeout is the wall-clock budget of the run step
func (p LanguageProfile) Timeout() time.Duration {
	return time.Duration(p.TimeoutMs) * time.Millisecond
}

// SourceName is the file name the submission is written under
func (p LanguageProfile) SourceName() string {
	if p.SourceFile != "" {
		return p.SourceFile
	}
	return "main" + p.Extension
}

// ArtifactName is the name of the native executable a compile step produces
func ArtifactName() string {
	if runtime.GOOS == "windows" {
		return "main.exe"
	}
	return "main"
}

// Info renders the catalog entry for the profile
func (p LanguageProfile) Info() LanguageInfo {
	return LanguageInfo{
		Name:             p.ID,
		Extension:        p.Extension,
		TimeoutMs:        p.TimeoutMs,
		MemoryLimitBytes: p.MemoryLimitBytes,
	}
}

func (p LanguageProfile) validate() error {
	if p.ID == "" {
		return fmt.Errorf("profile id is required")
	}
	if p.Extension == "" {
		return fmt.Errorf("profile %s: extension is required", p.ID)
	}
	if p.TimeoutMs <= 0 {
		return fmt.Errorf("profile %s: timeout_ms must be positive", p.ID)
	}
	if p.Strategy() == StrategyInterpreted && len(p.Run.Candidates) == 0 {
		return fmt.Errorf("profile %s: interpreted languages need a run command", p.ID)
	}
	return nil
}

const mb = 1024 * 1024

// DefaultProfiles returns the built-in language table
func DefaultProfiles() []LanguageProfile {
	return []LanguageProfile{
		{
			ID:               "javascript",
			Extension:        ".js",
			Run:              Command{Candidates: []string{"node", "nodejs"}, Args: []string{"--max-old-space-size=" + PlaceholderMemoryMB, PlaceholderSource}},
			TimeoutMs:        10000,
			MemoryLimitBytes: 128 * mb,
			InstallHint:      "Please install Node.js from nodejs.org",
		},
		{
			ID:               "python",
			Extension:        ".py",
			Run:              Command{Candidates: []string{"python3", "python", "py"}, Args: []string{"-u", PlaceholderSource}},
			TimeoutMs:        15000,
			MemoryLimitBytes: 256 * mb,
			EnforceMemory:    true,
			InstallHint:      "Please install Python from python.org",
		},
		{
			ID:               "java",
			Extension:        ".java",
			SourceFile:       "Main.java",
			Compile:          Command{Candidates: []string{"javac"}, Args: []string{"-d", PlaceholderWorkDir, PlaceholderSource}},
			Run:              Command{Candidates: []string{"java"}, Args: []string{"-Xmx" + PlaceholderMemoryMB + "m", "-cp", PlaceholderWorkDir, "Main"}},
			Artifacts:        []string{"Main.class"},
			TimeoutMs:        20000,
			MemoryLimitBytes: 512 * mb,
			InstallHint:      "Please install JDK and set JAVA_HOME",
		},
		{
			ID:               "cpp",
			Extension:        ".cpp",
			Compile:          Command{Candidates: []string{"g++", "clang++"}, Args: []string{"-std=c++17", "-O2", PlaceholderSource, "-o", PlaceholderArtifact}},
			Artifacts:        []string{ArtifactName()},
			TimeoutMs:        15000,
			MemoryLimitBytes: 256 * mb,
			EnforceMemory:    true,
			InstallHint:      "Please install GCC/G++ (MinGW on Windows)",
		},
		{
			ID:               "c",
			Extension:        ".c",
			Compile:          Command{Candidates: []string{"gcc", "clang", "cc"}, Args: []string{"-O2", PlaceholderSource, "-o", PlaceholderArtifact}},
			Artifacts:        []string{ArtifactName()},
			TimeoutMs:        15000,
			MemoryLimitBytes: 256 * mb,
			EnforceMemory:    true,
			InstallHint:      "Please install GCC/G++ (MinGW on Windows)",
		},
		{
			ID:               "go",
			Extension:        ".go",
			Compile:          Command{Candidates: []string{"go"}, Args: []string{"build", "-o", PlaceholderArtifact, PlaceholderSource}},
			Artifacts:        []string{ArtifactName()},
			TimeoutMs:        15000,
			MemoryLimitBytes: 256 * mb,
			InstallHint:      "Please install Go from go.dev",
		},
		{
			ID:               "rust",
			Extension:        ".rs",
			Compile:          Command{Candidates: []string{"rustc"}, Args: []string{"-O", PlaceholderSource, "-o", PlaceholderArtifact}},
			Artifacts:        []string{ArtifactName()},
			TimeoutMs:        20000,
			MemoryLimitBytes: 256 * mb,
			EnforceMemory:    true,
			InstallHint:      "Please install Rust (rustup)",
		},
		{
			ID:               "php",
			Extension:        ".php",
			Run:              Command{Candidates: []string{"php"}, Args: []string{"-d", "memory_limit=" + PlaceholderMemoryMB + "M", PlaceholderSource}},
			TimeoutMs:        10000,
			MemoryLimitBytes: 128 * mb,
			InstallHint:      "Please install PHP from php.net",
		},
	}
}

// LoadProfiles reads a YAML language table of the form
//
//	languages:
//	  - id: lua
//	    extension: .lua
//	    run: {candidates: [lua5.4, lua], args: ["{{SRC_PATH}}"]}
//	    timeout_ms: 5000
func LoadProfiles(path string) ([]LanguageProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}

	var doc struct {
		Languages []LanguageProfile `yaml:"languages"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse profiles file: %w", err)
	}
	if len(doc.Languages) == 0 {
		return nil, fmt.Errorf("profiles file %s defines no languages", path)
	}

	seen := make(map[string]bool, len(doc.Languages))
	for i := range doc.Languages {
		p := &doc.Languages[i]
		p.ID = strings.ToLower(p.ID)
		if err := p.validate(); err != nil {
			return nil, err
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("profile %s defined twice", p.ID)
		}
		seen[p.ID] = true
	}

	return doc.Languages, nil
}

// ApplyOverrides merges configured limits into the profile table and drops
// disabled languages.
func ApplyOverrides(profiles []LanguageProfile, overrides map[string]config.Language) []LanguageProfile {
	out := make([]LanguageProfile, 0, len(profiles))
	for _, p := range profiles {
		o, ok := overrides[p.ID]
		if ok {
			if o.Disabled {
				continue
			}
			if o.TimeoutMs > 0 {
				p.TimeoutMs = o.TimeoutMs
			}
			if o.MemoryLimitBytes > 0 {
				p.MemoryLimitBytes = o.MemoryLimitBytes
			}
		}
		out = append(out, p)
	}
	return out
}

// expandArgs substitutes workspace paths and limits into an argument template
func expandArgs(args []string, ws *Workspace, profile LanguageProfile) []string {
	memMB := "0"
	if profile.MemoryLimitBytes > 0 {
		memMB = strconv.FormatInt(profile.MemoryLimitBytes/mb, 10)
	}
	r := strings.NewReplacer(
		PlaceholderSource, ws.SourcePath,
		PlaceholderArtifact, ws.ArtifactPath(ArtifactName()),
		PlaceholderWorkDir, ws.Dir,
		PlaceholderMemoryMB, memMB,
	)

	out := make([]string, len(args))
	for i, a := range args {
		out[i] = r.Replace(a)
	}
	return out
}
