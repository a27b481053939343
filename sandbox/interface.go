package sandbox

import (
	"context"
	"errors"
	"os"
)

// Request represents the parameters for one code execution
type Request struct {
	Language string
	Code     string
	Stdin    string
}

// LanguageInfo describes one entry of the language catalog
type LanguageInfo struct {
	Name             string `json:"name"`
	Extension        string `json:"extension"`
	Version          string `json:"version,omitempty"`
	TimeoutMs        int    `json:"timeoutMs"`
	MemoryLimitBytes int64  `json:"memoryLimitBytes"`
}

// Health reports whether a backend can currently execute code
type Health struct {
	Available bool           `json:"available"`
	Backend   string         `json:"backend"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
}

// Executor defines the execution contract shared by the local and remote backends.
// Execute never fails with a Go error: every failure class is an Outcome status.
type Executor interface {
	Execute(ctx context.Context, req Request) Outcome
	Languages() []LanguageInfo
	Health(ctx context.Context) Health
}

// Sentinel errors
var (
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrRejected            = errors.New("rejected by security filter")
)

// FileSystem defines an interface for file system operations
type FileSystem interface {
	Mkdir(path string, perm os.FileMode) error
	MkdirAll(path string, perm os.FileMode) error
	WriteFile(filename string, data []byte, perm os.FileMode) error
	Remove(path string) error
	RemoveAll(path string) error
	FileExists(path string) (bool, error)
}

// RealFileSystem implements FileSystem using actual file system operations
type RealFileSystem struct{}

func (RealFileSystem) Mkdir(path string, perm os.FileMode) error {
	return os.Mkdir(path, perm)
}

func (RealFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (RealFileSystem) WriteFile(filename string, data []byte, perm os.FileMode) error {
	return os.WriteFile(filename, data, perm)
}

func (RealFileSystem) Remove(path string) error {
	return os.Remove(path)
}

func (RealFileSystem) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

func (RealFileSystem) FileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

// File permission constants
const (
	DirPermission  = 0o700
	FilePermission = 0o600
)
