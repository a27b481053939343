package sandbox

import (
	"context"
	"os"
	"strings"
	"sync"
)

// MockCommandRunner implements CommandRunner for testing
type MockCommandRunner struct {
	mu             sync.Mutex
	calls          [][]string
	commandResults map[string]mockResult
	defaultResult  mockResult
	// block makes RunCommand wait for ctx to end, like a hung compiler
	block bool
}

type mockResult struct {
	stdout   string
	stderr   string
	exitCode int
	err      error
}

func (m *MockCommandRunner) RunCommand(ctx context.Context, _ string, args []string) (stdout, stderr string, exitCode int, err error) {
	m.mu.Lock()
	m.calls = append(m.calls, args)
	m.mu.Unlock()

	if m.block {
		<-ctx.Done()
		return "", "", -1, nil
	}

	if result, exists := m.commandResults[strings.Join(args, " ")]; exists {
		return result.stdout, result.stderr, result.exitCode, result.err
	}
	return m.defaultResult.stdout, m.defaultResult.stderr, m.defaultResult.exitCode, m.defaultResult.err
}

func (m *MockCommandRunner) Calls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]string(nil), m.calls...)
}

// MockFileSystem implements FileSystem for testing and records every call
type MockFileSystem struct {
	mu              sync.Mutex
	ops             []string
	mkdirErrors     map[string]error
	writeFileErrors map[string]error
	removeErrors    map[string]error
	existing        map[string]bool
	written         map[string][]byte
}

func (m *MockFileSystem) record(op, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, op+" "+path)
}

func (m *MockFileSystem) Ops() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ops...)
}

func (m *MockFileSystem) Mkdir(path string, _ os.FileMode) error {
	m.record("mkdir", path)
	return m.mkdirErrors[path]
}

func (m *MockFileSystem) MkdirAll(path string, _ os.FileMode) error {
	m.record("mkdirall", path)
	return nil
}

func (m *MockFileSystem) WriteFile(filename string, data []byte, _ os.FileMode) error {
	m.record("write", filename)
	if err, exists := m.writeFileErrors[filename]; exists {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.written == nil {
		m.written = make(map[string][]byte)
	}
	m.written[filename] = data
	return nil
}

func (m *MockFileSystem) Remove(path string) error {
	m.record("remove", path)
	return m.removeErrors[path]
}

func (m *MockFileSystem) RemoveAll(path string) error {
	m.record("removeall", path)
	return nil
}

func (m *MockFileSystem) FileExists(path string) (bool, error) {
	m.record("exists", path)
	m.mu.Lock()
	defer m.mu.Unlock()
	if exists, ok := m.existing[path]; ok {
		return exists, nil
	}
	_, ok := m.written[path]
	return ok, nil
}

// fakeLookPath resolves only the listed executables
func fakeLookPath(found ...string) LookPathFunc {
	set := make(map[string]bool, len(found))
	for _, f := range found {
		set[f] = true
	}
	return func(file string) (string, error) {
		if set[file] {
			return "/usr/bin/" + file, nil
		}
		return "", os.ErrNotExist
	}
}
