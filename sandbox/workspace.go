package sandbox

import (
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Workspace is the per-request directory holding a submission's source and
// whatever the compile step derives from it. It belongs to exactly one request.
type Workspace struct {
	ID         string
	Dir        string
	SourcePath string

	mu        sync.Mutex
	artifacts []string
	released  bool
}

// ArtifactPath returns the absolute path of a derived file inside the workspace
func (w *Workspace) ArtifactPath(name string) string {
	return filepath.Join(w.Dir, name)
}

// AddArtifact records a derived file so Release removes it
func (w *Workspace) AddArtifact(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.artifacts = append(w.artifacts, path)
}

// Artifacts returns the derived files recorded so far
func (w *Workspace) Artifacts() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.artifacts))
	copy(out, w.artifacts)
	return out
}

// WorkspaceManager allocates and destroys workspaces under a base directory
type WorkspaceManager struct {
	logger  *zap.Logger
	baseDir string
	fs      FileSystem
	newID   func() string
}

// WorkspaceOption defines a functional option for WorkspaceManager
type WorkspaceOption func(*WorkspaceManager)

// WithWorkspaceFileSystem sets the FileSystem for WorkspaceManager
func WithWorkspaceFileSystem(fs FileSystem) WorkspaceOption {
	return func(m *WorkspaceManager) {
		m.fs = fs
	}
}

// WithWorkspaceIDGenerator sets the identifier source for WorkspaceManager
func WithWorkspaceIDGenerator(gen func() string) WorkspaceOption {
	return func(m *WorkspaceManager) {
		m.newID = gen
	}
}

// NewWorkspaceManager creates a WorkspaceManager rooted at baseDir
func NewWorkspaceManager(logger *zap.Logger, baseDir string, opts ...WorkspaceOption) *WorkspaceManager {
	m := &WorkspaceManager{
		logger:  logger,
		baseDir: baseDir,
		fs:      RealFileSystem{},
		newID:   NewWorkspaceID,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// BaseDir is the directory workspaces are created under
func (m *WorkspaceManager) BaseDir() string {
	return m.baseDir
}

// NewWorkspaceID returns a random 128-bit token as 32 hex characters
func NewWorkspaceID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// Acquire creates a fresh workspace and writes the source into it under the
// profile's expected file name. On failure nothing is left behind.
func (m *WorkspaceManager) Acquire(profile LanguageProfile, code string) (*Workspace, error) {
	if err := m.fs.MkdirAll(m.baseDir, DirPermission); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	id := m.newID()
	dir := filepath.Join(m.baseDir, "ws_"+id)

	// Mkdir fails on an existing path, so a colliding id can never share a directory
	if err := m.fs.Mkdir(dir, DirPermission); err != nil {
		return nil, fmt.Errorf("failed to create workspace %s: %w", id, err)
	}

	ws := &Workspace{
		ID:         id,
		Dir:        dir,
		SourcePath: filepath.Join(dir, profile.SourceName()),
	}

	if err := m.fs.WriteFile(ws.SourcePath, []byte(code), FilePermission); err != nil {
		_ = m.fs.RemoveAll(dir)
		return nil, fmt.Errorf("failed to write source: %w", err)
	}

	m.logger.Debug("workspace acquired",
		zap.String("workspace", id),
		zap.String("language", profile.ID),
		zap.String("source", ws.SourcePath))

	return ws, nil
}

// Release removes the source, every recorded artifact, and the workspace
// directory. Only the first call does anything; later calls return nil.
func (m *WorkspaceManager) Release(ws *Workspace) error {
	if ws == nil {
		return nil
	}

	ws.mu.Lock()
	if ws.released {
		ws.mu.Unlock()
		return nil
	}
	ws.released = true
	artifacts := append([]string(nil), ws.artifacts...)
	ws.mu.Unlock()

	var errs []error
	for _, path := range append(artifacts, ws.SourcePath) {
		exists, err := m.fs.FileExists(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !exists {
			continue
		}
		if err := m.fs.Remove(path); err != nil {
			errs = append(errs, err)
		}
	}

	// anything the program itself created in its working directory goes too
	if err := m.fs.RemoveAll(ws.Dir); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		m.logger.Warn("workspace cleanup incomplete", zap.String("workspace", ws.ID), zap.Error(err))
		return fmt.Errorf("failed to release workspace %s: %w", ws.ID, err)
	}

	m.logger.Debug("workspace released", zap.String("workspace", ws.ID))
	return nil
}
