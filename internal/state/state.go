// Package state persists ProjectState to disk between CLI invocations.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/dcpsystems/dcp/internal/model"
)

// ErrNotFound is returned by MemoryBackend.Load (and pgstore's Store) when
// no state has been saved yet. FileBackend.Load returns a fresh state
// instead.
var ErrNotFound = errors.New("state: not found")

// Backend is the storage abstraction ProjectState persistence is built on,
// so the file-based default (FileBackend) and the optional Postgres
// mirror (internal/pgstore) can be swapped without touching callers.
type Backend interface {
	Load(ctx context.Context) (*model.ProjectState, error)
	Save(ctx context.Context, s *model.ProjectState) error
}

// MemoryBackend is an in-process Backend for throwaway state; the tests use
// it, and no CLI command does.
type MemoryBackend struct {
	mu    sync.RWMutex
	state *model.ProjectState
}

// NewMemoryBackend returns a Backend that never touches disk.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (m *MemoryBackend) Load(_ context.Context) (*model.ProjectState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state == nil {
		return nil, ErrNotFound
	}
	clone := *m.state
	return &clone, nil
}

func (m *MemoryBackend) Save(_ context.Context, s *model.ProjectState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *s
	m.state = &clone
	return nil
}

// FileBackend persists ProjectState as a single JSON document, written
// atomically: the new content lands in a temp file in the same directory
// as path, which is then renamed over path. Renames within one filesystem
// are atomic, so a reader never observes a half-written file.
type FileBackend struct {
	mu   sync.Mutex
	path string
}

// NewFileBackend returns a Backend backed by the JSON file at path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// DefaultStatePath returns the conventional state file location relative
// to a project root: <root>/.dcp/state.json.
func DefaultStatePath(projectRoot string) string {
	return filepath.Join(projectRoot, ".dcp", "state.json")
}

// Load reads the state file. A missing file is not an error: callers get a
// fresh, empty ProjectState so that `dcp status` and `dcp detect` work
// before the first `dcp run` has ever written anything.
func (f *FileBackend) Load(_ context.Context) (*model.ProjectState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.NewProjectState(""), nil
		}
		return nil, err
	}

	var s model.ProjectState
	if err := json.Unmarshal(data, &s); err != nil {
		// A corrupt state file is treated the same as a missing one: the
		// control plane rebuilds state from future operations rather than
		// refusing to run.
		return model.NewProjectState(""), nil
	}
	return &s, nil
}

// Save writes the state file atomically.
func (f *FileBackend) Save(_ context.Context, s *model.ProjectState) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, f.path)
}
