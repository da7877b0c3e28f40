package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dcpsystems/dcp/internal/model"
)

func TestFileBackendMissingFileYieldsFreshState(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".dcp", "state.json")
	b := NewFileBackend(path)

	s, err := b.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.SchemaVersion != model.CurrentSchemaVersion {
		t.Fatalf("expected fresh schema version, got %d", s.SchemaVersion)
	}
}

func TestFileBackendRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".dcp", "state.json")
	b := NewFileBackend(path)
	ctx := context.Background()

	s := model.NewProjectState("demo")
	s.SetModuleState(model.ModuleState{Name: "api", Detected: true, Stack: "node"})

	if err := b.Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.ProjectName != "demo" {
		t.Fatalf("expected project name demo, got %q", loaded.ProjectName)
	}
	if mod, ok := loaded.Modules["api"]; !ok || !mod.Detected {
		t.Fatalf("expected module api to round-trip, got %+v", loaded.Modules)
	}

	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Fatalf("expected state dir to exist: %v", err)
	}
}

func TestFileBackendCorruptFileYieldsFreshState(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".dcp", "state.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	b := NewFileBackend(path)
	s, err := b.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.SchemaVersion != model.CurrentSchemaVersion {
		t.Fatalf("expected fresh state on corrupt file, got %+v", s)
	}
}

func TestMemoryBackendNotFound(t *testing.T) {
	b := NewMemoryBackend()
	if _, err := b.Load(context.Background()); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
