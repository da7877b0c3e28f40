package detect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dcpsystems/dcp/internal/model"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDetectModulesMatchesAndSniffsVersion(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "services", "api", "package.json"), `{"name":"api","version":"2.3.1"}`)

	project := &model.Project{
		Modules: []model.ModuleRef{
			{Name: "api", Path: "services/api", Stack: "node"},
		},
	}
	stacks := map[string]*model.Stack{
		"node": {Name: "node", Detection: model.DetectionRule{FilesAnyOf: []string{"package.json"}}},
	}

	result := DetectModules(project, root, stacks)
	mod, ok := result.GetModule("api")
	if !ok || !mod.Detected {
		t.Fatalf("expected api to be detected: %+v", mod)
	}
	if mod.Version != "2.3.1" {
		t.Fatalf("expected version 2.3.1, got %q", mod.Version)
	}
	if mod.Language != "javascript" {
		t.Fatalf("expected javascript, got %q", mod.Language)
	}
	if len(result.UnmatchedRefs) != 0 {
		t.Fatalf("expected no unmatched refs, got %v", result.UnmatchedRefs)
	}
}

func TestDetectModulesMissingPathIsUnmatched(t *testing.T) {
	root := t.TempDir()

	project := &model.Project{
		Modules: []model.ModuleRef{{Name: "api", Path: "services/api", Stack: "node"}},
	}
	stacks := map[string]*model.Stack{
		"node": {Name: "node", Detection: model.DetectionRule{FilesAnyOf: []string{"package.json"}}},
	}

	result := DetectModules(project, root, stacks)
	if len(result.UnmatchedRefs) != 1 || result.UnmatchedRefs[0] != "api" {
		t.Fatalf("expected api in UnmatchedRefs, got %v", result.UnmatchedRefs)
	}
	if result.TotalDetected() != 0 {
		t.Fatalf("expected 0 detected, got %d", result.TotalDetected())
	}
	mod, ok := result.GetModule("api")
	if !ok || mod.Detected {
		t.Fatalf("expected api present and undetected, got %+v", mod)
	}
}

func TestDetectModulesDirectoryWithNoStackMatchIsStillDetected(t *testing.T) {
	root := t.TempDir()
	// The directory exists but contains nothing any stack's detection rule
	// recognizes: per spec, this module is still "detected" (the path was
	// found), just with no DetectedStack.
	if err := os.MkdirAll(filepath.Join(root, "services", "api"), 0o755); err != nil {
		t.Fatal(err)
	}

	project := &model.Project{
		Modules: []model.ModuleRef{{Name: "api", Path: "services/api", Stack: "node"}},
	}
	stacks := map[string]*model.Stack{
		"node": {Name: "node", Detection: model.DetectionRule{FilesAnyOf: []string{"package.json"}}},
	}

	result := DetectModules(project, root, stacks)
	if len(result.UnmatchedRefs) != 0 {
		t.Fatalf("expected no unmatched refs, got %v", result.UnmatchedRefs)
	}
	mod, ok := result.GetModule("api")
	if !ok || !mod.Detected {
		t.Fatalf("expected api detected (path exists), got %+v", mod)
	}
	if mod.DetectedStack != "" {
		t.Fatalf("expected no detected stack, got %q", mod.DetectedStack)
	}
}

func TestDetectModulesMatchedStackDifferingFromDeclaredIsNotFlaggedAsExtra(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "services", "api", "go.mod"), "module api\n\ngo 1.23\n")

	project := &model.Project{
		Modules: []model.ModuleRef{{Name: "api", Path: "services/api", Stack: "node"}},
	}
	stacks := map[string]*model.Stack{
		"node": {Name: "node", Detection: model.DetectionRule{FilesAnyOf: []string{"package.json"}}},
		"go":   {Name: "go", Detection: model.DetectionRule{FilesAnyOf: []string{"go.mod"}}},
	}

	result := DetectModules(project, root, stacks)
	if len(result.ExtraDetections) != 0 {
		t.Fatalf("ExtraDetections is reserved for undeclared-module discovery, got %v", result.ExtraDetections)
	}
	mod, _ := result.GetModule("api")
	if mod.DetectedStack != "go" {
		t.Fatalf("expected detected stack go, got %q", mod.DetectedStack)
	}
}
