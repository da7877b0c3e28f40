package usecase

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dcpsystems/dcp/internal/resilience"
)

func writeProject(t *testing.T, dir string) string {
	t.Helper()
	content := `project:
  name: demo
  version: 1
  environments:
    - name: dev
      default: true
  modules:
    - name: api
      path: services/api
      stack: node
`
	path := filepath.Join(dir, "project.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write project.yml: %v", err)
	}
	return path
}

func writeNodeStack(t *testing.T, dir string) {
	t.Helper()
	stacksDir := filepath.Join(dir, "stacks")
	if err := os.MkdirAll(stacksDir, 0o755); err != nil {
		t.Fatalf("mkdir stacks: %v", err)
	}
	content := `name: node
detection:
  files_any_of:
    - package.json
capabilities:
  - name: test
    adapter: mock
    command: npm test
`
	if err := os.WriteFile(filepath.Join(stacksDir, "node.yml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write stack: %v", err)
	}
}

func TestCheckConfigValidProject(t *testing.T) {
	dir := t.TempDir()
	path := writeProject(t, dir)

	result := CheckConfig(path)
	if !result.Valid {
		t.Fatalf("expected valid config, got errors: %v", result.Errors)
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected a warning about the missing module path")
	}
}

func TestCheckConfigMissingFile(t *testing.T) {
	result := CheckConfig(filepath.Join(t.TempDir(), "nope.yml"))
	if result.Valid {
		t.Fatal("expected invalid result for missing file")
	}
	if len(result.Errors) == 0 {
		t.Fatal("expected an error")
	}
}

func TestRunAutomationExecutesDetectedModule(t *testing.T) {
	dir := t.TempDir()
	moduleDir := filepath.Join(dir, "services", "api")
	if err := os.MkdirAll(moduleDir, 0o755); err != nil {
		t.Fatalf("mkdir module: %v", err)
	}
	if err := os.WriteFile(filepath.Join(moduleDir, "package.json"), []byte(`{"version":"1.0.0"}`), 0o644); err != nil {
		t.Fatalf("write package.json: %v", err)
	}
	path := writeProject(t, dir)
	writeNodeStack(t, dir)

	result := RunAutomation(RunOptions{
		Capability: "test",
		ConfigPath: path,
		MockMode:   true,
	})
	if result.Error != "" {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if result.ActionsPlanned != 1 {
		t.Fatalf("expected 1 planned action, got %d", result.ActionsPlanned)
	}
	if result.Report.Status() != "ok" {
		t.Fatalf("expected ok status, got %s", result.Report.Status())
	}

	if _, err := os.Stat(filepath.Join(dir, ".dcp", "state.json")); err != nil {
		t.Fatalf("expected state file to be written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".dcp", "audit.ndjson")); err != nil {
		t.Fatalf("expected audit ledger to be written: %v", err)
	}
}

func TestRunAutomationNoMatchingCapability(t *testing.T) {
	dir := t.TempDir()
	path := writeProject(t, dir)
	writeNodeStack(t, dir)

	result := RunAutomation(RunOptions{Capability: "deploy", ConfigPath: path, MockMode: true})
	if result.Error == "" {
		t.Fatal("expected an error for a capability no stack declares")
	}
}

func TestCheckSystemHealthAggregatesWorstStatus(t *testing.T) {
	breakers := resilience.NewRegistry(resilience.Config{FailureThreshold: 1})
	cb := breakers.GetOrCreate("shell")
	cb.RecordFailure()

	health := CheckSystemHealth(breakers, nil)
	if health.Status != HealthUnhealthy {
		t.Fatalf("expected unhealthy aggregate, got %s", health.Status)
	}
}
