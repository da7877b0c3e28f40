package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dcpsystems/dcp/internal/errs"
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

func TestFindProjectFileWalksUpward(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "project.yml"), "project:\n  name: demo\n  version: 1\n")

	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	found, err := FindProjectFile(nested)
	if err != nil {
		t.Fatalf("FindProjectFile: %v", err)
	}
	want := filepath.Join(root, "project.yml")
	if found != want {
		t.Fatalf("expected %s, got %s", want, found)
	}
}

func TestFindProjectFileMissing(t *testing.T) {
	root := t.TempDir()
	_, err := FindProjectFile(root)
	if !errs.Is(err, errs.KindConfigMissing) {
		t.Fatalf("expected KindConfigMissing, got %v", err)
	}
}

func TestLoadProjectWrappedAndBare(t *testing.T) {
	wrapped := filepath.Join(t.TempDir(), "project.yml")
	writeFile(t, wrapped, `project:
  name: demo
  version: 1
  domains: [backend]
  modules:
    - name: api
      path: services/api
      domain: backend
`)
	p, err := LoadProject(wrapped)
	if err != nil {
		t.Fatalf("LoadProject wrapped: %v", err)
	}
	if p.Name != "demo" || len(p.Modules) != 1 {
		t.Fatalf("unexpected project: %+v", p)
	}

	bare := filepath.Join(t.TempDir(), "project.yml")
	writeFile(t, bare, `name: demo2
version: 1
`)
	p2, err := LoadProject(bare)
	if err != nil {
		t.Fatalf("LoadProject bare: %v", err)
	}
	if p2.Name != "demo2" {
		t.Fatalf("unexpected project: %+v", p2)
	}
}

func TestLoadProjectDefaultsVersionWhenOmitted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "project.yml")
	writeFile(t, path, "project:\n  name: demo\n")

	p, err := LoadProject(path)
	if err != nil {
		t.Fatalf("LoadProject: %v", err)
	}
	if p.Version != model.DefaultProjectVersion {
		t.Fatalf("expected version to default to %d, got %d", model.DefaultProjectVersion, p.Version)
	}
}

func TestLoadProjectInvalidDomain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "project.yml")
	writeFile(t, path, `project:
  name: demo
  version: 1
  domains: [backend]
  modules:
    - name: api
      path: services/api
      domain: frontend
`)
	_, err := LoadProject(path)
	if !errs.Is(err, errs.KindConfigInvalid) {
		t.Fatalf("expected KindConfigInvalid, got %v", err)
	}
}

func TestLoadProjectMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "project.yml")
	writeFile(t, path, "not: [valid: yaml")
	_, err := LoadProject(path)
	if !errs.Is(err, errs.KindConfigMalformed) {
		t.Fatalf("expected KindConfigMalformed, got %v", err)
	}
}

func TestLoadProjectMissing(t *testing.T) {
	_, err := LoadProject(filepath.Join(t.TempDir(), "nope.yml"))
	if !errs.Is(err, errs.KindConfigMissing) {
		t.Fatalf("expected KindConfigMissing, got %v", err)
	}
}

func TestQueryExternalResolvesNestedExtra(t *testing.T) {
	links := model.ExternalLinks{
		CI:    "https://ci.example.com",
		Extra: map[string]string{"slack": "#deploys"},
	}

	got, err := QueryExternal(links, "$.extra.slack")
	if err != nil {
		t.Fatalf("QueryExternal: %v", err)
	}
	if got != "#deploys" {
		t.Fatalf("expected #deploys, got %v", got)
	}
}

func TestQueryExternalMissingFieldErrors(t *testing.T) {
	links := model.ExternalLinks{CI: "https://ci.example.com"}
	if _, err := QueryExternal(links, "$.nope.missing"); err == nil {
		t.Fatal("expected an error for a path with no match")
	}
}
