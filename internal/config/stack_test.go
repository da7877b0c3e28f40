package config

import (
	"path/filepath"
	"testing"

	"github.com/dcpsystems/dcp/internal/model"
)

func TestDiscoverStacksMergesParent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "node.yml"), `name: node
icon: "📦"
description: Node.js service
domain: service
requires:
  - adapter: shell
detection:
  files_any_of: [package.json]
capabilities:
  - name: test
    adapter: shell
    command: "npm test"
  - name: build
    adapter: shell
    command: "npm run build"
`)
	writeFile(t, filepath.Join(dir, "node-next.yml"), `name: node-next
extends: node
description: Next.js application
detection:
  files_any_of: [next.config.js]
capabilities:
  - name: build
    adapter: shell
    command: "next build"
  - name: dev
    adapter: shell
    command: "next dev"
`)

	stacks, warnings, err := DiscoverStacks(dir)
	if err != nil {
		t.Fatalf("DiscoverStacks: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	flavor, ok := stacks["node-next"]
	if !ok {
		t.Fatal("expected node-next to be present")
	}
	if flavor.Icon != "📦" {
		t.Fatalf("expected inherited icon, got %q", flavor.Icon)
	}
	if flavor.Description != "Next.js application" {
		t.Fatalf("expected child description to win, got %q", flavor.Description)
	}
	if len(flavor.Detection.FilesAnyOf) != 2 {
		t.Fatalf("expected merged detection file lists, got %v", flavor.Detection.FilesAnyOf)
	}
	build, ok := flavor.GetCapability("build")
	if !ok || build.Command != "next build" {
		t.Fatalf("expected child build capability to override parent, got %+v", build)
	}
	if !flavor.HasCapability("test") {
		t.Fatal("expected inherited test capability to survive merge")
	}
	if !flavor.HasCapability("dev") {
		t.Fatal("expected extra child capability to be appended")
	}
}

func TestSortedStackNamesOrdersFlavorsBeforeBase(t *testing.T) {
	stacks := map[string]*model.Stack{
		"docker-compose": {Name: "docker-compose"},
		"node":           {Name: "node"},
		"node-next":      {Name: "node-next", Extends: "node"},
		"static-site":    {Name: "static-site"},
	}

	names := SortedStackNames(stacks)

	index := make(map[string]int, len(names))
	for i, n := range names {
		index[n] = i
	}

	if index["node-next"] >= index["node"] {
		t.Fatalf("expected flavor node-next before its base node, got order %v", names)
	}
	// Hyphenated base-stack names (docker-compose, static-site) must not be
	// misclassified as flavors just because their name contains a hyphen.
	for _, base := range []string{"docker-compose", "static-site"} {
		if index[base] < index["node-next"] {
			t.Fatalf("expected hyphenated base stack %q to sort after flavors, got order %v", base, names)
		}
	}
}

func TestDiscoverStacksSkipsUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "ok.yml"), "name: ok\n")
	writeFile(t, filepath.Join(dir, "bad.yml"), "not: [valid: yaml")

	stacks, warnings, err := DiscoverStacks(dir)
	if err != nil {
		t.Fatalf("DiscoverStacks: %v", err)
	}
	if _, ok := stacks["ok"]; !ok {
		t.Fatal("expected ok stack to load despite sibling failure")
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one warning, got %d: %v", len(warnings), warnings)
	}
}
