package engine

import (
	"strings"
	"testing"

	"github.com/dcpsystems/dcp/internal/adapter"
	"github.com/dcpsystems/dcp/internal/model"
	"github.com/dcpsystems/dcp/internal/registry"
)

func TestGenerateOperationIDFormat(t *testing.T) {
	id := GenerateOperationID()
	if !strings.HasPrefix(id, "op-") {
		t.Fatalf("expected op- prefix, got %s", id)
	}
	parts := strings.Split(id, "-")
	if len(parts) != 4 {
		t.Fatalf("expected 4 hyphen-separated parts, got %v", parts)
	}
}

func TestBuildActionsResolvesFlavorFallback(t *testing.T) {
	stacks := map[string]*model.Stack{
		"python": {
			Name: "python",
			Capabilities: []model.StackCapability{
				{Name: "test", Adapter: "shell", Command: "pytest"},
			},
		},
	}
	modules := []*model.Module{
		{Name: "api", Path: "services/api", DetectedStack: "python-fastapi"},
	}

	plan := BuildActions("test", modules, stacks, "op-1")
	if len(plan.Actions) != 1 {
		t.Fatalf("expected 1 action, got %d", len(plan.Actions))
	}
	if plan.Actions[0].Params["command"] != "pytest" {
		t.Fatalf("expected fallback resolution to python stack, got %+v", plan.Actions[0])
	}
}

func TestBuildActionsSkipsModulesWithoutCapability(t *testing.T) {
	stacks := map[string]*model.Stack{
		"node": {Name: "node"},
	}
	modules := []*model.Module{
		{Name: "web", Path: "web", DetectedStack: "node"},
	}
	plan := BuildActions("deploy", modules, stacks, "op-1")
	if len(plan.Actions) != 0 {
		t.Fatalf("expected no actions, got %d", len(plan.Actions))
	}
}

func TestExecutePlanDispatchesEveryAction(t *testing.T) {
	stacks := map[string]*model.Stack{
		"node": {
			Name: "node",
			Capabilities: []model.StackCapability{
				{Name: "test", Adapter: "mock", Command: "npm test"},
			},
		},
	}
	modules := []*model.Module{
		{Name: "web", Path: "web", DetectedStack: "node"},
		{Name: "api", Path: "api", DetectedStack: "node"},
	}
	plan := BuildActions("test", modules, stacks, "op-1")

	reg := registry.New(nil, nil)
	reg.Register(adapter.NewMock("mock"))

	report := ExecutePlan(plan, reg, ExecuteOptions{ProjectRoot: "."}, nil)
	if report.Total() != 2 {
		t.Fatalf("expected 2 receipts, got %d", report.Total())
	}
	if report.Status() != model.StatusOK {
		t.Fatalf("expected ok status, got %s", report.Status())
	}
	if len(report.ModuleReceipts["web"]) != 1 || len(report.ModuleReceipts["api"]) != 1 {
		t.Fatalf("expected one receipt index per module, got %+v", report.ModuleReceipts)
	}
}
