// Package engine orchestrates one automation run: resolve target modules'
// effective stacks, build an ExecutionPlan, dispatch it through the
// adapter registry, and collect an ExecutionReport.
package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dcpsystems/dcp/internal/model"
	"github.com/dcpsystems/dcp/internal/registry"
)

// GenerateOperationID builds a unique, sortable operation identifier of the
// form "op-YYYYMMDD-HHMMSS-xxxxxx".
func GenerateOperationID() string {
	now := time.Now().UTC().Format("20060102-150405")
	short := uuid.New().String()[:6]
	return fmt.Sprintf("op-%s-%s", now, short)
}

// resolveStack finds the stack a module's effective stack name refers to,
// falling back to the base stack when the name carries a "-flavor" suffix
// that isn't itself a known stack (e.g. "python-lib" -> "python").
func resolveStack(name string, stacks map[string]*model.Stack) *model.Stack {
	if stack, ok := stacks[name]; ok {
		return stack
	}
	if idx := lastHyphen(name); idx >= 0 {
		if stack, ok := stacks[name[:idx]]; ok {
			return stack
		}
	}
	return nil
}

func lastHyphen(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '-' {
			return i
		}
	}
	return -1
}

// BuildActions resolves capabilityName against every module's effective
// stack, producing one Action per module that declares the capability.
// Modules with no stack, an unresolvable stack, or no matching capability
// are silently skipped (mirrored in ModuleActions being absent for them).
func BuildActions(capabilityName string, modules []*model.Module, stacks map[string]*model.Stack, operationID string) model.ExecutionPlan {
	plan := model.ExecutionPlan{
		OperationID:   operationID,
		Automation:    capabilityName,
		ModuleActions: make(map[string][]string),
	}

	for _, module := range modules {
		stackName := module.EffectiveStack()
		if stackName == "" {
			continue
		}
		stack := resolveStack(stackName, stacks)
		if stack == nil {
			continue
		}
		capability, ok := stack.GetCapability(capabilityName)
		if !ok {
			continue
		}

		action := model.Action{
			ID:         fmt.Sprintf("%s:%s:%s", operationID, module.Name, capabilityName),
			Adapter:    capability.Adapter,
			Capability: capabilityName,
			ForModule:  module.Name,
			Params: map[string]interface{}{
				"command":      capability.Command,
				"capability":   capabilityName,
				"_stack":       stackName,
				"_module_path": module.Path,
				"_description": capability.Description,
			},
		}
		if action.Adapter == "" {
			action.Adapter = "shell"
		}

		plan.Actions = append(plan.Actions, action)
		plan.ModuleActions[module.Name] = append(plan.ModuleActions[module.Name], action.ID)
	}

	return plan
}

// ExecuteOptions carries the per-run dispatch parameters ExecutePlan needs
// beyond the plan itself.
type ExecuteOptions struct {
	ProjectRoot string
	Environment string
	DryRun      bool
}

// ExecutePlan dispatches every action in plan through reg, logging a
// human-readable ✓/✗/⊘ line per action alongside the structured fields, and
// returns the aggregated ExecutionReport.
func ExecutePlan(plan model.ExecutionPlan, reg *registry.Registry, opts ExecuteOptions, log *logrus.Entry) model.ExecutionReport {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	report := model.ExecutionReport{
		OperationID:    plan.OperationID,
		Automation:     plan.Automation,
		ModuleReceipts: make(map[string][]int),
	}

	for _, action := range plan.Actions {
		modulePath, _ := action.Params["_module_path"].(string)

		receipt := reg.Dispatch(action, registry.DispatchOptions{
			ProjectRoot: opts.ProjectRoot,
			Environment: opts.Environment,
			ModulePath:  modulePath,
			DryRun:      opts.DryRun,
		})

		report.Receipts = append(report.Receipts, receipt)
		moduleName := action.ForModule
		if moduleName == "" {
			moduleName = "unknown"
		}
		report.ModuleReceipts[moduleName] = append(report.ModuleReceipts[moduleName], len(report.Receipts)-1)

		marker := "⊘"
		switch receipt.Status {
		case model.ReceiptOK:
			marker = "✓"
		case model.ReceiptFailed:
			marker = "✗"
		}
		log.WithFields(logrus.Fields{
			"operation_id": plan.OperationID,
			"module":       moduleName,
			"capability":   plan.Automation,
			"status":       receipt.Status,
			"duration_ms":  receipt.DurationMs,
		}).Infof("%s %s:%s -> %s", marker, moduleName, plan.Automation, receipt.Status)
	}

	return report
}
