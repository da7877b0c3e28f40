package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dcpsystems/dcp/internal/adapter"
	"github.com/dcpsystems/dcp/internal/audit"
	"github.com/dcpsystems/dcp/internal/config"
	"github.com/dcpsystems/dcp/internal/detect"
	"github.com/dcpsystems/dcp/internal/engine"
	"github.com/dcpsystems/dcp/internal/model"
	"github.com/dcpsystems/dcp/internal/registry"
	"github.com/dcpsystems/dcp/internal/resilience"
	"github.com/dcpsystems/dcp/internal/state"
)

// RunOptions carries every knob `dcp run <capability>` exposes.
type RunOptions struct {
	Capability  string
	ConfigPath  string
	StacksDir   string
	Modules     []string // empty means "every detected module"
	Environment string
	DryRun      bool
	MockMode    bool
	Registry    *registry.Registry // optional pre-configured registry, e.g. for tests
	Breakers    *resilience.Registry
}

// RunResult is the outcome of one automation run.
type RunResult struct {
	Report          *model.ExecutionReport
	Plan            *model.ExecutionPlan
	Project         *model.Project
	ProjectRoot     string
	ModulesTargeted int
	ActionsPlanned  int
	Error           string
}

// ToDict renders the result the way `dcp run` prints it.
func (r RunResult) ToDict() map[string]interface{} {
	if r.Error != "" {
		return map[string]interface{}{"error": r.Error}
	}
	out := map[string]interface{}{
		"project_name":     projectName(r.Project),
		"project_root":     r.ProjectRoot,
		"modules_targeted": r.ModulesTargeted,
		"actions_planned":  r.ActionsPlanned,
	}
	if r.Report != nil {
		out["report"] = r.Report.ToDict()
	}
	return out
}

// DefaultRegistry builds the registry the CLI wires by default: shell,
// git, script, and a standalone mock adapter available for explicit
// scenario use, all behind a shared circuit breaker registry.
func DefaultRegistry(breakers *resilience.Registry) *registry.Registry {
	reg := registry.New(breakers, nil)
	reg.Register(adapter.NewShell(nil))
	reg.Register(adapter.NewGit())
	reg.Register(adapter.NewScript())
	reg.Register(adapter.NewMock("mock"))
	return reg
}

// RunAutomation executes an automation capability across project modules:
// load config -> discover stacks -> detect modules -> build plan ->
// dispatch -> persist state -> append audit entries.
func RunAutomation(opts RunOptions) RunResult {
	result := RunResult{}

	configPath := opts.ConfigPath
	if configPath == "" {
		found, err := config.FindProjectFile(".")
		if err != nil {
			result.Error = err.Error()
			return result
		}
		configPath = found
	}

	project, err := config.LoadProject(configPath)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Project = project

	projectRoot, err := filepath.Abs(filepath.Dir(configPath))
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.ProjectRoot = projectRoot

	stacksDir := opts.StacksDir
	if stacksDir == "" {
		stacksDir = filepath.Join(projectRoot, "stacks")
	}
	stacks, _, err := config.DiscoverStacks(stacksDir)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	detection := detect.DetectModules(project, projectRoot, stacks)
	targets := filterTargets(detection.Modules, opts.Modules)
	result.ModulesTargeted = len(targets)

	operationID := engine.GenerateOperationID()
	environment := opts.Environment
	if environment == "" {
		environment = "dev"
	}

	plan := engine.BuildActions(opts.Capability, targets, stacks, operationID)
	result.Plan = &plan
	result.ActionsPlanned = len(plan.Actions)

	if len(plan.Actions) == 0 {
		result.Error = fmt.Sprintf("no actions to execute: capability %q not found in any targeted module's stack", opts.Capability)
		return result
	}

	reg := opts.Registry
	if reg == nil {
		reg = DefaultRegistry(opts.Breakers)
	}
	reg.SetMockMode(opts.MockMode, nil)

	report := engine.ExecutePlan(plan, reg, engine.ExecuteOptions{
		ProjectRoot: projectRoot,
		Environment: environment,
		DryRun:      opts.DryRun,
	}, nil)
	result.Report = &report

	persistRunOutcome(projectRoot, project.Name, operationID, opts.Capability, environment, &report)

	return result
}

func filterTargets(modules []model.Module, names []string) []*model.Module {
	var allowed map[string]bool
	if len(names) > 0 {
		allowed = make(map[string]bool, len(names))
		for _, n := range names {
			allowed[n] = true
		}
	}

	var targets []*model.Module
	for i := range modules {
		m := &modules[i]
		if !m.Detected {
			continue
		}
		if allowed != nil && !allowed[m.Name] {
			continue
		}
		targets = append(targets, m)
	}
	return targets
}

// persistRunOutcome saves the last-operation summary into the state file
// and appends one audit entry per dispatched action. Persistence failures
// are logged but never turn a successful run into a reported failure.
func persistRunOutcome(projectRoot, projectName, operationID, automation, environment string, report *model.ExecutionReport) {
	ctx := context.Background()
	backend := state.NewFileBackend(state.DefaultStatePath(projectRoot))
	projectState, err := backend.Load(ctx)
	if err == nil {
		projectState.ProjectName = projectName
		projectState.LastOperation = &model.OperationRecord{
			OperationID:      operationID,
			Automation:       automation,
			EndedAt:          time.Now().UTC(),
			Status:           report.Status(),
			ActionsTotal:     report.Total(),
			ActionsSucceeded: report.Succeeded(),
			ActionsFailed:    report.Failed(),
		}
		for moduleName, indices := range report.ModuleReceipts {
			if len(indices) == 0 {
				continue
			}
			last := report.Receipts[indices[len(indices)-1]]
			projectState.SetModuleState(model.ModuleState{
				Name:             moduleName,
				LastActionStatus: last.Status,
			})
		}
		if err := backend.Save(ctx, projectState); err != nil {
			logrus.WithError(err).Warn("failed to save project state")
		}
	} else {
		logrus.WithError(err).Warn("failed to load project state")
	}

	writer, err := audit.Open(audit.DefaultLedgerPath(projectRoot))
	if err != nil {
		logrus.WithError(err).Warn("failed to open audit ledger")
		return
	}
	defer writer.Close()
	if err := writer.WriteReceipts(report, environment); err != nil {
		logrus.WithError(err).Warn("failed to write audit entries")
	}
}
