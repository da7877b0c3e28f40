package usecase

import (
	"context"
	"path/filepath"
	"time"

	"github.com/dcpsystems/dcp/internal/config"
	"github.com/dcpsystems/dcp/internal/detect"
	"github.com/dcpsystems/dcp/internal/model"
	"github.com/dcpsystems/dcp/internal/state"
)

// DetectResult is the outcome of running module detection.
type DetectResult struct {
	Detection   detect.Result
	Project     *model.Project
	ProjectRoot string
	StacksLoaded int
	StateSaved  bool
	Error       string
}

// ToDict renders the result the way `dcp detect` prints it.
func (r DetectResult) ToDict() map[string]interface{} {
	if r.Error != "" {
		return map[string]interface{}{"error": r.Error}
	}
	out := map[string]interface{}{
		"project_name":  projectName(r.Project),
		"project_root":  r.ProjectRoot,
		"stacks_loaded": r.StacksLoaded,
		"state_saved":   r.StateSaved,
		"total_modules": r.Detection.TotalModules(),
		"total_detected": r.Detection.TotalDetected(),
	}
	return out
}

func projectName(p *model.Project) string {
	if p == nil {
		return ""
	}
	return p.Name
}

// RunDetect loads the project, discovers stacks, runs detection, and
// (unless save is false) persists the findings into the state file.
func RunDetect(configPath, stacksDir string, save bool) DetectResult {
	result := DetectResult{}

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
	projectRoot, absErr := filepath.Abs(filepath.Dir(configPath))
	if absErr != nil {
		result.Error = absErr.Error()
		return result
	}
	result.ProjectRoot = projectRoot

	if stacksDir == "" {
		stacksDir = filepath.Join(projectRoot, "stacks")
	}
	stacks, _, err := config.DiscoverStacks(stacksDir)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.StacksLoaded = len(stacks)

	detection := detect.DetectModules(project, projectRoot, stacks)
	result.Detection = detection

	if save {
		backend := state.NewFileBackend(state.DefaultStatePath(projectRoot))
		ctx := context.Background()
		projectState, err := backend.Load(ctx)
		if err != nil {
			result.Error = err.Error()
			return result
		}
		projectState.ProjectName = project.Name
		projectState.LastDetectionAt = time.Now().UTC()

		for _, module := range detection.Modules {
			projectState.SetModuleState(model.ModuleState{
				Name:     module.Name,
				Detected: module.Detected,
				Stack:    module.EffectiveStack(),
				Version:  module.Version,
			})
		}

		if err := backend.Save(ctx, projectState); err != nil {
			result.Error = err.Error()
			return result
		}
		result.StateSaved = true
	}

	return result
}
