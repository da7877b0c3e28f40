package usecase

import (
	"context"
	"path/filepath"

	"github.com/dcpsystems/dcp/internal/config"
	"github.com/dcpsystems/dcp/internal/model"
	"github.com/dcpsystems/dcp/internal/state"
)

// StatusResult aggregates project configuration with persisted state.
type StatusResult struct {
	Project            *model.Project
	State              *model.ProjectState
	ProjectRoot         string
	ConfigPath          string
	Error               string
	ModuleCount         int
	EnvironmentCount    int
	DetectedCount       int
	CurrentEnvironment  string
}

// ToDict renders the result the way `dcp status` prints it.
func (r StatusResult) ToDict() map[string]interface{} {
	if r.Error != "" {
		return map[string]interface{}{"error": r.Error}
	}

	out := map[string]interface{}{
		"project": map[string]interface{}{
			"name":        projectName(r.Project),
			"description": r.Project.Description,
			"repository":  r.Project.Repository,
		},
		"config_path":         r.ConfigPath,
		"project_root":        r.ProjectRoot,
		"current_environment": r.CurrentEnvironment,
		"modules": map[string]interface{}{
			"total":    r.ModuleCount,
			"detected": r.DetectedCount,
		},
		"environments": r.EnvironmentCount,
	}

	if r.State != nil && r.State.LastOperation != nil && r.State.LastOperation.OperationID != "" {
		out["last_operation"] = map[string]interface{}{
			"id":     r.State.LastOperation.OperationID,
			"type":   r.State.LastOperation.Automation,
			"status": r.State.LastOperation.Status,
			"at":     r.State.LastOperation.EndedAt,
		}
	}

	return out
}

// GetStatus loads project config and persisted state and computes summary
// counts across both.
func GetStatus(configPath string) StatusResult {
	result := StatusResult{CurrentEnvironment: "dev"}

	if configPath == "" {
		found, err := config.FindProjectFile(".")
		if err != nil {
			result.Error = err.Error()
			return result
		}
		configPath = found
	}
	result.ConfigPath = configPath

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

	backend := state.NewFileBackend(state.DefaultStatePath(projectRoot))
	projectState, err := backend.Load(context.Background())
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.State = projectState

	result.ModuleCount = len(project.Modules)
	result.EnvironmentCount = len(project.Environments)
	result.CurrentEnvironment = projectState.CurrentEnvironment
	if result.CurrentEnvironment == "" {
		result.CurrentEnvironment = "dev"
	}

	for _, ms := range projectState.Modules {
		if ms.Detected {
			result.DetectedCount++
		}
	}

	return result
}

// QueryExternalLink resolves a JSONPath expression (e.g. "$.extra.slack")
// against a project's external links. No CLI command or dashboard route
// calls it.
func QueryExternalLink(project *model.Project, path string) (interface{}, error) {
	return config.QueryExternal(project.External, path)
}
