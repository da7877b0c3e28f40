// Package usecase wires the lower-level packages (config, detect, state,
// engine, registry, resilience) into the top-level operations the CLI and
// web dashboard actually invoke.
package usecase

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/dcpsystems/dcp/internal/config"
	"github.com/dcpsystems/dcp/internal/errs"
	"github.com/dcpsystems/dcp/internal/model"
)

// ConfigCheckResult is the outcome of validating project.yml.
type ConfigCheckResult struct {
	Valid      bool
	Project    *model.Project
	ConfigPath string
	Errors     []string
	Warnings   []string
}

// ToDict renders the result the way `dcp config check` prints it.
func (r ConfigCheckResult) ToDict() map[string]interface{} {
	out := map[string]interface{}{
		"valid":    r.Valid,
		"errors":   r.Errors,
		"warnings": r.Warnings,
	}
	if r.ConfigPath != "" {
		out["config_path"] = r.ConfigPath
	}
	if r.Project != nil {
		out["project_name"] = r.Project.Name
		out["module_count"] = len(r.Project.Modules)
		out["environment_count"] = len(r.Project.Environments)
	}
	return out
}

// CheckConfig validates project configuration and reports every issue
// found instead of stopping at the first one. configPath may be empty to
// search upward from the current directory.
func CheckConfig(configPath string) ConfigCheckResult {
	result := ConfigCheckResult{}

	if configPath == "" {
		found, err := config.FindProjectFile(".")
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			return result
		}
		configPath = found
	}
	result.ConfigPath = configPath

	project, err := config.LoadProject(configPath)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	result.Project = project

	if len(project.Environments) == 0 {
		result.Warnings = append(result.Warnings, "no environments defined; consider adding at least 'dev'")
	}
	if len(project.Modules) == 0 {
		result.Warnings = append(result.Warnings, "no modules defined; the project has nothing to manage")
	}

	// Name uniqueness and declared module domains are already enforced by
	// LoadProject's own validation (it would have returned ConfigInvalid above); what's left
	// here are warnings LoadProject deliberately doesn't treat as fatal.
	var defaults []string
	for _, env := range project.Environments {
		if env.Default {
			defaults = append(defaults, env.Name)
		}
	}
	if len(defaults) > 1 {
		result.Warnings = append(result.Warnings, "multiple default environments: "+joinSorted(defaults)+"; only the first is used")
	}

	projectRoot := filepath.Dir(configPath)
	for _, mod := range project.Modules {
		modPath := filepath.Join(projectRoot, mod.Path)
		if _, err := os.Stat(modPath); err != nil {
			result.Warnings = append(result.Warnings, "module '"+mod.Name+"' path does not exist: "+mod.Path)
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

func joinSorted(items []string) string {
	sort.Strings(items)
	out := ""
	for i, item := range items {
		if i > 0 {
			out += ", "
		}
		out += item
	}
	return out
}

// IsConfigError narrows an error to whether it's a *errs.ConfigError of
// kind k, a thin pass-through kept so callers don't need to import errs
// themselves for the common case.
func IsConfigError(err error, kind errs.Kind) bool {
	return errs.Is(err, kind)
}
