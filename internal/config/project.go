package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/PaesslerAG/jsonpath"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/dcpsystems/dcp/internal/errs"
	"github.com/dcpsystems/dcp/internal/model"
)

// ProjectFileName is the manifest file FindProjectFile looks for.
const ProjectFileName = "project.yml"

// maxUpwardLevels bounds how far FindProjectFile walks toward the
// filesystem root before giving up.
const maxUpwardLevels = 20

// FindProjectFile walks upward from startDir (inclusive) looking for
// project.yml, stopping after maxUpwardLevels directories or at the
// filesystem root, whichever comes first.
func FindProjectFile(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for i := 0; i < maxUpwardLevels; i++ {
		candidate := filepath.Join(dir, ProjectFileName)
		if _, statErr := os.Stat(candidate); statErr == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", errs.ConfigMissing(filepath.Join(startDir, ProjectFileName))
}

// ProjectRoot returns the directory containing the project manifest.
func ProjectRoot(configPath string) string {
	return filepath.Dir(configPath)
}

// wrappedProjectDocument is the shape of project.yml when its fields sit
// under a top-level "project:" key, the form most hand-written manifests
// use so the file reads as "project.yml describes a project:".
type wrappedProjectDocument struct {
	Project model.Project `yaml:"project"`
}

// LoadProject reads and validates the project manifest at path. It accepts
// both a project.yml whose fields are wrapped under "project:" and one
// where they sit at the document root.
func LoadProject(path string) (*model.Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.ConfigMissing(path)
		}
		return nil, errs.ConfigUnreadable(path, err)
	}

	var wrapped wrappedProjectDocument
	if err := yaml.Unmarshal(data, &wrapped); err != nil {
		return nil, errs.ConfigMalformed(path, err)
	}

	project := wrapped.Project
	if project.Name == "" && project.Version == 0 {
		if err := yaml.Unmarshal(data, &project); err != nil {
			return nil, errs.ConfigMalformed(path, err)
		}
	}

	if project.Version == 0 {
		project.Version = model.DefaultProjectVersion
	}

	if err := validateProject(&project); err != nil {
		return nil, errs.ConfigInvalid(path, err.Error())
	}

	return &project, nil
}

// validateProject checks semantic invariants beyond what YAML unmarshaling
// already enforces: required fields, uniqueness, and that every module's
// domain (if set) is one the project actually declares.
func validateProject(p *model.Project) error {
	var result *multierror.Error

	if p.Name == "" {
		result = multierror.Append(result, fmt.Errorf("project name is required"))
	}

	domains := make(map[string]bool, len(p.Domains))
	for _, d := range p.Domains {
		domains[d] = true
	}

	envNames := make(map[string]bool, len(p.Environments))
	for _, e := range p.Environments {
		if envNames[e.Name] {
			result = multierror.Append(result, fmt.Errorf("environment %q declared more than once", e.Name))
		}
		envNames[e.Name] = true
	}

	moduleNames := make(map[string]bool, len(p.Modules))
	for _, m := range p.Modules {
		if m.Name == "" {
			result = multierror.Append(result, fmt.Errorf("module with empty name"))
			continue
		}
		if moduleNames[m.Name] {
			result = multierror.Append(result, fmt.Errorf("module %q declared more than once", m.Name))
		}
		moduleNames[m.Name] = true

		if m.Path == "" {
			result = multierror.Append(result, fmt.Errorf("module %q: path is required", m.Name))
		}
		if m.Domain != "" && len(domains) > 0 && !domains[m.Domain] {
			result = multierror.Append(result, fmt.Errorf("module %q references undeclared domain %q", m.Name, m.Domain))
		}
	}

	return result.ErrorOrNil()
}

// QueryExternal evaluates a JSONPath expression (e.g. "$.extra.slack")
// against a project's external links block, so a caller can pull out one
// field without knowing ExternalLinks' Go shape.
func QueryExternal(links model.ExternalLinks, path string) (interface{}, error) {
	data, err := json.Marshal(links)
	if err != nil {
		return nil, err
	}
	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, err
	}
	return jsonpath.Get(path, generic)
}
