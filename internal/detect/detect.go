// Package detect matches modules declared in project.yml against stack
// definitions by inspecting what actually exists on disk, and sniffes a
// best-effort version/language out of each module's manifest files.
package detect

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/dcpsystems/dcp/internal/config"
	"github.com/dcpsystems/dcp/internal/model"
)

// Result is the outcome of detecting every module a project declares.
type Result struct {
	Modules []model.Module
	// UnmatchedRefs holds module names whose declared path does not exist
	// (or is not a directory) on disk.
	UnmatchedRefs []string
	// ExtraDetections is reserved for future discovery of undeclared
	// modules (directories on disk with no project.yml entry); DetectModules
	// only walks declared modules, so this is always empty today.
	ExtraDetections []string
}

// TotalDetected counts modules whose declared directory exists on disk,
// whether or not a stack matched.
func (r *Result) TotalDetected() int {
	n := 0
	for _, m := range r.Modules {
		if m.Detected {
			n++
		}
	}
	return n
}

// TotalModules is the number of modules in the result.
func (r *Result) TotalModules() int { return len(r.Modules) }

// GetModule looks up a module by name.
func (r *Result) GetModule(name string) (model.Module, bool) {
	for _, m := range r.Modules {
		if m.Name == name {
			return m, true
		}
	}
	return model.Module{}, false
}

// DetectModules walks every module a project declares, matches it against
// the discovered stacks, and returns a Result describing what was found.
func DetectModules(project *model.Project, projectRoot string, stacks map[string]*model.Stack) Result {
	result := Result{}
	names := config.SortedStackNames(stacks)

	for _, ref := range project.Modules {
		dir := filepath.Join(projectRoot, ref.Path)
		module := model.Module{
			Name:         ref.Name,
			Path:         ref.Path,
			Domain:       ref.Domain,
			StackName:    ref.Stack,
			Description:  ref.Description,
			Dependencies: ref.DependsOn,
		}

		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			result.UnmatchedRefs = append(result.UnmatchedRefs, ref.Name)
			result.Modules = append(result.Modules, module)
			continue
		}

		matched := matchStack(dir, names, stacks)
		effectiveStack := matched
		if effectiveStack == "" {
			effectiveStack = ref.Stack
		}

		module.Detected = true
		module.DetectedStack = matched
		module.Version = detectVersion(dir)
		module.Language = detectLanguage(effectiveStack)

		result.Modules = append(result.Modules, module)
	}

	return result
}

// matchStack returns the name of the first stack (in names order) whose
// detection rule is satisfied by dir, or "" if none match.
func matchStack(dir string, names []string, stacks map[string]*model.Stack) string {
	for _, name := range names {
		stack := stacks[name]
		if stackMatches(dir, stack.Detection) {
			return name
		}
	}
	return ""
}

func stackMatches(dir string, rule model.DetectionRule) bool {
	if len(rule.FilesAnyOf) == 0 && len(rule.FilesAllOf) == 0 && len(rule.ContentContains) == 0 {
		return false
	}

	if len(rule.FilesAnyOf) > 0 {
		anyFound := false
		for _, f := range rule.FilesAnyOf {
			if fileExists(filepath.Join(dir, f)) {
				anyFound = true
				break
			}
		}
		if !anyFound {
			return false
		}
	}

	for _, f := range rule.FilesAllOf {
		if !fileExists(filepath.Join(dir, f)) {
			return false
		}
	}

	for file, markers := range rule.ContentContains {
		content, err := os.ReadFile(filepath.Join(dir, file))
		if err != nil {
			return false
		}
		for _, marker := range markers {
			if !strings.Contains(string(content), marker) {
				return false
			}
		}
	}

	return true
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// versionMarkers lists, per manifest file, the regex used to pull a
// version string out of it.
var versionMarkers = []struct {
	file string
	re   *regexp.Regexp
}{
	{"pyproject.toml", regexp.MustCompile(`(?m)^version\s*=\s*"([^"]+)"`)},
	{"package.json", regexp.MustCompile(`"version"\s*:\s*"([^"]+)"`)},
	{"go.mod", regexp.MustCompile(`(?m)^go\s+([0-9.]+)`)},
	{"Cargo.toml", regexp.MustCompile(`(?m)^version\s*=\s*"([^"]+)"`)},
	{"mix.exs", regexp.MustCompile(`version:\s*"([^"]+)"`)},
	{"Chart.yaml", regexp.MustCompile(`(?m)^version:\s*(.+)$`)},
}

func detectVersion(dir string) string {
	for _, marker := range versionMarkers {
		content, err := os.ReadFile(filepath.Join(dir, marker.file))
		if err != nil {
			continue
		}
		if m := marker.re.FindSubmatch(content); m != nil {
			return strings.TrimSpace(string(m[1]))
		}
	}
	return ""
}

// languageByStack maps a stack name to its language. Longest-prefix
// matching lets flavors ("node-next", "node-express") inherit their
// base's language without every flavor needing its own entry.
var languageByStack = map[string]string{
	"node":       "javascript",
	"go":         "go",
	"python":     "python",
	"rust":       "rust",
	"elixir":     "elixir",
	"ruby":       "ruby",
	"java":       "java",
	"dotnet":     "csharp",
	"helm":       "yaml",
	"kubernetes": "yaml",
}

func detectLanguage(stackName string) string {
	if lang, ok := languageByStack[stackName]; ok {
		return lang
	}

	candidates := make([]string, 0, len(languageByStack))
	for base := range languageByStack {
		if strings.HasPrefix(stackName, base+"-") {
			candidates = append(candidates, base)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.Slice(candidates, func(i, j int) bool { return len(candidates[i]) > len(candidates[j]) })
	return languageByStack[candidates[0]]
}
