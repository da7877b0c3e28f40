package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dcpsystems/dcp/internal/errs"
	"github.com/dcpsystems/dcp/internal/model"
)

// LoadStack reads and parses a single stack definition file. Unlike
// LoadProject, callers that are scanning a whole stacks/ directory should
// treat a failure here as "skip this one file and warn", not a hard stop —
// see DiscoverStacks.
func LoadStack(path string) (*model.Stack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.ConfigMissing(path)
		}
		return nil, errs.ConfigUnreadable(path, err)
	}

	var stack model.Stack
	if err := yaml.Unmarshal(data, &stack); err != nil {
		return nil, errs.ConfigMalformed(path, err)
	}
	if stack.Name == "" {
		stack.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &stack, nil
}

// DiscoverStacks loads every *.yml/*.yaml file in stacksDir and resolves
// single-parent inheritance (the "extends" field) into a final, flattened
// set of stacks keyed by name. Files that fail to load are skipped with
// their error returned in warnings rather than aborting the whole scan.
func DiscoverStacks(stacksDir string) (map[string]*model.Stack, []error, error) {
	entries, err := os.ReadDir(stacksDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errs.ConfigMissing(stacksDir)
		}
		return nil, nil, errs.ConfigUnreadable(stacksDir, err)
	}

	raw := make(map[string]*model.Stack)
	var warnings []error
	var order []string

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yml" && ext != ".yaml" {
			continue
		}
		path := filepath.Join(stacksDir, entry.Name())
		stack, loadErr := LoadStack(path)
		if loadErr != nil {
			warnings = append(warnings, fmt.Errorf("skipping %s: %w", path, loadErr))
			continue
		}
		raw[stack.Name] = stack
		order = append(order, stack.Name)
	}

	resolved, mergeErrs := resolveParents(raw, order)
	warnings = append(warnings, mergeErrs...)
	return resolved, warnings, nil
}

// resolveParents applies the single-parent, non-recursive merge rules: a
// stack that sets "extends" inherits from that one named parent (which
// itself must not also extend something — inheritance is exactly one
// level deep). Stacks are resolved in the order given by order; the
// returned map itself carries no ordering.
func resolveParents(raw map[string]*model.Stack, order []string) (map[string]*model.Stack, []error) {
	resolved := make(map[string]*model.Stack, len(raw))
	var errsOut []error

	for _, name := range order {
		stack := raw[name]
		if stack.Extends == "" {
			resolved[name] = stack
			continue
		}
		parent, ok := raw[stack.Extends]
		if !ok {
			errsOut = append(errsOut, fmt.Errorf("stack %q extends unknown stack %q", name, stack.Extends))
			resolved[name] = stack
			continue
		}
		if parent.Extends != "" {
			errsOut = append(errsOut, fmt.Errorf("stack %q extends %q, which itself extends %q (only one level of inheritance is supported)", name, stack.Extends, parent.Extends))
		}
		resolved[name] = mergeStack(parent, stack)
	}

	return resolved, errsOut
}

// mergeStack combines a parent stack with a child that extends it:
//   - icon/description: child value wins if set, else parent's
//   - domain: child's value wins if set to anything other than the
//     zero-value default, else parent's, else model.DefaultDomain
//   - requires: keyed by adapter name, child entries override parent's of
//     the same adapter, parent entries not overridden are kept
//   - detection: file lists are deduplicated concatenations of parent then
//     child; content_contains merges per-file lists with child winning on
//     duplicate keys
//   - capabilities: keyed by name, child overrides parent's of the same
//     name, extra child capabilities are appended, and parent order is
//     preserved for everything not overridden
func mergeStack(parent, child *model.Stack) *model.Stack {
	merged := &model.Stack{
		Name:        child.Name,
		Icon:        child.Icon,
		Description: child.Description,
		Domain:      child.Domain,
		Extends:     child.Extends,
	}
	if merged.Icon == "" {
		merged.Icon = parent.Icon
	}
	if merged.Description == "" {
		merged.Description = parent.Description
	}
	if merged.Domain == "" {
		merged.Domain = parent.Domain
	}
	if merged.Domain == "" {
		merged.Domain = model.DefaultDomain
	}

	merged.Requires = mergeRequirements(parent.Requires, child.Requires)
	merged.Detection = mergeDetection(parent.Detection, child.Detection)
	merged.Capabilities = mergeCapabilities(parent.Capabilities, child.Capabilities)

	return merged
}

func mergeRequirements(parent, child []model.AdapterRequirement) []model.AdapterRequirement {
	byAdapter := make(map[string]model.AdapterRequirement)
	var order []string
	for _, r := range parent {
		byAdapter[r.Adapter] = r
		order = append(order, r.Adapter)
	}
	for _, r := range child {
		if _, exists := byAdapter[r.Adapter]; !exists {
			order = append(order, r.Adapter)
		}
		byAdapter[r.Adapter] = r
	}
	out := make([]model.AdapterRequirement, 0, len(order))
	for _, a := range order {
		out = append(out, byAdapter[a])
	}
	return out
}

func mergeDetection(parent, child model.DetectionRule) model.DetectionRule {
	out := model.DetectionRule{
		FilesAnyOf: dedupConcat(parent.FilesAnyOf, child.FilesAnyOf),
		FilesAllOf: dedupConcat(parent.FilesAllOf, child.FilesAllOf),
	}
	if len(parent.ContentContains) > 0 || len(child.ContentContains) > 0 {
		out.ContentContains = make(map[string][]string)
		for file, markers := range parent.ContentContains {
			out.ContentContains[file] = markers
		}
		for file, markers := range child.ContentContains {
			out.ContentContains[file] = markers
		}
	}
	return out
}

func dedupConcat(parent, child []string) []string {
	if len(parent) == 0 && len(child) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(parent)+len(child))
	out := make([]string, 0, len(parent)+len(child))
	for _, v := range append(append([]string{}, parent...), child...) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func mergeCapabilities(parent, child []model.StackCapability) []model.StackCapability {
	byName := make(map[string]model.StackCapability)
	var order []string
	for _, c := range parent {
		byName[c.Name] = c
		order = append(order, c.Name)
	}
	for _, c := range child {
		if _, exists := byName[c.Name]; !exists {
			order = append(order, c.Name)
		}
		byName[c.Name] = c
	}
	out := make([]model.StackCapability, 0, len(order))
	for _, n := range order {
		out = append(out, byName[n])
	}
	return out
}

// SortedStackNames returns stack names ordered so that flavors (child
// stacks with a non-empty Extends) precede their base stacks, letting
// detection prefer the more specific match first.
func SortedStackNames(stacks map[string]*model.Stack) []string {
	names := make([]string, 0, len(stacks))
	for n := range stacks {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		iFlavor := stacks[names[i]].Extends != ""
		jFlavor := stacks[names[j]].Extends != ""
		if iFlavor != jFlavor {
			return iFlavor
		}
		return names[i] < names[j]
	})
	return names
}
