package model

// DetectionRule describes how to recognize a module on disk as belonging
// to a stack.
type DetectionRule struct {
	FilesAnyOf      []string `yaml:"files_any_of,omitempty" json:"files_any_of,omitempty"`
	FilesAllOf      []string `yaml:"files_all_of,omitempty" json:"files_all_of,omitempty"`
	ContentContains map[string][]string `yaml:"content_contains,omitempty" json:"content_contains,omitempty"`
}

// AdapterRequirement names an adapter a stack's capabilities rely on and,
// optionally, the minimum version of that adapter it needs.
type AdapterRequirement struct {
	Adapter    string `yaml:"adapter" json:"adapter"`
	MinVersion string `yaml:"min_version,omitempty" json:"min_version,omitempty"`
}

// StackCapability is one named operation a stack knows how to perform,
// dispatched through the adapter named on it.
type StackCapability struct {
	Name        string `yaml:"name" json:"name"`
	Adapter     string `yaml:"adapter" json:"adapter"`
	Command     string `yaml:"command,omitempty" json:"command,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Stack is a named technology profile: how to detect it, what it requires,
// and what it can do.
type Stack struct {
	Name        string            `yaml:"name" json:"name"`
	Icon        string            `yaml:"icon,omitempty" json:"icon,omitempty"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	Domain      string            `yaml:"domain,omitempty" json:"domain,omitempty"`
	Extends     string            `yaml:"extends,omitempty" json:"extends,omitempty"`
	Requires    []AdapterRequirement `yaml:"requires,omitempty" json:"requires,omitempty"`
	Detection   DetectionRule     `yaml:"detection,omitempty" json:"detection,omitempty"`
	Capabilities []StackCapability `yaml:"capabilities,omitempty" json:"capabilities,omitempty"`
}

// DefaultDomain is used for any stack that does not declare one of its own
// and has no parent to inherit from.
const DefaultDomain = "service"

// HasCapability reports whether the stack declares the named capability.
func (s *Stack) HasCapability(name string) bool {
	_, ok := s.GetCapability(name)
	return ok
}

// GetCapability looks up a capability by name.
func (s *Stack) GetCapability(name string) (StackCapability, bool) {
	for _, c := range s.Capabilities {
		if c.Name == name {
			return c, true
		}
	}
	return StackCapability{}, false
}

// CapabilityNames lists the capability names declared on the stack, in
// declaration order.
func (s *Stack) CapabilityNames() []string {
	names := make([]string, 0, len(s.Capabilities))
	for _, c := range s.Capabilities {
		names = append(names, c.Name)
	}
	return names
}
