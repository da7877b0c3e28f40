package model

import "time"

// AdapterState is the last observed status of one adapter.
type AdapterState struct {
	Name          string    `json:"name"`
	Available     bool      `json:"available"`
	Version       string    `json:"version,omitempty"`
	LastUsedAt    time.Time `json:"last_used_at,omitempty"`
	FailureCount  int       `json:"failure_count"`
	CircuitState  string    `json:"circuit_state,omitempty"`
}

// ModuleState is the last observed status of one module.
type ModuleState struct {
	Name             string    `json:"name"`
	Detected         bool      `json:"detected"`
	Stack            string    `json:"stack,omitempty"`
	Version          string    `json:"version,omitempty"`
	LastActionAt     time.Time `json:"last_action_at,omitempty"`
	LastActionStatus string    `json:"last_action_status,omitempty"`
}

// OperationRecord summarizes one past ExecutePlan run.
type OperationRecord struct {
	OperationID     string    `json:"operation_id"`
	Automation      string    `json:"automation"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
	Status          string    `json:"status"`
	ActionsTotal    int       `json:"actions_total"`
	ActionsSucceeded int      `json:"actions_succeeded"`
	ActionsFailed   int       `json:"actions_failed"`
}

// ProjectState is the schema of the persisted state file: everything the
// control plane remembers between invocations.
type ProjectState struct {
	SchemaVersion      int                     `json:"schema_version"`
	ProjectName        string                  `json:"project_name"`
	CurrentEnvironment string                  `json:"current_environment,omitempty"`
	CreatedAt          time.Time               `json:"created_at"`
	UpdatedAt          time.Time               `json:"updated_at"`
	LastDetectionAt    time.Time               `json:"last_detection_at,omitempty"`
	Modules            map[string]ModuleState  `json:"modules,omitempty"`
	Adapters           map[string]AdapterState `json:"adapters,omitempty"`
	LastOperation      *OperationRecord        `json:"last_operation,omitempty"`
	Metadata           map[string]string       `json:"metadata,omitempty"`
}

// CurrentSchemaVersion is written into new ProjectState values.
const CurrentSchemaVersion = 1

// NewProjectState returns a fresh, empty state for a project name.
func NewProjectState(projectName string) *ProjectState {
	now := time.Now().UTC()
	return &ProjectState{
		SchemaVersion: CurrentSchemaVersion,
		ProjectName:   projectName,
		CreatedAt:     now,
		UpdatedAt:     now,
		Modules:       make(map[string]ModuleState),
		Adapters:      make(map[string]AdapterState),
		Metadata:      make(map[string]string),
	}
}

// Touch stamps UpdatedAt with the current time.
func (s *ProjectState) Touch() {
	s.UpdatedAt = time.Now().UTC()
}

// SetModuleState records/replaces the state of one module.
func (s *ProjectState) SetModuleState(ms ModuleState) {
	if s.Modules == nil {
		s.Modules = make(map[string]ModuleState)
	}
	s.Modules[ms.Name] = ms
	s.Touch()
}

// SetAdapterState records/replaces the state of one adapter.
func (s *ProjectState) SetAdapterState(as AdapterState) {
	if s.Adapters == nil {
		s.Adapters = make(map[string]AdapterState)
	}
	s.Adapters[as.Name] = as
	s.Touch()
}

// AuditEntry is one line of the append-only audit ledger.
type AuditEntry struct {
	Timestamp   time.Time              `json:"timestamp"`
	OperationID string                 `json:"operation_id"`
	Automation  string                 `json:"automation,omitempty"`
	ActionID    string                 `json:"action_id"`
	Adapter     string                 `json:"adapter"`
	Capability  string                 `json:"capability,omitempty"`
	ForModule   string                 `json:"for_module,omitempty"`
	Status      string                 `json:"status"`
	DurationMs  int64                  `json:"duration_ms"`
	Error       string                 `json:"error,omitempty"`
	Environment string                 `json:"environment,omitempty"`
	Extra       map[string]interface{} `json:"extra,omitempty"`
}
