package adapter

import (
	"sync"

	"github.com/dcpsystems/dcp/internal/model"
)

// Mock is a universal test double: configurable per-action responses,
// defaulting to success, with a call log for assertions.
type Mock struct {
	mu            sync.Mutex
	name          string
	available     bool
	defaultOutput string
	responses     map[string]model.Receipt
	callLog       []ExecutionContext
}

// NewMock builds a Mock adapter named name (defaults to "mock" if empty).
func NewMock(name string) *Mock {
	if name == "" {
		name = "mock"
	}
	return &Mock{
		name:          name,
		available:     true,
		defaultOutput: "[mock] executed",
		responses:     make(map[string]model.Receipt),
	}
}

func (m *Mock) Name() string { return m.name }

func (m *Mock) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

// SetAvailable controls what Available reports.
func (m *Mock) SetAvailable(available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = available
}

// SetResponse configures a fixed Receipt for a specific action ID.
func (m *Mock) SetResponse(actionID string, receipt model.Receipt) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[actionID] = receipt
}

// SetFailure configures a specific action ID to fail with errMsg.
func (m *Mock) SetFailure(actionID, errMsg string) {
	m.SetResponse(actionID, model.NewFailureReceipt(m.name, actionID, errMsg, 0))
}

func (m *Mock) Validate(ctx ExecutionContext) (bool, string) {
	return true, ""
}

func (m *Mock) Execute(ctx ExecutionContext) model.Receipt {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callLog = append(m.callLog, ctx)

	if r, ok := m.responses[ctx.Action.ID]; ok {
		return r
	}
	return model.NewSuccessReceipt(m.name, ctx.Action.ID, m.defaultOutput, 0)
}

// CallLog returns every ExecutionContext passed to Execute so far.
func (m *Mock) CallLog() []ExecutionContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ExecutionContext, len(m.callLog))
	copy(out, m.callLog)
	return out
}

// CallCount is len(CallLog()).
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.callLog)
}

// Reset clears the call log and any configured responses.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callLog = nil
	m.responses = make(map[string]model.Receipt)
}
