// Package registry is the central dispatch point for adapter operations.
// The engine never talks to adapters directly — always through the
// Registry.
package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/dcpsystems/dcp/internal/adapter"
	"github.com/dcpsystems/dcp/internal/model"
	"github.com/dcpsystems/dcp/internal/resilience"
)

// Registry registers adapters by name and dispatches actions through them.
type Registry struct {
	mu          sync.RWMutex
	adapters    map[string]adapter.Adapter
	mockMode    bool
	mockAdapter adapter.Adapter
	breakers    *resilience.Registry
	log         *logrus.Entry
}

// New builds an empty Registry. breakers may be nil to disable circuit
// breaking entirely (every dispatch is allowed through).
func New(breakers *resilience.Registry, log *logrus.Entry) *Registry {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Registry{
		adapters: make(map[string]adapter.Adapter),
		breakers: breakers,
		log:      log,
	}
}

// Register adds (or replaces) an adapter under its own Name().
func (r *Registry) Register(a adapter.Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := a.Name()
	if _, exists := r.adapters[name]; exists {
		r.log.WithField("adapter", name).Warn("overwriting existing adapter registration")
	}
	r.adapters[name] = a
}

// Unregister removes an adapter by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.adapters, name)
}

// Get looks up a registered adapter, or (nil, false) if none exists.
func (r *Registry) Get(name string) (adapter.Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[name]
	return a, ok
}

// ListAdapters returns every registered adapter name.
func (r *Registry) ListAdapters() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}

// SetMockMode toggles mock mode. When enabled with a nil override, every
// dispatch short-circuits to a synthetic success receipt without touching
// any registered adapter; with an override, every dispatch is routed to it
// instead.
func (r *Registry) SetMockMode(enabled bool, override adapter.Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mockMode = enabled
	r.mockAdapter = override
}

// MockMode reports whether mock mode is currently enabled.
func (r *Registry) MockMode() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mockMode
}

// AdapterStatus reports availability for every registered adapter.
func (r *Registry) AdapterStatus() map[string]map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]map[string]interface{}, len(r.adapters))
	for name, a := range r.adapters {
		out[name] = map[string]interface{}{
			"name":      name,
			"available": safeAvailable(a),
		}
	}
	return out
}

func safeAvailable(a adapter.Adapter) (available bool) {
	defer func() {
		if recover() != nil {
			available = false
		}
	}()
	return a.Available()
}

// DispatchOptions carries the per-call execution parameters Dispatch needs
// beyond the action itself.
type DispatchOptions struct {
	ProjectRoot string
	Environment string
	ModulePath  string
	DryRun      bool
}

// Dispatch executes one action through the appropriate adapter. It never
// panics and never propagates an adapter error — every outcome, including
// an unregistered adapter or a panicking adapter, becomes a Receipt.
//
// Steps: build context -> resolve adapter (or mock) -> validate -> dry-run
// skip -> circuit breaker gate -> execute (recovering panics) -> circuit
// breaker record -> lift result_field via gjson -> attach timing.
func (r *Registry) Dispatch(action model.Action, opts DispatchOptions) model.Receipt {
	start := time.Now()

	ctx := adapter.ExecutionContext{
		Action:      action,
		ProjectRoot: opts.ProjectRoot,
		Environment: opts.Environment,
		ModulePath:  opts.ModulePath,
		DryRun:      opts.DryRun,
		Params:      action.Params,
	}

	a, mockShortCircuit := r.resolveAdapter(action.Adapter)
	if mockShortCircuit {
		receipt := model.NewSuccessReceipt(action.Adapter, action.ID,
			fmt.Sprintf("[mock] %s:%s executed", action.Adapter, action.ID), 0)
		receipt.Metadata = map[string]interface{}{"mock": true, "dry_run": opts.DryRun}
		return receipt
	}
	if a == nil {
		return model.NewFailureReceipt(action.Adapter, action.ID,
			fmt.Sprintf("no adapter registered for %q", action.Adapter), 0)
	}

	if ok, reason := safeValidate(a, ctx); !ok {
		return model.NewFailureReceipt(action.Adapter, action.ID, "validation failed: "+reason, 0)
	}

	if opts.DryRun {
		receipt := model.NewSkipReceipt(action.Adapter, action.ID,
			fmt.Sprintf("[dry-run] would execute %s:%s", action.Adapter, action.ID))
		receipt.Metadata = map[string]interface{}{"dry_run": true}
		return receipt
	}

	var breaker *resilience.CircuitBreaker
	if r.breakers != nil {
		breaker = r.breakers.GetOrCreate(action.Adapter)
		if !breaker.AllowRequest() {
			receipt := model.NewFailureReceipt(action.Adapter, action.ID,
				fmt.Sprintf("circuit breaker OPEN for adapter %q", action.Adapter), 0)
			receipt.Metadata = map[string]interface{}{"circuit_state": breaker.State().String()}
			return receipt
		}
	}

	receipt := safeExecute(a, ctx, r.log)

	if breaker != nil {
		if receipt.Ok() {
			breaker.RecordSuccess()
		} else if receipt.Failed() {
			breaker.RecordFailure()
		}
	}

	liftResultField(action, &receipt)

	receipt.DurationMs = time.Since(start).Milliseconds()
	return receipt
}

func (r *Registry) resolveAdapter(name string) (a adapter.Adapter, mockShortCircuit bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.mockMode {
		if r.mockAdapter != nil {
			return r.mockAdapter, false
		}
		return nil, true
	}
	return r.adapters[name], false
}

func safeValidate(a adapter.Adapter, ctx adapter.ExecutionContext) (ok bool, reason string) {
	defer func() {
		if rec := recover(); rec != nil {
			ok, reason = false, fmt.Sprintf("validation panic: %v", rec)
		}
	}()
	return a.Validate(ctx)
}

// safeExecute recovers a panicking adapter, the one place the contract's
// "never raises" promise is enforced by the caller rather than trusted.
func safeExecute(a adapter.Adapter, ctx adapter.ExecutionContext, log *logrus.Entry) (receipt model.Receipt) {
	defer func() {
		if rec := recover(); rec != nil {
			log.WithField("adapter", a.Name()).WithField("panic", rec).Error("adapter panicked during execution")
			receipt = model.NewFailureReceipt(a.Name(), ctx.Action.ID, fmt.Sprintf("adapter panicked: %v", rec), 0)
		}
	}()
	return a.Execute(ctx)
}

// liftResultField copies a nested field out of a JSON-shaped Output string
// into Receipt.Metadata["result"] when the action requests one via
// params["result_field"], e.g. "data.version" for a JSON-emitting script.
func liftResultField(action model.Action, receipt *model.Receipt) {
	field, ok := action.Params["result_field"].(string)
	if !ok || field == "" || receipt.Output == "" {
		return
	}
	if !gjson.Valid(receipt.Output) {
		return
	}
	result := gjson.Get(receipt.Output, field)
	if !result.Exists() {
		return
	}
	if receipt.Metadata == nil {
		receipt.Metadata = make(map[string]interface{})
	}
	receipt.Metadata["result"] = result.Value()
}
