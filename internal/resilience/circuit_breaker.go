// Package resilience provides the fault-tolerance primitives the adapter
// registry dispatches through: a per-adapter circuit breaker and a
// persistent retry queue for actions that exhaust their attempts.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is one of the three circuit breaker states.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Sentinel errors returned by Execute when the circuit refuses a call.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config controls a CircuitBreaker's thresholds.
type Config struct {
	// FailureThreshold is the number of consecutive failures in Closed
	// state before the breaker trips to Open.
	FailureThreshold int
	// RecoveryTimeout is how long the breaker stays Open before moving to
	// HalfOpen, where calls are let through as probes.
	RecoveryTimeout time.Duration
	// SuccessThreshold is the number of consecutive successful probes in
	// HalfOpen state before the breaker resets to Closed.
	SuccessThreshold int
	// Logger receives state transitions; may be nil.
	Logger *zap.Logger
}

// DefaultConfig matches the defaults of a fresh breaker: 5 failures to
// trip, 30s before probing, 1 success to close again.
func DefaultConfig() Config {
	return Config{FailureThreshold: 5, RecoveryTimeout: 30 * time.Second, SuccessThreshold: 1}
}

// CircuitBreaker implements the three-state circuit breaker pattern using
// a monotonic clock (time.Now() calls are never compared against wall
// clock adjustments, only against each other).
type CircuitBreaker struct {
	mu               sync.Mutex
	cfg              Config
	name             string
	state            State
	consecutiveFails int
	consecutiveOK    int
	openedAt         time.Time
	totalRejections  int64
}

// New creates a CircuitBreaker identified by name (used only in log
// fields), applying defaults for any zero-valued Config field.
func New(name string, cfg Config) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = 30 * time.Second
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 1
	}
	return &CircuitBreaker{name: name, cfg: cfg, state: StateClosed}
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// AllowRequest reports whether a call should be attempted right now,
// transitioning Open -> HalfOpen if the recovery timeout has elapsed.
func (cb *CircuitBreaker) AllowRequest() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.allowRequestLocked()
}

func (cb *CircuitBreaker) allowRequestLocked() bool {
	switch cb.state {
	case StateOpen:
		if time.Since(cb.openedAt) >= cb.cfg.RecoveryTimeout {
			cb.setStateLocked(StateHalfOpen)
			return true
		}
		cb.totalRejections++
		return false
	case StateHalfOpen:
		// The probe window stays open until a result arrives: every call
		// is allowed through, with no state change and no cap on how many
		// are in flight.
		return true
	default:
		return true
	}
}

// Execute runs fn only if AllowRequest() would return true, then records
// the outcome. Returns ErrCircuitOpen without calling fn if the circuit
// refuses the request.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	if !cb.AllowRequest() {
		return ErrCircuitOpen
	}
	err := fn()
	if err != nil {
		cb.RecordFailure()
	} else {
		cb.RecordSuccess()
	}
	return err
}

// RecordSuccess reports a successful call, closing the circuit if it was
// half-open and the success threshold has now been met.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateHalfOpen:
		cb.consecutiveOK++
		if cb.consecutiveOK >= cb.cfg.SuccessThreshold {
			cb.setStateLocked(StateClosed)
		}
	case StateClosed:
		cb.consecutiveFails = 0
	}
}

// RecordFailure reports a failed call, tripping the circuit open if the
// failure threshold is reached in Closed state, or immediately reopening
// it from HalfOpen.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateHalfOpen:
		cb.setStateLocked(StateOpen)
	case StateClosed:
		cb.consecutiveFails++
		if cb.consecutiveFails >= cb.cfg.FailureThreshold {
			cb.setStateLocked(StateOpen)
		}
	}
}

// Reset forces the breaker back to Closed, clearing all counters including
// total rejections.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.setStateLocked(StateClosed)
	cb.consecutiveFails = 0
	cb.consecutiveOK = 0
	cb.totalRejections = 0
}

func (cb *CircuitBreaker) setStateLocked(newState State) {
	if cb.state == newState {
		return
	}
	old := cb.state
	cb.state = newState
	cb.consecutiveFails = 0
	cb.consecutiveOK = 0
	if newState == StateOpen {
		cb.openedAt = time.Now()
	}

	if cb.cfg.Logger != nil {
		cb.cfg.Logger.Warn("circuit breaker state changed",
			zap.String("breaker", cb.name),
			zap.String("from", old.String()),
			zap.String("to", newState.String()),
		)
	}
}

// ToDict renders the breaker's status the way /api/health and `dcp health`
// report it.
func (cb *CircuitBreaker) ToDict() map[string]interface{} {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return map[string]interface{}{
		"name":              cb.name,
		"state":             cb.state.String(),
		"failure_count":     cb.consecutiveFails,
		"success_count":     cb.consecutiveOK,
		"total_rejections":  cb.totalRejections,
		"failure_threshold": cb.cfg.FailureThreshold,
		"recovery_timeout":  cb.cfg.RecoveryTimeout.Seconds(),
	}
}

// Registry tracks one CircuitBreaker per adapter, creating them lazily.
type Registry struct {
	mu       sync.Mutex
	cfg      Config
	breakers map[string]*CircuitBreaker
}

// NewRegistry creates a Registry where every breaker it lazily creates
// shares cfg.
func NewRegistry(cfg Config) *Registry {
	return &Registry{cfg: cfg, breakers: make(map[string]*CircuitBreaker)}
}

// GetOrCreate returns the breaker for name, creating it with the
// registry's shared config on first use.
func (r *Registry) GetOrCreate(name string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok := r.breakers[name]; ok {
		return cb
	}
	cb := New(name, r.cfg)
	r.breakers[name] = cb
	return cb
}

// Status returns every known breaker's ToDict(), keyed by adapter name.
func (r *Registry) Status() map[string]map[string]interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]map[string]interface{}, len(r.breakers))
	for name, cb := range r.breakers {
		out[name] = cb.ToDict()
	}
	return out
}

// ResetAll forces every known breaker back to Closed.
func (r *Registry) ResetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cb := range r.breakers {
		cb.Reset()
	}
}
