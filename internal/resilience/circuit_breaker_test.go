package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCircuitBreakerTripsAfterThreshold(t *testing.T) {
	cb := New("shell", Config{FailureThreshold: 3, RecoveryTimeout: 50 * time.Millisecond, SuccessThreshold: 1})
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		err := cb.Execute(context.Background(), func() error { return boom })
		if err != boom {
			t.Fatalf("expected boom, got %v", err)
		}
	}

	if cb.State() != StateOpen {
		t.Fatalf("expected StateOpen after 3 failures, got %s", cb.State())
	}

	if err := cb.Execute(context.Background(), func() error { return nil }); err != ErrCircuitOpen {
		t.Fatalf("expected ErrCircuitOpen while open, got %v", err)
	}
}

func TestCircuitBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := New("shell", Config{FailureThreshold: 1, RecoveryTimeout: 10 * time.Millisecond, SuccessThreshold: 1})

	_ = cb.Execute(context.Background(), func() error { return errors.New("boom") })
	if cb.State() != StateOpen {
		t.Fatalf("expected StateOpen, got %s", cb.State())
	}

	time.Sleep(15 * time.Millisecond)

	if err := cb.Execute(context.Background(), func() error { return nil }); err != nil {
		t.Fatalf("expected probe to succeed, got %v", err)
	}
	if cb.State() != StateClosed {
		t.Fatalf("expected StateClosed after successful probe, got %s", cb.State())
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := New("shell", Config{FailureThreshold: 1, RecoveryTimeout: 10 * time.Millisecond, SuccessThreshold: 1})
	_ = cb.Execute(context.Background(), func() error { return errors.New("boom") })
	time.Sleep(15 * time.Millisecond)

	_ = cb.Execute(context.Background(), func() error { return errors.New("still broken") })
	if cb.State() != StateOpen {
		t.Fatalf("expected StateOpen after failed probe, got %s", cb.State())
	}
}

func TestCircuitBreakerHalfOpenAllowsEveryCall(t *testing.T) {
	cb := New("shell", Config{FailureThreshold: 1, RecoveryTimeout: 10 * time.Millisecond, SuccessThreshold: 5})
	_ = cb.Execute(context.Background(), func() error { return errors.New("boom") })
	time.Sleep(15 * time.Millisecond)

	// The probe window stays open until a result arrives: every call is
	// allowed through, with no cap on concurrent in-flight probes.
	for i := 0; i < 3; i++ {
		if !cb.AllowRequest() {
			t.Fatalf("expected AllowRequest to return true in half-open, call %d", i)
		}
	}
	if cb.State() != StateHalfOpen {
		t.Fatalf("expected to remain StateHalfOpen, got %s", cb.State())
	}
}

func TestCircuitBreakerCountsRejectionsWhileOpen(t *testing.T) {
	cb := New("shell", Config{FailureThreshold: 1, RecoveryTimeout: time.Minute, SuccessThreshold: 1})
	_ = cb.Execute(context.Background(), func() error { return errors.New("boom") })
	if cb.State() != StateOpen {
		t.Fatalf("expected StateOpen, got %s", cb.State())
	}

	for i := 0; i < 3; i++ {
		if cb.AllowRequest() {
			t.Fatalf("expected AllowRequest to return false while open, call %d", i)
		}
	}

	rejections := cb.ToDict()["total_rejections"]
	if rejections != int64(3) {
		t.Fatalf("expected 3 total_rejections, got %v", rejections)
	}
}

func TestRegistryGetOrCreateIsolatesAdapters(t *testing.T) {
	reg := NewRegistry(DefaultConfig())
	shell := reg.GetOrCreate("shell")
	git := reg.GetOrCreate("git")

	_ = shell.Execute(context.Background(), func() error { return errors.New("x") })

	if git.State() != StateClosed {
		t.Fatalf("expected git breaker unaffected, got %s", git.State())
	}
	status := reg.Status()
	if len(status) != 2 {
		t.Fatalf("expected 2 tracked breakers, got %d", len(status))
	}
}
