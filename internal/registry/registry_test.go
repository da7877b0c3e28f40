package registry

import (
	"testing"
	"time"

	"github.com/dcpsystems/dcp/internal/adapter"
	"github.com/dcpsystems/dcp/internal/model"
	"github.com/dcpsystems/dcp/internal/resilience"
)

func TestDispatchUnregisteredAdapterFails(t *testing.T) {
	r := New(nil, nil)
	receipt := r.Dispatch(model.Action{ID: "a1", Adapter: "nope"}, DispatchOptions{ProjectRoot: "."})
	if !receipt.Failed() {
		t.Fatalf("expected failure, got %+v", receipt)
	}
}

func TestDispatchMockModeShortCircuits(t *testing.T) {
	r := New(nil, nil)
	r.SetMockMode(true, nil)
	receipt := r.Dispatch(model.Action{ID: "a1", Adapter: "shell"}, DispatchOptions{ProjectRoot: "."})
	if !receipt.Ok() {
		t.Fatalf("expected mock success, got %+v", receipt)
	}
}

func TestDispatchMockModeWithOverride(t *testing.T) {
	r := New(nil, nil)
	mock := adapter.NewMock("mock")
	mock.SetFailure("a1", "boom")
	r.SetMockMode(true, mock)

	receipt := r.Dispatch(model.Action{ID: "a1", Adapter: "shell"}, DispatchOptions{ProjectRoot: "."})
	if !receipt.Failed() || receipt.Error != "boom" {
		t.Fatalf("expected configured mock failure, got %+v", receipt)
	}
}

func TestDispatchDryRunSkips(t *testing.T) {
	r := New(nil, nil)
	r.Register(adapter.NewMock("mock"))
	receipt := r.Dispatch(model.Action{ID: "a1", Adapter: "mock"}, DispatchOptions{ProjectRoot: ".", DryRun: true})
	if receipt.Status != model.ReceiptSkipped {
		t.Fatalf("expected skipped receipt, got %+v", receipt)
	}
}

func TestDispatchValidationFailure(t *testing.T) {
	r := New(nil, nil)
	r.Register(adapter.NewShell(nil))
	receipt := r.Dispatch(model.Action{ID: "a1", Adapter: "shell"}, DispatchOptions{ProjectRoot: "."})
	if !receipt.Failed() {
		t.Fatalf("expected validation failure for missing command, got %+v", receipt)
	}
}

func TestDispatchCircuitBreakerRefusesWhenOpen(t *testing.T) {
	breakers := resilience.NewRegistry(resilience.Config{FailureThreshold: 1, RecoveryTimeout: time.Hour})
	r := New(breakers, nil)
	mock := adapter.NewMock("mock")
	mock.SetFailure("fail-me", "boom")
	r.Register(mock)

	first := r.Dispatch(model.Action{ID: "fail-me", Adapter: "mock"}, DispatchOptions{ProjectRoot: "."})
	if !first.Failed() {
		t.Fatalf("expected first dispatch to fail, got %+v", first)
	}

	second := r.Dispatch(model.Action{ID: "a2", Adapter: "mock"}, DispatchOptions{ProjectRoot: "."})
	if !second.Failed() || second.Metadata["circuit_state"] != "open" {
		t.Fatalf("expected circuit-open failure, got %+v", second)
	}
}

func TestDispatchResultFieldLiftedFromJSONOutput(t *testing.T) {
	r := New(nil, nil)
	mock := adapter.NewMock("mock")
	mock.SetResponse("a1", model.NewSuccessReceipt("mock", "a1", `{"data":{"version":"1.2.3"}}`, 0))
	r.Register(mock)

	receipt := r.Dispatch(model.Action{
		ID:      "a1",
		Adapter: "mock",
		Params:  map[string]interface{}{"result_field": "data.version"},
	}, DispatchOptions{ProjectRoot: "."})

	if receipt.Metadata["result"] != "1.2.3" {
		t.Fatalf("expected lifted result field, got %+v", receipt.Metadata)
	}
}

func TestDispatchRecoversPanickingAdapter(t *testing.T) {
	r := New(nil, nil)
	r.Register(panicAdapter{})
	receipt := r.Dispatch(model.Action{ID: "a1", Adapter: "panics"}, DispatchOptions{ProjectRoot: "."})
	if !receipt.Failed() {
		t.Fatalf("expected panic to be converted to a failure receipt, got %+v", receipt)
	}
}

type panicAdapter struct{}

func (panicAdapter) Name() string                                        { return "panics" }
func (panicAdapter) Available() bool                                     { return true }
func (panicAdapter) Validate(adapter.ExecutionContext) (bool, string)     { return true, "" }
func (panicAdapter) Execute(adapter.ExecutionContext) model.Receipt {
	panic("boom")
}
