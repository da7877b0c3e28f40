package retrydrive

import (
	"path/filepath"
	"testing"

	"github.com/dcpsystems/dcp/internal/adapter"
	"github.com/dcpsystems/dcp/internal/registry"
	"github.com/dcpsystems/dcp/internal/resilience"
)

func TestDriveOnceCompletesSuccessfulItem(t *testing.T) {
	dir := t.TempDir()
	queue, err := resilience.NewRetryQueue(filepath.Join(dir, "retry.json"))
	if err != nil {
		t.Fatalf("NewRetryQueue: %v", err)
	}
	if _, err := queue.Enqueue("retry-1", "deploy-1", "mock", nil, 3, 0, 0, ""); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	reg := registry.New(nil, nil)
	reg.Register(adapter.NewMock("mock"))

	d := New(queue, reg, "", nil)
	d.driveOnce()

	if len(queue.DequeueReady()) != 0 {
		t.Fatalf("expected queue drained after a successful dispatch")
	}
}

func TestDriveOnceReschedulesFailingItem(t *testing.T) {
	dir := t.TempDir()
	queue, err := resilience.NewRetryQueue(filepath.Join(dir, "retry.json"))
	if err != nil {
		t.Fatalf("NewRetryQueue: %v", err)
	}
	item, err := queue.Enqueue("retry-1", "deploy-1", "mock", nil, 3, 0, 0, "")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	mock := adapter.NewMock("mock")
	mock.SetFailure(item.ActionID, "boom")
	reg := registry.New(nil, nil)
	reg.Register(mock)

	d := New(queue, reg, "", nil)
	d.driveOnce()

	status := queue.Status()
	if status["total"] != 1 {
		t.Fatalf("expected the item to remain queued for another attempt, got %+v", status)
	}
}

func TestDriveOnceDrainsExhaustedItems(t *testing.T) {
	dir := t.TempDir()
	queue, err := resilience.NewRetryQueue(filepath.Join(dir, "retry.json"))
	if err != nil {
		t.Fatalf("NewRetryQueue: %v", err)
	}
	item, err := queue.Enqueue("retry-1", "deploy-1", "mock", nil, 1, 0, 0, "")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	item.Attempt = 1 // already exhausted before this round runs

	mock := adapter.NewMock("mock")
	mock.SetFailure(item.ActionID, "boom")
	reg := registry.New(nil, nil)
	reg.Register(mock)

	d := New(queue, reg, "", nil)
	d.driveOnce()

	status := queue.Status()
	if status["total"] != 0 {
		t.Fatalf("expected the exhausted item to be drained, got %+v", status)
	}
}
