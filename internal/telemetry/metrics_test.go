package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestRecordDispatchIncrementsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry("demo", reg)

	m.RecordDispatch("shell", "test", "ok", 250*time.Millisecond)

	metric := &dto.Metric{}
	c, err := m.DispatchTotal.GetMetricWithLabelValues("shell", "test", "ok")
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues: %v", err)
	}
	if err := c.Write(metric); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if metric.Counter.GetValue() != 1 {
		t.Fatalf("expected counter 1, got %v", metric.Counter.GetValue())
	}
}

func TestReadHostSnapshot(t *testing.T) {
	snap, err := ReadHostSnapshot()
	if err != nil {
		t.Skipf("host metrics unavailable in this environment: %v", err)
	}
	if snap.MemoryTotalMB == 0 {
		t.Skip("no memory info available in this environment")
	}
}
