// Package telemetry provides Prometheus metrics for the dispatch path plus
// a host resource snapshot fed into the health use case.
package telemetry

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Metrics holds every collector the control plane exports.
type Metrics struct {
	DispatchTotal    *prometheus.CounterVec
	DispatchDuration *prometheus.HistogramVec
	CircuitState     *prometheus.GaugeVec
	RetryQueueSize   *prometheus.GaugeVec
	OperationsTotal  *prometheus.CounterVec
	ServiceUptime    prometheus.Gauge
	ServiceInfo      *prometheus.GaugeVec
}

// New creates a Metrics instance registered against the default registry.
func New(projectName string) *Metrics {
	return NewWithRegistry(projectName, prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a Metrics instance registered against registerer.
func NewWithRegistry(projectName string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		DispatchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "dcp_dispatch_total", Help: "Total adapter dispatches by adapter, capability and status."},
			[]string{"adapter", "capability", "status"},
		),
		DispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dcp_dispatch_duration_seconds",
				Help:    "Adapter dispatch duration in seconds.",
				Buckets: []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"adapter", "capability"},
		),
		CircuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "dcp_circuit_state", Help: "Circuit breaker state per adapter (0=closed, 1=open, 2=half_open)."},
			[]string{"adapter"},
		),
		RetryQueueSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "dcp_retry_queue_size", Help: "Pending retry queue items by adapter."},
			[]string{"adapter"},
		),
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "dcp_operations_total", Help: "Total ExecutePlan operations by automation and status."},
			[]string{"automation", "status"},
		),
		ServiceUptime: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "dcp_uptime_seconds", Help: "Control plane process uptime in seconds."},
		),
		ServiceInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "dcp_info", Help: "Static control plane build info."},
			[]string{"project", "environment"},
		),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.DispatchTotal,
			m.DispatchDuration,
			m.CircuitState,
			m.RetryQueueSize,
			m.OperationsTotal,
			m.ServiceUptime,
			m.ServiceInfo,
		)
	}

	m.ServiceInfo.WithLabelValues(projectName, environmentLabel()).Set(1)
	return m
}

// RecordDispatch records one adapter dispatch outcome.
func (m *Metrics) RecordDispatch(adapter, capability, status string, duration time.Duration) {
	m.DispatchTotal.WithLabelValues(adapter, capability, status).Inc()
	m.DispatchDuration.WithLabelValues(adapter, capability).Observe(duration.Seconds())
}

// RecordCircuitState mirrors a breaker's numeric state for dashboards.
func (m *Metrics) RecordCircuitState(adapter string, state int) {
	m.CircuitState.WithLabelValues(adapter).Set(float64(state))
}

// RecordRetryQueueSize mirrors a retry queue's per-adapter depth.
func (m *Metrics) RecordRetryQueueSize(adapter string, size int) {
	m.RetryQueueSize.WithLabelValues(adapter).Set(float64(size))
}

// RecordOperation records one ExecutePlan outcome.
func (m *Metrics) RecordOperation(automation, status string) {
	m.OperationsTotal.WithLabelValues(automation, status).Inc()
}

// UpdateUptime refreshes the process uptime gauge.
func (m *Metrics) UpdateUptime(startedAt time.Time) {
	m.ServiceUptime.Set(time.Since(startedAt).Seconds())
}

func environmentLabel() string {
	env := strings.ToLower(strings.TrimSpace(os.Getenv("DCP_ENVIRONMENT")))
	if env == "" {
		return "development"
	}
	return env
}

// Enabled reports whether Prometheus metrics should be exposed, controlled
// by DCP_METRICS_ENABLED (defaults to enabled).
func Enabled() bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("DCP_METRICS_ENABLED")))
	switch raw {
	case "0", "false", "no", "off":
		return false
	default:
		return true
	}
}

// HostSnapshot is a point-in-time resource reading fed into the health use
// case's resource component.
type HostSnapshot struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsedMB  uint64  `json:"memory_used_mb"`
	MemoryTotalMB uint64  `json:"memory_total_mb"`
}

// ReadHostSnapshot samples CPU and memory utilization via gopsutil.
func ReadHostSnapshot() (HostSnapshot, error) {
	var snap HostSnapshot

	percentages, err := cpu.Percent(200*time.Millisecond, false)
	if err == nil && len(percentages) > 0 {
		snap.CPUPercent = percentages[0]
	}

	vm, err := mem.VirtualMemory()
	if err == nil {
		snap.MemoryPercent = vm.UsedPercent
		snap.MemoryUsedMB = vm.Used / (1024 * 1024)
		snap.MemoryTotalMB = vm.Total / (1024 * 1024)
	}

	return snap, err
}

// Global metrics instance, initialized once per process.
var (
	global     *Metrics
	globalOnce sync.Once
)

// Init initializes (once) and returns the global Metrics instance.
func Init(projectName string) *Metrics {
	globalOnce.Do(func() {
		global = New(projectName)
	})
	return global
}

// Global returns the global Metrics instance, initializing a fallback one
// with an "unknown" project name if Init was never called.
func Global() *Metrics {
	if global == nil {
		return Init("unknown")
	}
	return global
}
