package usecase

import (
	"strconv"
	"time"

	"github.com/dcpsystems/dcp/internal/resilience"
	"github.com/dcpsystems/dcp/internal/telemetry"
)

// Health status values. The aggregate is unhealthy if any component is
// unhealthy, else degraded if any is degraded, else healthy if every
// component is healthy, else unknown.
const (
	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"
	HealthUnknown   = "unknown"
)

// ComponentHealth is the health of a single subsystem.
type ComponentHealth struct {
	Name    string                 `json:"name"`
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SystemHealth aggregates every component's health into one status.
type SystemHealth struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components []ComponentHealth `json:"components"`
}

// ToDict renders the result the way `dcp health --json` prints it.
func (h SystemHealth) ToDict() map[string]interface{} {
	components := make([]map[string]interface{}, 0, len(h.Components))
	for _, c := range h.Components {
		components = append(components, map[string]interface{}{
			"name":    c.Name,
			"status":  c.Status,
			"message": c.Message,
			"details": c.Details,
		})
	}
	return map[string]interface{}{
		"status":     h.Status,
		"timestamp":  h.Timestamp,
		"components": components,
	}
}

// Add appends a component and recomputes the aggregate status.
func (h *SystemHealth) Add(c ComponentHealth) {
	h.Components = append(h.Components, c)
	h.recalculate()
}

func (h *SystemHealth) recalculate() {
	sawUnhealthy, sawDegraded, allHealthy := false, false, len(h.Components) > 0
	for _, c := range h.Components {
		switch c.Status {
		case HealthUnhealthy:
			sawUnhealthy = true
		case HealthDegraded:
			sawDegraded = true
		}
		if c.Status != HealthHealthy {
			allHealthy = false
		}
	}
	switch {
	case sawUnhealthy:
		h.Status = HealthUnhealthy
	case sawDegraded:
		h.Status = HealthDegraded
	case allHealthy:
		h.Status = HealthHealthy
	default:
		h.Status = HealthUnknown
	}
}

func checkCircuitBreakers(registry *resilience.Registry) ComponentHealth {
	status := registry.Status()
	if len(status) == 0 {
		return ComponentHealth{Name: "circuit_breakers", Status: HealthHealthy, Message: "no circuit breakers registered"}
	}

	openCount, halfOpenCount := 0, 0
	for _, breaker := range status {
		switch breaker["state"] {
		case "open":
			openCount++
		case "half_open":
			halfOpenCount++
		}
	}
	total := len(status)

	details := make(map[string]interface{}, len(status))
	for name, breaker := range status {
		details[name] = breaker
	}

	switch {
	case openCount > 0:
		return ComponentHealth{Name: "circuit_breakers", Status: HealthUnhealthy, Message: pluralf(openCount, total, "circuits open"), Details: details}
	case halfOpenCount > 0:
		return ComponentHealth{Name: "circuit_breakers", Status: HealthDegraded, Message: pluralf(halfOpenCount, total, "circuits half-open"), Details: details}
	default:
		return ComponentHealth{Name: "circuit_breakers", Status: HealthHealthy, Message: pluralf(total, total, "circuits closed"), Details: details}
	}
}

func checkRetryQueue(queue *resilience.RetryQueue) ComponentHealth {
	status := queue.Status()
	total, _ := status["total"].(int)
	exhausted, _ := status["exhausted"].(int)

	details := make(map[string]interface{}, len(status))
	for k, v := range status {
		details[k] = v
	}

	switch {
	case exhausted > 0:
		return ComponentHealth{Name: "retry_queue", Status: HealthDegraded, Message: pluralf(exhausted, total, "exhausted items"), Details: details}
	case total > 0:
		return ComponentHealth{Name: "retry_queue", Status: HealthHealthy, Message: pluralf(total, total, "items pending retry"), Details: details}
	default:
		return ComponentHealth{Name: "retry_queue", Status: HealthHealthy, Message: "queue empty", Details: details}
	}
}

func checkHostResources(snapshot telemetry.HostSnapshot, err error) ComponentHealth {
	if err != nil {
		return ComponentHealth{Name: "host_resources", Status: HealthUnknown, Message: err.Error()}
	}
	details := map[string]interface{}{
		"cpu_percent":     snapshot.CPUPercent,
		"memory_percent":  snapshot.MemoryPercent,
		"memory_used_mb":  snapshot.MemoryUsedMB,
		"memory_total_mb": snapshot.MemoryTotalMB,
	}
	if snapshot.MemoryPercent > 90 {
		return ComponentHealth{Name: "host_resources", Status: HealthDegraded, Message: "memory usage above 90%", Details: details}
	}
	return ComponentHealth{Name: "host_resources", Status: HealthHealthy, Message: "within limits", Details: details}
}

// CheckSystemHealth runs every configured health check and aggregates the
// result. breakers and queue may each be nil to skip that component.
func CheckSystemHealth(breakers *resilience.Registry, queue *resilience.RetryQueue) SystemHealth {
	health := SystemHealth{Timestamp: time.Now().UTC()}

	if breakers != nil {
		health.Add(checkCircuitBreakers(breakers))
	}
	if queue != nil {
		health.Add(checkRetryQueue(queue))
	}
	snapshot, err := telemetry.ReadHostSnapshot()
	health.Add(checkHostResources(snapshot, err))

	return health
}

func pluralf(n, total int, suffix string) string {
	return sprintfCount(n, total) + " " + suffix
}

func sprintfCount(n, total int) string {
	if n == total {
		return strconv.Itoa(total)
	}
	return strconv.Itoa(n) + "/" + strconv.Itoa(total)
}
