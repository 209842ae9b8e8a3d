package gateway

import (
	"fmt"
	"net/http"
	"time"

	"github.com/mcdev12/animalitos/go/internal/display"
	"github.com/mcdev12/animalitos/go/internal/models"
)

// ConnectionStatus is implemented by optional outbound integrations such as the
// event publisher.
type ConnectionStatus interface {
	IsConnected() bool
}

type HealthStatus struct {
	Healthy            bool                             `json:"healthy"`
	State              models.DisplayState              `json:"state"`
	Endpoints          map[string]display.EndpointStats `json:"endpoints"`
	ScreensConnected   int                              `json:"screens_connected"`
	PublisherConnected *bool                            `json:"publisher_connected,omitempty"`
	Errors             []string                         `json:"errors"`
}

// HealthChecker reports whether the display is keeping in sync with the back office
type HealthChecker struct {
	metrics     *display.CounterMetrics
	display     DisplayProvider
	connections *ConnectionManager
	publisher   ConnectionStatus
	maxFailures int
}

func NewHealthChecker(metrics *display.CounterMetrics, d DisplayProvider, cm *ConnectionManager, publisher ConnectionStatus, maxFailures int) *HealthChecker {
	if maxFailures <= 0 {
		maxFailures = 3
	}
	return &HealthChecker{
		metrics:     metrics,
		display:     d,
		connections: cm,
		publisher:   publisher,
		maxFailures: maxFailures,
	}
}

func (h *HealthChecker) Check() HealthStatus {
	status := HealthStatus{
		Healthy:          true,
		State:            h.display.Snapshot().State,
		Endpoints:        map[string]display.EndpointStats{},
		ScreensConnected: h.connections.GetConnectionStats().TotalConnections,
		Errors:           []string{},
	}

	for _, name := range []string{display.EndpointNextDraw, display.EndpointSchedule} {
		stats := h.metrics.Endpoint(name)
		status.Endpoints[name] = stats
		if stats.ConsecutiveFailures == 0 {
			continue
		}
		msg := fmt.Sprintf("%s poll failed %d times in a row", name, stats.ConsecutiveFailures)
		if !stats.LastSuccess.IsZero() {
			msg += fmt.Sprintf(", last success %s ago", time.Since(stats.LastSuccess).Round(time.Second))
		}
		status.Errors = append(status.Errors, msg)
		if name == display.EndpointNextDraw && stats.ConsecutiveFailures >= h.maxFailures {
			status.Healthy = false
		}
	}

	// Publishing is best effort; a lost broker is reported but does not fail the check
	if h.publisher != nil {
		connected := h.publisher.IsConnected()
		status.PublisherConnected = &connected
		if !connected {
			status.Errors = append(status.Errors, "event publisher disconnected")
		}
	}

	return status
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := h.Check()
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// Export renders the health gauges followed by the display counters
func (h *HealthChecker) Export() string {
	status := h.Check()

	healthy := 0
	if status.Healthy {
		healthy = 1
	}

	return fmt.Sprintf(`# HELP display_healthy Whether the display is keeping in sync with the back office
# TYPE display_healthy gauge
display_healthy %d

# HELP display_screens_connected Screens currently connected over WebSocket
# TYPE display_screens_connected gauge
display_screens_connected %d

%s`,
		healthy,
		status.ScreensConnected,
		h.metrics.Export(),
	)
}

func (h *HealthChecker) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, h.Export())
}
