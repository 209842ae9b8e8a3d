package display

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Poll endpoints as reported to metrics.
const (
	EndpointNextDraw = "next_draw"
	EndpointSchedule = "schedule"
)

// MetricsCollector defines the interface for collecting display metrics
type MetricsCollector interface {
	RecordPoll(endpoint string, success bool, duration time.Duration)
	RecordWithheld()
	RecordSpin(trial bool, steps int, duration time.Duration)
}

// NoOpMetricsCollector is a no-op implementation for when metrics aren't needed
type NoOpMetricsCollector struct{}

func (n *NoOpMetricsCollector) RecordPoll(endpoint string, success bool, duration time.Duration) {}
func (n *NoOpMetricsCollector) RecordWithheld()                                                {}
func (n *NoOpMetricsCollector) RecordSpin(trial bool, steps int, duration time.Duration)        {}

// EndpointStats summarises the poll history of one endpoint.
type EndpointStats struct {
	Successes           uint64
	Failures            uint64
	ConsecutiveFailures int
	LastSuccess         time.Time
	LastDuration        time.Duration
}

// CounterMetrics keeps in-memory counters and renders them in Prometheus text format.
type CounterMetrics struct {
	mu        sync.Mutex
	now       func() time.Time
	endpoints map[string]*EndpointStats
	withheld  uint64
	spins     map[bool]uint64
	spinSteps uint64
}

// NewCounterMetrics creates an empty collector. now stamps successful polls.
func NewCounterMetrics(now func() time.Time) *CounterMetrics {
	return &CounterMetrics{
		now:       now,
		endpoints: make(map[string]*EndpointStats),
		spins:     make(map[bool]uint64),
	}
}

func (m *CounterMetrics) RecordPoll(endpoint string, success bool, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.endpoints[endpoint]
	if !ok {
		s = &EndpointStats{}
		m.endpoints[endpoint] = s
	}
	s.LastDuration = duration
	if success {
		s.Successes++
		s.ConsecutiveFailures = 0
		s.LastSuccess = m.now()
		return
	}
	s.Failures++
	s.ConsecutiveFailures++
}

func (m *CounterMetrics) RecordWithheld() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.withheld++
}

func (m *CounterMetrics) RecordSpin(trial bool, steps int, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spins[trial]++
	m.spinSteps += uint64(steps)
}

// Endpoint returns a copy of the stats for endpoint.
func (m *CounterMetrics) Endpoint(endpoint string) EndpointStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.endpoints[endpoint]; ok {
		return *s
	}
	return EndpointStats{}
}

// Export renders every counter in Prometheus exposition format.
func (m *CounterMetrics) Export() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.endpoints))
	for name := range m.endpoints {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("# HELP display_polls_total Poll attempts by endpoint and status\n")
	b.WriteString("# TYPE display_polls_total counter\n")
	for _, name := range names {
		s := m.endpoints[name]
		fmt.Fprintf(&b, "display_polls_total{endpoint=%q,status=\"success\"} %d\n", name, s.Successes)
		fmt.Fprintf(&b, "display_polls_total{endpoint=%q,status=\"failure\"} %d\n", name, s.Failures)
	}
	b.WriteString("\n# HELP display_poll_consecutive_failures Failed polls since the last success\n")
	b.WriteString("# TYPE display_poll_consecutive_failures gauge\n")
	for _, name := range names {
		fmt.Fprintf(&b, "display_poll_consecutive_failures{endpoint=%q} %d\n", name, m.endpoints[name].ConsecutiveFailures)
	}
	b.WriteString("\n# HELP display_poll_last_success_timestamp Unix time of the last successful poll\n")
	b.WriteString("# TYPE display_poll_last_success_timestamp gauge\n")
	for _, name := range names {
		var ts int64
		if last := m.endpoints[name].LastSuccess; !last.IsZero() {
			ts = last.Unix()
		}
		fmt.Fprintf(&b, "display_poll_last_success_timestamp{endpoint=%q} %d\n", name, ts)
	}
	fmt.Fprintf(&b, `
# HELP display_poll_results_withheld_total Next-draw results dropped because a spin was running
# TYPE display_poll_results_withheld_total counter
display_poll_results_withheld_total %d

# HELP display_spins_total Completed wheel runs
# TYPE display_spins_total counter
display_spins_total{kind="draw"} %d
display_spins_total{kind="trial"} %d

# HELP display_spin_steps_total Wheel steps shown across all runs
# TYPE display_spin_steps_total counter
display_spin_steps_total %d
`, m.withheld, m.spins[false], m.spins[true], m.spinSteps)

	return b.String()
}
