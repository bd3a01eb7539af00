package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline metrics. Cardinality is bounded: agent and status labels come
// from closed enums.
var (
	agentInvocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "skymarshal",
		Name:      "agent_invocations_total",
		Help:      "Agent invocations by agent, phase, and outcome",
	}, []string{"agent", "phase", "status"})

	agentDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "skymarshal",
		Name:      "agent_duration_seconds",
		Help:      "Agent invocation wall-clock duration",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 15, 20, 30, 45},
	}, []string{"agent", "phase"})

	phaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "skymarshal",
		Name:      "phase_duration_seconds",
		Help:      "Pipeline phase duration",
		Buckets:   []float64{1, 2, 5, 10, 20, 30, 45, 60, 90},
	}, []string{"phase"})

	disruptionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "skymarshal",
		Name:      "disruption_requests_total",
		Help:      "Disruption analysis requests by final status",
	}, []string{"status"})

	arbitrationOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "skymarshal",
		Name:      "arbitration_outcomes_total",
		Help:      "Arbitration outcomes: solved or escalated",
	}, []string{"outcome"})

	solutionCount = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "skymarshal",
		Name:      "arbitration_solution_count",
		Help:      "Number of solution options returned per arbitration",
		Buckets:   []float64{0, 1, 2, 3},
	})
)

// RecordAgentInvocation records one agent outcome
func RecordAgentInvocation(agent, phase, status string, duration time.Duration) {
	agentInvocations.WithLabelValues(agent, phase, status).Inc()
	agentDuration.WithLabelValues(agent, phase).Observe(duration.Seconds())
}

// RecordPhase records one phase duration
func RecordPhase(phase string, duration time.Duration) {
	phaseDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

// RecordRequest records one completed disruption request
func RecordRequest(status string) {
	disruptionRequests.WithLabelValues(status).Inc()
}

// RecordArbitration records an arbitration outcome
func RecordArbitration(escalated bool, solutions int) {
	outcome := "solved"
	if escalated {
		outcome = "escalated"
	}
	arbitrationOutcomes.WithLabelValues(outcome).Inc()
	solutionCount.Observe(float64(solutions))
}

// Handler returns the Prometheus scrape handler
func Handler() http.Handler {
	return promhttp.Handler()
}
