package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coach_api",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests handled, by route, method and status.",
	}, []string{"route", "method", "status"})

	sessionFallbackTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coach_api",
		Subsystem: "history",
		Name:      "session_fallback_total",
		Help:      "Session-detail resolutions that needed a fallback tier, by tier.",
	}, []string{"tier"})

	unassignedSetLogsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "coach_api",
		Subsystem: "history",
		Name:      "unassigned_set_logs_total",
		Help:      "Set logs that could not be matched to a planned exercise.",
	})
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, sessionFallbackTotal, unassignedSetLogsTotal)
}

// ObserveRequest counts one handled HTTP request.
func ObserveRequest(route, method string, status int) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
}

// RecordSessionFallback counts a fallback-tier hit during session-detail
// resolution (e.g. "planned_by_routine", "logs_time_window", "logs_recent").
func RecordSessionFallback(tier string) {
	sessionFallbackTotal.WithLabelValues(tier).Inc()
}

// RecordUnassignedLogs counts logs that ended in the unassigned bucket.
func RecordUnassignedLogs(n int) {
	if n <= 0 {
		return
	}
	unassignedSetLogsTotal.Add(float64(n))
}
