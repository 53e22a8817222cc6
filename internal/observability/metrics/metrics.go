package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statusengine_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "statusengine_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statusengine_logins_total",
		Help: "Count of login attempts by result",
	}, []string{"result"})

	statusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statusengine_status_transitions_total",
		Help: "Count of status transitions by execution path and result",
	}, []string{"path", "result"})

	fallbackActivations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "statusengine_fallback_activations_total",
		Help: "Count of degraded-mode activations after an atomic transition failure",
	})

	cascadeSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "statusengine_cascade_affected_entities",
		Help:    "Number of dependent entities touched by a cascading transition",
		Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
	})

	lockSweeps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statusengine_lock_sweeps_total",
		Help: "Count of expired account locks cleared by the sweeper",
	}, []string{"result"})

	lockedAccounts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "statusengine_locked_accounts",
		Help: "Accounts currently under a login lockout",
	})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordLogin increments the login counter for the given result
// (success, invalid, locked, unverified)
func RecordLogin(result string) {
	loginsTotal.WithLabelValues(result).Inc()
}

// RecordStatusTransition records a transition attempt outcome per path
func RecordStatusTransition(path, result string) {
	statusTransitionsTotal.WithLabelValues(path, result).Inc()
}

// RecordFallbackActivation counts a switch to the degraded path
func RecordFallbackActivation() {
	fallbackActivations.Inc()
}

// ObserveCascadeSize records how many dependent entities a cascade touched
func ObserveCascadeSize(count int) {
	if count < 0 {
		count = 0
	}
	cascadeSize.Observe(float64(count))
}

// RecordLockSweep increments the sweeper counter for the given result
func RecordLockSweep(result string) {
	lockSweeps.WithLabelValues(result).Inc()
}

// SetLockedAccounts sets the locked account gauge
func SetLockedAccounts(count int) {
	if count < 0 {
		count = 0
	}
	lockedAccounts.Set(float64(count))
}
