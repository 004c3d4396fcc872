// Package metrics exports Prometheus instruments for safety checks.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ppiankov/promptguard/internal/model"
)

var (
	// checksTotal counts completed checks by direction and terminal outcome.
	checksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptguard_checks_total",
		Help: "Total safety checks by direction and outcome",
	}, []string{"direction", "outcome"})

	violationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptguard_violations_total",
		Help: "Total violations by direction, validator and severity",
	}, []string{"direction", "validator", "severity"})

	checkDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "promptguard_check_duration_seconds",
		Help:    "Safety check duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14), // 50us to ~400ms
	}, []string{"direction"})

	// checkErrors counts checks that failed open.
	checkErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptguard_check_errors_total",
		Help: "Total safety checks that failed open on an internal error",
	}, []string{"direction"})
)

// ObserveCheck records one completed check.
func ObserveCheck(dir model.Direction, outcome model.Outcome, violations []model.Violation, elapsed time.Duration) {
	d := string(dir)
	checksTotal.WithLabelValues(d, string(outcome)).Inc()
	checkDuration.WithLabelValues(d).Observe(elapsed.Seconds())
	for _, v := range violations {
		violationsTotal.WithLabelValues(d, string(v.Validator), string(v.Severity)).Inc()
	}
}

// ObserveError records a check that failed open.
func ObserveError(dir model.Direction) {
	checkErrors.WithLabelValues(string(dir)).Inc()
}
