// Package telemetry collects gateway metrics on an injected prometheus
// registry.
//
// Metric groups:
//
//   - HTTP request counters and latency histograms, labelled by route template
//   - rate limit decisions and degraded (fail-open) checks, by class
//   - plan/quota denials, by action
//   - automation rule outcomes and background job transitions
//
// HTTP metrics use the router's route template rather than the raw URL so
// task and key ids do not blow up label cardinality.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Tracker struct {
	registry *prometheus.Registry

	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	rateLimitTotal   *prometheus.CounterVec
	rateLimitDegrade *prometheus.CounterVec
	quotaDenials     *prometheus.CounterVec
	automationRuns   *prometheus.CounterVec
	jobTransitions   *prometheus.CounterVec
}

// NewTracker registers every collector on reg. Passing a fresh registry per
// test keeps tests independent.
func NewTracker(reg *prometheus.Registry) *Tracker {
	t := &Tracker{
		registry: reg,
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskgate_http_requests_total",
				Help: "Total HTTP requests, by method, route template and status code.",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskgate_http_request_duration_seconds",
				Help:    "HTTP request latency, by method and route template.",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		rateLimitTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskgate_rate_limit_decisions_total",
				Help: "Rate limit decisions, by class and result (allowed, denied).",
			},
			[]string{"class", "result"},
		),
		rateLimitDegrade: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskgate_rate_limit_degraded_total",
				Help: "Rate limit checks that failed open because the store was unavailable.",
			},
			[]string{"class"},
		),
		quotaDenials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskgate_quota_denials_total",
				Help: "Requests denied by plan limits, by plan and action.",
			},
			[]string{"plan", "action"},
		),
		automationRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskgate_automation_rules_total",
				Help: "Automation rule evaluations, by trigger and outcome.",
			},
			[]string{"trigger", "outcome"},
		),
		jobTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskgate_jobs_total",
				Help: "Background job state transitions, by job type and status.",
			},
			[]string{"type", "status"},
		),
	}

	reg.MustRegister(
		t.requestsTotal,
		t.requestDuration,
		t.rateLimitTotal,
		t.rateLimitDegrade,
		t.quotaDenials,
		t.automationRuns,
		t.jobTransitions,
	)
	return t
}

func (t *Tracker) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	t.requestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	t.requestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

func (t *Tracker) ObserveRateLimit(class string, allowed bool) {
	result := "allowed"
	if !allowed {
		result = "denied"
	}
	t.rateLimitTotal.WithLabelValues(class, result).Inc()
}

func (t *Tracker) ObserveRateLimitDegraded(class string) {
	t.rateLimitDegrade.WithLabelValues(class).Inc()
}

func (t *Tracker) ObserveQuotaDenied(plan, action string) {
	t.quotaDenials.WithLabelValues(plan, action).Inc()
}

func (t *Tracker) ObserveAutomation(trigger, outcome string) {
	t.automationRuns.WithLabelValues(trigger, outcome).Inc()
}

func (t *Tracker) ObserveJob(jobType, status string) {
	t.jobTransitions.WithLabelValues(jobType, status).Inc()
}

// Reset clears every series.
func (t *Tracker) Reset() {
	t.requestsTotal.Reset()
	t.requestDuration.Reset()
	t.rateLimitTotal.Reset()
	t.rateLimitDegrade.Reset()
	t.quotaDenials.Reset()
	t.automationRuns.Reset()
	t.jobTransitions.Reset()
}

func (t *Tracker) Handler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}
