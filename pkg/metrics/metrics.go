package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics owns its own registry so several nodes can live in one process
// (tests). A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	taskSubmissions  *prometheus.CounterVec
	votes            *prometheus.CounterVec
	upstreamFailures *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
}

func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		taskSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_submissions_total",
			Help:      "Signed task proofs submitted to the aggregator, by task kind and outcome",
		}, []string{"kind", "outcome"}),
		votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_total",
			Help:      "Validation verdicts, by validator and whether the task was approved",
		}, []string{"validator", "approved"}),
		upstreamFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_failures_total",
			Help:      "Failed calls to external collaborators",
		}, []string{"collaborator"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent per coordinator stage",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
	}
	registry.MustRegister(m.taskSubmissions, m.votes, m.upstreamFailures, m.stageDuration)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RecordSubmission(kind string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.taskSubmissions.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) RecordVote(validator string, approved bool) {
	if m == nil {
		return
	}
	m.votes.WithLabelValues(validator, strconv.FormatBool(approved)).Inc()
}

func (m *Metrics) RecordUpstreamFailure(collaborator string) {
	if m == nil {
		return
	}
	m.upstreamFailures.WithLabelValues(collaborator).Inc()
}

func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// SubmissionsCounter exposes a single series for inspection in tests.
func (m *Metrics) SubmissionsCounter(kind string, outcome string) prometheus.Counter {
	return m.taskSubmissions.WithLabelValues(kind, outcome)
}

func (m *Metrics) VotesCounter(validator string, approved bool) prometheus.Counter {
	return m.votes.WithLabelValues(validator, strconv.FormatBool(approved))
}

func (m *Metrics) UpstreamFailuresCounter(collaborator string) prometheus.Counter {
	return m.upstreamFailures.WithLabelValues(collaborator)
}
