// Package monitor exports Prometheus metrics about contract test runs.
package monitor

import (
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/songquanpeng/contract-tester/probe/executor"
	"github.com/songquanpeng/contract-tester/probe/model"
)

const namespace = "contract_tester"

// Case outcomes.
const (
	OutcomePassed = "passed"
	OutcomeFailed = "failed"
	OutcomeError  = "error"
)

// PrometheusMonitor is the process-wide metrics set. It stays nil when metrics
// are disabled; every method is a no-op on a nil receiver.
var PrometheusMonitor *Metrics

type Metrics struct {
	buildInfo    *prometheus.GaugeVec
	runsTotal    *prometheus.CounterVec
	runsInFlight prometheus.Gauge
	casesTotal   *prometheus.CounterVec
	caseDuration *prometheus.HistogramVec
	degradations *prometheus.CounterVec
	analyses     *prometheus.CounterVec
}

// NewMetrics builds the metric set and registers it on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information, always 1.",
		}, []string{"version", "start_time"}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished runs by final status.",
		}, []string{"status"}),
		runsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_in_flight",
			Help:      "Runs currently executing.",
		}),
		casesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cases_total",
			Help:      "Executed test cases by source and outcome.",
		}, []string{"source", "outcome"}),
		caseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "case_duration_seconds",
			Help:      "Wall time of a single test request.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
		}, []string{"source"}),
		degradations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degradations_total",
			Help:      "Pipeline stages that degraded instead of failing the run.",
		}, []string{"stage"}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Endpoint analyses by result.",
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{
		m.buildInfo, m.runsTotal, m.runsInFlight, m.casesTotal,
		m.caseDuration, m.degradations, m.analyses,
	} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "register collector")
		}
	}
	return m, nil
}

// InitPrometheusMonitoring registers the metrics on the default registry.
func InitPrometheusMonitoring(version string, startTime time.Time) error {
	m, err := NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return errors.Wrap(err, "init prometheus monitoring")
	}
	m.buildInfo.WithLabelValues(version, startTime.Format(time.RFC3339)).Set(1)
	PrometheusMonitor = m
	return nil
}

// RunStarted counts a run as in flight. The returned func records its final status.
func (m *Metrics) RunStarted() func(status string) {
	if m == nil {
		return func(string) {}
	}
	m.runsInFlight.Inc()
	return func(status string) {
		m.runsInFlight.Dec()
		m.runsTotal.WithLabelValues(status).Inc()
	}
}

// RecordCase records one executed case.
func (m *Metrics) RecordCase(c *model.TestCase) {
	if m == nil || c == nil || !c.Executed() {
		return
	}
	source := string(c.Source)
	if source == "" {
		source = "unknown"
	}
	m.casesTotal.WithLabelValues(source, CaseOutcome(c)).Inc()
	m.caseDuration.WithLabelValues(source).Observe(c.TestResult.Duration.Seconds())
}

// RecordDegradations counts every degradation of a finished run.
func (m *Metrics) RecordDegradations(ds []model.Degradation) {
	if m == nil {
		return
	}
	for _, d := range ds {
		m.degradations.WithLabelValues(d.Stage).Inc()
	}
}

// RecordAnalysis counts an endpoint analysis.
func (m *Metrics) RecordAnalysis(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.analyses.WithLabelValues(result).Inc()
}

// Observer feeds executed cases into m.
func (m *Metrics) Observer() executor.Observer {
	return func(ev executor.Event) { m.RecordCase(ev.Case) }
}

// CaseOutcome classifies an executed case. Transport failures are "error".
func CaseOutcome(c *model.TestCase) string {
	switch {
	case c.ActualStatusCode != nil && c.ActualStatusCode.Error:
		return OutcomeError
	case c.Passed():
		return OutcomePassed
	default:
		return OutcomeFailed
	}
}
