package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"pdmtracker/pkg/domain"
)

// MetricsRecorder captures facade operation outcomes.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// ReportObserver is implemented by recorders that also track report gauges.
type ReportObserver interface {
	ObserveReport(report *domain.AnalysisReport)
}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

// PrometheusRecorder publishes operation latency, outcome counters and the
// headline figures of the latest report.
type PrometheusRecorder struct {
	durations  *prometheus.HistogramVec
	results    *prometheus.CounterVec
	items      *prometheus.GaugeVec
	completion prometheus.Gauge
	findings   prometheus.Gauge
}

// NewPrometheusRecorder builds a recorder and registers its collectors. A nil
// registerer uses prometheus.DefaultRegisterer.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &PrometheusRecorder{
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pdmtracker",
			Name:      "operation_duration_seconds",
			Help:      "Duration of facade operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pdmtracker",
			Name:      "operations_total",
			Help:      "Facade operations by outcome.",
		}, []string{"operation", "status"}),
		items: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "pdmtracker",
			Name:      "report_items",
			Help:      "Budgeted products in the current report by status.",
		}, []string{"status"}),
		completion: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pdmtracker",
			Name:      "report_completion_percentage",
			Help:      "Overall completion percentage of the current report.",
		}),
		findings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pdmtracker",
			Name:      "report_inconsistencies",
			Help:      "Structural inconsistency findings in the current report.",
		}),
	}
	for _, c := range []prometheus.Collector{r.durations, r.results, r.items, r.completion, r.findings} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Observe records a facade operation outcome.
func (r *PrometheusRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.durations.WithLabelValues(operation).Observe(duration.Seconds())
	r.results.WithLabelValues(operation, status).Inc()
}

// ObserveReport sets the report gauges; a nil report resets them.
func (r *PrometheusRecorder) ObserveReport(report *domain.AnalysisReport) {
	if report == nil {
		r.items.Reset()
		r.completion.Set(0)
		r.findings.Set(0)
		return
	}
	g := report.General
	r.items.WithLabelValues(string(domain.StatusCumplida)).Set(float64(g.Fulfilled))
	r.items.WithLabelValues(string(domain.StatusEnProgreso)).Set(float64(g.InProgress))
	r.items.WithLabelValues(string(domain.StatusPorCumplir)).Set(float64(g.NotStarted))
	r.items.WithLabelValues(string(domain.StatusPendiente)).Set(float64(g.Pending))
	r.completion.Set(g.CompletionPercentage)
	total := 0
	for _, f := range report.Inconsistencies {
		total += f.Count
	}
	r.findings.Set(float64(total))
}
