package core

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"pdmtracker/pkg/domain"
)

func TestPrometheusRecorderObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	rec.Observe(context.Background(), "submit", true, 10*time.Millisecond)
	rec.Observe(context.Background(), "submit", false, 5*time.Millisecond)
	rec.Observe(context.Background(), "", true, time.Millisecond)

	if got := testutil.ToFloat64(rec.results.WithLabelValues("submit", "success")); got != 1 {
		t.Fatalf("expected 1 success, got %v", got)
	}
	if got := testutil.ToFloat64(rec.results.WithLabelValues("submit", "error")); got != 1 {
		t.Fatalf("expected 1 error, got %v", got)
	}
	if got := testutil.CollectAndCount(rec.durations); got != 1 {
		t.Fatalf("expected one histogram series, got %d", got)
	}
	if _, err := NewPrometheusRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}

func TestPrometheusRecorderObserveReport(t *testing.T) {
	rec, err := NewPrometheusRecorder(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	report := &domain.AnalysisReport{
		General:         domain.GeneralIndicators{TotalItems: 4, Fulfilled: 2, Pending: 1, NotStarted: 1, CompletionPercentage: 50},
		Inconsistencies: []domain.Inconsistency{{Count: 2}, {Count: 3}},
	}
	rec.ObserveReport(report)
	if got := testutil.ToFloat64(rec.items.WithLabelValues(string(domain.StatusCumplida))); got != 2 {
		t.Fatalf("expected 2 fulfilled, got %v", got)
	}
	if got := testutil.ToFloat64(rec.completion); got != 50 {
		t.Fatalf("expected completion 50, got %v", got)
	}
	if got := testutil.ToFloat64(rec.findings); got != 5 {
		t.Fatalf("expected 5 findings, got %v", got)
	}
	rec.ObserveReport(nil)
	if got := testutil.CollectAndCount(rec.items); got != 0 {
		t.Fatalf("expected reset item gauges, got %d series", got)
	}
	if got := testutil.ToFloat64(rec.completion); got != 0 {
		t.Fatalf("expected reset completion, got %v", got)
	}
}
