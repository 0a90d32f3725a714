package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/goleak"

	"pdmtracker/internal/infra/persistence/memory"
	"pdmtracker/internal/snapshot"
	"pdmtracker/internal/workbook"
	"pdmtracker/internal/workbook/workbooktest"
	"pdmtracker/pkg/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var serviceNow = time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)

func fixedClock() ServiceOption {
	return WithClock(ClockFunc(func() time.Time { return serviceNow }))
}

func planWorkbook(t *testing.T) []byte {
	t.Helper()
	data, err := workbooktest.XLSX(
		workbooktest.Sheet{Name: "Plan indicativo - Productos", Rows: [][]any{
			workbooktest.ProductRow("P1", "Salud", "L1", "3", [4]float64{50, 50, 0, 0}, [4]float64{100, 100, 0, 0}),
			workbooktest.ProductRow("P2", "Educación", "L2", "4", [4]float64{10, 10, 10, 10}, [4]float64{1, 1, 1, 1}),
			workbooktest.ProductRow("P1", "Salud", "L1", "3", [4]float64{}, [4]float64{}),
			workbooktest.ProductRow("P3", "", "L1", "", [4]float64{}, [4]float64{0, 0, 5, 0}),
		}},
		workbooktest.Sheet{Name: "Iniciativas SGR", Rows: [][]any{
			workbooktest.SGRInitiativeRow(1, "Vías", 1000, "2024000001"),
		}},
	)
	if err != nil {
		t.Fatalf("build workbook: %v", err)
	}
	return data
}

func newTestService(t *testing.T, store domain.KeyValueStore, opts ...ServiceOption) *Service {
	t.Helper()
	svc, err := NewService(context.Background(), store, append([]ServiceOption{fixedClock()}, opts...)...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func submit(t *testing.T, svc *Service, data []byte) *domain.Dataset {
	t.Helper()
	ds, err := svc.Submit(context.Background(), "plan.xlsx", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return ds
}

func TestServiceSubmitPublishesAndPersists(t *testing.T) {
	store := memory.NewStore(0)
	svc := newTestService(t, store)

	var loading []bool
	var datasets []*domain.Dataset
	var reports []*domain.AnalysisReport
	svc.SubscribeLoading(func(v bool) { loading = append(loading, v) })
	svc.SubscribeDataset(func(ds *domain.Dataset) { datasets = append(datasets, ds) })
	svc.SubscribeReport(func(r *domain.AnalysisReport) { reports = append(reports, r) })

	ds := submit(t, svc, planWorkbook(t))

	if diff := cmp.Diff([]bool{false, true, false}, loading); diff != "" {
		t.Fatalf("loading sequence (-want +got):\n%s", diff)
	}
	if len(datasets) != 2 || datasets[0] != nil || datasets[1] == nil {
		t.Fatalf("expected nil then dataset, got %d publications", len(datasets))
	}
	if len(reports) != 2 || reports[1] == nil {
		t.Fatalf("expected report publication, got %d", len(reports))
	}
	if ds.Metadata.FileName != "plan.xlsx" || ds.Metadata.TotalRecords != 5 || ds.Metadata.SubmissionID == "" {
		t.Fatalf("unexpected metadata %+v", ds.Metadata)
	}
	statuses := make([]domain.Status, 0, len(ds.Products))
	for _, p := range ds.Products {
		statuses = append(statuses, p.Status)
	}
	wantStatuses := []domain.Status{domain.StatusCumplida, domain.StatusEnProgreso, domain.StatusSinDefinir, domain.StatusPorCumplir}
	if diff := cmp.Diff(wantStatuses, statuses); diff != "" {
		t.Fatalf("statuses (-want +got):\n%s", diff)
	}

	report := svc.Report()
	if report.General.TotalItems != 3 || report.General.Fulfilled != 1 || report.SGR.TotalResources != 1000 {
		t.Fatalf("unexpected report %+v", report.General)
	}
	wantFindings := []domain.Inconsistency{
		{Type: "Productos sin sector definido", Description: "Existen productos sin sector asignado", Count: 1},
		{Type: "Productos sin programación", Description: "Existen productos sin programación para ningún año del cuatrienio", Count: 2},
	}
	if diff := cmp.Diff(wantFindings, report.Inconsistencies); diff != "" {
		t.Fatalf("findings (-want +got):\n%s", diff)
	}

	info := svc.CacheInfo(context.Background())
	if !info.Exists || info.Version != snapshot.Version || !info.Timestamp.Equal(serviceNow) {
		t.Fatalf("unexpected cache info %+v", info)
	}

	restored := newTestService(t, store)
	if diff := cmp.Diff(ds, restored.Dataset(), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("restored dataset (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(report, restored.Report(), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("restored report (-want +got):\n%s", diff)
	}
}

func TestServiceSubmitAnalysisPairsDatasetAndReport(t *testing.T) {
	svc := newTestService(t, memory.NewStore(0))
	ds, report, err := svc.SubmitAnalysis(context.Background(), "plan.xlsx", bytes.NewReader(planWorkbook(t)))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if report == nil || report != svc.Report() {
		t.Fatalf("expected the published report, got %p want %p", report, svc.Report())
	}
	if report.General.TotalItems != 3 || ds.Metadata.SubmissionID != svc.Dataset().Metadata.SubmissionID {
		t.Fatalf("unexpected pair %+v %+v", ds.Metadata, report.General)
	}
	if _, report, err := svc.SubmitAnalysis(context.Background(), "broken.xlsx", strings.NewReader("nope")); err == nil || report != nil {
		t.Fatalf("expected failure without report, got %v %v", report, err)
	}
}

func TestServiceSubmitParseFailureKeepsState(t *testing.T) {
	svc := newTestService(t, memory.NewStore(0))
	first := submit(t, svc, planWorkbook(t))

	_, err := svc.Submit(context.Background(), "broken.xlsx", strings.NewReader("not a workbook"))
	var parseErr *workbook.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if got := svc.Dataset(); got == nil || got.Metadata.SubmissionID != first.Metadata.SubmissionID {
		t.Fatalf("expected previous dataset to remain")
	}
}

func TestServiceQueries(t *testing.T) {
	svc := newTestService(t, memory.NewStore(0))
	if got := svc.FilteredProducts(domain.ProductFilter{}); len(got) != 0 || got == nil {
		t.Fatalf("expected empty non-nil products before submit, got %v", got)
	}
	if got := svc.DistinctSectors(); len(got) != 0 {
		t.Fatalf("expected no sectors before submit, got %v", got)
	}
	submit(t, svc, planWorkbook(t))

	codes := func(products []domain.InvestmentProduct) []string {
		out := make([]string, 0, len(products))
		for _, p := range products {
			out = append(out, p.ProductIndicatorCode)
		}
		return out
	}
	cases := []struct {
		name   string
		filter domain.ProductFilter
		want   []string
	}{
		{"all", domain.ProductFilter{}, []string{"P1", "P2", "P1", "P3"}},
		{"year", domain.ProductFilter{Year: 2025}, []string{"P1", "P2"}},
		{"sector", domain.ProductFilter{Sector: "Salud"}, []string{"P1", "P1"}},
		{"status", domain.ProductFilter{Status: domain.StatusEnProgreso}, []string{"P2"}},
		{"goal", domain.ProductFilter{GoalCode: "4"}, []string{"P2"}},
		{"line and year", domain.ProductFilter{StrategicLine: "L1", Year: 2026}, []string{"P3"}},
		{"bpin", domain.ProductFilter{HasBPIN: true}, []string{}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, codes(svc.FilteredProducts(tc.filter))); diff != "" {
				t.Fatalf("filter mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if diff := cmp.Diff([]string{"Educación", "Salud"}, svc.DistinctSectors()); diff != "" {
		t.Fatalf("sectors (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"L1", "L2"}, svc.DistinctStrategicLines()); diff != "" {
		t.Fatalf("lines (-want +got):\n%s", diff)
	}

	products := svc.FilteredProducts(domain.ProductFilter{Sector: "Salud"})
	products[0].Sector = "mutated"
	if svc.DistinctSectors()[1] != "Salud" {
		t.Fatalf("filtered products must be copies")
	}
}

func TestServiceAssignDepartment(t *testing.T) {
	store := memory.NewStore(0)
	svc := newTestService(t, store)
	data := planWorkbook(t)

	if _, err := svc.AssignDepartment(context.Background(), " ", "Hacienda"); !errors.Is(err, ErrMissingProductCode) {
		t.Fatalf("expected ErrMissingProductCode, got %v", err)
	}
	n, err := svc.AssignDepartment(context.Background(), "P1", "Secretaría de Salud")
	if err != nil || n != 0 {
		t.Fatalf("assign before submit: %d %v", n, err)
	}
	submit(t, svc, data)
	if diff := cmp.Diff([]string{"Secretaría de Salud"}, svc.DistinctAssignedDepartments()); diff != "" {
		t.Fatalf("assignment must apply on submit (-want +got):\n%s", diff)
	}

	n, err = svc.AssignDepartment(context.Background(), "P2", "Secretaría de Educación")
	if err != nil || n != 1 {
		t.Fatalf("assign: %d %v", n, err)
	}
	if got := svc.FilteredProducts(domain.ProductFilter{AssignedDepartment: "Secretaría de Salud"}); len(got) != 2 {
		t.Fatalf("expected both P1 records assigned, got %d", len(got))
	}

	restored := newTestService(t, store)
	if diff := cmp.Diff([]string{"Secretaría de Educación", "Secretaría de Salud"}, restored.DistinctAssignedDepartments()); diff != "" {
		t.Fatalf("restored assignments (-want +got):\n%s", diff)
	}

	if _, err := svc.AssignDepartment(context.Background(), "P1", ""); err != nil {
		t.Fatalf("unassign: %v", err)
	}
	if diff := cmp.Diff([]string{"Secretaría de Educación"}, svc.DistinctAssignedDepartments()); diff != "" {
		t.Fatalf("after unassign (-want +got):\n%s", diff)
	}
}

func TestServiceRecordProgress(t *testing.T) {
	store := memory.NewStore(0)
	svc := newTestService(t, store)
	submit(t, svc, planWorkbook(t))

	if _, err := svc.RecordProgress(context.Background(), "P2", 2030, 1, ""); !errors.Is(err, ErrInvalidYear) {
		t.Fatalf("expected ErrInvalidYear, got %v", err)
	}
	n, err := svc.RecordProgress(context.Background(), "P2", 2025, 7.5, " ejecutado parcialmente ")
	if err != nil || n != 1 {
		t.Fatalf("record progress: %d %v", n, err)
	}
	p := svc.FilteredProducts(domain.ProductFilter{GoalCode: "4"})[0]
	want := domain.YearProgress{ExecutedValue: 7.5, Comment: "ejecutado parcialmente", RecordedAt: serviceNow}
	if diff := cmp.Diff(want, p.YearlyProgress[2025]); diff != "" {
		t.Fatalf("progress (-want +got):\n%s", diff)
	}
	if p.Status != domain.StatusEnProgreso {
		t.Fatalf("progress must not change status, got %s", p.Status)
	}

	resubmitted := submit(t, svc, planWorkbook(t))
	if resubmitted.Products[1].YearlyProgress[2025].ExecutedValue != 7.5 {
		t.Fatalf("progress must survive a new submission")
	}
	restored := newTestService(t, store)
	if got := restored.FilteredProducts(domain.ProductFilter{GoalCode: "4"}); got[0].YearlyProgress[2025].Comment != "ejecutado parcialmente" {
		t.Fatalf("progress must survive a restore, got %+v", got[0].YearlyProgress)
	}
}

func TestServiceClear(t *testing.T) {
	store := memory.NewStore(0)
	svc := newTestService(t, store)
	submit(t, svc, planWorkbook(t))
	if _, err := svc.AssignDepartment(context.Background(), "P1", "Hacienda"); err != nil {
		t.Fatalf("assign: %v", err)
	}

	if err := svc.Clear(context.Background()); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if svc.Dataset() != nil || svc.Report() != nil {
		t.Fatalf("expected cleared state")
	}
	if svc.CacheInfo(context.Background()).Exists {
		t.Fatalf("expected snapshot removed")
	}
	if _, err := store.Get(context.Background(), AssignmentsKey); err != nil {
		t.Fatalf("assignments must be kept: %v", err)
	}
	if restored := newTestService(t, store); restored.Dataset() != nil {
		t.Fatalf("expected empty restore after clear")
	}
}

func TestServiceStartsEmptyOnBadSnapshot(t *testing.T) {
	store := memory.NewStore(0)
	if err := store.Set(context.Background(), snapshot.Key, []byte("{")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := newTestService(t, store)
	if svc.Dataset() != nil {
		t.Fatalf("expected no dataset")
	}
	if _, err := store.Get(context.Background(), snapshot.Key); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected bad snapshot removed, got %v", err)
	}
	if _, err := NewService(context.Background(), nil); err == nil {
		t.Fatalf("expected error without store")
	}
}

type captureArchive struct {
	mu      sync.Mutex
	entries []domain.Submission
	content map[string][]byte
	err     error
}

func (a *captureArchive) Store(_ context.Context, id, fileName string, content []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	if a.content == nil {
		a.content = make(map[string][]byte)
	}
	a.content[id] = content
	a.entries = append(a.entries, domain.Submission{ID: id, FileName: fileName, Size: int64(len(content))})
	return nil
}

func (a *captureArchive) List(context.Context) ([]domain.Submission, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.Submission(nil), a.entries...), nil
}

func (a *captureArchive) Open(_ context.Context, id string) (domain.Submission, io.ReadCloser, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.entries {
		if e.ID == id {
			return e, io.NopCloser(bytes.NewReader(a.content[id])), nil
		}
	}
	return domain.Submission{}, nil, fmt.Errorf("submission %s: %w", id, domain.ErrNotFound)
}

func TestServiceArchivesSubmissions(t *testing.T) {
	archive := &captureArchive{}
	svc := newTestService(t, memory.NewStore(0), WithArchive(archive))
	data := planWorkbook(t)
	ds := submit(t, svc, data)

	subs, err := svc.Submissions(context.Background())
	if err != nil || len(subs) != 1 {
		t.Fatalf("submissions: %v %v", subs, err)
	}
	if subs[0].ID != ds.Metadata.SubmissionID || subs[0].FileName != "plan.xlsx" || !bytes.Equal(archive.content[subs[0].ID], data) {
		t.Fatalf("unexpected archive entry %+v", subs[0])
	}

	_, rc, err := svc.OpenSubmission(context.Background(), ds.Metadata.SubmissionID)
	if err != nil {
		t.Fatalf("open submission: %v", err)
	}
	got, _ := io.ReadAll(rc)
	_ = rc.Close()
	if !bytes.Equal(got, data) {
		t.Fatalf("expected archived bytes back")
	}

	archive.err = errors.New("bucket unavailable")
	if _, err := svc.Submit(context.Background(), "plan.xlsx", bytes.NewReader(data)); err != nil {
		t.Fatalf("archive failures must not fail the submission: %v", err)
	}

	plain := newTestService(t, memory.NewStore(0))
	if subs, err := plain.Submissions(context.Background()); err != nil || len(subs) != 0 {
		t.Fatalf("expected empty submissions without archive, got %v %v", subs, err)
	}
	if _, _, err := plain.OpenSubmission(context.Background(), ds.Metadata.SubmissionID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound without archive, got %v", err)
	}
}

type captureMetrics struct {
	mu      sync.Mutex
	ops     []string
	reports int
}

func (c *captureMetrics) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	status := "ok"
	if !success {
		status = "err"
	}
	c.ops = append(c.ops, op+":"+status)
}

func (c *captureMetrics) ObserveReport(*domain.AnalysisReport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports++
}

func TestServiceRecordsMetrics(t *testing.T) {
	metrics := &captureMetrics{}
	svc := newTestService(t, memory.NewStore(0), WithMetricsRecorder(metrics))
	submit(t, svc, planWorkbook(t))
	_, _ = svc.Submit(context.Background(), "x.xlsx", strings.NewReader(""))
	if err := svc.Clear(context.Background()); err != nil {
		t.Fatalf("clear: %v", err)
	}
	want := []string{"restore:ok", "submit:ok", "submit:err", "clear:ok"}
	if diff := cmp.Diff(want, metrics.ops); diff != "" {
		t.Fatalf("operations (-want +got):\n%s", diff)
	}
	if metrics.reports != 2 {
		t.Fatalf("expected report observed on submit and clear, got %d", metrics.reports)
	}
}

func TestServiceRejectsInvalidSchema(t *testing.T) {
	if _, err := NewService(context.Background(), memory.NewStore(0), WithSchema(workbook.Schema{})); err == nil {
		t.Fatalf("expected schema validation error")
	}
}
