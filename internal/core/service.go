package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"pdmtracker/internal/snapshot"
	"pdmtracker/internal/workbook"
	"pdmtracker/pkg/domain"
)

var (
	// ErrInvalidYear is returned when progress targets a year outside the plan period.
	ErrInvalidYear = errors.New("core: year outside the plan period")
	// ErrMissingProductCode is returned when a user record names no product.
	ErrMissingProductCode = errors.New("core: product code required")
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// Archive keeps the raw bytes of submitted workbooks. Open reports an unknown
// submission with an error wrapping domain.ErrNotFound.
type Archive interface {
	Store(ctx context.Context, submissionID, fileName string, content []byte) error
	List(ctx context.Context) ([]domain.Submission, error)
	Open(ctx context.Context, submissionID string) (domain.Submission, io.ReadCloser, error)
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	logger  zerolog.Logger
	metrics MetricsRecorder
	clock   Clock
	archive Archive
	schema  workbook.Schema
	rules   *domain.RulesEngine
}

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		logger:  zerolog.Nop(),
		metrics: noopMetrics{},
		clock:   ClockFunc(time.Now),
		schema:  workbook.DefaultSchema,
	}
}

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(o *serviceOptions) { o.logger = logger }
}

// WithMetricsRecorder records operation outcomes. A recorder that also
// implements ReportObserver receives every published report.
func WithMetricsRecorder(recorder MetricsRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if recorder != nil {
			o.metrics = recorder
		}
	}
}

// WithClock overrides the time source used for execution state, snapshots
// and progress records.
func WithClock(clock Clock) ServiceOption {
	return func(o *serviceOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithArchive stores every submitted workbook.
func WithArchive(archive Archive) ServiceOption {
	return func(o *serviceOptions) { o.archive = archive }
}

// WithSchema replaces the built-in sheet layout.
func WithSchema(schema workbook.Schema) ServiceOption {
	return func(o *serviceOptions) { o.schema = schema }
}

// WithRulesEngine replaces the built-in inconsistency checks.
func WithRulesEngine(engine *domain.RulesEngine) ServiceOption {
	return func(o *serviceOptions) {
		if engine != nil {
			o.rules = engine
		}
	}
}

// Service is the query facade over the current dataset and its report.
//
// Mutating operations are serialized and publish while holding the service
// lock, so subscriber callbacks may call the read methods but must not call
// Submit, Clear, AssignDepartment or RecordProgress synchronously.
type Service struct {
	mu      sync.Mutex
	cache   *snapshot.Cache
	records *recordStore
	opts    serviceOptions

	dataset *Subject[*domain.Dataset]
	report  *Subject[*domain.AnalysisReport]
	loading *Subject[bool]
}

// NewService builds the facade over store and restores the cached snapshot.
// A snapshot that cannot be read is logged and the service starts empty.
func NewService(ctx context.Context, store domain.KeyValueStore, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("core: key-value store required")
	}
	o := defaultServiceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.rules == nil {
		o.rules = NewInconsistencyEngine()
	}
	if err := o.schema.Validate(); err != nil {
		return nil, fmt.Errorf("core: schema: %w", err)
	}
	s := &Service{
		records: &recordStore{store: store},
		opts:    o,
		dataset: NewSubject[*domain.Dataset](nil),
		report:  NewSubject[*domain.AnalysisReport](nil),
		loading: NewSubject(false),
	}
	s.cache = snapshot.New(store, ApplyExecutionState,
		snapshot.WithLogger(o.logger),
		snapshot.WithClock(o.clock.Now),
	)
	if err := s.restore(ctx); err != nil {
		o.logger.Warn().Err(err).Msg("starting without snapshot")
	}
	return s, nil
}

func (s *Service) restore(ctx context.Context) error {
	return s.run(ctx, "restore", func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		snap, err := s.cache.Load(ctx)
		if err != nil || snap == nil {
			return err
		}
		ds := snap.Dataset
		recs, err := s.records.load(ctx)
		if err != nil {
			s.opts.logger.Warn().Err(err).Msg("load user records")
		} else {
			recs.apply(ds)
		}
		s.publish(ds, snap.Report)
		s.opts.logger.Info().
			Str("submission", ds.Metadata.SubmissionID).
			Time("snapshot", snap.Timestamp).
			Int("records", ds.Metadata.TotalRecords).
			Msg("restored snapshot")
		return nil
	})
}

// run times an operation, records its outcome and logs failures.
func (s *Service) run(ctx context.Context, op string, fn func() error) error {
	start := time.Now()
	err := fn()
	s.opts.metrics.Observe(ctx, op, err == nil, time.Since(start))
	if err != nil {
		s.opts.logger.Error().Err(err).Str("operation", op).Msg("operation failed")
		return err
	}
	s.opts.logger.Debug().Str("operation", op).Dur("took", time.Since(start)).Msg("operation completed")
	return nil
}

func (s *Service) publish(ds *domain.Dataset, report *domain.AnalysisReport) {
	s.dataset.Publish(ds)
	s.report.Publish(report)
	if obs, ok := s.opts.metrics.(ReportObserver); ok {
		obs.ObserveReport(report)
	}
}

// Submit parses a workbook and replaces the current dataset and report. A
// parse failure is returned as *workbook.ParseError and leaves the current
// state untouched.
func (s *Service) Submit(ctx context.Context, fileName string, r io.Reader) (*domain.Dataset, error) {
	ds, _, err := s.SubmitAnalysis(ctx, fileName, r)
	return ds, err
}

// SubmitAnalysis is Submit that also returns the report built from the
// submitted workbook. Unlike reading Report afterwards, the pair cannot mix
// with a concurrent submission. The report is shared and read-only.
func (s *Service) SubmitAnalysis(ctx context.Context, fileName string, r io.Reader) (*domain.Dataset, *domain.AnalysisReport, error) {
	var (
		result       *domain.Dataset
		resultReport *domain.AnalysisReport
	)
	err := s.run(ctx, "submit", func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.loading.Publish(true)
		defer s.loading.Publish(false)

		content, err := io.ReadAll(r)
		if err != nil {
			return &workbook.ParseError{Op: "read", Err: err}
		}
		wb, err := workbook.Open(bytes.NewReader(content))
		if err != nil {
			return err
		}
		defer func() { _ = wb.Close() }()

		now := s.opts.clock.Now()
		ds, err := workbook.Load(wb, s.opts.schema, fileName, now)
		if err != nil {
			return err
		}
		recs, err := s.records.load(ctx)
		if err != nil {
			s.opts.logger.Warn().Err(err).Msg("load user records")
		} else {
			recs.apply(ds)
		}
		ApplyExecutionState(ds, now)
		report, err := s.analyze(ctx, ds, now)
		if err != nil {
			return err
		}

		s.publish(ds, report)
		s.cache.Save(ctx, ds, report)
		if s.opts.archive != nil {
			if err := s.opts.archive.Store(ctx, ds.Metadata.SubmissionID, fileName, content); err != nil {
				s.opts.logger.Warn().Err(err).Str("submission", ds.Metadata.SubmissionID).Msg("archive workbook")
			}
		}
		s.opts.logger.Info().
			Str("submission", ds.Metadata.SubmissionID).
			Str("file", fileName).
			Int("records", ds.Metadata.TotalRecords).
			Int("products", len(ds.Products)).
			Msg("workbook loaded")
		result = ds.Clone()
		resultReport = report
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return result, resultReport, nil
}

// analyze builds the full report for ds without publishing it.
func (s *Service) analyze(ctx context.Context, ds *domain.Dataset, now time.Time) (*domain.AnalysisReport, error) {
	report := Analyze(ds)
	GenerateInsights(&report, now.Year())
	res, err := s.opts.rules.Evaluate(ctx, ds)
	if err != nil {
		return nil, fmt.Errorf("evaluate rules: %w", err)
	}
	report.Inconsistencies = append([]domain.Inconsistency{}, res.Findings...)
	return &report, nil
}

// SubscribeDataset calls fn with the current dataset now and on every change.
// The dataset is shared and must be treated as read-only.
func (s *Service) SubscribeDataset(fn func(*domain.Dataset)) (unsubscribe func()) {
	return s.dataset.Subscribe(fn)
}

// SubscribeReport calls fn with the current report now and on every change.
func (s *Service) SubscribeReport(fn func(*domain.AnalysisReport)) (unsubscribe func()) {
	return s.report.Subscribe(fn)
}

// SubscribeLoading calls fn with the loading flag now and on every change.
func (s *Service) SubscribeLoading(fn func(bool)) (unsubscribe func()) {
	return s.loading.Subscribe(fn)
}

// Dataset returns a copy of the current dataset, or nil.
func (s *Service) Dataset() *domain.Dataset {
	return s.dataset.Value().Clone()
}

// Report returns the current report, or nil. It is shared and read-only.
func (s *Service) Report() *domain.AnalysisReport {
	return s.report.Value()
}

// FilteredProducts returns copies of the products matching filter.
func (s *Service) FilteredProducts(filter domain.ProductFilter) []domain.InvestmentProduct {
	ds := s.dataset.Value()
	out := []domain.InvestmentProduct{}
	if ds == nil {
		return out
	}
	for i := range ds.Products {
		if filter.Match(&ds.Products[i]) {
			out = append(out, ds.Products[i].Clone())
		}
	}
	return out
}

// DistinctSectors lists the non-blank sectors in ascending order.
func (s *Service) DistinctSectors() []string {
	return s.distinct(func(p *domain.InvestmentProduct) string { return p.Sector })
}

// DistinctStrategicLines lists the non-blank strategic lines in ascending order.
func (s *Service) DistinctStrategicLines() []string {
	return s.distinct(func(p *domain.InvestmentProduct) string { return p.StrategicLine })
}

// DistinctAssignedDepartments lists the assigned departments in ascending order.
func (s *Service) DistinctAssignedDepartments() []string {
	return s.distinct(func(p *domain.InvestmentProduct) string { return p.AssignedDepartment })
}

func (s *Service) distinct(value func(*domain.InvestmentProduct) string) []string {
	out := []string{}
	ds := s.dataset.Value()
	if ds == nil {
		return out
	}
	seen := make(map[string]struct{})
	for i := range ds.Products {
		v := value(&ds.Products[i])
		if strings.TrimSpace(v) == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// CacheInfo describes the stored snapshot.
func (s *Service) CacheInfo(ctx context.Context) snapshot.Info {
	return s.cache.Info(ctx)
}

// Clear drops the current dataset and report and removes the snapshot. User
// records are kept.
func (s *Service) Clear(ctx context.Context) error {
	return s.run(ctx, "clear", func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.publish(nil, nil)
		return s.cache.Clear(ctx)
	})
}

// AssignDepartment records the department responsible for every product with
// the given indicator code. An empty department removes the assignment. It
// returns the number of loaded products updated.
func (s *Service) AssignDepartment(ctx context.Context, productCode, department string) (int, error) {
	productCode = strings.TrimSpace(productCode)
	department = strings.TrimSpace(department)
	if productCode == "" {
		return 0, ErrMissingProductCode
	}
	var updated int
	err := s.run(ctx, "assign_department", func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		recs, err := s.records.load(ctx)
		if err != nil {
			return err
		}
		if department == "" {
			delete(recs.Assignments, productCode)
		} else {
			recs.Assignments[productCode] = department
		}
		if err := s.records.saveAssignments(ctx, recs.Assignments); err != nil {
			return err
		}
		updated = s.republish(ctx, recs, productCode)
		return nil
	})
	return updated, err
}

// RecordProgress stores the executed value of a product for one fiscal year.
// It returns the number of loaded products updated.
func (s *Service) RecordProgress(ctx context.Context, productCode string, year int, executed float64, comment string) (int, error) {
	productCode = strings.TrimSpace(productCode)
	if productCode == "" {
		return 0, ErrMissingProductCode
	}
	if !domain.IsFiscalYear(year) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidYear, year)
	}
	var updated int
	err := s.run(ctx, "record_progress", func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		recs, err := s.records.load(ctx)
		if err != nil {
			return err
		}
		byYear := recs.Progress[productCode]
		if byYear == nil {
			byYear = make(map[int]domain.YearProgress)
			recs.Progress[productCode] = byYear
		}
		byYear[year] = domain.YearProgress{
			ExecutedValue: executed,
			Comment:       strings.TrimSpace(comment),
			RecordedAt:    s.opts.clock.Now().UTC(),
		}
		if err := s.records.saveProgress(ctx, recs.Progress); err != nil {
			return err
		}
		updated = s.republish(ctx, recs, productCode)
		return nil
	})
	return updated, err
}

// republish applies user records to a copy of the current dataset, publishes
// it with the unchanged report and refreshes the snapshot. Callers hold mu.
func (s *Service) republish(ctx context.Context, recs *userRecords, productCode string) int {
	current := s.dataset.Value()
	if current == nil {
		return 0
	}
	ds := current.Clone()
	recs.apply(ds)
	matched := 0
	for i := range ds.Products {
		if ds.Products[i].ProductIndicatorCode == productCode {
			matched++
		}
	}
	report := s.report.Value()
	s.publish(ds, report)
	if report != nil {
		s.cache.Save(ctx, ds, report)
	}
	return matched
}

// OpenSubmission returns an archived workbook. Without an archive every id is
// unknown. The caller closes the reader.
func (s *Service) OpenSubmission(ctx context.Context, submissionID string) (domain.Submission, io.ReadCloser, error) {
	if s.opts.archive == nil {
		return domain.Submission{}, nil, fmt.Errorf("submission %s: %w", submissionID, domain.ErrNotFound)
	}
	return s.opts.archive.Open(ctx, submissionID)
}

// Submissions lists archived workbooks; without an archive the list is empty.
func (s *Service) Submissions(ctx context.Context) ([]domain.Submission, error) {
	if s.opts.archive == nil {
		return []domain.Submission{}, nil
	}
	var out []domain.Submission
	err := s.run(ctx, "submissions", func() error {
		var err error
		out, err = s.opts.archive.List(ctx)
		return err
	})
	return out, err
}
