package core

import (
	"context"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"

	"pdmtracker/pkg/domain"
)

// Store keys of the user-entered records.
const (
	AssignmentsKey = "pdm_assignments"
	ProgressKey    = "pdm_progress"
)

// userRecords are the department assignments and yearly progress entered by
// users, keyed by product indicator code. They survive new submissions.
type userRecords struct {
	Assignments map[string]string
	Progress    map[string]map[int]domain.YearProgress
}

// apply overwrites the user-owned fields of every product. Status is not
// touched.
func (r *userRecords) apply(ds *domain.Dataset) {
	if ds == nil {
		return
	}
	for i := range ds.Products {
		p := &ds.Products[i]
		p.AssignedDepartment = r.Assignments[p.ProductIndicatorCode]
		byYear := r.Progress[p.ProductIndicatorCode]
		if len(byYear) == 0 {
			p.YearlyProgress = nil
			continue
		}
		p.YearlyProgress = make(map[int]domain.YearProgress, len(byYear))
		for year, rec := range byYear {
			p.YearlyProgress[year] = rec
		}
	}
}

type recordStore struct {
	store domain.KeyValueStore
}

func (s *recordStore) load(ctx context.Context) (*userRecords, error) {
	recs := &userRecords{
		Assignments: make(map[string]string),
		Progress:    make(map[string]map[int]domain.YearProgress),
	}
	if err := s.read(ctx, AssignmentsKey, &recs.Assignments); err != nil {
		return nil, err
	}
	if err := s.read(ctx, ProgressKey, &recs.Progress); err != nil {
		return nil, err
	}
	if recs.Assignments == nil {
		recs.Assignments = make(map[string]string)
	}
	if recs.Progress == nil {
		recs.Progress = make(map[string]map[int]domain.YearProgress)
	}
	return recs, nil
}

func (s *recordStore) read(ctx context.Context, key string, v any) error {
	raw, err := s.store.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *recordStore) write(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.store.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *recordStore) saveAssignments(ctx context.Context, assignments map[string]string) error {
	return s.write(ctx, AssignmentsKey, assignments)
}

func (s *recordStore) saveProgress(ctx context.Context, progress map[string]map[int]domain.YearProgress) error {
	return s.write(ctx, ProgressKey, progress)
}
