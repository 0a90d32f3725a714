package domain

import "context"

// Rule evaluates a structural check over a full dataset.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, dataset *Dataset) (Result, error)
}

// Result aggregates the findings produced by one or more rules.
type Result struct {
	Findings []Inconsistency
}

// Merge appends findings from another result.
func (r *Result) Merge(other Result) {
	if len(other.Findings) == 0 {
		return
	}
	r.Findings = append(r.Findings, other.Findings...)
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine instance.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Rules returns the registered rule names in evaluation order.
func (e *RulesEngine) Rules() []string {
	names := make([]string, 0, len(e.rules))
	for _, rule := range e.rules {
		names = append(names, rule.Name())
	}
	return names
}

// Evaluate executes all registered rules in registration order and aggregates their results.
func (e *RulesEngine) Evaluate(ctx context.Context, dataset *Dataset) (Result, error) {
	var combined Result
	if dataset == nil {
		return combined, nil
	}
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, dataset)
		if err != nil {
			return Result{}, err
		}
		combined.Merge(res)
	}
	return combined, nil
}
