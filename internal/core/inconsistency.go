package core

import (
	"context"
	"strings"

	"pdmtracker/pkg/domain"
)

// NewInconsistencyEngine builds a rules engine with the built-in structural checks.
func NewInconsistencyEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewMissingSectorRule())
	engine.Register(NewMissingStrategicLineRule())
	engine.Register(NewUnprogrammedRule())
	engine.Register(NewProgrammedWithoutBudgetRule())
	return engine
}

// productCountRule counts products matching a predicate and reports one
// finding when the count is positive.
type productCountRule struct {
	name        string
	kind        string
	description string
	match       func(*domain.InvestmentProduct) bool
}

func (r productCountRule) Name() string { return r.name }

func (r productCountRule) Evaluate(_ context.Context, ds *domain.Dataset) (domain.Result, error) {
	count := 0
	for i := range ds.Products {
		if r.match(&ds.Products[i]) {
			count++
		}
	}
	res := domain.Result{}
	if count > 0 {
		res.Findings = append(res.Findings, domain.Inconsistency{Type: r.kind, Description: r.description, Count: count})
	}
	return res, nil
}

// NewMissingSectorRule flags products without a sector.
func NewMissingSectorRule() domain.Rule {
	return productCountRule{
		name:        "missing_sector",
		kind:        "Productos sin sector definido",
		description: "Existen productos sin sector asignado",
		match:       func(p *domain.InvestmentProduct) bool { return strings.TrimSpace(p.Sector) == "" },
	}
}

// NewMissingStrategicLineRule flags products without a strategic line.
func NewMissingStrategicLineRule() domain.Rule {
	return productCountRule{
		name:        "missing_strategic_line",
		kind:        "Productos sin línea estratégica",
		description: "Existen productos sin línea estratégica asignada",
		match:       func(p *domain.InvestmentProduct) bool { return strings.TrimSpace(p.StrategicLine) == "" },
	}
}

// NewUnprogrammedRule flags products with nothing programmed in any year.
func NewUnprogrammedRule() domain.Rule {
	return productCountRule{
		name:        "unprogrammed",
		kind:        "Productos sin programación",
		description: "Existen productos sin programación para ningún año del cuatrienio",
		match: func(p *domain.InvestmentProduct) bool {
			for _, year := range domain.FiscalYears {
				if p.Programmed(year) != 0 {
					return false
				}
			}
			return true
		},
	}
}

// NewProgrammedWithoutBudgetRule flags products programmed in some year but
// without budget in any.
func NewProgrammedWithoutBudgetRule() domain.Rule {
	return productCountRule{
		name:        "programmed_without_budget",
		kind:        "Productos programados sin presupuesto",
		description: "Existen productos con programación pero sin presupuesto asignado",
		match: func(p *domain.InvestmentProduct) bool {
			programmed := false
			for _, year := range domain.FiscalYears {
				if p.Budget(year) != 0 {
					return false
				}
				if p.Programmed(year) != 0 {
					programmed = true
				}
			}
			return programmed
		},
	}
}
