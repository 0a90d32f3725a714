package core

import (
	"time"

	"pdmtracker/pkg/domain"
)

// Completion thresholds on the execution ratio, evaluated in order.
const (
	thresholdFulfilled  = 100.0
	thresholdInProgress = 50.0
)

// CalculateState derives the execution ratio and status of a product for the
// given calendar year. Only years with a positive budget take part; programmed
// amounts of years after currentYear count towards the plan but not towards
// execution.
func CalculateState(p *domain.InvestmentProduct, currentYear int) {
	if p.TotalBudget() <= 0 {
		p.ExecutionRatio = 0
		p.Status = domain.StatusSinDefinir
		return
	}
	var programmed, executed float64
	for _, year := range domain.FiscalYears {
		if p.Budget(year) <= 0 {
			continue
		}
		amount := p.Programmed(year)
		programmed += amount
		if year <= currentYear {
			executed += amount
		}
	}
	ratio := 0.0
	if programmed > 0 {
		ratio = executed / programmed * 100
	}
	p.ExecutionRatio = ratio
	p.Status = statusFor(ratio)
}

func statusFor(ratio float64) domain.Status {
	switch {
	case ratio >= thresholdFulfilled:
		return domain.StatusCumplida
	case ratio >= thresholdInProgress:
		return domain.StatusEnProgreso
	case ratio > 0:
		return domain.StatusPendiente
	default:
		return domain.StatusPorCumplir
	}
}

// ApplyExecutionState recalculates every product of the dataset in place.
func ApplyExecutionState(ds *domain.Dataset, now time.Time) {
	if ds == nil {
		return
	}
	year := now.Year()
	for i := range ds.Products {
		CalculateState(&ds.Products[i], year)
	}
}
