package core

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"pdmtracker/pkg/domain"
)

// Fallback group labels for products with a blank grouping key.
const (
	NoSectorLabel = "Sin sector"
	NoLineLabel   = "Sin línea"
	NoGoalLabel   = "Sin ODS"
)

// Analyze folds a state-calculated dataset into an AnalysisReport. Narrative
// sections and inconsistencies are left empty; see GenerateInsights and the
// inconsistency rules.
func Analyze(ds *domain.Dataset) domain.AnalysisReport {
	if ds == nil {
		ds = &domain.Dataset{}
	}
	budgeted := budgetedProducts(ds.Products)
	return domain.AnalysisReport{
		General:          generalIndicators(budgeted),
		ByYear:           yearBreakdown(ds.Products, budgeted),
		BySector:         sectorBreakdown(budgeted),
		ByStrategicLine:  lineBreakdown(budgeted),
		ByGoal:           goalBreakdown(budgeted),
		SGR:              analyzeSGR(ds.SGRInitiatives),
		ResultIndicators: analyzeResultIndicators(ds.ResultIndicators),
		Funding:          analyzeFunding(ds.Products, ds.SGRProducts),
		Trends:           []domain.Trend{},
		Recommendations:  []string{},
		Alerts:           []string{},
		Inconsistencies:  []domain.Inconsistency{},
	}
}

func budgetedProducts(products []domain.InvestmentProduct) []*domain.InvestmentProduct {
	out := make([]*domain.InvestmentProduct, 0, len(products))
	for i := range products {
		if products[i].TotalBudget() > 0 {
			out = append(out, &products[i])
		}
	}
	return out
}

// percentage returns part/whole*100, or 0 for an empty whole.
func percentage(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return part / whole * 100
}

func sumOf(values ...float64) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total
}

func generalIndicators(budgeted []*domain.InvestmentProduct) domain.GeneralIndicators {
	g := domain.GeneralIndicators{TotalItems: len(budgeted)}
	for _, p := range budgeted {
		switch p.Status {
		case domain.StatusCumplida:
			g.Fulfilled++
		case domain.StatusEnProgreso:
			g.InProgress++
		case domain.StatusPorCumplir:
			g.NotStarted++
		case domain.StatusPendiente:
			g.Pending++
		}
	}
	g.CompletionPercentage = percentage(float64(g.Fulfilled), float64(g.TotalItems))
	return g
}

func yearBreakdown(all []domain.InvestmentProduct, budgeted []*domain.InvestmentProduct) []domain.YearBreakdown {
	out := make([]domain.YearBreakdown, 0, len(domain.FiscalYears))
	for _, year := range domain.FiscalYears {
		row := domain.YearBreakdown{Year: year}
		for _, p := range budgeted {
			if p.Budget(year) <= 0 {
				continue
			}
			row.TotalItems++
			if p.Status == domain.StatusCumplida {
				row.CompletedItems++
			}
		}
		total := decimal.Zero
		for i := range all {
			total = total.Add(decimal.NewFromFloat(all[i].Budget(year)))
		}
		row.TotalBudget = total.InexactFloat64()
		row.CompletionPercentage = percentage(float64(row.CompletedItems), float64(row.TotalItems))
		out = append(out, row)
	}
	return out
}

// group accumulates one dimension value in first-seen order.
type group struct {
	key       string
	label     string
	items     int
	completed int
	budget    decimal.Decimal
}

func (g *group) percentage() float64 {
	return percentage(float64(g.completed), float64(g.items))
}

// groupBy buckets budgeted products by key, substituting fallback for blank keys.
func groupBy(budgeted []*domain.InvestmentProduct, key func(*domain.InvestmentProduct) string, label func(*domain.InvestmentProduct) string, fallback string) []*group {
	index := make(map[string]*group)
	var order []*group
	for _, p := range budgeted {
		k := strings.TrimSpace(key(p))
		if k == "" {
			k = fallback
		}
		g, ok := index[k]
		if !ok {
			g = &group{key: k, budget: decimal.Zero}
			if label != nil {
				g.label = strings.TrimSpace(label(p))
			}
			index[k] = g
			order = append(order, g)
		}
		g.items++
		if p.Status == domain.StatusCumplida {
			g.completed++
		}
		g.budget = g.budget.Add(sumOf(p.Budget2024, p.Budget2025, p.Budget2026, p.Budget2027))
	}
	return order
}

func sectorBreakdown(budgeted []*domain.InvestmentProduct) []domain.SectorBreakdown {
	groups := groupBy(budgeted, func(p *domain.InvestmentProduct) string { return p.Sector }, nil, NoSectorLabel)
	out := make([]domain.SectorBreakdown, 0, len(groups))
	for _, g := range groups {
		out = append(out, domain.SectorBreakdown{
			Sector:               g.key,
			TotalItems:           g.items,
			CompletedItems:       g.completed,
			CompletionPercentage: g.percentage(),
			TotalBudget:          g.budget.InexactFloat64(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CompletionPercentage > out[j].CompletionPercentage })
	return out
}

func lineBreakdown(budgeted []*domain.InvestmentProduct) []domain.LineBreakdown {
	groups := groupBy(budgeted, func(p *domain.InvestmentProduct) string { return p.StrategicLine }, nil, NoLineLabel)
	out := make([]domain.LineBreakdown, 0, len(groups))
	for _, g := range groups {
		out = append(out, domain.LineBreakdown{
			StrategicLine:        g.key,
			TotalItems:           g.items,
			CompletedItems:       g.completed,
			CompletionPercentage: g.percentage(),
			TotalBudget:          g.budget.InexactFloat64(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CompletionPercentage > out[j].CompletionPercentage })
	return out
}

func goalBreakdown(budgeted []*domain.InvestmentProduct) []domain.GoalBreakdown {
	groups := groupBy(budgeted,
		func(p *domain.InvestmentProduct) string { return p.GoalCode },
		func(p *domain.InvestmentProduct) string { return p.Goal },
		NoGoalLabel)
	out := make([]domain.GoalBreakdown, 0, len(groups))
	for _, g := range groups {
		out = append(out, domain.GoalBreakdown{
			GoalCode:             g.key,
			GoalName:             g.label,
			TotalItems:           g.items,
			CompletedItems:       g.completed,
			CompletionPercentage: g.percentage(),
			TotalBudget:          g.budget.InexactFloat64(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalItems > out[j].TotalItems })
	return out
}

func analyzeSGR(initiatives []domain.SGRInitiative) domain.SGRAnalysis {
	out := domain.SGRAnalysis{
		TotalInitiatives: len(initiatives),
		BySector:         []domain.SGRSectorResources{},
	}
	total := decimal.Zero
	index := make(map[string]int)
	sectorTotals := []decimal.Decimal{}
	for _, in := range initiatives {
		amount := decimal.NewFromFloat(in.Resources)
		total = total.Add(amount)
		sector := strings.TrimSpace(in.Sector)
		if sector == "" {
			sector = NoSectorLabel
		}
		i, ok := index[sector]
		if !ok {
			i = len(out.BySector)
			index[sector] = i
			out.BySector = append(out.BySector, domain.SGRSectorResources{Sector: sector})
			sectorTotals = append(sectorTotals, decimal.Zero)
		}
		sectorTotals[i] = sectorTotals[i].Add(amount)
		out.BySector[i].Initiatives++
		if strings.TrimSpace(in.BPIN) != "" {
			out.WithBPIN++
		} else {
			out.WithoutBPIN++
		}
	}
	for i := range out.BySector {
		out.BySector[i].Resources = sectorTotals[i].InexactFloat64()
	}
	out.TotalResources = total.InexactFloat64()
	sort.SliceStable(out.BySector, func(i, j int) bool { return out.BySector[i].Resources > out.BySector[j].Resources })
	return out
}

func analyzeResultIndicators(indicators []domain.ResultIndicator) domain.ResultIndicatorAnalysis {
	out := domain.ResultIndicatorAnalysis{
		Total:           len(indicators),
		ByLine:          []domain.IndicatorsByLine{},
		Transformations: []domain.TransformationCount{},
	}
	lines := make(map[string]int)
	goals := []decimal.Decimal{}
	transformations := make(map[string]int)
	for _, ind := range indicators {
		inPlan := strings.EqualFold(strings.TrimSpace(ind.InNationalPlan), "si")
		if inPlan {
			out.InNationalPlan++
		}
		line := strings.TrimSpace(ind.StrategicLine)
		if line == "" {
			line = NoLineLabel
		}
		i, ok := lines[line]
		if !ok {
			i = len(out.ByLine)
			lines[line] = i
			out.ByLine = append(out.ByLine, domain.IndicatorsByLine{StrategicLine: line})
			goals = append(goals, decimal.Zero)
		}
		out.ByLine[i].Total++
		if inPlan {
			out.ByLine[i].InNationalPlan++
		}
		goals[i] = goals[i].Add(decimal.NewFromFloat(ind.FourYearGoal))

		if tr := strings.TrimSpace(ind.PNDTransformation); tr != "" {
			j, ok := transformations[tr]
			if !ok {
				j = len(out.Transformations)
				transformations[tr] = j
				out.Transformations = append(out.Transformations, domain.TransformationCount{Transformation: tr})
			}
			out.Transformations[j].Indicators++
		}
	}
	for i := range out.ByLine {
		out.ByLine[i].GoalTotal = goals[i].InexactFloat64()
	}
	out.OutsideNationalPlan = out.Total - out.InNationalPlan
	out.AlignmentPercentage = percentage(float64(out.InNationalPlan), float64(out.Total))
	sort.SliceStable(out.ByLine, func(i, j int) bool { return out.ByLine[i].Total > out.ByLine[j].Total })
	sort.SliceStable(out.Transformations, func(i, j int) bool {
		return out.Transformations[i].Indicators > out.Transformations[j].Indicators
	})
	return out
}
