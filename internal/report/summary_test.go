package report

import (
	"strings"
	"testing"
	"time"

	"pdmtracker/pkg/domain"
)

func TestSummary(t *testing.T) {
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	ds := &domain.Dataset{
		Products: []domain.InvestmentProduct{{PlanName: "Plan Municipal 2024-2027"}},
		Metadata: domain.Metadata{SubmissionID: "abc", FileName: "plan.xlsx", TotalRecords: 12, LoadedAt: now.Add(-2 * time.Hour)},
	}
	r := &domain.AnalysisReport{
		General:  domain.GeneralIndicators{TotalItems: 4, Fulfilled: 2, CompletionPercentage: 50},
		ByYear:   []domain.YearBreakdown{{Year: 2024, TotalItems: 3, CompletedItems: 2, TotalBudget: 1234567}},
		BySector: []domain.SectorBreakdown{{Sector: "Salud", TotalItems: 1}},
		Trends:   []domain.Trend{{Description: "El sector \"Salud\" presenta el mejor desempeño con un 100.0% de cumplimiento."}},
		Alerts:   []string{"⚠️ alerta"},
		Inconsistencies: []domain.Inconsistency{
			{Type: "Productos sin sector definido", Count: 3},
		},
	}
	out := Summary(ds, r, now)
	for _, want := range []string{
		"# Plan Municipal 2024-2027",
		"hace 2 horas",
		"| 2024 | 3 | 2 |",
		"$1.234.567",
		"## Por sector",
		"El sector \"Salud\" presenta el mejor desempeño con un 100.0% de cumplimiento.",
		"## Alertas",
		"  * Productos sin sector definido: 3",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "## Recomendaciones") {
		t.Fatalf("empty sections must be omitted:\n%s", out)
	}
}

func TestSummaryWithoutData(t *testing.T) {
	out := Summary(nil, nil, time.Now())
	if !strings.Contains(out, "No hay datos cargados.") {
		t.Fatalf("unexpected summary %q", out)
	}
}
