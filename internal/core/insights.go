package core

import (
	"fmt"
	"math"
	"strings"

	"pdmtracker/pkg/domain"
)

// Insight thresholds, in completion percentage points.
const (
	lowOverallThreshold     = 50.0
	weakSectorThreshold     = 50.0
	lowSectorThreshold      = 40.0
	criticalLineThreshold   = 30.0
	strongSectorThreshold   = 70.0
	criticalSectorThreshold = 25.0
	pastYearThreshold       = 50.0
)

// GenerateInsights fills the trend, recommendation and alert sections of the
// report. Past-year alerts consider fiscal years before currentYear. Products
// without a sector stay in the breakdown but never name a sector insight.
func GenerateInsights(report *domain.AnalysisReport, currentYear int) {
	sectors := namedSectors(report.BySector)
	report.Trends = trends(report.ByYear, sectors)
	report.Recommendations = recommendations(report.General.CompletionPercentage, sectors, report.ByStrategicLine)
	report.Alerts = alerts(sectors, report.ByYear, currentYear)
}

// namedSectors drops the NoSectorLabel bucket, keeping the ranking order.
func namedSectors(sectors []domain.SectorBreakdown) []domain.SectorBreakdown {
	out := make([]domain.SectorBreakdown, 0, len(sectors))
	for _, s := range sectors {
		if s.Sector != NoSectorLabel {
			out = append(out, s)
		}
	}
	return out
}

func trends(years []domain.YearBreakdown, sectors []domain.SectorBreakdown) []domain.Trend {
	out := []domain.Trend{}
	if len(years) > 1 {
		var delta float64
		for i := 1; i < len(years); i++ {
			delta += years[i].CompletionPercentage - years[i-1].CompletionPercentage
		}
		mean := delta / float64(len(years)-1)
		switch {
		case delta > 0:
			out = append(out, domain.Trend{
				Description: fmt.Sprintf("Se observa una tendencia positiva en el cumplimiento de metas a lo largo del cuatrienio, con un incremento promedio de %.1f%% anual.", mean),
				Kind:        domain.TrendPositive,
			})
		case delta < 0:
			out = append(out, domain.Trend{
				Description: fmt.Sprintf("Se identifica una tendencia negativa en el cumplimiento, con una disminución promedio de %.1f%% anual.", math.Abs(mean)),
				Kind:        domain.TrendNegative,
			})
		}
	}
	if len(sectors) > 0 {
		best := sectors[0]
		out = append(out, domain.Trend{
			Description: fmt.Sprintf("El sector \"%s\" presenta el mejor desempeño con un %.1f%% de cumplimiento.", best.Sector, best.CompletionPercentage),
			Kind:        domain.TrendPositive,
		})
		worst := sectors[len(sectors)-1]
		if worst.CompletionPercentage < weakSectorThreshold {
			out = append(out, domain.Trend{
				Description: fmt.Sprintf("El sector \"%s\" requiere atención especial, con solo un %.1f%% de cumplimiento.", worst.Sector, worst.CompletionPercentage),
				Kind:        domain.TrendNegative,
			})
		}
	}
	return out
}

func recommendations(overall float64, sectors []domain.SectorBreakdown, lines []domain.LineBreakdown) []string {
	out := []string{}
	if overall < lowOverallThreshold {
		out = append(out, "El porcentaje de cumplimiento general es bajo. Se recomienda realizar una evaluación exhaustiva de los factores que están impidiendo el avance de las metas programadas.")
	}

	var low []string
	strong := 0
	for _, s := range sectors {
		if s.CompletionPercentage < lowSectorThreshold {
			low = append(low, s.Sector)
		}
		if s.CompletionPercentage >= strongSectorThreshold {
			strong++
		}
	}
	if len(low) > 0 {
		out = append(out, fmt.Sprintf("Se identificaron %d sector(es) con cumplimiento inferior al 40%%. Se sugiere priorizar recursos y atención en: %s.", len(low), strings.Join(low, ", ")))
	}
	for _, l := range lines {
		if l.CompletionPercentage < criticalLineThreshold {
			out = append(out, "Existen líneas estratégicas con avance crítico. Se recomienda reevaluar la viabilidad y pertinencia de las metas asociadas.")
			break
		}
	}
	if strong > 0 {
		out = append(out, fmt.Sprintf("Se destacan %d sector(es) con cumplimiento superior al 70%%. Se sugiere documentar las buenas prácticas implementadas para replicarlas en otros sectores.", strong))
	}
	return out
}

func alerts(sectors []domain.SectorBreakdown, years []domain.YearBreakdown, currentYear int) []string {
	out := []string{}
	for _, s := range sectors {
		if s.CompletionPercentage < criticalSectorThreshold {
			out = append(out, fmt.Sprintf("⚠️ CRÍTICO: El sector \"%s\" presenta un cumplimiento del %.1f%%. Se requiere intervención inmediata.", s.Sector, s.CompletionPercentage))
		}
	}
	for _, y := range years {
		if y.Year < currentYear && y.CompletionPercentage < pastYearThreshold {
			out = append(out, fmt.Sprintf("⚠️ El año %d cerró con un cumplimiento del %.1f%%. Esto puede comprometer las metas del cuatrienio.", y.Year, y.CompletionPercentage))
		}
	}
	return out
}
