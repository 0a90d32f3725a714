// Package report renders a dataset and its analysis as a markdown summary.
package report

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xeonx/timeago"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"pdmtracker/pkg/domain"
)

const day = 24 * time.Hour

// Spanish formats ages the way the dashboard words them.
var Spanish = timeago.Config{
	PastPrefix:   "hace ",
	FuturePrefix: "dentro de ",
	Periods: []timeago.FormatPeriod{
		{D: time.Second, One: "un segundo", Many: "%d segundos"},
		{D: time.Minute, One: "un minuto", Many: "%d minutos"},
		{D: time.Hour, One: "una hora", Many: "%d horas"},
		{D: day, One: "un día", Many: "%d días"},
		{D: 30 * day, One: "un mes", Many: "%d meses"},
		{D: 365 * day, One: "un año", Many: "%d años"},
	},
	Zero:          "un momento",
	Max:           365 * day,
	DefaultLayout: "02/01/2006",
}

// summary accumulates markdown lines with a locale-aware printer.
type summary struct {
	p *message.Printer
	b strings.Builder
}

func (s *summary) line(format string, args ...any) {
	s.b.WriteString(s.p.Sprintf(format, args...))
	s.b.WriteByte('\n')
}

func money(v float64) int64 { return int64(math.Round(v)) }

// Summary returns a markdown description of ds and r as of now.
func Summary(ds *domain.Dataset, r *domain.AnalysisReport, now time.Time) string {
	s := &summary{p: message.NewPrinter(language.Spanish)}
	if ds == nil || r == nil {
		s.line("# Plan de desarrollo")
		s.line("")
		s.line("No hay datos cargados.")
		return s.b.String()
	}

	title := ds.Metadata.FileName
	if len(ds.Products) > 0 && strings.TrimSpace(ds.Products[0].PlanName) != "" {
		title = ds.Products[0].PlanName
	}
	s.line("# %s", title)
	s.line("")
	s.line("## Carga")
	s.line("")
	s.line("  * Archivo: %s", ds.Metadata.FileName)
	s.line("  * Identificador: %s", ds.Metadata.SubmissionID)
	s.line("  * Registros: %d", ds.Metadata.TotalRecords)
	if !ds.Metadata.LoadedAt.IsZero() {
		s.line("  * Cargado: %s (%s)", Spanish.FormatReference(ds.Metadata.LoadedAt, now), ds.Metadata.LoadedAt.Local().Format("02/01/2006 15:04"))
	}
	s.line("")

	g := r.General
	s.line("## Indicadores generales")
	s.line("")
	s.line("  * Metas con presupuesto: %d", g.TotalItems)
	s.line("  * Cumplidas: %d", g.Fulfilled)
	s.line("  * En progreso: %d", g.InProgress)
	s.line("  * Pendientes: %d", g.Pending)
	s.line("  * Por cumplir: %d", g.NotStarted)
	s.line("  * Cumplimiento: %.1f%%", g.CompletionPercentage)
	s.line("")

	s.line("## Por año")
	s.line("")
	s.line("| Año | Metas | Cumplidas | Cumplimiento | Presupuesto |")
	s.line("|---|---:|---:|---:|---:|")
	for _, y := range r.ByYear {
		s.line("| %s | %d | %d | %.1f%% | $%d |", strconv.Itoa(y.Year), y.TotalItems, y.CompletedItems, y.CompletionPercentage, money(y.TotalBudget))
	}
	s.line("")

	if len(r.BySector) > 0 {
		s.line("## Por sector")
		s.line("")
		s.line("| Sector | Metas | Cumplimiento | Presupuesto |")
		s.line("|---|---:|---:|---:|")
		for _, sec := range r.BySector {
			s.line("| %s | %d | %.1f%% | $%d |", sec.Sector, sec.TotalItems, sec.CompletionPercentage, money(sec.TotalBudget))
		}
		s.line("")
	}

	f := r.Funding
	s.line("## Fuentes de financiación")
	s.line("")
	s.line("  * Recursos ordinarios: $%d (%.1f%%)", money(f.OrdinaryTotal), f.OrdinaryPercentage)
	s.line("  * Sistema General de Regalías: $%d (%.1f%%)", money(f.SGRTotal), f.SGRPercentage)
	s.line("  * Iniciativas SGR: %d, con BPIN %d", r.SGR.TotalInitiatives, r.SGR.WithBPIN)
	s.line("")

	bullets := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		s.line("## %s", title)
		s.line("")
		for _, it := range items {
			s.b.WriteString("  * ")
			s.b.WriteString(it)
			s.b.WriteByte('\n')
		}
		s.line("")
	}
	trends := make([]string, 0, len(r.Trends))
	for _, t := range r.Trends {
		trends = append(trends, t.Description)
	}
	bullets("Tendencias", trends)
	bullets("Recomendaciones", r.Recommendations)
	bullets("Alertas", r.Alerts)

	if len(r.Inconsistencies) > 0 {
		s.line("## Inconsistencias")
		s.line("")
		for _, inc := range r.Inconsistencies {
			s.line("  * %s: %d", inc.Type, inc.Count)
		}
	}
	return s.b.String()
}
