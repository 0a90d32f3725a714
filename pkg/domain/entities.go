// Package domain defines the development-plan records, derived report shapes
// and the storage and rule primitives used by pdmtracker.
package domain

import "time"

// Status is the categorical execution state derived for an investment product.
type Status string

// Execution statuses. Values match the wire format consumed by the dashboard.
const (
	// StatusCumplida marks a product whose executed share reached 100%.
	StatusCumplida Status = "cumplida"
	// StatusEnProgreso marks a product at or above 50%.
	StatusEnProgreso Status = "en_progreso"
	// StatusPorCumplir marks a budgeted product with nothing executed yet.
	StatusPorCumplir Status = "por_cumplir"
	// StatusPendiente marks a product with some execution below 50%.
	StatusPendiente Status = "pendiente"
	// StatusSinDefinir marks a product without any budget attached.
	StatusSinDefinir Status = "sin_definir"
)

// Statuses lists every status in evaluation order.
var Statuses = []Status{StatusCumplida, StatusEnProgreso, StatusPendiente, StatusPorCumplir, StatusSinDefinir}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// FiscalYears are the four years of the plan period.
var FiscalYears = [4]int{2024, 2025, 2026, 2027}

// IsFiscalYear reports whether year belongs to the plan period.
func IsFiscalYear(year int) bool {
	for _, y := range FiscalYears {
		if y == year {
			return true
		}
	}
	return false
}

// StrategicLine is one row of the strategic-lines sheet.
type StrategicLine struct {
	DaneCode      string `json:"codigoDane"`
	Entity        string `json:"entidadTerritorial"`
	PlanName      string `json:"nombrePlan"`
	Sequence      string `json:"consecutivo"`
	StrategicLine string `json:"lineaEstrategica"`
}

// ResultIndicator is one row of the result-indicators sheet.
type ResultIndicator struct {
	DaneCode          string  `json:"codigoDane"`
	Entity            string  `json:"entidadTerritorial"`
	PlanName          string  `json:"nombrePlan"`
	Sequence          string  `json:"consecutivo"`
	StrategicLine     string  `json:"lineaEstrategica"`
	Indicator         string  `json:"indicadorResultado"`
	InNationalPlan    string  `json:"estaEnPND"`
	FourYearGoal      float64 `json:"metaCuatrienio"`
	PNDTransformation string  `json:"transformacionPND"`
}

// YearProgress is a user-entered execution record for one fiscal year.
type YearProgress struct {
	ExecutedValue float64   `json:"valor"`
	Comment       string    `json:"comentario,omitempty"`
	RecordedAt    time.Time `json:"registradoEn"`
}

// InvestmentProduct is one commitment of the indicative plan. The product
// indicator code is its natural key; duplicates are kept as separate records.
type InvestmentProduct struct {
	DaneCode             string  `json:"codigoDane"`
	Entity               string  `json:"entidadTerritorial"`
	PlanName             string  `json:"nombrePlan"`
	IndicatorCode        string  `json:"codigoIndicador"`
	StrategicLine        string  `json:"lineaEstrategica"`
	SectorCode           string  `json:"codigoSector"`
	Sector               string  `json:"sector"`
	ProgramCode          string  `json:"codigoPrograma"`
	Program              string  `json:"programa"`
	ProductCode          string  `json:"codigoProducto"`
	Product              string  `json:"producto"`
	ProductIndicatorCode string  `json:"codigoIndicadorProducto"`
	ProductIndicator     string  `json:"indicadorProducto"`
	Customization        string  `json:"personalizacion"`
	Unit                 string  `json:"unidadMedida"`
	FourYearGoal         float64 `json:"metaCuatrienio"`
	Principal            string  `json:"principal"`
	GoalCode             string  `json:"codigoODS"`
	Goal                 string  `json:"ods"`
	AccumulationType     string  `json:"tipoAcumulacion"`
	Programmed2024       float64 `json:"programacion2024"`
	Programmed2025       float64 `json:"programacion2025"`
	Programmed2026       float64 `json:"programacion2026"`
	Programmed2027       float64 `json:"programacion2027"`
	Budget2024           float64 `json:"total2024"`
	Budget2025           float64 `json:"total2025"`
	Budget2026           float64 `json:"total2026"`
	Budget2027           float64 `json:"total2027"`
	BPIN                 string  `json:"bpin,omitempty"`

	ExecutionRatio     float64              `json:"avance"`
	Status             Status               `json:"estado,omitempty"`
	AssignedDepartment string               `json:"secretariaAsignada,omitempty"`
	YearlyProgress     map[int]YearProgress `json:"avances,omitempty"`
}

// Programmed returns the programmed amount for a fiscal year, zero outside the period.
func (p *InvestmentProduct) Programmed(year int) float64 {
	switch year {
	case 2024:
		return p.Programmed2024
	case 2025:
		return p.Programmed2025
	case 2026:
		return p.Programmed2026
	case 2027:
		return p.Programmed2027
	}
	return 0
}

// Budget returns the budget total for a fiscal year, zero outside the period.
func (p *InvestmentProduct) Budget(year int) float64 {
	switch year {
	case 2024:
		return p.Budget2024
	case 2025:
		return p.Budget2025
	case 2026:
		return p.Budget2026
	case 2027:
		return p.Budget2027
	}
	return 0
}

// TotalBudget sums the four yearly budget totals.
func (p *InvestmentProduct) TotalBudget() float64 {
	return p.Budget2024 + p.Budget2025 + p.Budget2026 + p.Budget2027
}

// HasBPIN reports whether the product carries an external budget-tracking code.
func (p *InvestmentProduct) HasBPIN() bool {
	return !isBlank(p.BPIN)
}

// SGRInitiative is one row of the royalty-initiatives sheet.
type SGRInitiative struct {
	DaneCode       string  `json:"codigoDane"`
	Entity         string  `json:"entidadTerritorial"`
	PlanName       string  `json:"nombrePlan"`
	Sequence       string  `json:"consecutivo"`
	StrategicLine  string  `json:"lineaEstrategica"`
	InitiativeType string  `json:"tipoIniciativa"`
	Sector         string  `json:"sector"`
	Initiative     string  `json:"iniciativaSGR"`
	Resources      float64 `json:"recursosSGR"`
	BPIN           string  `json:"bpin,omitempty"`
}

// SGRInvestmentProduct is one row of the royalty-funded indicative plan. Amounts
// are per biennium.
type SGRInvestmentProduct struct {
	DaneCode             string  `json:"codigoDane"`
	Entity               string  `json:"entidadTerritorial"`
	PlanName             string  `json:"nombrePlan"`
	IndicatorCode        string  `json:"codigoIndicador"`
	Initiative           string  `json:"iniciativaSGR"`
	SectorCode           string  `json:"codigoSector"`
	Sector               string  `json:"sector"`
	ProgramCode          string  `json:"codigoPrograma"`
	Program              string  `json:"programa"`
	ProductCode          string  `json:"codigoProducto"`
	Product              string  `json:"producto"`
	ProductIndicatorCode string  `json:"codigoIndicadorProducto"`
	ProductIndicator     string  `json:"indicadorProducto"`
	Customization        string  `json:"personalizacion"`
	Unit                 string  `json:"unidadMedida"`
	FourYearGoal         float64 `json:"metaCuatrienio"`
	Principal            string  `json:"principal"`
	GoalCode             string  `json:"codigoODS"`
	Goal                 string  `json:"ods"`
	AccumulationType     string  `json:"tipoAcumulacion"`
	CoFinanced           string  `json:"cofinanciado"`
	Programmed2324       float64 `json:"programacion20232024"`
	Programmed2526       float64 `json:"programacion20252026"`
	Programmed2728       float64 `json:"programacion20272028"`
	Resources2324        float64 `json:"recursosSGR20232024"`
	Resources2526        float64 `json:"recursosSGR20252026"`
	Resources2728        float64 `json:"recursosSGR20272028"`
	BPIN                 string  `json:"bpin,omitempty"`
}

// TotalResources sums the three biennium allocations.
func (p *SGRInvestmentProduct) TotalResources() float64 {
	return p.Resources2324 + p.Resources2526 + p.Resources2728
}

// Metadata describes one workbook submission.
type Metadata struct {
	SubmissionID  string    `json:"idCarga"`
	FileName      string    `json:"nombreArchivo"`
	LoadedAt      time.Time `json:"fechaCarga"`
	TotalRecords  int       `json:"totalRegistros"`
	SchemaVersion string    `json:"versionEsquema"`
}

// Dataset is the normalized content of one workbook.
type Dataset struct {
	StrategicLines   []StrategicLine        `json:"lineasEstrategicas"`
	ResultIndicators []ResultIndicator      `json:"indicadoresResultado"`
	Products         []InvestmentProduct    `json:"planIndicativoProductos"`
	SGRInitiatives   []SGRInitiative        `json:"iniciativasSGR"`
	SGRProducts      []SGRInvestmentProduct `json:"planIndicativoSGR"`
	Metadata         Metadata               `json:"metadata"`
}

// CountRecords returns the number of records across the five lists.
func (d *Dataset) CountRecords() int {
	return len(d.StrategicLines) + len(d.ResultIndicators) + len(d.Products) + len(d.SGRInitiatives) + len(d.SGRProducts)
}

// Clone returns a deep copy so callers can hand out datasets without sharing
// mutable product state.
func (d *Dataset) Clone() *Dataset {
	if d == nil {
		return nil
	}
	out := *d
	out.StrategicLines = append([]StrategicLine(nil), d.StrategicLines...)
	out.ResultIndicators = append([]ResultIndicator(nil), d.ResultIndicators...)
	out.SGRInitiatives = append([]SGRInitiative(nil), d.SGRInitiatives...)
	out.SGRProducts = append([]SGRInvestmentProduct(nil), d.SGRProducts...)
	out.Products = make([]InvestmentProduct, len(d.Products))
	for i := range d.Products {
		out.Products[i] = d.Products[i].Clone()
	}
	return &out
}

// Clone returns a copy of the product with its own progress map.
func (p InvestmentProduct) Clone() InvestmentProduct {
	if p.YearlyProgress != nil {
		progress := make(map[int]YearProgress, len(p.YearlyProgress))
		for year, rec := range p.YearlyProgress {
			progress[year] = rec
		}
		p.YearlyProgress = progress
	}
	return p
}
