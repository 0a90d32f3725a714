package domain

// GeneralIndicators counts the budgeted products by status.
type GeneralIndicators struct {
	TotalItems           int     `json:"totalMetas"`
	Fulfilled            int     `json:"metasCumplidas"`
	InProgress           int     `json:"metasEnProgreso"`
	NotStarted           int     `json:"metasPorCumplir"`
	Pending              int     `json:"metasPendientes"`
	CompletionPercentage float64 `json:"porcentajeCumplimiento"`
}

// YearBreakdown summarizes one fiscal year.
type YearBreakdown struct {
	Year                 int     `json:"anio"`
	TotalItems           int     `json:"totalMetas"`
	CompletedItems       int     `json:"metasCumplidas"`
	CompletionPercentage float64 `json:"porcentajeCumplimiento"`
	TotalBudget          float64 `json:"presupuestoTotal"`
}

// SectorBreakdown summarizes the budgeted products of one sector.
type SectorBreakdown struct {
	Sector               string  `json:"sector"`
	TotalItems           int     `json:"totalMetas"`
	CompletedItems       int     `json:"metasCumplidas"`
	CompletionPercentage float64 `json:"porcentajeCumplimiento"`
	TotalBudget          float64 `json:"presupuestoTotal"`
}

// LineBreakdown summarizes the budgeted products of one strategic line.
type LineBreakdown struct {
	StrategicLine        string  `json:"lineaEstrategica"`
	TotalItems           int     `json:"totalMetas"`
	CompletedItems       int     `json:"metasCumplidas"`
	CompletionPercentage float64 `json:"porcentajeCumplimiento"`
	TotalBudget          float64 `json:"presupuestoTotal"`
}

// GoalBreakdown summarizes the budgeted products tagged with one sustainability-goal code.
type GoalBreakdown struct {
	GoalCode             string  `json:"codigoODS"`
	GoalName             string  `json:"nombreODS"`
	TotalItems           int     `json:"totalMetas"`
	CompletedItems       int     `json:"metasCumplidas"`
	CompletionPercentage float64 `json:"porcentajeCumplimiento"`
	TotalBudget          float64 `json:"presupuestoTotal"`
}

// SGRSectorResources totals royalty initiatives for one sector.
type SGRSectorResources struct {
	Sector      string  `json:"sector"`
	Resources   float64 `json:"totalRecursosSGR"`
	Initiatives int     `json:"numeroIniciativas"`
}

// SGRAnalysis summarizes the royalty-initiatives sheet.
type SGRAnalysis struct {
	TotalInitiatives int                  `json:"totalIniciativas"`
	TotalResources   float64              `json:"recursosSGRTotales"`
	BySector         []SGRSectorResources `json:"recursosSGRPorSector"`
	WithBPIN         int                  `json:"iniciativasConBPIN"`
	WithoutBPIN      int                  `json:"iniciativasSinBPIN"`
}

// IndicatorsByLine groups result indicators by strategic line.
type IndicatorsByLine struct {
	StrategicLine  string  `json:"lineaEstrategica"`
	Total          int     `json:"totalIndicadores"`
	InNationalPlan int     `json:"indicadoresEnPND"`
	GoalTotal      float64 `json:"metaCuatrienioTotal"`
}

// TransformationCount counts result indicators per national-plan transformation.
type TransformationCount struct {
	Transformation string `json:"transformacion"`
	Indicators     int    `json:"numeroIndicadores"`
}

// ResultIndicatorAnalysis summarizes the result-indicators sheet.
type ResultIndicatorAnalysis struct {
	Total               int                   `json:"totalIndicadores"`
	InNationalPlan      int                   `json:"indicadoresEnPND"`
	OutsideNationalPlan int                   `json:"indicadoresFueraPND"`
	AlignmentPercentage float64               `json:"porcentajeAlineacionPND"`
	ByLine              []IndicatorsByLine    `json:"indicadoresPorLinea"`
	Transformations     []TransformationCount `json:"transformacionesPND"`
}

// FundingYear splits one fiscal year between ordinary and royalty funds.
type FundingYear struct {
	Year     int     `json:"anio"`
	Ordinary float64 `json:"ordinario"`
	SGR      float64 `json:"sgr"`
	Total    float64 `json:"total"`
}

// FundingSector splits one sector between ordinary and royalty funds.
type FundingSector struct {
	Sector   string  `json:"sector"`
	Ordinary float64 `json:"ordinario"`
	SGR      float64 `json:"sgr"`
	Total    float64 `json:"total"`
}

// FundingAnalysis compares ordinary budget with royalty (SGR) resources.
type FundingAnalysis struct {
	OrdinaryTotal      float64         `json:"presupuestoOrdinarioTotal"`
	SGRTotal           float64         `json:"presupuestoSGRTotal"`
	OrdinaryPercentage float64         `json:"porcentajeOrdinario"`
	SGRPercentage      float64         `json:"porcentajeSGR"`
	ByYear             []FundingYear   `json:"presupuestoPorAnio"`
	BySector           []FundingSector `json:"presupuestoPorSector"`
}

// TrendKind classifies a trend statement.
type TrendKind string

// Trend kinds.
const (
	TrendPositive TrendKind = "positivo"
	TrendNeutral  TrendKind = "neutro"
	TrendNegative TrendKind = "negativo"
)

// Trend is a narrative statement derived from the aggregates.
type Trend struct {
	Description string    `json:"descripcion"`
	Kind        TrendKind `json:"tipo"`
}

// Inconsistency is a structural data-quality finding.
type Inconsistency struct {
	Type        string `json:"tipo"`
	Description string `json:"descripcion"`
	Count       int    `json:"cantidad"`
}

// AnalysisReport is derived from a Dataset and can always be recomputed from it.
type AnalysisReport struct {
	General          GeneralIndicators       `json:"indicadoresGenerales"`
	ByYear           []YearBreakdown         `json:"analisisPorAnio"`
	BySector         []SectorBreakdown       `json:"analisisPorSector"`
	ByStrategicLine  []LineBreakdown         `json:"analisisPorLineaEstrategica"`
	ByGoal           []GoalBreakdown         `json:"analisisPorODS"`
	SGR              SGRAnalysis             `json:"analisisSGR"`
	ResultIndicators ResultIndicatorAnalysis `json:"analisisIndicadoresResultado"`
	Funding          FundingAnalysis         `json:"analisisPresupuestoDetallado"`
	Trends           []Trend                 `json:"tendencias"`
	Recommendations  []string                `json:"recomendaciones"`
	Alerts           []string                `json:"alertas"`
	Inconsistencies  []Inconsistency         `json:"inconsistencias"`
}
