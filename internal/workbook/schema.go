package workbook

import (
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"
)

// Coercion names how a cell is converted.
type Coercion string

// Supported coercions.
const (
	CoerceText   Coercion = "string"
	CoerceAmount Coercion = "number"
)

// DatasetKind identifies one of the five logical sheets.
type DatasetKind string

// Logical datasets. Values match the JSON field names of domain.Dataset.
const (
	DatasetStrategicLines   DatasetKind = "lineasEstrategicas"
	DatasetResultIndicators DatasetKind = "indicadoresResultado"
	DatasetProducts         DatasetKind = "planIndicativoProductos"
	DatasetSGRInitiatives   DatasetKind = "iniciativasSGR"
	DatasetSGRProducts      DatasetKind = "planIndicativoSGR"
)

// DatasetKinds lists the logical datasets in load order.
var DatasetKinds = []DatasetKind{
	DatasetStrategicLines,
	DatasetResultIndicators,
	DatasetProducts,
	DatasetSGRInitiatives,
	DatasetSGRProducts,
}

// Column binds a record field (its JSON name) to a zero-based column index.
type Column struct {
	Field  string   `json:"field"`
	Index  int      `json:"index"`
	Coerce Coercion `json:"coerce"`
}

// Sheet describes where a logical dataset lives and how its rows map to fields.
type Sheet struct {
	Dataset DatasetKind `json:"dataset"`
	Aliases []string    `json:"aliases"`
	Columns []Column    `json:"columns"`
}

// Schema is a versioned set of sheet descriptors.
type Schema struct {
	Version string  `json:"version"`
	Sheets  []Sheet `json:"sheets"`
}

// Sheet returns the descriptor for a dataset.
func (s Schema) Sheet(kind DatasetKind) (Sheet, bool) {
	for _, sh := range s.Sheets {
		if sh.Dataset == kind {
			return sh, true
		}
	}
	return Sheet{}, false
}

// Validate checks that the schema is usable: a version, known datasets at most
// once, at least one alias per sheet, unique fields and known coercions.
func (s Schema) Validate() error {
	if s.Version == "" {
		return fmt.Errorf("schema version required")
	}
	known := make(map[DatasetKind]bool, len(DatasetKinds))
	for _, kind := range DatasetKinds {
		known[kind] = true
	}
	seen := make(map[DatasetKind]bool)
	for _, sh := range s.Sheets {
		if !known[sh.Dataset] {
			return fmt.Errorf("unknown dataset %q", sh.Dataset)
		}
		if seen[sh.Dataset] {
			return fmt.Errorf("dataset %q declared twice", sh.Dataset)
		}
		seen[sh.Dataset] = true
		if len(sh.Aliases) == 0 {
			return fmt.Errorf("dataset %q has no sheet aliases", sh.Dataset)
		}
		fields := make(map[string]bool, len(sh.Columns))
		for _, col := range sh.Columns {
			if col.Field == "" {
				return fmt.Errorf("dataset %q: column %d has no field", sh.Dataset, col.Index)
			}
			if fields[col.Field] {
				return fmt.Errorf("dataset %q: field %q mapped twice", sh.Dataset, col.Field)
			}
			fields[col.Field] = true
			if col.Index < 0 {
				return fmt.Errorf("dataset %q: field %q has negative index", sh.Dataset, col.Field)
			}
			if col.Coerce != CoerceText && col.Coerce != CoerceAmount {
				return fmt.Errorf("dataset %q: field %q has unknown coercion %q", sh.Dataset, col.Field, col.Coerce)
			}
		}
	}
	return nil
}

// LoadSchema decodes and validates a JSON schema descriptor.
func LoadSchema(r io.Reader) (Schema, error) {
	var s Schema
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return Schema{}, fmt.Errorf("decode schema: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Schema{}, err
	}
	return s, nil
}

// LoadSchemaFile reads a schema descriptor from disk.
func LoadSchemaFile(path string) (Schema, error) {
	f, err := os.Open(path) // #nosec G304 -- operator supplied configuration path
	if err != nil {
		return Schema{}, fmt.Errorf("open schema: %w", err)
	}
	defer func() { _ = f.Close() }()
	return LoadSchema(f)
}

func text(field string, index int) Column { return Column{Field: field, Index: index, Coerce: CoerceText} }
func amount(field string, index int) Column { return Column{Field: field, Index: index, Coerce: CoerceAmount} }

// DefaultSchema is the layout of the 2024-2027 territorial plan template.
var DefaultSchema = Schema{
	Version: "pdm-2024-2027/v1",
	Sheets: []Sheet{
		{
			Dataset: DatasetStrategicLines,
			Aliases: []string{"Líneas estratégicas", "LÍNEAS ESTRATÉGICAS", "Lineas estrategicas"},
			Columns: []Column{
				text("codigoDane", 0),
				text("entidadTerritorial", 1),
				text("nombrePlan", 2),
				text("consecutivo", 3),
				text("lineaEstrategica", 4),
			},
		},
		{
			Dataset: DatasetResultIndicators,
			Aliases: []string{"Indicadores de resultado", "INDICADORES DE RESULTADO"},
			Columns: []Column{
				text("codigoDane", 0),
				text("entidadTerritorial", 1),
				text("nombrePlan", 2),
				text("consecutivo", 3),
				text("lineaEstrategica", 4),
				text("indicadorResultado", 5),
				text("estaEnPND", 6),
				amount("metaCuatrienio", 7),
				text("transformacionPND", 8),
			},
		},
		{
			Dataset: DatasetProducts,
			Aliases: []string{"Plan indicativo - Productos", "PLAN INDICATIVO", "Plan indicativo"},
			Columns: []Column{
				text("codigoDane", 0),
				text("entidadTerritorial", 1),
				text("nombrePlan", 2),
				text("codigoIndicador", 3),
				text("lineaEstrategica", 4),
				text("codigoSector", 5),
				text("sector", 6),
				text("codigoPrograma", 7),
				text("programa", 8),
				text("codigoProducto", 9),
				text("producto", 10),
				text("codigoIndicadorProducto", 11),
				text("indicadorProducto", 12),
				text("personalizacion", 13),
				text("unidadMedida", 14),
				amount("metaCuatrienio", 15),
				text("principal", 16),
				text("codigoODS", 17),
				text("ods", 18),
				text("tipoAcumulacion", 19),
				amount("programacion2024", 20),
				amount("programacion2025", 21),
				amount("programacion2026", 22),
				amount("programacion2027", 23),
				amount("total2024", 38),
				amount("total2025", 53),
				amount("total2026", 68),
				amount("total2027", 83),
				text("bpin", 84),
			},
		},
		{
			Dataset: DatasetSGRInitiatives,
			Aliases: []string{"Iniciativas SGR", "INICIATIVAS SGR"},
			Columns: []Column{
				text("codigoDane", 0),
				text("entidadTerritorial", 1),
				text("nombrePlan", 2),
				text("consecutivo", 3),
				text("lineaEstrategica", 4),
				text("tipoIniciativa", 5),
				text("sector", 6),
				text("iniciativaSGR", 7),
				amount("recursosSGR", 8),
				text("bpin", 9),
			},
		},
		{
			Dataset: DatasetSGRProducts,
			Aliases: []string{"Plan indicativo SGR - Produc", "Plan indicativo SGR", "PLAN INDICATIVO SGR"},
			Columns: []Column{
				text("codigoDane", 0),
				text("entidadTerritorial", 1),
				text("nombrePlan", 2),
				text("codigoIndicador", 3),
				text("iniciativaSGR", 4),
				text("codigoSector", 5),
				text("sector", 6),
				text("codigoPrograma", 7),
				text("programa", 8),
				text("codigoProducto", 9),
				text("producto", 10),
				text("codigoIndicadorProducto", 11),
				text("indicadorProducto", 12),
				text("personalizacion", 13),
				text("unidadMedida", 14),
				amount("metaCuatrienio", 15),
				text("principal", 16),
				text("codigoODS", 17),
				text("ods", 18),
				text("tipoAcumulacion", 19),
				text("cofinanciado", 20),
				amount("programacion20232024", 21),
				amount("programacion20252026", 22),
				amount("programacion20272028", 23),
				amount("recursosSGR20232024", 24),
				amount("recursosSGR20252026", 25),
				amount("recursosSGR20272028", 26),
				text("bpin", 27),
			},
		},
	},
}
