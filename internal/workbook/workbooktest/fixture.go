// Package workbooktest builds plan workbooks for tests.
package workbooktest

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// Sheet is a named block of rows. Header rows are added by the builder.
type Sheet struct {
	Name string
	Rows [][]any
}

// XLSX renders sheets into Office-Open-XML bytes. Each sheet receives a title
// row and a header row before its data rows.
func XLSX(sheets ...Sheet) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sh.Name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sh.Name); err != nil {
			return nil, fmt.Errorf("new sheet %s: %w", sh.Name, err)
		}
		if err := f.SetSheetRow(sh.Name, "A1", &[]any{sh.Name}); err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sh.Name, "A2", &[]any{"encabezado"}); err != nil {
			return nil, err
		}
		for r, row := range sh.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+3)
			if err != nil {
				return nil, err
			}
			values := append([]any(nil), row...)
			if err := f.SetSheetRow(sh.Name, cell, &values); err != nil {
				return nil, fmt.Errorf("write %s row %d: %w", sh.Name, r, err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return bytes.Clone(buf.Bytes()), nil
}

// ProductRow returns a products-sheet row (85 columns) for the given code,
// sector, strategic line and goal code, with programmed amounts and yearly
// budgets for 2024 to 2027.
func ProductRow(code, sector, line, goal string, programmed, budget [4]float64) []any {
	row := make([]any, 85)
	for i := range row {
		row[i] = ""
	}
	row[0] = "05001"
	row[1] = "Municipio de prueba"
	row[2] = "Plan de desarrollo"
	row[3] = "IND-" + code
	row[4] = line
	row[5] = "S-" + sector
	row[6] = sector
	row[9] = "P-" + code
	row[10] = "Producto " + code
	row[11] = code
	row[12] = "Indicador " + code
	row[15] = 100.0
	row[17] = goal
	if goal != "" {
		row[18] = "ODS " + goal
	}
	for i := 0; i < 4; i++ {
		row[20+i] = programmed[i]
	}
	row[38] = budget[0]
	row[53] = budget[1]
	row[68] = budget[2]
	row[83] = budget[3]
	return row
}

// SGRInitiativeRow returns a royalty-initiatives row.
func SGRInitiativeRow(seq int, sector string, resources float64, bpin string) []any {
	return []any{"05001", "Municipio de prueba", "Plan de desarrollo", strconv.Itoa(seq), "Linea", "Proyecto", sector, "Iniciativa " + strconv.Itoa(seq), resources, bpin}
}
