package workbook

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// headerRows is the number of leading rows (title and column headers) every
// plan sheet carries.
const headerRows = 2

// Record is one mapped row keyed by field name. Values are string or float64.
type Record map[string]any

// MapRows converts raw sheet rows into records using the sheet's columns.
// The first two rows are skipped, rows whose first cell is blank are dropped,
// and records with every field empty are dropped. Missing cells coerce to the
// empty value of their column.
func MapRows(rows [][]string, sheet Sheet) []Record {
	if len(rows) <= headerRows {
		return nil
	}
	out := make([]Record, 0, len(rows)-headerRows)
	for _, row := range rows[headerRows:] {
		if len(row) == 0 || row[0] == "" {
			continue
		}
		rec := make(Record, len(sheet.Columns))
		empty := true
		for _, col := range sheet.Columns {
			var raw string
			if col.Index < len(row) {
				raw = row[col.Index]
			}
			switch col.Coerce {
			case CoerceAmount:
				v := CoerceNumber(raw)
				if v != 0 {
					empty = false
				}
				rec[col.Field] = v
			default:
				v := CoerceString(raw)
				if v != "" {
					empty = false
				}
				rec[col.Field] = v
			}
		}
		if empty {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// decodeRecords binds records onto typed rows through their JSON field names.
func decodeRecords[T any](records []Record) ([]T, error) {
	out := make([]T, 0, len(records))
	if len(records) == 0 {
		return out, nil
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("bind records: %w", err)
	}
	return out, nil
}
