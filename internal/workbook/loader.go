package workbook

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"pdmtracker/pkg/domain"
)

// Load locates every logical sheet declared by the schema, maps its rows and
// assembles a dataset. Missing sheets yield empty lists. Only failures to read
// a located sheet are returned.
func Load(wb Workbook, schema Schema, fileName string, now time.Time) (*domain.Dataset, error) {
	if wb == nil {
		return nil, &ParseError{Op: "load", Err: fmt.Errorf("nil workbook")}
	}
	names := wb.SheetNames()
	records := make(map[DatasetKind][]Record, len(DatasetKinds))
	for _, sheet := range schema.Sheets {
		name, ok := Locate(names, sheet.Aliases)
		if !ok {
			continue
		}
		rows, err := wb.Rows(name)
		if err != nil {
			return nil, err
		}
		records[sheet.Dataset] = MapRows(rows, sheet)
	}

	ds := &domain.Dataset{}
	var err error
	if ds.StrategicLines, err = decodeRecords[domain.StrategicLine](records[DatasetStrategicLines]); err != nil {
		return nil, fmt.Errorf("%s: %w", DatasetStrategicLines, err)
	}
	if ds.ResultIndicators, err = decodeRecords[domain.ResultIndicator](records[DatasetResultIndicators]); err != nil {
		return nil, fmt.Errorf("%s: %w", DatasetResultIndicators, err)
	}
	if ds.Products, err = decodeRecords[domain.InvestmentProduct](records[DatasetProducts]); err != nil {
		return nil, fmt.Errorf("%s: %w", DatasetProducts, err)
	}
	if ds.SGRInitiatives, err = decodeRecords[domain.SGRInitiative](records[DatasetSGRInitiatives]); err != nil {
		return nil, fmt.Errorf("%s: %w", DatasetSGRInitiatives, err)
	}
	if ds.SGRProducts, err = decodeRecords[domain.SGRInvestmentProduct](records[DatasetSGRProducts]); err != nil {
		return nil, fmt.Errorf("%s: %w", DatasetSGRProducts, err)
	}

	ds.Metadata = domain.Metadata{
		SubmissionID:  uuid.NewString(),
		FileName:      fileName,
		LoadedAt:      now.UTC(),
		TotalRecords:  ds.CountRecords(),
		SchemaVersion: schema.Version,
	}
	return ds, nil
}
