// Package workbook turns development-plan spreadsheets into normalized domain
// records. Sheets are located by alias and rows are mapped by column position
// through a versioned Schema.
package workbook

import (
	"bytes"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// Workbook enumerates sheets and yields their cells as rows, including blank
// and header rows.
type Workbook interface {
	SheetNames() []string
	Rows(sheet string) ([][]string, error)
}

// ParseError reports malformed or unreadable workbook bytes.
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("workbook %s: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// File is an Office-Open-XML workbook backed by excelize.
type File struct {
	f *excelize.File
}

// Open parses Office-Open-XML bytes. Any failure is returned as *ParseError.
func Open(r io.Reader) (*File, error) {
	if r == nil {
		return nil, &ParseError{Op: "open", Err: fmt.Errorf("nil reader")}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Op: "read", Err: err}
	}
	if len(data) == 0 {
		return nil, &ParseError{Op: "open", Err: fmt.Errorf("empty workbook")}
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{Op: "open", Err: err}
	}
	return &File{f: f}, nil
}

// SheetNames returns sheet names in workbook order.
func (w *File) SheetNames() []string { return w.f.GetSheetList() }

// Rows returns the raw (unformatted) cell values of a sheet.
func (w *File) Rows(sheet string) ([][]string, error) {
	rows, err := w.f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &ParseError{Op: "read sheet " + sheet, Err: err}
	}
	return rows, nil
}

// Close releases temporary files held by the parser.
func (w *File) Close() error { return w.f.Close() }

// Memory is a Workbook held in memory, keeping sheet order.
type Memory struct {
	names  []string
	sheets map[string][][]string
}

// NewMemory returns an empty in-memory workbook.
func NewMemory() *Memory {
	return &Memory{sheets: make(map[string][][]string)}
}

// AddSheet appends a sheet, replacing rows if the name already exists.
func (m *Memory) AddSheet(name string, rows [][]string) *Memory {
	if _, ok := m.sheets[name]; !ok {
		m.names = append(m.names, name)
	}
	m.sheets[name] = rows
	return m
}

// SheetNames returns sheet names in insertion order.
func (m *Memory) SheetNames() []string {
	return append([]string(nil), m.names...)
}

// Rows returns the rows of a sheet.
func (m *Memory) Rows(sheet string) ([][]string, error) {
	rows, ok := m.sheets[sheet]
	if !ok {
		return nil, &ParseError{Op: "read sheet " + sheet, Err: fmt.Errorf("sheet not found")}
	}
	return rows, nil
}
