package tableau

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// WorkbookHost serves dashboard data from a local .xlsx file: each sheet is
// a worksheet, row 1 is the column header row. Used for offline/dev mode.
// The file is re-opened per call so the host holds no open handles between
// requests.
type WorkbookHost struct {
	path string
}

func NewWorkbookHost(path string) *WorkbookHost {
	return &WorkbookHost{path: path}
}

func (h *WorkbookHost) Initialize(ctx context.Context) (*Dashboard, error) {
	f, err := excelize.OpenFile(h.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", h.path, err)
	}
	defer f.Close()

	var worksheets []Worksheet
	for _, name := range f.GetSheetList() {
		worksheets = append(worksheets, Worksheet{Name: name})
	}

	return &Dashboard{
		Name:       filepath.Base(h.path),
		Worksheets: worksheets,
	}, nil
}

func (h *WorkbookHost) FetchSummary(ctx context.Context, worksheet string, opts SummaryOptions) (*SummaryTable, error) {
	f, err := excelize.OpenFile(h.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", h.path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(worksheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", worksheet, err)
	}
	if len(rows) == 0 {
		return &SummaryTable{}, nil
	}

	table := &SummaryTable{}
	for _, header := range rows[0] {
		table.Columns = append(table.Columns, Column{FieldName: header})
	}

	for _, row := range rows[1:] {
		if opts.MaxRows > 0 && len(table.Rows) >= opts.MaxRows {
			break
		}
		cells := make([]Cell, len(row))
		for i, raw := range row {
			cells[i] = parseCell(raw)
		}
		table.Rows = append(table.Rows, cells)
	}

	return table, nil
}

// parseCell turns a sheet cell string into a typed cell: integers and
// decimals become numbers with no formatted value, everything else stays a
// string that is its own display form.
func parseCell(s string) Cell {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Cell{Value: i}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Cell{Value: f}
	}
	v := s
	return Cell{Value: v, FormattedValue: &v}
}
