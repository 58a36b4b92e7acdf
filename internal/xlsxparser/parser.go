// =============================================================================
// Sienge Budget Normalizer - XLSX Budget Reader
// =============================================================================
//
// This module reads budget spreadsheets exported by the quantity takeoff
// tools and projects every data row onto the six fields the normalizer
// needs. Where each field lives is described by a config.ColumnMapping.
//
// EXPECTED LAYOUT (default mapping):
//
//   | Column B | Column C    | Column D | Column E | Column F | ... | Column S   |
//   |----------|-------------|----------|----------|----------|-----|------------|
//   | ITEM     | DESCRIÇÃO   | CÓDIGO   | UNID.    | PREÇO    |     | QUANTIDADE |
//   | 1        | Fundações   |          |          |          |     |            |
//   | 1.1      | Estaca      | C-01     | M        | 120,50   |     | 14         |
//
//   Rows before the configured start row (7 by default) are report headers
//   and are ignored.
//
// RAW VALUES:
//   Cells are read with RawCellValue so that numbers come back unformatted
//   ("1234.5" rather than "1.234,50") and can be parsed reliably.
//
// =============================================================================

package xlsxparser

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/sienge-budget-normalizer/internal/config"
	"github.com/ginjaninja78/sienge-budget-normalizer/internal/types"
)

// ErrSheetNotFound is returned when the requested worksheet does not exist.
var ErrSheetNotFound = errors.New("sheet not found")

// readOptions makes excelize return unformatted cell values.
var readOptions = excelize.Options{RawCellValue: true}

// =============================================================================
// READER FUNCTIONS
// =============================================================================

// ReadFile opens an xlsx file and reads its budget rows.
func ReadFile(path, sheet string, m config.ColumnMapping) ([]types.RawRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return ReadRows(file, sheet, m)
}

// ReadRows reads the budget rows of one worksheet.
//
// PARAMETERS:
//   - r: The workbook contents.
//   - sheet: The worksheet name. Empty selects the first sheet.
//   - m: Where each field lives and the first data row.
//
// RETURNS:
//   - One RawRow per sheet row from m.StartRow on, in sheet order. Cells
//     that are empty or beyond the end of the row are nil.
//   - ErrSheetNotFound (wrapped) when sheet is named but missing.
func ReadRows(r io.Reader, sheet string, m config.ColumnMapping) ([]types.RawRow, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid column mapping: %w", err)
	}

	f, err := excelize.OpenReader(r, readOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheetName, err := resolveSheet(f, sheet)
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(sheetName, readOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of %q: %w", sheetName, err)
	}

	start := m.StartRow - 1
	if start >= len(rows) {
		return []types.RawRow{}, nil
	}

	out := make([]types.RawRow, 0, len(rows)-start)
	for i := start; i < len(rows); i++ {
		out = append(out, project(rows[i], i+1, m))
	}
	return out, nil
}

// SheetNames lists the worksheets of a workbook in tab order.
func SheetNames(r io.Reader) ([]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return f.GetSheetList(), nil
}

// DefaultPreviewRows is the number of rows Preview returns when asked for
// none.
const DefaultPreviewRows = 5

// PreviewRow is one unprojected sheet row.
type PreviewRow struct {
	// RowNumber is the 1-based sheet row.
	RowNumber int `json:"row"`

	// Cells holds the raw values from column A on. Trailing empty cells
	// are omitted.
	Cells []string `json:"cells"`
}

// SheetPreview is the top of a worksheet as seen before column mapping.
type SheetPreview struct {
	Sheet string       `json:"sheet"`
	Rows  []PreviewRow `json:"rows"`
}

// Preview returns up to n rows of a worksheet starting one row above
// startRow, so the column titles show next to the first data rows. It is
// used to pick column positions before normalizing.
func Preview(r io.Reader, sheet string, startRow, n int) (SheetPreview, error) {
	if n <= 0 {
		n = DefaultPreviewRows
	}

	f, err := excelize.OpenReader(r, readOptions)
	if err != nil {
		return SheetPreview{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheetName, err := resolveSheet(f, sheet)
	if err != nil {
		return SheetPreview{}, err
	}

	rows, err := f.GetRows(sheetName, readOptions)
	if err != nil {
		return SheetPreview{}, fmt.Errorf("failed to read rows of %q: %w", sheetName, err)
	}

	preview := SheetPreview{Sheet: sheetName, Rows: []PreviewRow{}}
	for i := max(startRow-2, 0); i < len(rows) && len(preview.Rows) < n; i++ {
		preview.Rows = append(preview.Rows, PreviewRow{RowNumber: i + 1, Cells: rows[i]})
	}
	return preview, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func resolveSheet(f *excelize.File, sheet string) (string, error) {
	if sheet == "" {
		name := f.GetSheetName(0)
		if name == "" {
			return "", fmt.Errorf("workbook has no sheets")
		}
		return name, nil
	}
	if !slices.Contains(f.GetSheetList(), sheet) {
		return "", fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}
	return sheet, nil
}

// project picks the mapped cells out of a sheet row.
func project(row []string, rowNumber int, m config.ColumnMapping) types.RawRow {
	return types.RawRow{
		RowNumber:   rowNumber,
		Item:        cell(row, m.Item),
		Description: cell(row, m.Description),
		Code:        cell(row, m.Code),
		Unit:        cell(row, m.Unit),
		Price:       cell(row, m.Price),
		Quantity:    cell(row, m.Quantity),
	}
}

// cell returns the value at idx, or nil when the cell is empty or missing.
func cell(row []string, idx int) any {
	if idx < 0 || idx >= len(row) || row[idx] == "" {
		return nil
	}
	return row[idx]
}
