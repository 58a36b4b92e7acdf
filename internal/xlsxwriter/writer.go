// =============================================================================
// Sienge Budget Normalizer - XLSX Writer Module
// =============================================================================
//
// This module writes normalized budgets in the layout the Sienge budget import
// expects, and reads such workbooks back for comparison.
//
// OUTPUT LAYOUT:
//
//   Sheet "Planilha"
//   | ITEM            | CÓDIGO AUXILIAR | DESCRIÇÃO DO SERVIÇO | UNID. | QUANTIDADE | PREÇO UNITARIO |
//   |-----------------|-----------------|----------------------|-------|------------|----------------|
//   | 001             |                 | Fundações            |       |            |                |
//   | 001.001         |                 | Fundações            |       |            |                |
//   | 001.001.001     |                 | Fundações            |       |            |                |
//   | 001.001.001.001 | C-01            | Estaca               | m     | 14         | 120.5          |
//
//   Group rows leave code, unit, quantity and price blank. Identifiers are
//   written as text so leading zeros survive.
//
// =============================================================================

package xlsxwriter

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/sienge-budget-normalizer/internal/types"
)

// SheetName is the worksheet the import reads.
const SheetName = "Planilha"

// Header is the first row of every output workbook.
var Header = []string{
	"ITEM",
	"CÓDIGO AUXILIAR",
	"DESCRIÇÃO DO SERVIÇO",
	"UNID.",
	"QUANTIDADE",
	"PREÇO UNITARIO",
}

// =============================================================================
// WRITE OPTIONS
// =============================================================================

// WriteOptions contains options for workbook generation.
type WriteOptions struct {
	// SheetName is the worksheet name. Default: "Planilha"
	SheetName string

	// OmitHeader skips the header row.
	OmitHeader bool
}

// DefaultWriteOptions returns the options used by Write.
func DefaultWriteOptions() WriteOptions {
	return WriteOptions{SheetName: SheetName}
}

// =============================================================================
// WRITER FUNCTIONS
// =============================================================================

// Write encodes rows as an xlsx workbook onto w.
func Write(w io.Writer, rows []types.OutputRecord) error {
	return WriteWithOptions(w, rows, DefaultWriteOptions())
}

// WriteWithOptions is Write with explicit options.
func WriteWithOptions(w io.Writer, rows []types.OutputRecord, opts WriteOptions) error {
	if opts.SheetName == "" {
		opts.SheetName = SheetName
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), opts.SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	rowNum := 1
	if !opts.OmitHeader {
		header := make([]any, len(Header))
		for i, h := range Header {
			header[i] = h
		}
		if err := setRow(f, opts.SheetName, rowNum, header); err != nil {
			return err
		}
		rowNum++
	}

	for _, rec := range rows {
		values := []any{
			rec.Item,
			derefString(rec.Code),
			rec.Description,
			derefString(rec.Unit),
			derefFloat(rec.Quantity),
			derefFloat(rec.Price),
		}
		if err := setRow(f, opts.SheetName, rowNum, values); err != nil {
			return err
		}
		rowNum++
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// SaveFile writes rows to path, creating parent directories as needed.
func SaveFile(path string, rows []types.OutputRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var buf bytes.Buffer
	if err := Write(&buf, rows); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// =============================================================================
// READER FUNCTIONS
// =============================================================================

// Read decodes a workbook produced by Write. Rows without an identifier
// are dropped.
func Read(r io.Reader) ([]types.OutputRecord, error) {
	all, err := ReadAll(r)
	if err != nil {
		return nil, err
	}

	out := make([]types.OutputRecord, 0, len(all))
	for _, rec := range all {
		if rec.Item != "" {
			out = append(out, rec)
		}
	}
	return out, nil
}

// ReadAll decodes every row after the header, keeping rows without an
// identifier, so that element i is sheet row i+2. The "Planilha" sheet is
// used when present, otherwise the first sheet.
func ReadAll(r io.Reader) ([]types.OutputRecord, error) {
	f, err := excelize.OpenReader(r, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if slices.Contains(f.GetSheetList(), SheetName) {
		sheet = SheetName
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) > 0 && isHeader(rows[0]) {
		rows = rows[1:]
	}

	out := make([]types.OutputRecord, 0, len(rows))
	for i, row := range rows {
		rec := types.OutputRecord{
			Item:        strings.TrimSpace(cell(row, 0)),
			Code:        optionalString(cell(row, 1)),
			Description: cell(row, 2),
			Unit:        optionalString(cell(row, 3)),
		}
		if rec.Quantity, err = optionalFloat(cell(row, 4)); err != nil {
			return nil, fmt.Errorf("row %d: quantity: %w", i+2, err)
		}
		if rec.Price, err = optionalFloat(cell(row, 5)); err != nil {
			return nil, fmt.Errorf("row %d: price: %w", i+2, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// ReadFile opens path and decodes it with Read.
func ReadFile(path string) ([]types.OutputRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Read(file)
}

// ReadAllFile opens path and decodes it with ReadAll.
func ReadAllFile(path string) ([]types.OutputRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return ReadAll(file)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func setRow(f *excelize.File, sheet string, rowNum int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", rowNum, err)
	}
	return nil
}

func isHeader(row []string) bool {
	return strings.EqualFold(strings.TrimSpace(cell(row, 0)), Header[0])
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return row[idx]
}

func derefString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func derefFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func optionalString(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func optionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
