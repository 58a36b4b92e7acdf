// =============================================================================
// Sienge Budget Normalizer - CSV Budget Reader
// =============================================================================
//
// This module reads budgets exported as CSV instead of xlsx. Such exports
// come from spreadsheet tools configured for Brazilian locales, so they
// commonly have:
//   - Semicolon delimiters
//   - Windows-1252 or ISO-8859-1 encoding
//   - A UTF-8 byte order mark when saved as "CSV UTF-8"
//
// Field positions are given by the same config.ColumnMapping used for xlsx
// inputs, so a layout profile applies to both formats.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/sienge-budget-normalizer/internal/config"
	"github.com/ginjaninja78/sienge-budget-normalizer/internal/types"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// ReadFile opens a CSV export and reads its budget rows.
func ReadFile(path string, settings config.CSVSettings, m config.ColumnMapping) ([]types.RawRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return ReadRows(file, settings, m)
}

// ReadRows reads every budget row of a CSV export from m.StartRow on.
// Empty lines are skipped; missing or empty fields are nil.
func ReadRows(r io.Reader, settings config.CSVSettings, m config.ColumnMapping) ([]types.RawRow, error) {
	parser, err := NewStreamingParser(r, settings, m)
	if err != nil {
		return nil, err
	}

	rows := []types.RawRow{}
	for parser.Next() {
		rows = append(rows, parser.Row())
	}
	if err := parser.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// =============================================================================
// STREAMING PARSER
// =============================================================================

// StreamingParser reads a CSV export one budget row at a time.
//
// USAGE:
//
//	parser, err := csvparser.NewStreamingParser(r, settings, mapping)
//	if err != nil {
//	    return err
//	}
//	for parser.Next() {
//	    row := parser.Row()
//	    // Process the row...
//	}
//	if err := parser.Err(); err != nil {
//	    return err
//	}
type StreamingParser struct {
	reader     *csv.Reader
	mapping    config.ColumnMapping
	currentRow types.RawRow
	err        error
}

// NewStreamingParser prepares r for reading: the charset decoder and BOM
// removal are applied, then the header rows before m.StartRow are skipped
// lazily on the first call to Next.
func NewStreamingParser(r io.Reader, settings config.CSVSettings, m config.ColumnMapping) (*StreamingParser, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid column mapping: %w", err)
	}

	decoded, err := decode(r, settings.Encoding)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(decoded)
	configureReader(reader, settings)

	return &StreamingParser{reader: reader, mapping: m}, nil
}

// Next advances to the next non-empty data row. It returns false at the end
// of the input or on error.
func (p *StreamingParser) Next() bool {
	if p.err != nil {
		return false
	}

	for {
		record, err := p.reader.Read()
		if err == io.EOF {
			return false
		}
		if err != nil {
			p.err = fmt.Errorf("failed to read CSV: %w", err)
			return false
		}

		line, _ := p.reader.FieldPos(0)
		if line < p.mapping.StartRow || isRowEmpty(record) {
			continue
		}

		p.currentRow = project(record, line, p.mapping)
		return true
	}
}

// Row returns the current row.
func (p *StreamingParser) Row() types.RawRow {
	return p.currentRow
}

// Err returns the first error met while reading.
func (p *StreamingParser) Err() error {
	return p.err
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// decode wraps r with a decoder for the given charset and drops a leading
// UTF-8 byte order mark.
func decode(r io.Reader, charset string) (io.Reader, error) {
	var enc encoding.Encoding
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(charset), "_", "-")) {
	case "", "UTF-8", "UTF8":
	case "ISO-8859-1", "LATIN1", "LATIN-1":
		enc = charmap.ISO8859_1
	case "WINDOWS-1252", "CP1252":
		enc = charmap.Windows1252
	default:
		return nil, fmt.Errorf("unsupported encoding %q", charset)
	}

	br := bufio.NewReader(r)
	if enc == nil {
		if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
			_, _ = br.Discard(len(utf8BOM))
		}
		return br, nil
	}
	return transform.NewReader(br, enc.NewDecoder()), nil
}

// configureReader applies the delimiter and relaxes the CSV rules that
// spreadsheet exports commonly break.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	switch settings.Delimiter {
	case "\\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ",", "comma":
		reader.Comma = ','
	case "", ";", "semicolon":
		reader.Comma = ';'
	default:
		reader.Comma = []rune(settings.Delimiter)[0]
	}

	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
}

func project(record []string, line int, m config.ColumnMapping) types.RawRow {
	return types.RawRow{
		RowNumber:   line,
		Item:        field(record, m.Item),
		Description: field(record, m.Description),
		Code:        field(record, m.Code),
		Unit:        field(record, m.Unit),
		Price:       field(record, m.Price),
		Quantity:    field(record, m.Quantity),
	}
}

func field(record []string, idx int) any {
	if idx >= len(record) {
		return nil
	}
	v := strings.TrimSpace(record[idx])
	if v == "" {
		return nil
	}
	return v
}

// isRowEmpty checks if a row is empty (all fields are empty or whitespace).
func isRowEmpty(row []string) bool {
	for _, value := range row {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}
