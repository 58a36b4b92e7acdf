package converter

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ginjaninja78/sienge-budget-normalizer/internal/types"
)

// =============================================================================
// ROW CLASSIFICATION
// =============================================================================

// Classify turns one raw source row into a Group or a Task.
//
// RETURNS:
//   - The classified record.
//   - false when the row has a blank item identifier and must be skipped.
//
// CLASSIFICATION RULES:
//   - A row is a Task when both code and unit are non-blank after trimming.
//   - Code and unit are coerced to text first, so numeric cells never fail.
//   - Price and quantity are parsed only for tasks. Missing, zero or
//     unparseable values become absent; quantity is rounded to 2 places.
func Classify(raw types.RawRow) (types.Record, bool) {
	item := strings.TrimSpace(CellText(raw.Item))
	if item == "" {
		return nil, false
	}

	description := strings.TrimSpace(CellText(raw.Description))
	code := strings.TrimSpace(CellText(raw.Code))
	unit := strings.TrimSpace(CellText(raw.Unit))

	if code == "" || unit == "" {
		return types.Group{RawItem: item, Description: description}, true
	}

	task := types.Task{
		RawItem:     item,
		Description: description,
		Code:        code,
		Unit:        unit,
		Price:       ParseAmount(raw.Price),
	}
	if qty := ParseAmount(raw.Quantity); qty != nil {
		rounded := math.Round(*qty*100) / 100
		task.Quantity = &rounded
	}
	return task, true
}

// ClassifyAll classifies rows in order, dropping rows without an item.
func ClassifyAll(rows []types.RawRow) []types.Record {
	records := make([]types.Record, 0, len(rows))
	for _, row := range rows {
		if rec, ok := Classify(row); ok {
			records = append(records, rec)
		}
	}
	return records
}

// =============================================================================
// VALUE COERCION
// =============================================================================

// CellText renders any cell value as text. nil renders as "".
func CellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case *string:
		if x == nil {
			return ""
		}
		return *x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// ParseAmount parses a price or quantity cell. It returns nil for absent,
// blank, zero, non-finite or unparseable values and never fails.
func ParseAmount(v any) *float64 {
	var f float64
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	default:
		s := strings.TrimSpace(CellText(v))
		if s == "" {
			return nil
		}
		parsed, ok := parseDecimal(s)
		if !ok {
			return nil
		}
		f = parsed
	}

	if f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// parseDecimal accepts "12.5" and, as a fallback, a lone decimal comma "12,5".
func parseDecimal(s string) (float64, bool) {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
