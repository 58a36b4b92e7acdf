package validation

import (
	"fmt"
	"math"
	"strings"

	"github.com/ginjaninja78/sienge-budget-normalizer/internal/types"
)

// DefaultQuantityTolerance is the largest quantity difference Compare
// accepts as equal.
const DefaultQuantityTolerance = 0.01

// CompareOptions controls Compare.
type CompareOptions struct {
	// SkipRows are 1-based sheet rows of the reference that are expected
	// to have no counterpart in the output, e.g. section titles without an
	// identifier.
	SkipRows map[int]bool

	// QuantityTolerance defaults to DefaultQuantityTolerance.
	QuantityTolerance float64
}

// Compare walks a reference workbook and a produced workbook row by row.
// Both slices hold every data row in sheet order, so ref[i] is sheet row
// i+2. Identifiers must match exactly; quantities present on both sides must
// agree within the tolerance.
func Compare(ref, out []types.OutputRecord, opts CompareOptions) []*ValidationError {
	tolerance := opts.QuantityTolerance
	if tolerance <= 0 {
		tolerance = DefaultQuantityTolerance
	}

	diffs := make([]*ValidationError, 0)
	o := 0
	for i, r := range ref {
		refRow := i + 2
		if opts.SkipRows[refRow] {
			continue
		}

		if o >= len(out) {
			diffs = append(diffs, &ValidationError{
				Severity:  SeverityError,
				Item:      r.Item,
				Rule:      "missing_row",
				Message:   "reference has a row, output is at end of file",
				RowNumber: refRow,
			})
			break
		}

		got := out[o]
		outRow := o + 2
		o++

		refItem := strings.TrimSpace(r.Item)
		outItem := strings.TrimSpace(got.Item)
		if refItem != outItem {
			diffs = append(diffs, &ValidationError{
				Severity:  SeverityError,
				Item:      refItem,
				Rule:      "item_mismatch",
				Message:   fmt.Sprintf("reference row %d has '%s', output row %d has '%s'", refRow, refItem, outRow, outItem),
				RowNumber: refRow,
			})
		}

		if r.Quantity != nil && got.Quantity != nil && math.Abs(*r.Quantity-*got.Quantity) > tolerance {
			diffs = append(diffs, &ValidationError{
				Severity:  SeverityError,
				Item:      refItem,
				Rule:      "quantity_mismatch",
				Message:   fmt.Sprintf("reference %v, output %v", *r.Quantity, *got.Quantity),
				RowNumber: refRow,
			})
		}
	}

	if extra := len(out) - o; extra > 0 {
		diffs = append(diffs, &ValidationError{
			Severity:  SeverityWarning,
			Rule:      "extra_rows",
			Message:   fmt.Sprintf("output has %d row(s) past the end of the reference", extra),
			RowNumber: o + 2,
		})
	}

	return diffs
}
