package types

// RawRow is one source row projected onto the six budget fields, before
// classification. Values keep whatever type the source produced (string
// from CSV and xlsx, numbers from callers building rows in memory); a nil
// value means the cell was absent.
type RawRow struct {
	// RowNumber is the 1-based row number in the source, for diagnostics.
	RowNumber int

	Item        any
	Description any
	Code        any
	Unit        any
	Price       any
	Quantity    any
}
