// =============================================================================
// Sienge Budget Normalizer - Shared Types
// =============================================================================
//
// This package contains the record types shared by the row sources, the
// hierarchy normalizer, the verifier and the row sink. Keeping them here
// avoids import cycles between:
//   - converter
//   - validation
//   - xlsxwriter
//
// ROW VARIANTS:
//   A budget row is either a Group (a header with no cost code or unit) or a
//   Task (a priced line item). Record is a sealed interface over the two so
//   that every consumer has to handle both cases explicitly.
//
// =============================================================================

package types

// =============================================================================
// INPUT RECORDS
// =============================================================================

// Record is one classified row of the input budget.
// It is implemented only by Group and Task.
type Record interface {
	// ItemID returns the parsed hierarchical identifier of the row.
	ItemID() Item

	// Desc returns the row description.
	Desc() string

	isRecord()
}

// Group is a header row: it has an identifier and a description but no
// cost code or unit.
type Group struct {
	// RawItem is the unparsed dotted identifier as found in the source.
	RawItem string

	// Description is the header text.
	Description string
}

// ItemID implements Record.
func (g Group) ItemID() Item { return ParseItem(g.RawItem) }

// Desc implements Record.
func (g Group) Desc() string { return g.Description }

func (Group) isRecord() {}

// Task is a priced line item. Code and Unit are always non-blank.
type Task struct {
	// RawItem is the unparsed dotted identifier as found in the source.
	RawItem string

	// Description is the service description.
	Description string

	// Code is the auxiliary cost code.
	Code string

	// Unit is the unit label as found in the source (not yet normalized).
	Unit string

	// Price is the unit price, nil when absent or unparseable.
	Price *float64

	// Quantity is rounded to 2 decimal places, nil when absent or unparseable.
	Quantity *float64
}

// ItemID implements Record.
func (t Task) ItemID() Item { return ParseItem(t.RawItem) }

// Desc implements Record.
func (t Task) Desc() string { return t.Description }

func (Task) isRecord() {}

// IsTask reports whether a record is a Task.
func IsTask(r Record) bool {
	_, ok := r.(Task)
	return ok
}

// =============================================================================
// OUTPUT RECORDS
// =============================================================================

// OutputRecord is one row of the normalized budget, in the fixed 6-column
// layout expected by the Sienge import.
type OutputRecord struct {
	// Item is the canonical padded identifier.
	// Tasks are always at level 4; groups keep their input level.
	Item string

	// Code is present only for task rows.
	Code *string

	Description string

	// Unit is the normalized unit, present only for task rows.
	Unit *string

	Quantity *float64

	Price *float64
}

// IsTask reports whether the output row carries a cost code.
func (o OutputRecord) IsTask() bool {
	return o.Code != nil
}
