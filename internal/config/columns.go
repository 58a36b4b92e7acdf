package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// COLUMN MAPPING
// =============================================================================

// ColumnMapping is the resolved position of every field in a source row.
// Column indices are 0-based (A=0, B=1, C=2, etc.).
type ColumnMapping struct {
	Item        int
	Description int
	Code        int
	Unit        int
	Price       int
	Quantity    int

	// StartRow is the 1-based number of the first data row. Rows before it
	// are headers and are ignored.
	StartRow int
}

// DefaultColumnMapping returns the layout of the reference budget sheets:
// ITEM=B, DESCRIÇÃO=C, CÓDIGO=D, UNID.=E, PREÇO=F, QUANTIDADE=S, data from row 7.
func DefaultColumnMapping() ColumnMapping {
	return ColumnMapping{
		Item:        1,  // Column B
		Description: 2,  // Column C
		Code:        3,  // Column D
		Unit:        4,  // Column E
		Price:       5,  // Column F
		Quantity:    18, // Column S
		StartRow:    7,
	}
}

// MaxIndex returns the highest column index referenced by the mapping.
func (m ColumnMapping) MaxIndex() int {
	max := m.Item
	for _, idx := range []int{m.Description, m.Code, m.Unit, m.Price, m.Quantity} {
		if idx > max {
			max = idx
		}
	}
	return max
}

// Validate rejects negative indices and a start row below 1.
func (m ColumnMapping) Validate() error {
	fields := map[string]int{
		"item":        m.Item,
		"description": m.Description,
		"code":        m.Code,
		"unit":        m.Unit,
		"price":       m.Price,
		"quantity":    m.Quantity,
	}
	for name, idx := range fields {
		if idx < 0 {
			return fmt.Errorf("column %s: negative index %d", name, idx)
		}
	}
	if m.StartRow < 1 {
		return fmt.Errorf("start_row must be >= 1, got %d", m.StartRow)
	}
	return nil
}

// =============================================================================
// COLUMN SPEC (YAML)
// =============================================================================

// ColumnRef is a column given either as a 0-based index ("18") or as a
// spreadsheet letter ("S").
type ColumnRef string

// UnmarshalYAML accepts both numeric and string scalars.
func (c *ColumnRef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: column must be a scalar", node.Line)
	}
	*c = ColumnRef(strings.TrimSpace(node.Value))
	return nil
}

// Index resolves the reference to a 0-based column index.
func (c ColumnRef) Index() (int, error) {
	return ResolveColumn(string(c))
}

// ColumnSpec is the YAML form of a ColumnMapping.
type ColumnSpec struct {
	Item        ColumnRef `yaml:"item"`
	Description ColumnRef `yaml:"description"`
	Code        ColumnRef `yaml:"code"`
	Unit        ColumnRef `yaml:"unit"`
	Price       ColumnRef `yaml:"price"`
	Quantity    ColumnRef `yaml:"quantity"`
	StartRow    int       `yaml:"start_row"`
}

// applyDefaults fills unset columns from DefaultColumnMapping.
func (s *ColumnSpec) applyDefaults() {
	d := DefaultColumnMapping()
	set := func(ref *ColumnRef, idx int) {
		if *ref == "" {
			*ref = ColumnRef(strconv.Itoa(idx))
		}
	}
	set(&s.Item, d.Item)
	set(&s.Description, d.Description)
	set(&s.Code, d.Code)
	set(&s.Unit, d.Unit)
	set(&s.Price, d.Price)
	set(&s.Quantity, d.Quantity)
	if s.StartRow == 0 {
		s.StartRow = d.StartRow
	}
}

// Resolve converts s into a validated ColumnMapping.
func (s ColumnSpec) Resolve() (ColumnMapping, error) {
	var m ColumnMapping
	refs := []struct {
		name string
		ref  ColumnRef
		dst  *int
	}{
		{"item", s.Item, &m.Item},
		{"description", s.Description, &m.Description},
		{"code", s.Code, &m.Code},
		{"unit", s.Unit, &m.Unit},
		{"price", s.Price, &m.Price},
		{"quantity", s.Quantity, &m.Quantity},
	}
	for _, r := range refs {
		idx, err := r.ref.Index()
		if err != nil {
			return ColumnMapping{}, fmt.Errorf("column %s: %w", r.name, err)
		}
		*r.dst = idx
	}
	m.StartRow = s.StartRow
	if err := m.Validate(); err != nil {
		return ColumnMapping{}, err
	}
	return m, nil
}

// ResolveColumn converts "18" or "S" into the 0-based index 18.
func ResolveColumn(ref string) (int, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return 0, fmt.Errorf("empty column reference")
	}
	if idx, err := strconv.Atoi(ref); err == nil {
		if idx < 0 {
			return 0, fmt.Errorf("negative column index %d", idx)
		}
		return idx, nil
	}
	n, err := excelize.ColumnNameToNumber(strings.ToUpper(ref))
	if err != nil {
		return 0, fmt.Errorf("invalid column %q: %w", ref, err)
	}
	return n - 1, nil
}
