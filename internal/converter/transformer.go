// =============================================================================
// Sienge Budget Normalizer - Hierarchy Normalizer
// =============================================================================
//
// This module rewrites a classified budget so that every task sits at exactly
// the fourth level of the dotted hierarchy (XXX.XXX.XXX.XXX), which is the
// only shape the Sienge import accepts.
//
// TASK PLACEMENT BY LEVEL:
//   - Level 2 (e.g. 01.03):
//       -> Synthetic headers 001.001 and 001.001.001 (level-1 description)
//       -> Task numbered sequentially inside 001.001.001
//   - Level 3 (e.g. 10.03.04):
//       -> Synthetic header 010.003.001 (level-2 description)
//       -> Task numbered sequentially inside 010.003.001
//   - Level 4: kept as-is
//   - Level 5+ (e.g. 12.04.01.02.01):
//       -> Flattened by concatenating the trailing segments
//       -> 012.004.001.002001
//   - Level 1: carried as a header, tasks cannot live at the root
//
// PASSES:
//   1. Harvest the description of every group row, so parents are known
//      regardless of where they appear in the input.
//   2. Emit rows in input order, inserting each synthetic header right
//      before the first task that needs it, never twice.
//
// All state is local to one call; concurrent calls share nothing.
//
// =============================================================================

package converter

import (
	"strconv"
	"strings"

	"github.com/ginjaninja78/sienge-budget-normalizer/internal/types"
)

// TargetLevel is the level every task is moved to.
const TargetLevel = 4

// syntheticSegment is the segment appended to build synthetic containers.
const syntheticSegment = "001"

// Stats summarizes one normalization.
type Stats struct {
	// Groups is the number of group rows carried through.
	Groups int

	// Tasks is the number of task rows in the input.
	Tasks int

	// SyntheticHeaders is the number of group rows created by the normalizer.
	SyntheticHeaders int

	// Renumbered counts level-2 and level-3 tasks given a sequential suffix.
	Renumbered int

	// Flattened counts level-5+ tasks merged into a level-4 identifier.
	Flattened int

	// RootTasks counts level-1 tasks that were carried as headers.
	RootTasks int
}

// Normalize rewrites records so every task is at level 4.
func Normalize(records []types.Record) []types.OutputRecord {
	out, _ := NormalizeReport(records)
	return out
}

// NormalizeReport is Normalize plus the statistics of the run.
func NormalizeReport(records []types.Record) ([]types.OutputRecord, Stats) {
	n := &normalizer{
		descriptionOf: make(map[string]string),
		emitted:       make(map[string]bool),
		counters:      make(map[string]int),
		taken:         make(map[string]bool),
		out:           make([]types.OutputRecord, 0, len(records)),
	}

	// Pass 1: description harvesting.
	for _, rec := range records {
		if g, ok := rec.(types.Group); ok {
			n.descriptionOf[g.ItemID().Padded()] = g.Description
		}
	}

	// Pass 2: emission.
	for _, rec := range records {
		switch r := rec.(type) {
		case types.Group:
			n.emitGroup(r.ItemID().Padded(), r.Description)
			n.stats.Groups++
		case types.Task:
			n.emitTask(r)
		}
	}

	return n.out, n.stats
}

// normalizer holds the cross-row state of a single Normalize call.
type normalizer struct {
	// descriptionOf maps a padded group identifier to its description.
	descriptionOf map[string]string

	// emitted records every identifier already written as a header.
	emitted map[string]bool

	// counters is the next sequential suffix per level-3 container.
	counters map[string]int

	// taken records identifiers already assigned to tasks.
	taken map[string]bool

	out   []types.OutputRecord
	stats Stats
}

func (n *normalizer) emitGroup(item, description string) {
	n.out = append(n.out, types.OutputRecord{Item: item, Description: description})
	n.emitted[item] = true
}

// synthesize emits a header unless one with the same identifier was
// already emitted.
func (n *normalizer) synthesize(item, description string) {
	if n.emitted[item] {
		return
	}
	n.emitGroup(item, description)
	n.stats.SyntheticHeaders++
}

func (n *normalizer) emitTask(t types.Task) {
	n.stats.Tasks++

	id := t.ItemID()
	parts := id.Parts()

	var item string
	switch level := id.Level(); {
	case level == 1:
		n.emitGroup(id.Padded(), t.Description)
		n.stats.RootTasks++
		return

	case level == 2:
		parent := parts[0]
		description := n.parentDescription(parent, t.Description)
		synL2 := parent + "." + syntheticSegment
		synL3 := synL2 + "." + syntheticSegment
		n.synthesize(synL2, description)
		n.synthesize(synL3, description)
		item = n.nextInContainer(synL3)

	case level == 3:
		parent := id.Prefix(2)
		synL3 := parent + "." + syntheticSegment
		n.synthesize(synL3, n.parentDescription(parent, t.Description))
		item = n.nextInContainer(synL3)

	case level == TargetLevel:
		// The level-3 group is expected to be in the input already.
		item = id.Padded()

	default:
		item = id.Prefix(3) + "." + strings.Join(parts[3:], "")
		n.stats.Flattened++
	}

	n.taken[item] = true

	code := t.Code
	unit := t.Unit
	n.out = append(n.out, types.OutputRecord{
		Item:        item,
		Code:        &code,
		Description: t.Description,
		Unit:        NormalizeUnit(&unit),
		Quantity:    copyFloat(t.Quantity),
		Price:       copyFloat(t.Price),
	})
}

// parentDescription returns the harvested description of parent, or
// fallback when no group with that identifier exists.
func (n *normalizer) parentDescription(parent, fallback string) string {
	if d, ok := n.descriptionOf[parent]; ok {
		return d
	}
	return fallback
}

// nextInContainer assigns the next free sequential identifier inside a
// level-3 container, starting at 001.
func (n *normalizer) nextInContainer(container string) string {
	next := n.counters[container]
	if next == 0 {
		next = 1
	}
	for {
		item := container + "." + types.PadSegment(strconv.Itoa(next))
		next++
		if !n.taken[item] {
			n.counters[container] = next
			n.stats.Renumbered++
			return item
		}
	}
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
