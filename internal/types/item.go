package types

import "strings"

// SegmentWidth is the width every identifier segment is zero-padded to.
const SegmentWidth = 3

// Item is a parsed dotted identifier such as "12.04.01".
// The zero value has no parts; ParseItem always yields at least one.
type Item struct {
	parts []string
}

// ParseItem splits raw on "." and zero-pads each segment to SegmentWidth.
// Segments already longer than SegmentWidth are kept as they are.
func ParseItem(raw string) Item {
	segments := strings.Split(raw, ".")
	parts := make([]string, len(segments))
	for i, seg := range segments {
		parts[i] = PadSegment(seg)
	}
	return Item{parts: parts}
}

// Parts returns a copy of the padded segments.
func (it Item) Parts() []string {
	out := make([]string, len(it.parts))
	copy(out, it.parts)
	return out
}

// Level is the depth of the identifier, i.e. the number of segments.
func (it Item) Level() int {
	return len(it.parts)
}

// Padded returns the canonical identifier, e.g. "012.004.001".
func (it Item) Padded() string {
	return strings.Join(it.parts, ".")
}

// Prefix joins the first n segments. n is clamped to the item level.
func (it Item) Prefix(n int) string {
	if n > len(it.parts) {
		n = len(it.parts)
	}
	return strings.Join(it.parts[:n], ".")
}

// PadSegment left-pads s with zeros to SegmentWidth characters.
func PadSegment(s string) string {
	if n := len(s); n < SegmentWidth {
		return strings.Repeat("0", SegmentWidth-n) + s
	}
	return s
}
