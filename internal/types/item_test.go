package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseItem(t *testing.T) {
	cases := []struct {
		raw    string
		parts  []string
		level  int
		padded string
	}{
		{raw: "1", parts: []string{"001"}, level: 1, padded: "001"},
		{raw: "2.03", parts: []string{"002", "003"}, level: 2, padded: "002.003"},
		{raw: "1.2.3.4", parts: []string{"001", "002", "003", "004"}, level: 4, padded: "001.002.003.004"},
		{raw: "12.04.01.02.01", parts: []string{"012", "004", "001", "002", "001"}, level: 5, padded: "012.004.001.002.001"},
		{raw: "1.1234", parts: []string{"001", "1234"}, level: 2, padded: "001.1234"},
	}

	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			it := ParseItem(tc.raw)
			assert.Equal(t, tc.parts, it.Parts())
			assert.Equal(t, tc.level, it.Level())
			assert.Equal(t, tc.padded, it.Padded())
		})
	}
}

func TestItemPrefix(t *testing.T) {
	it := ParseItem("10.3.4")
	assert.Equal(t, "010", it.Prefix(1))
	assert.Equal(t, "010.003", it.Prefix(2))
	assert.Equal(t, "010.003.004", it.Prefix(5))
}

func TestPartsReturnsCopy(t *testing.T) {
	it := ParseItem("1.1")
	parts := it.Parts()
	parts[0] = "999"
	assert.Equal(t, "001.001", it.Padded())
}

func TestRecordVariants(t *testing.T) {
	var g Record = Group{RawItem: "1", Description: "Obras"}
	var task Record = Task{RawItem: "1.1.1.1", Description: "Tarefa", Code: "C1", Unit: "M2"}

	assert.False(t, IsTask(g))
	assert.True(t, IsTask(task))
	assert.Equal(t, "001.001.001.001", task.ItemID().Padded())
	assert.Equal(t, "Obras", g.Desc())
}
