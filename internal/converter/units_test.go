package converter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeUnit(t *testing.T) {
	cases := []struct{ in, want string }{
		{"M2", "m2"},
		{"m2", "m2"},
		{"M3", "m3"},
		{"M", "m"},
		{"KG", "kg"},
		{"UND", "un"},
		{" und ", "un"},
		{"VB", "vb"},
		{"MÊS", "mes"},
		{"MES", "mes"},
		{"mês", "mes"},
		{"CJ", "cj"},
		{" Pç ", "pç"},
		{"10", "10"},
	}
	for _, tc := range cases {
		raw := tc.in
		got := NormalizeUnit(&raw)
		if assert.NotNil(t, got, tc.in) {
			assert.Equal(t, tc.want, *got, tc.in)
		}
	}

	assert.Nil(t, NormalizeUnit(nil))
}
