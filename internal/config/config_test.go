package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestResolveColumn(t *testing.T) {
	cases := []struct {
		ref  string
		want int
	}{
		{"0", 0},
		{"18", 18},
		{"A", 0},
		{"b", 1},
		{"S", 18},
		{"AA", 26},
		{" C ", 2},
	}
	for _, tc := range cases {
		got, err := ResolveColumn(tc.ref)
		require.NoError(t, err, tc.ref)
		assert.Equal(t, tc.want, got, tc.ref)
	}

	_, err := ResolveColumn("")
	assert.Error(t, err)
	_, err = ResolveColumn("-1")
	assert.Error(t, err)
	_, err = ResolveColumn("1A")
	assert.Error(t, err)
}

func TestLoadMainConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadMainConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "./input", cfg.InputDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.True(t, cfg.ShouldContinueOnError())

	m, err := cfg.DefaultColumns.Resolve()
	require.NoError(t, err)
	assert.Equal(t, DefaultColumnMapping(), m)
}

func TestLoadMainConfig_YAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, `
input_dir: ./in
output_dir: ./out
max_concurrency: 2
continue_on_error: false
default_columns:
  item: A
  description: 1
  code: C
  unit: D
  price: E
  quantity: F
  start_row: 2
`)
	t.Setenv("NORMALIZER_OUTPUT_DIR", "/tmp/elsewhere")
	t.Setenv("NORMALIZER_MAX_CONCURRENCY", "8")

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "./in", cfg.InputDir)
	assert.Equal(t, "/tmp/elsewhere", cfg.OutputDir)
	assert.Equal(t, 8, cfg.MaxConcurrency)
	assert.False(t, cfg.ShouldContinueOnError())

	m, err := cfg.DefaultColumns.Resolve()
	require.NoError(t, err)
	assert.Equal(t, ColumnMapping{Item: 0, Description: 1, Code: 2, Unit: 3, Price: 4, Quantity: 5, StartRow: 2}, m)
}

func TestLoadMainConfig_InvalidColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "default_columns:\n  item: \"1A\"\n")

	_, err := LoadMainConfig(path)
	assert.Error(t, err)
}

func TestLoadProfiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "camil.yaml"), `
profile_name: Camil
profile_code: camil
file_matching_patterns:
  - "planilha_camil*.xlsx"
columns:
  item: B
  description: D
  code: E
  unit: F
  price: G
  quantity: H
  start_row: 7
`)
	writeFile(t, filepath.Join(dir, "leonardo.yml"), `
profile_name: Leonardo
file_matching_patterns: ["planilha_leonardo*"]
`)

	profiles, err := LoadProfiles(dir)
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	camil := profiles["camil"]
	require.NotNil(t, camil)
	m, err := camil.Columns.Resolve()
	require.NoError(t, err)
	assert.Equal(t, ColumnMapping{Item: 1, Description: 3, Code: 4, Unit: 5, Price: 6, Quantity: 7, StartRow: 7}, m)
	assert.Equal(t, ";", camil.CSVSettings.Delimiter)

	leo := profiles["leonardo"]
	require.NotNil(t, leo)
	m, err = leo.Columns.Resolve()
	require.NoError(t, err)
	assert.Equal(t, DefaultColumnMapping(), m)

	assert.Same(t, camil, MatchProfile("/data/planilha_camil_v2.xlsx", profiles))
	assert.Nil(t, MatchProfile("other.xlsx", profiles))
}

func TestMatchProfile_OverlappingPatterns(t *testing.T) {
	profiles := map[string]*Profile{
		"zeta":  {ProfileCode: "zeta", FileMatchingPatterns: []string{"*.xlsx"}},
		"alpha": {ProfileCode: "alpha", FileMatchingPatterns: []string{"obra_*.xlsx"}},
		"mid":   {ProfileCode: "mid", FileMatchingPatterns: []string{"obra_*"}},
	}

	for i := 0; i < 50; i++ {
		got := MatchProfile("obra_centro.xlsx", profiles)
		require.NotNil(t, got)
		assert.Equal(t, "alpha", got.ProfileCode)
	}
	assert.Equal(t, "zeta", MatchProfile("casa.xlsx", profiles).ProfileCode)
}

func TestSelectProfile(t *testing.T) {
	cfg, err := LoadMainConfig(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)

	profiles := map[string]*Profile{
		"camil": {ProfileCode: "camil", FileMatchingPatterns: []string{"camil_*.xlsx"}},
	}

	p, err := SelectProfile("camil_1.xlsx", "", profiles, cfg)
	require.NoError(t, err)
	assert.Equal(t, "camil", p.ProfileCode)

	p, err = SelectProfile("x.xlsx", "", profiles, cfg)
	require.NoError(t, err)
	assert.Equal(t, "default", p.ProfileCode)

	_, err = SelectProfile("x.xlsx", "missing", profiles, cfg)
	assert.True(t, errors.Is(err, ErrNoProfile))
}

func TestColumnMappingValidate(t *testing.T) {
	m := DefaultColumnMapping()
	assert.NoError(t, m.Validate())
	assert.Equal(t, 18, m.MaxIndex())

	m.StartRow = 0
	assert.Error(t, m.Validate())

	m = DefaultColumnMapping()
	m.Code = -1
	assert.Error(t, m.Validate())
}
