package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/sienge-budget-normalizer/internal/storage"
	"github.com/ginjaninja78/sienge-budget-normalizer/internal/types"
	"github.com/ginjaninja78/sienge-budget-normalizer/internal/xlsxwriter"
)

// execute runs the CLI with args and returns everything it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := bytes.NewBuffer(nil)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return buf.String(), err
}

// writeConfig writes a main config whose default layout is A..F from row 2.
func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	historyDB := filepath.Join(root, "data", "history.db")
	cfg := fmt.Sprintf(`
profiles_dir: %q
history_db: %q
log_level: error
default_columns:
  item: A
  description: B
  code: C
  unit: D
  price: E
  quantity: F
  start_row: 2
`, filepath.Join(root, "profiles"), historyDB)
	path := filepath.Join(root, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path, historyDB
}

func writeBudget(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}
	path := filepath.Join(t.TempDir(), "obra.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestVerifyCommand(t *testing.T) {
	cfg, _ := writeConfig(t)
	input := writeBudget(t, [][]any{
		{"ITEM", "DESCRIÇÃO", "CÓDIGO", "UNID.", "PREÇO", "QTD"},
		{"1", "Fundações"},
		{"1.1", "Estaca", "C-01", "M", 80, 12},
		{"1.1.1.1.2", "Bloco", "C-02", "M3", 300, 2},
	})

	out, err := execute(t, "verify", "--config", cfg, "--input", input, "--profile", "", "--sheet", "")
	require.NoError(t, err, out)
	assert.Contains(t, out, "=== Verification Report ===")
	assert.Contains(t, out, "[PASS] Task count: in=2, out=2")
	assert.Contains(t, out, "Flattened items: 1")
}

func TestVerifyCommand_Duplicates(t *testing.T) {
	cfg, _ := writeConfig(t)
	input := writeBudget(t, [][]any{
		{"ITEM"},
		{"1.1.1", "Grupo"},
		{"1.1.1.1", "A", "C1", "M", 1, 1},
		{"1.1.1.1", "B", "C2", "M", 1, 1},
	})

	out, err := execute(t, "verify", "--config", cfg, "--input", input, "--profile", "", "--sheet", "")
	assert.ErrorContains(t, err, "verification failed")
	assert.Contains(t, out, "duplicate_item")
}

func TestDiffCommand(t *testing.T) {
	q := func(f float64) *float64 { return &f }
	code := "C-01"
	ref := []types.OutputRecord{
		{Item: "001", Description: "Fundações"},
		{Item: "001.001.001.001", Description: "Estaca", Code: &code, Quantity: q(12)},
	}

	dir := t.TempDir()
	refPath := filepath.Join(dir, "ref.xlsx")
	samePath := filepath.Join(dir, "same.xlsx")
	offPath := filepath.Join(dir, "off.xlsx")
	require.NoError(t, xlsxwriter.SaveFile(refPath, ref))
	require.NoError(t, xlsxwriter.SaveFile(samePath, []types.OutputRecord{
		ref[0],
		{Item: "001.001.001.001", Description: "Estaca", Code: &code, Quantity: q(12.004)},
	}))
	require.NoError(t, xlsxwriter.SaveFile(offPath, []types.OutputRecord{
		ref[0],
		{Item: "001.001.001.002", Description: "Estaca", Code: &code, Quantity: q(12)},
	}))

	out, err := execute(t, "diff", "--reference", refPath, "--output", samePath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "[PASS] Workbooks match.")

	out, err = execute(t, "diff", "--reference", refPath, "--output", offPath)
	assert.ErrorContains(t, err, "workbooks differ")
	assert.Contains(t, out, "item_mismatch")
}

func TestHistoryCommand(t *testing.T) {
	cfg, historyDB := writeConfig(t)

	db, err := storage.Open(historyDB)
	require.NoError(t, err)
	_, err = db.RecordRun(context.Background(), storage.Run{
		InputFile: "/data/input/planilha_camil.xlsx",
		Profile:   "camil",
		Success:   true,
		Counts:    map[string]int{"tasks": 42, "flattened": 3},
	})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	out, err := execute(t, "history", "--config", cfg, "--limit", "5")
	require.NoError(t, err, out)
	assert.Contains(t, out, "planilha_camil.xlsx")
	assert.Contains(t, out, "camil")
	assert.Contains(t, out, "42")
}
