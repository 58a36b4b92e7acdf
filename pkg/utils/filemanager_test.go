package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func newTestManager(t *testing.T) *FileManager {
	root := t.TempDir()
	return NewFileManager(
		filepath.Join(root, "input"),
		filepath.Join(root, "output"),
		filepath.Join(root, "input_archive"),
		filepath.Join(root, "output_archive"),
	)
}

func TestDiscoverInputFiles(t *testing.T) {
	fm := newTestManager(t)
	touch(t, filepath.Join(fm.InputDir, "b.xlsx"))
	touch(t, filepath.Join(fm.InputDir, "a.CSV"))
	touch(t, filepath.Join(fm.InputDir, "~$b.xlsx"))
	touch(t, filepath.Join(fm.InputDir, "notes.txt"))
	require.NoError(t, os.MkdirAll(filepath.Join(fm.InputDir, "sub.xlsx"), 0o755))

	files, err := fm.DiscoverInputFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(fm.InputDir, "a.CSV"),
		filepath.Join(fm.InputDir, "b.xlsx"),
	}, files)
}

func TestDiscoverInputFiles_MissingDir(t *testing.T) {
	fm := newTestManager(t)
	_, err := fm.DiscoverInputFiles()
	assert.Error(t, err)
}

func TestArchive(t *testing.T) {
	fm := newTestManager(t)
	in := filepath.Join(fm.InputDir, "budget.xlsx")
	out := filepath.Join(fm.OutputDir, "budget_sienge.xlsx")
	touch(t, in)
	touch(t, out)

	archived, err := fm.ArchiveInputFile(in)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.InputArchiveDir, "budget.xlsx"), archived)
	assert.NoFileExists(t, in)
	assert.FileExists(t, archived)

	copied, err := fm.ArchiveOutputFile(out)
	require.NoError(t, err)
	assert.FileExists(t, out)
	assert.FileExists(t, copied)
}

func TestArchiveInputFile_Disabled(t *testing.T) {
	fm := newTestManager(t)
	fm.ArchiveOnSuccess = false
	in := filepath.Join(fm.InputDir, "budget.xlsx")
	touch(t, in)

	got, err := fm.ArchiveInputFile(in)
	require.NoError(t, err)
	assert.Equal(t, in, got)
	assert.FileExists(t, in)
}

func TestGenerateOutputFileName(t *testing.T) {
	name := GenerateOutputFileName("{original}_{profile}_sienge", map[string]string{
		"original": "planilha_camil",
		"profile":  "camil",
	})
	assert.Equal(t, "planilha_camil_camil_sienge.xlsx", name)

	name = GenerateOutputFileName("{uuid}.xlsx", nil)
	assert.Len(t, strings.TrimSuffix(name, ".xlsx"), 36)

	name = GenerateOutputFileName("out_{date}.XLSX", nil)
	assert.True(t, strings.HasSuffix(name, ".XLSX"))
	assert.NotContains(t, name, "{date}")
}

func TestWriteSummaryLog(t *testing.T) {
	dir := t.TempDir()
	start := time.Now()
	path, err := WriteSummaryLog(ProcessingSummary{
		StartTime:       start,
		EndTime:         start.Add(2 * time.Second),
		TotalFiles:      2,
		SuccessfulFiles: 1,
		FailedFiles:     1,
		TotalTasks:      42,
		ProcessedFiles:  []ProcessedFileInfo{{InputFile: "a.xlsx", OutputFile: "a_sienge.xlsx", Tasks: 42}},
		FailedFilesList: []FailedFileInfo{{InputFile: "b.xlsx", ErrorMessage: "sheet not found"}},
	}, dir)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "Total Tasks:        42")
	assert.Contains(t, text, "a_sienge.xlsx")
	assert.Contains(t, text, "sheet not found")
}
