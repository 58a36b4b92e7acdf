package server

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ginjaninja78/sienge-budget-normalizer/internal/config"
	"github.com/ginjaninja78/sienge-budget-normalizer/internal/converter"
	"github.com/ginjaninja78/sienge-budget-normalizer/internal/xlsxparser"
)

// OutputFileName is the attachment name of every normalized workbook.
const OutputFileName = "planilha_final.xlsx"

const maxPreviewRows = 50

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler serves the upload endpoints.
type Handler struct {
	defaults  config.ColumnMapping
	maxUpload int64
	logger    converter.Logger
}

// NewHandler creates a Handler. Form fields that are not sent fall back to
// defaults.
func NewHandler(defaults config.ColumnMapping, maxUploadMB int64, logger converter.Logger) *Handler {
	if maxUploadMB <= 0 {
		maxUploadMB = 32
	}
	return &Handler{
		defaults:  defaults,
		maxUpload: maxUploadMB << 20,
		logger:    logger,
	}
}

// Health handles GET /healthz
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Sheets handles POST /api/sheets. It lists the worksheets of the uploaded
// workbook so a client can offer a sheet choice.
func (h *Handler) Sheets(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	names, err := xlsxparser.SheetNames(file)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"sheets": names})
}

// Preview handles POST /api/preview. It returns the top rows of a sheet,
// from the row above start_row on, so a client can pick column positions.
//
// FORM FIELDS:
//   - file: the budget workbook (required)
//   - sheet: worksheet name, first sheet when empty
//   - start_row: 1-based first data row, default from config
//   - rows: number of rows to return, 5 when empty (at most 50)
func (h *Handler) Preview(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	startRow, err := formInt(c, "start_row", h.defaults.StartRow)
	if err != nil || startRow < 1 {
		respondError(c, http.StatusBadRequest, "start_row must be an integer >= 1")
		return
	}
	n, err := formInt(c, "rows", xlsxparser.DefaultPreviewRows)
	if err != nil || n < 1 || n > maxPreviewRows {
		respondError(c, http.StatusBadRequest, fmt.Sprintf("rows must be between 1 and %d", maxPreviewRows))
		return
	}

	preview, err := xlsxparser.Preview(file, c.PostForm("sheet"), startRow, n)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, preview)
}

// Normalize handles POST /api/normalize.
//
// FORM FIELDS:
//   - file: the budget workbook (required)
//   - sheet: worksheet name, first sheet when empty
//   - item_col, desc_col, code_col, unit_col, price_col, qty_col:
//     0-based column index or column letter
//   - start_row: 1-based first data row
func (h *Handler) Normalize(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	mapping, err := h.mappingFromForm(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var out bytes.Buffer
	n, err := converter.ConvertStream(file, &out, c.PostForm("sheet"), mapping)
	if err != nil {
		h.logger.Warn("normalize %s: %v", header.Filename, err)
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Info("normalized %s: %d tasks, %d output rows", header.Filename, n.Stats.Tasks, len(n.Output))

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", OutputFileName))
	c.Header("X-Normalizer-Tasks", strconv.Itoa(n.Stats.Tasks))
	c.Header("X-Normalizer-Findings", strconv.Itoa(len(n.Report.Errors)))
	c.Data(http.StatusOK, xlsxContentType, out.Bytes())
}

func (h *Handler) mappingFromForm(c *gin.Context) (config.ColumnMapping, error) {
	m := h.defaults

	fields := []struct {
		name string
		dst  *int
	}{
		{"item_col", &m.Item},
		{"desc_col", &m.Description},
		{"code_col", &m.Code},
		{"unit_col", &m.Unit},
		{"price_col", &m.Price},
		{"qty_col", &m.Quantity},
	}
	for _, f := range fields {
		v := strings.TrimSpace(c.PostForm(f.name))
		if v == "" {
			continue
		}
		idx, err := config.ResolveColumn(v)
		if err != nil {
			return m, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = idx
	}

	row, err := formInt(c, "start_row", m.StartRow)
	if err != nil {
		return m, fmt.Errorf("start_row: %w", err)
	}
	m.StartRow = row

	return m, m.Validate()
}

// formInt reads an optional integer form field.
func formInt(c *gin.Context, name string, fallback int) (int, error) {
	v := strings.TrimSpace(c.PostForm(name))
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func respondError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}
