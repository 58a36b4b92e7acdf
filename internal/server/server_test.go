package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/sienge-budget-normalizer/internal/config"
	"github.com/ginjaninja78/sienge-budget-normalizer/internal/converter"
	"github.com/ginjaninja78/sienge-budget-normalizer/internal/xlsxwriter"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter() *gin.Engine {
	return Setup(config.DefaultColumnMapping(), 1, converter.NopLogger())
}

// mkWorkbook writes rows from A1 on the named sheets, in order.
func mkWorkbook(t *testing.T, sheets map[string][][]any, order ...string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, name := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName(f.GetSheetName(0), name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range sheets[name] {
			for c, v := range row {
				cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
				require.NoError(t, f.SetCellValue(name, cell, v))
			}
		}
	}
	buf := bytes.NewBuffer(nil)
	_, err := f.WriteTo(buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func multipartRequest(t *testing.T, path string, file []byte, fields map[string]string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if file != nil {
		part, err := writer.CreateFormFile("file", "orcamento.xlsx")
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

var simpleBudget = [][]any{
	{"ITEM", "DESCRIÇÃO", "CÓDIGO", "UNID.", "PREÇO", "QTD"},
	{"1", "Serviços preliminares"},
	{"1.1", "Placa de obra", "C-01", "M2", 150, 6},
}

var simpleForm = map[string]string{
	"item_col":  "A",
	"desc_col":  "B",
	"code_col":  "2",
	"unit_col":  "D",
	"price_col": "E",
	"qty_col":   "F",
	"start_row": "2",
}

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	newTestRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestID_Propagated(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	newTestRouter().ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestSheets(t *testing.T) {
	blob := mkWorkbook(t, map[string][][]any{
		"Capa":      {{"x"}},
		"Orçamento": simpleBudget,
	}, "Capa", "Orçamento")

	w := httptest.NewRecorder()
	newTestRouter().ServeHTTP(w, multipartRequest(t, "/api/sheets", blob, nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Sheets []string `json:"sheets"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"Capa", "Orçamento"}, resp.Sheets)
}

func TestSheets_NotAWorkbook(t *testing.T) {
	w := httptest.NewRecorder()
	newTestRouter().ServeHTTP(w, multipartRequest(t, "/api/sheets", []byte("plain text"), nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "error")
}

func TestNormalize(t *testing.T) {
	blob := mkWorkbook(t, map[string][][]any{"Orçamento": simpleBudget}, "Orçamento")

	w := httptest.NewRecorder()
	newTestRouter().ServeHTTP(w, multipartRequest(t, "/api/normalize", blob, simpleForm))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, `attachment; filename="planilha_final.xlsx"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "1", w.Header().Get("X-Normalizer-Tasks"))

	got, err := xlsxwriter.Read(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "001.001.001.001", got[3].Item)
	assert.Equal(t, "Placa de obra", got[3].Description)
	assert.Equal(t, "m2", *got[3].Unit)
	assert.Equal(t, "Serviços preliminares", got[2].Description)
}

func TestNormalize_SheetSelection(t *testing.T) {
	blob := mkWorkbook(t, map[string][][]any{
		"Capa":      {{"capa"}},
		"Orçamento": simpleBudget,
	}, "Capa", "Orçamento")

	form := map[string]string{"sheet": "Orçamento"}
	for k, v := range simpleForm {
		form[k] = v
	}

	w := httptest.NewRecorder()
	newTestRouter().ServeHTTP(w, multipartRequest(t, "/api/normalize", blob, form))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	form["sheet"] = "Resumo"
	w = httptest.NewRecorder()
	newTestRouter().ServeHTTP(w, multipartRequest(t, "/api/normalize", blob, form))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Resumo")
}

func TestNormalize_BadRequests(t *testing.T) {
	blob := mkWorkbook(t, map[string][][]any{"Orçamento": simpleBudget}, "Orçamento")

	tests := []struct {
		name   string
		file   []byte
		fields map[string]string
		want   string
	}{
		{"missing file", nil, simpleForm, "file field is required"},
		{"bad column", blob, map[string]string{"item_col": "#"}, "item_col"},
		{"negative column", blob, map[string]string{"qty_col": "-1"}, "qty_col"},
		{"bad start row", blob, map[string]string{"start_row": "seven"}, "start_row"},
		{"zero start row", blob, map[string]string{"start_row": "0"}, "start_row"},
		{"not a workbook", []byte("nope"), simpleForm, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			newTestRouter().ServeHTTP(w, multipartRequest(t, "/api/normalize", tt.file, tt.fields))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}

func TestNormalize_UploadTooLarge(t *testing.T) {
	big := bytes.Repeat([]byte("x"), 2<<20)

	w := httptest.NewRecorder()
	newTestRouter().ServeHTTP(w, multipartRequest(t, "/api/normalize", big, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPreview(t *testing.T) {
	blob := mkWorkbook(t, map[string][][]any{
		"Capa":      {{"capa"}},
		"Orçamento": simpleBudget,
	}, "Capa", "Orçamento")

	w := httptest.NewRecorder()
	newTestRouter().ServeHTTP(w, multipartRequest(t, "/api/preview", blob, map[string]string{
		"sheet":     "Orçamento",
		"start_row": "2",
		"rows":      "2",
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Sheet string `json:"sheet"`
		Rows  []struct {
			Row   int      `json:"row"`
			Cells []string `json:"cells"`
		} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Orçamento", resp.Sheet)
	require.Len(t, resp.Rows, 2)
	assert.Equal(t, 1, resp.Rows[0].Row)
	assert.Equal(t, []string{"ITEM", "DESCRIÇÃO", "CÓDIGO", "UNID.", "PREÇO", "QTD"}, resp.Rows[0].Cells)
	assert.Equal(t, []string{"1", "Serviços preliminares"}, resp.Rows[1].Cells)
}

func TestPreview_BadRequests(t *testing.T) {
	blob := mkWorkbook(t, map[string][][]any{"Orçamento": simpleBudget}, "Orçamento")

	tests := []struct {
		name   string
		file   []byte
		fields map[string]string
		want   string
	}{
		{"missing file", nil, nil, "file field is required"},
		{"bad start row", blob, map[string]string{"start_row": "0"}, "start_row"},
		{"too many rows", blob, map[string]string{"rows": "500"}, "rows"},
		{"unknown sheet", blob, map[string]string{"sheet": "Resumo"}, "Resumo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			newTestRouter().ServeHTTP(w, multipartRequest(t, "/api/preview", tt.file, tt.fields))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}
