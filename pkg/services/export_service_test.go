package services

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"shop-analytics-api/pkg/models"
)

func openWorkbook(t *testing.T, buf *bytes.Buffer) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestWriteXLSXTable(t *testing.T) {
	res := Resolution{
		Params: models.QueryParams{Intent: "total_sales_over_time", Since: "startOfDay(-7d)", Until: "today"},
		Path:   PathTemplated,
		Query:  "FROM sales SHOW total_sales",
		Columns: []models.Column{
			{Name: "day", DisplayName: "Day"},
			{Name: "total_sales", DisplayName: "Total sales"},
		},
		Rows: []models.NormalizedRow{
			{"day": "2025-01-01", "total_sales": "120.50"},
			{"day": "2025-01-02", "total_sales": float64(80), "note": "promo"},
			{"day": "2025-01-03", "total_sales": json.Number("95")},
		},
		Response: models.Response{Answer: "Sales grew.", Confidence: models.ConfidenceHigh},
	}

	buf, err := NewExportService().WriteXLSX("How are sales?", res)
	require.NoError(t, err)

	f := openWorkbook(t, buf)
	rows, err := f.GetRows(resultSheet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Day", "Total sales", "note"},
		{"2025-01-01", "120.50"},
		{"2025-01-02", "80", "promo"},
		{"2025-01-03", "95"},
	}, rows)

	summary, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"Question", "How are sales?"}, summary[0])
	assert.Equal(t, []string{"Intent", "total_sales_over_time"}, summary[1])
	assert.Equal(t, []string{"Confidence", "high"}, summary[6])
}

func TestCellValueConvertsNumbers(t *testing.T) {
	assert.Equal(t, int64(9007199254740993), cellValue(json.Number("9007199254740993")))
	assert.Equal(t, 12.5, cellValue(json.Number("12.5")))
	assert.Equal(t, "₹10", cellValue("₹10"))
}

func TestWriteXLSXForecast(t *testing.T) {
	report := ForecastReport{
		Lines: []models.ForecastLine{
			{SKU: "W-1", Title: "Widget", DailyRate: 2, Forecast30d: 60, OnHand: 10, ReorderQty: 50},
		},
		Totals: models.ForecastTotals{Forecast30d: 70, OnHand: 30, ReorderQty: 50},
	}
	res := Resolution{
		Params:   models.QueryParams{Intent: models.IntentReorderForecast},
		Path:     PathForecast,
		Forecast: &report,
	}

	buf, err := NewExportService().WriteXLSX("restock?", res)
	require.NoError(t, err)

	rows, err := openWorkbook(t, buf).GetRows(resultSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"SKU", "Product", "Daily rate", "Forecast (30d)", "On hand", "Reorder qty"}, rows[0])
	assert.Equal(t, []string{"W-1", "Widget", "2", "60", "10", "50"}, rows[1])
	assert.Equal(t, []string{"TOTAL", "", "", "70", "30", "50"}, rows[2])
}

func TestWriteXLSXEmptyResult(t *testing.T) {
	res := Resolution{
		Outcome:  OutcomeParseError,
		Response: models.Response{Answer: "Query Error: []", Confidence: models.ConfidenceHigh},
	}
	buf, err := NewExportService().WriteXLSX("q", res)
	require.NoError(t, err)

	rows, err := openWorkbook(t, buf).GetRows(resultSheet)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
