package services

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"shop-analytics-api/pkg/models"
)

func rawRows(t *testing.T, rows ...string) []json.RawMessage {
	t.Helper()
	out := make([]json.RawMessage, len(rows))
	for i, r := range rows {
		out[i] = json.RawMessage(r)
	}
	return out
}

func columns(names ...string) []models.Column {
	cols := make([]models.Column, len(names))
	for i, n := range names {
		cols[i] = models.Column{Name: n, DataType: "STRING", DisplayName: n}
	}
	return cols
}

func TestNormalizeTablePositionalRows(t *testing.T) {
	table := models.TableResult{
		Columns: columns("name", "value"),
		Rows:    rawRows(t, `["A",10]`, `["B",20]`),
	}

	want := []models.NormalizedRow{
		{"name": "A", "value": json.Number("10")},
		{"name": "B", "value": json.Number("20")},
	}
	if diff := cmp.Diff(want, NormalizeTable(table)); diff != "" {
		t.Errorf("NormalizeTable() mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeTableMappedRowsUnchanged(t *testing.T) {
	table := models.TableResult{
		Columns: columns("product_title", "total_sales"),
		Rows:    rawRows(t, `{"product_title":"Lamp","total_sales":"₹1,200.00"}`, `{"product_title":"Desk","total_sales":null,"extra":true}`),
	}

	first := NormalizeTable(table)
	want := []models.NormalizedRow{
		{"product_title": "Lamp", "total_sales": "₹1,200.00"},
		{"product_title": "Desk", "total_sales": nil, "extra": true},
	}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Errorf("mapped rows changed (-want +got):\n%s", diff)
	}

	// 同じ入力からは常に同じ結果
	if diff := cmp.Diff(first, NormalizeTable(table)); diff != "" {
		t.Errorf("NormalizeTable is not deterministic:\n%s", diff)
	}
}

func TestNormalizeTableExtraValuesDropped(t *testing.T) {
	table := models.TableResult{
		Columns: columns("name"),
		Rows:    rawRows(t, `["A", 1, 2]`, `[]`),
	}
	got := NormalizeTable(table)
	assert.Equal(t, []models.NormalizedRow{{"name": "A"}, {}}, got)
}

func TestNormalizeTableScalarRows(t *testing.T) {
	table := models.TableResult{
		Columns: columns("total_sales", "orders"),
		Rows:    rawRows(t, `42`, `"n/a"`, `null`),
	}
	got := NormalizeTable(table)
	assert.Equal(t, []models.NormalizedRow{
		{"total_sales": json.Number("42")},
		{"total_sales": "n/a"},
		{"total_sales": nil},
	}, got)

	// 列がない場合はスカラー行を捨てる
	assert.Empty(t, NormalizeTable(models.TableResult{Rows: rawRows(t, `42`)}))
}

func TestNormalizeTableMixedAndMalformed(t *testing.T) {
	table := models.TableResult{
		Columns: columns("sku", "qty"),
		Rows:    rawRows(t, `{"sku":"A","qty":1}`, `["B", 2]`, `"C"`, `{broken`, ``),
	}
	got := NormalizeTable(table)
	assert.Equal(t, []models.NormalizedRow{
		{"sku": "A", "qty": json.Number("1")},
		{"sku": "B", "qty": json.Number("2")},
		{"sku": "C"},
	}, got)
}

func TestNormalizeTableKeepsNumberLiterals(t *testing.T) {
	table := models.TableResult{
		Columns: columns("customer_id", "product_variant_sku", "total_sales"),
		Rows:    rawRows(t, `[9007199254740993, 12345678, 1234.50]`, `{"customer_id":9007199254740993}`),
	}
	want := []models.NormalizedRow{
		{"customer_id": json.Number("9007199254740993"), "product_variant_sku": json.Number("12345678"), "total_sales": json.Number("1234.50")},
		{"customer_id": json.Number("9007199254740993")},
	}
	if diff := cmp.Diff(want, NormalizeTable(table)); diff != "" {
		t.Errorf("NormalizeTable() mismatch (-want +got):\n%s", diff)
	}

	// 末尾に余分なデータがある行は不正として捨てる
	assert.Empty(t, NormalizeTable(models.TableResult{Columns: columns("x"), Rows: rawRows(t, `[1] [2]`)}))
}

func TestNormalizeTableEmpty(t *testing.T) {
	got := NormalizeTable(models.TableResult{})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
