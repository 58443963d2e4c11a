package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shop-analytics-api/pkg/models"
)

const (
	salesColumnsJSON     = `[{"name":"product_title","dataType":"STRING","displayName":"Product"},{"name":"product_variant_sku","dataType":"STRING","displayName":"SKU"},{"name":"net_items_sold","dataType":"NUMBER","displayName":"Net items sold"}]`
	inventoryColumnsJSON = `[{"name":"product_title","dataType":"STRING","displayName":"Product"},{"name":"product_variant_sku","dataType":"STRING","displayName":"SKU"},{"name":"ending_inventory_units","dataType":"NUMBER","displayName":"Ending units"}]`
)

func newForecaster(runner *fakeRunner) *ReorderForecaster {
	builder := NewQueryBuilder(NewTemplateRegistry(), nil, "", zap.NewNop())
	return NewReorderForecaster(builder, NewQueryExecutor(runner, zap.NewNop()), zap.NewNop())
}

func TestForecastReorderMath(t *testing.T) {
	runner := &fakeRunner{responses: []runnerResponse{
		{body: tableBody(salesColumnsJSON, `[["Widget","W-1","60"],["Gadget","G-1",10]]`)},
		{body: tableBody(inventoryColumnsJSON, `[["Widget","W-1",10],["Gadget","G-1","20"]]`)},
	}}

	report := newForecaster(runner).Forecast(context.Background(), "demo.myshopify.com", "token")
	require.Nil(t, report.Failure)

	require.Len(t, report.Lines, 1)
	line := report.Lines[0]
	assert.Equal(t, "W-1", line.SKU)
	assert.Equal(t, "Widget", line.Title)
	assert.InDelta(t, 2.0, line.DailyRate, 1e-9)
	assert.InDelta(t, 60.0, line.Forecast30d, 1e-9)
	assert.InDelta(t, 10.0, line.OnHand, 1e-9)
	assert.InDelta(t, 50.0, line.ReorderQty, 1e-9)

	// G-1 は発注不要でも合計には含まれる
	assert.InDelta(t, 70.0, report.Totals.Forecast30d, 1e-9)
	assert.InDelta(t, 30.0, report.Totals.OnHand, 1e-9)
	assert.InDelta(t, 50.0, report.Totals.ReorderQty, 1e-9)

	want := "Based on the last 30 days, you will likely need about 70 units next month across all products. " +
		"You currently have ~30 units on hand. Planned reorder: 50 units.\n\n" +
		"Top products to reorder:\n- Widget (W-1): need ~60, on hand 10 → reorder 50"
	assert.Equal(t, want, report.Answer)
	assert.Equal(t, models.Response{Answer: want, Confidence: models.ConfidenceHigh}, report.Response())

	require.Len(t, runner.queries, 2)
	assert.Contains(t, runner.queries[0], "FROM sales")
	assert.Contains(t, runner.queries[0], "LIMIT 1000")
	assert.Contains(t, runner.queries[1], "FROM inventory")
	assert.Contains(t, runner.queries[1], "SINCE startOfDay(-1d) UNTIL today")
	assert.Contains(t, runner.queries[1], "LIMIT 2000")
}

func TestForecastNoReorders(t *testing.T) {
	runner := &fakeRunner{responses: []runnerResponse{
		{body: tableBody(salesColumnsJSON, `[["Gadget","G-1",10]]`)},
		{body: tableBody(inventoryColumnsJSON, `[["Gadget","G-1",20]]`)},
	}}

	report := newForecaster(runner).Forecast(context.Background(), "s", "t")
	assert.Empty(t, report.Lines)
	assert.Equal(t,
		"Based on the last 30 days, you will likely need about 10 units next month across all products. "+
			"You currently have ~20 units on hand. Planned reorder: 0 units.\n\n"+
			"No immediate reorders are required given current inventory levels and recent demand.",
		report.Answer)
}

func TestForecastTopFiveSortedWithTies(t *testing.T) {
	runner := &fakeRunner{responses: []runnerResponse{
		{body: tableBody(salesColumnsJSON, `[
			["A","SKU-A",10],["B","SKU-B",40],["C","SKU-C",40],
			["D","SKU-D",20],["E","SKU-E",30],["F","SKU-F",5],["G","SKU-G",1]
		]`)},
		{body: tableBody(inventoryColumnsJSON, `[]`)},
	}}

	report := newForecaster(runner).Forecast(context.Background(), "s", "t")
	require.Len(t, report.Lines, 7)

	var order []string
	for _, l := range report.Lines {
		order = append(order, l.SKU)
	}
	assert.Equal(t, []string{"SKU-B", "SKU-C", "SKU-E", "SKU-D", "SKU-A", "SKU-F", "SKU-G"}, order)

	assert.Contains(t, report.Answer, "- C (SKU-C): need ~40, on hand 0 → reorder 40")
	assert.Contains(t, report.Answer, "- A (SKU-A)")
	assert.NotContains(t, report.Answer, "SKU-F")
	assert.NotContains(t, report.Answer, "SKU-G")
}

func TestForecastKeysAndHeaderRows(t *testing.T) {
	runner := &fakeRunner{responses: []runnerResponse{
		{body: tableBody(salesColumnsJSON, `[
			{"product_title":"product_title","product_variant_sku":"product_variant_sku","net_items_sold":"net_items_sold"},
			{"product_title":"Mug","product_variant_sku":"","net_items_sold":"1,200"},
			{"product_title":"","product_variant_sku":"","net_items_sold":99},
			{"net_items_sold":5}
		]`)},
		{body: tableBody(inventoryColumnsJSON, `[
			{"product_title":"Only In Stock","product_variant_sku":"S-9","ending_inventory_units":"Ending_Inventory_Units"},
			{"product_title":"Mug","product_variant_sku":null,"ending_inventory_units":200}
		]`)},
	}}

	report := newForecaster(runner).Forecast(context.Background(), "s", "t")
	require.Len(t, report.Lines, 1)
	assert.Equal(t, "Mug", report.Lines[0].SKU)
	assert.Equal(t, "Mug", report.Lines[0].Title)
	assert.InDelta(t, 1000.0, report.Lines[0].ReorderQty, 1e-9)
	assert.InDelta(t, 1200.0, report.Totals.Forecast30d, 1e-9)
	assert.InDelta(t, 200.0, report.Totals.OnHand, 1e-9)
}

func TestForecastBlankSKUJoinsOnTitle(t *testing.T) {
	runner := &fakeRunner{responses: []runnerResponse{
		{body: tableBody(salesColumnsJSON, `[[" Gadget ","   ",40]]`)},
		{body: tableBody(inventoryColumnsJSON, `[["Gadget","",5]]`)},
	}}

	report := newForecaster(runner).Forecast(context.Background(), "s", "t")
	require.Len(t, report.Lines, 1)
	assert.Equal(t, "Gadget", report.Lines[0].SKU)
	assert.InDelta(t, 35.0, report.Lines[0].ReorderQty, 1e-9)
	assert.InDelta(t, 35.0, report.Totals.ReorderQty, 1e-9)
	assert.Contains(t, report.Answer, "- Gadget (Gadget): need ~40, on hand 5 → reorder 35")
}

func TestForecastNumericSKUJoinsWithStringSKU(t *testing.T) {
	runner := &fakeRunner{responses: []runnerResponse{
		{body: tableBody(salesColumnsJSON, `[["Widget",12345678,60]]`)},
		{body: tableBody(inventoryColumnsJSON, `[["Widget","12345678",10]]`)},
	}}

	report := newForecaster(runner).Forecast(context.Background(), "s", "t")
	require.Len(t, report.Lines, 1)
	assert.Equal(t, "12345678", report.Lines[0].SKU)
	assert.InDelta(t, 10.0, report.Lines[0].OnHand, 1e-9)
	assert.Contains(t, report.Answer, "- Widget (12345678): need ~60, on hand 10 → reorder 50")
}

func TestForecastMissingInternalQuery(t *testing.T) {
	runner := &fakeRunner{}
	builder := NewQueryBuilder(newTemplateRegistry(defaultTemplates, nil), nil, "", zap.NewNop())
	forecaster := NewReorderForecaster(builder, NewQueryExecutor(runner, zap.NewNop()), zap.NewNop())

	report := forecaster.Forecast(context.Background(), "s", "t")
	require.NotNil(t, report.Failure)
	assert.Equal(t, OutcomeTransportError, report.Failure.Kind)
	assert.Contains(t, report.Response().Answer, "Shopify API Error: ")
	assert.Contains(t, report.Response().Answer, forecastSalesTemplate)
	assert.Equal(t, 0, runner.queryCount())
}

func TestForecastInventoryOnlySKU(t *testing.T) {
	runner := &fakeRunner{responses: []runnerResponse{
		{body: tableBody(salesColumnsJSON, `[]`)},
		{body: tableBody(inventoryColumnsJSON, `[["Shelf","S-1",7.6]]`)},
	}}

	report := newForecaster(runner).Forecast(context.Background(), "s", "t")
	assert.Empty(t, report.Lines)
	assert.Contains(t, report.Answer, "You currently have ~8 units on hand.")
}

func TestForecastShortCircuitsOnErrors(t *testing.T) {
	runner := &fakeRunner{responses: []runnerResponse{
		{body: `{"errors":[{"message":"denied"}]}`},
	}}
	report := newForecaster(runner).Forecast(context.Background(), "s", "t")
	require.NotNil(t, report.Failure)
	assert.Equal(t, `Shopify API Error: [{"message":"denied"}]`, report.Response().Answer)
	assert.Equal(t, 1, runner.queryCount(), "在庫クエリは実行されない")

	runner = &fakeRunner{responses: []runnerResponse{
		{body: tableBody(salesColumnsJSON, `[]`)},
		{body: `{"data":{"shopifyqlQuery":{"parseErrors":["bad inventory"]}}}`},
	}}
	report = newForecaster(runner).Forecast(context.Background(), "s", "t")
	resp := report.Response()
	assert.Equal(t, `Query Error: ["bad inventory"]`, resp.Answer)
	assert.Equal(t, models.ConfidenceHigh, resp.Confidence)
}

func TestRoundUnits(t *testing.T) {
	assert.Equal(t, int64(2), roundUnits(2.5))
	assert.Equal(t, int64(4), roundUnits(3.5))
	assert.Equal(t, int64(3), roundUnits(2.51))
	assert.Equal(t, int64(0), roundUnits(0))
}
