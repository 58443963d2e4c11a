package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shop-analytics-api/pkg/models"
)

func TestBuildFromTemplate(t *testing.T) {
	gen := &fakeGenerator{}
	qb := NewQueryBuilder(NewTemplateRegistry(), gen, "synth", zap.NewNop())

	built, err := qb.Build(context.Background(), models.QueryParams{
		Intent: "total_sales_by_product",
		Since:  "startOfDay(-7d)",
		Until:  "today",
		Limit:  intPtr(3),
	}, "top 3 products last week")
	require.NoError(t, err)

	assert.True(t, built.Templated)
	assert.Contains(t, built.Query, "SINCE startOfDay(-7d) UNTIL today")
	assert.Contains(t, built.Query, "LIMIT 3")
	assert.NotContains(t, built.Query, "LIMIT 1000")
	assert.Equal(t, 0, gen.callCount())
}

func TestBuildSynthesized(t *testing.T) {
	gen := &fakeGenerator{response: "```shopifyql\nFROM sales SHOW total_sales GROUP BY day SINCE -30d\n```"}
	qb := NewQueryBuilder(NewTemplateRegistry(), gen, "synth", zap.NewNop())

	built, err := qb.Build(context.Background(), models.QueryParams{Intent: "unknown", Since: "startOfDay(-30d)", Until: "today"}, "how is the weather affecting sales")
	require.NoError(t, err)

	assert.False(t, built.Templated)
	assert.Equal(t, "FROM sales SHOW total_sales GROUP BY day SINCE -30d", built.Query)

	require.Equal(t, 1, gen.callCount())
	assert.Equal(t, "synth", gen.calls[0].System)
	assert.Equal(t, "Generate ShopifyQL for intent 'unknown' based on question: how is the weather affecting sales", gen.calls[0].User)
}

func TestBuildSynthesisFailure(t *testing.T) {
	qb := NewQueryBuilder(NewTemplateRegistry(), &fakeGenerator{err: errGeneratorDown}, "synth", zap.NewNop())
	_, err := qb.Build(context.Background(), models.QueryParams{Intent: "unknown"}, "q")
	assert.Error(t, err)

	qb = NewQueryBuilder(NewTemplateRegistry(), nil, "synth", zap.NewNop())
	_, err = qb.Build(context.Background(), models.QueryParams{Intent: "unknown"}, "q")
	assert.Error(t, err)
}

func TestBuildInternal(t *testing.T) {
	gen := &fakeGenerator{}
	qb := NewQueryBuilder(NewTemplateRegistry(), gen, "synth", zap.NewNop())

	built, err := qb.BuildInternal(forecastInventoryTemplate)
	require.NoError(t, err)
	assert.True(t, built.Templated)
	assert.Contains(t, built.Query, "FROM inventory")
	assert.Contains(t, built.Query, "SINCE startOfDay(-1d) UNTIL today")
	assert.Equal(t, 0, gen.callCount())

	_, err = qb.BuildInternal("total_sales_over_time")
	assert.Error(t, err)
}

func TestSanitizeGeneratedQuery(t *testing.T) {
	testCases := map[string]string{
		"FROM sales SHOW total_sales":                               "FROM sales SHOW total_sales",
		"```sql\nFROM sales SHOW total_sales\n```":                  "FROM sales SHOW total_sales",
		"```\nFROM sales SHOW total_sales\n```":                     "FROM sales SHOW total_sales",
		"`FROM sales SHOW total_sales`":                             "FROM sales SHOW total_sales",
		"shopifyql\nFROM sales SHOW total_sales":                    "FROM sales SHOW total_sales",
		"ShopifyQL FROM sales SHOW total_sales":                     "FROM sales SHOW total_sales",
		"  FROM inventory SHOW product_title, inventory_quantity  ": "FROM inventory SHOW product_title, inventory_quantity",
	}
	for in, want := range testCases {
		assert.Equal(t, want, SanitizeGeneratedQuery(in), in)
	}
}
