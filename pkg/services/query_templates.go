package services

import (
	"strconv"
	"strings"

	"shop-analytics-api/pkg/models"
)

const (
	sincePlaceholder = "{since_date}"
	untilPlaceholder = "{until_date}"

	// defaultLimitClause テンプレートに埋め込まれた既定の件数上限
	defaultLimitClause = "LIMIT 1000"
	// fallbackLimit 件数指定が不正な場合に使う控えめな上限
	fallbackLimit = 5
)

// 発注予測が内部で使うクエリ名。分類結果のインテントとしては扱わない
const (
	forecastSalesTemplate     = "reorder_forecast_sales"
	forecastInventoryTemplate = "reorder_forecast_inventory"
)

// TemplateRegistry はインテント→ShopifyQLテンプレートの固定カタログです。
type TemplateRegistry struct {
	order     []string
	templates map[string]models.QueryTemplate
	internal  map[string]models.QueryTemplate
}

// NewTemplateRegistry は定義済みレポートのカタログを生成します。
func NewTemplateRegistry() *TemplateRegistry {
	return newTemplateRegistry(defaultTemplates, internalTemplates)
}

func newTemplateRegistry(list, internal []models.QueryTemplate) *TemplateRegistry {
	r := &TemplateRegistry{
		order:     make([]string, 0, len(list)),
		templates: make(map[string]models.QueryTemplate, len(list)),
		internal:  make(map[string]models.QueryTemplate, len(internal)),
	}
	for _, tpl := range list {
		r.order = append(r.order, tpl.Intent)
		r.templates[tpl.Intent] = tpl
	}
	for _, tpl := range internal {
		r.internal[tpl.Intent] = tpl
	}
	return r
}

// LookupInternal 内部用クエリ（カタログ外）を名前で返す
func (r *TemplateRegistry) LookupInternal(name string) (models.QueryTemplate, bool) {
	tpl, ok := r.internal[name]
	return tpl, ok
}

// Lookup インテントに対応するテンプレートを返す
func (r *TemplateRegistry) Lookup(intent string) (models.QueryTemplate, bool) {
	tpl, ok := r.templates[intent]
	return tpl, ok
}

// Has インテントがカタログに存在するか
func (r *TemplateRegistry) Has(intent string) bool {
	_, ok := r.templates[intent]
	return ok
}

// Intents カタログの宣言順のインテント一覧
func (r *TemplateRegistry) Intents() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Templates カタログの宣言順のテンプレート一覧
func (r *TemplateRegistry) Templates() []models.QueryTemplate {
	out := make([]models.QueryTemplate, 0, len(r.order))
	for _, intent := range r.order {
		out = append(out, r.templates[intent])
	}
	return out
}

// RenderTemplate は期間を差し込み、limit があれば既定の LIMIT 1000 を置き換えます。
func RenderTemplate(tpl models.QueryTemplate, since, until string, limit *int) string {
	query := strings.NewReplacer(sincePlaceholder, since, untilPlaceholder, until).Replace(tpl.Body)
	if limit != nil {
		n := *limit
		if n <= 0 {
			n = fallbackLimit
		}
		query = strings.ReplaceAll(query, defaultLimitClause, "LIMIT "+strconv.Itoa(n))
	}
	return query
}

// internalTemplates は期間固定の発注予測用クエリです（販売は直近30日、在庫は前日以降）。
var internalTemplates = []models.QueryTemplate{
	{
		Intent:      forecastSalesTemplate,
		DefaultSort: "net_items_sold DESC",
		Grouping:    "product_title, product_variant_sku",
		Body: `
FROM sales
SHOW product_title, product_variant_sku, net_items_sold
WHERE line_type = 'product'
GROUP BY product_title, product_variant_sku
SINCE startOfDay(-30d) UNTIL today
ORDER BY net_items_sold DESC
LIMIT 1000
`,
	},
	{
		Intent:      forecastInventoryTemplate,
		DefaultSort: "ending_inventory_units DESC",
		Grouping:    "product_title, product_variant_sku",
		Body: `
FROM inventory
SHOW product_title, product_variant_sku, ending_inventory_units
WHERE inventory_is_tracked = true
GROUP BY product_title, product_variant_sku
SINCE startOfDay(-1d) UNTIL today
ORDER BY ending_inventory_units DESC
LIMIT 2000
`,
	},
}

var defaultTemplates = []models.QueryTemplate{
	{
		Intent:          "items_ordered_over_time",
		DefaultSort:     "day ASC",
		Grouping:        "TIMESERIES day",
		ComparePrevious: true,
		Visualization:   "line",
		Body: `
FROM sales
SHOW quantity_ordered
TIMESERIES day WITH TOTALS, PERCENT_CHANGE
SINCE {since_date} UNTIL {until_date}
COMPARE TO previous_period
ORDER BY day ASC
LIMIT 1000
VISUALIZE quantity_ordered TYPE line
`,
	},
	{
		Intent:        "items_returned_by_product",
		DefaultSort:   "quantity_ordered DESC",
		Grouping:      "product_title",
		Visualization: "bar",
		Body: `
FROM sales
SHOW quantity_ordered, quantity_returned, returned_quantity_rate
WHERE product_title IS NOT NULL
GROUP BY product_title
SINCE {since_date} UNTIL {until_date}
ORDER BY quantity_ordered DESC
LIMIT 1000
VISUALIZE quantity_returned TYPE bar
`,
	},
	{
		Intent:          "items_returned_over_time",
		DefaultSort:     "day ASC",
		Grouping:        "TIMESERIES day",
		ComparePrevious: true,
		Visualization:   "line",
		Body: `
FROM sales
SHOW orders, quantity_returned, average_order_value
TIMESERIES day WITH TOTALS, PERCENT_CHANGE
SINCE {since_date} UNTIL {until_date}
COMPARE TO previous_period
ORDER BY day ASC
LIMIT 1000
VISUALIZE quantity_returned TYPE line
`,
	},
	{
		Intent:          "orders_and_returns_by_product",
		DefaultSort:     "quantity_ordered DESC",
		Grouping:        "product_title",
		ComparePrevious: true,
		Visualization:   "bar",
		Body: `
FROM sales
SHOW quantity_ordered, quantity_returned, returned_quantity_rate
WHERE product_title IS NOT NULL
GROUP BY product_title WITH TOTALS, PERCENT_CHANGE
SINCE {since_date} UNTIL {until_date}
COMPARE TO previous_period
ORDER BY quantity_ordered DESC
LIMIT 1000
VISUALIZE quantity_ordered TYPE bar
`,
	},
	{
		Intent:          "orders_over_time",
		DefaultSort:     "day ASC",
		Grouping:        "TIMESERIES day",
		ComparePrevious: true,
		Visualization:   "line",
		Body: `
FROM sales
SHOW orders, quantity_ordered_per_order, average_order_value, quantity_returned
TIMESERIES day WITH TOTALS, PERCENT_CHANGE
SINCE {since_date} UNTIL {until_date}
COMPARE TO previous_period
ORDER BY day ASC
LIMIT 1000
VISUALIZE orders TYPE line
`,
	},
	{
		Intent:          "return_rate_over_time",
		DefaultSort:     "day ASC",
		Grouping:        "TIMESERIES day",
		ComparePrevious: true,
		Visualization:   "line",
		Body: `
FROM sales
SHOW returned_quantity_rate
TIMESERIES day WITH TOTALS, PERCENT_CHANGE
SINCE {since_date} UNTIL {until_date}
COMPARE TO previous_period
ORDER BY day ASC
LIMIT 1000
VISUALIZE returned_quantity_rate TYPE line
`,
	},
	{
		// 期間は固定（直近30日）でプレースホルダを持たない
		Intent:          "inventory_sold_daily_by_product",
		DefaultSort:     "inventory_units_sold_per_day DESC",
		Grouping:        "product_title, product_variant_title, product_variant_sku",
		ComparePrevious: true,
		Visualization:   "horizontal_bar",
		Body: `
FROM inventory
SHOW inventory_units_sold, ending_inventory_units, inventory_units_sold_per_day
WHERE inventory_is_tracked = true
GROUP BY product_title, product_variant_title, product_variant_sku WITH TOTALS, PERCENT_CHANGE
SINCE startOfDay(-30d) UNTIL today
COMPARE TO previous_period
ORDER BY inventory_units_sold_per_day DESC
LIMIT 1000
VISUALIZE inventory_units_sold_per_day TYPE horizontal_bar
`,
	},
	{
		Intent:          "products_by_percentage_sold",
		DefaultSort:     "percent_of_inventory_sold DESC",
		Grouping:        "product_title, product_variant_title, product_variant_sku",
		ComparePrevious: true,
		Visualization:   "horizontal_bar",
		Body: `
FROM inventory
SHOW inventory_units_sold, starting_inventory_units, percent_of_inventory_sold
WHERE inventory_is_tracked = true
GROUP BY product_title, product_variant_title, product_variant_sku WITH TOTALS, PERCENT_CHANGE
SINCE {since_date} UNTIL {until_date}
COMPARE TO previous_period
ORDER BY percent_of_inventory_sold DESC
LIMIT 1000
VISUALIZE percent_of_inventory_sold TYPE horizontal_bar
`,
	},
	{
		Intent:        "abc_product_analysis",
		DefaultSort:   "product_variant_abc_grade ASC",
		Grouping:      "product_variant_abc_grade",
		Visualization: "single_stacked_bar",
		Body: `
FROM inventory
SHOW ending_inventory_units, ending_inventory_value, ending_inventory_retail_value
WHERE inventory_is_tracked = true
GROUP BY product_variant_abc_grade WITH TOTALS
SINCE {since_date} UNTIL {until_date}
ORDER BY product_variant_abc_grade ASC
LIMIT 1000
VISUALIZE ending_inventory_value TYPE single_stacked_bar
`,
	},
	{
		Intent:          "new_customer_sales_over_time",
		DefaultSort:     "month ASC, new_or_returning_customer ASC",
		Grouping:        "new_or_returning_customer, month",
		ComparePrevious: true,
		Visualization:   "stacked_area",
		Body: `
FROM sales
SHOW customers, orders, total_sales
WHERE new_or_returning_customer = 'New'
GROUP BY new_or_returning_customer, month WITH TOTALS, GROUP_TOTALS, PERCENT_CHANGE
TIMESERIES month
SINCE {since_date} UNTIL {until_date}
COMPARE TO previous_period
ORDER BY month ASC, new_or_returning_customer ASC
LIMIT 1000
VISUALIZE total_sales TYPE stacked_area
`,
	},
	{
		Intent:        "one_time_customers",
		DefaultSort:   "total_amount_spent DESC",
		Grouping:      "customer_name, customer_email, customer_email_subscription_status, customer_first_order_date",
		Visualization: "horizontal_bar",
		Body: `
FROM customers
SHOW total_number_of_orders, total_amount_spent
WHERE customer_number_of_orders = 1
GROUP BY customer_name, customer_email, customer_email_subscription_status, customer_first_order_date WITH TOTALS
SINCE {since_date} UNTIL {until_date}
ORDER BY total_amount_spent DESC
LIMIT 1000
VISUALIZE total_amount_spent TYPE horizontal_bar
`,
	},
	{
		Intent:        "returning_customers",
		DefaultSort:   "total_amount_spent DESC",
		Grouping:      "customer_name, customer_email, customer_email_subscription_status, customer_first_order_date, customer_last_order_date",
		Visualization: "horizontal_bar",
		Body: `
FROM customers
SHOW total_number_of_orders, total_amount_spent_per_order, total_amount_spent
WHERE customer_number_of_orders > 1
GROUP BY customer_name, customer_email, customer_email_subscription_status, customer_first_order_date, customer_last_order_date WITH TOTALS
SINCE {since_date} UNTIL {until_date}
ORDER BY total_amount_spent DESC
LIMIT 1000
VISUALIZE total_amount_spent TYPE horizontal_bar
`,
	},
	{
		Intent:        "total_sales_by_product",
		DefaultSort:   "total_sales DESC",
		Grouping:      "product_title, product_vendor, product_type",
		Visualization: "horizontal_bar",
		Body: `
FROM sales
SHOW net_items_sold, gross_sales, discounts, returns, net_sales, taxes, total_sales
WHERE product_title IS NOT NULL
GROUP BY product_title, product_vendor, product_type WITH TOTALS
SINCE {since_date} UNTIL {until_date}
ORDER BY total_sales DESC
LIMIT 1000
VISUALIZE total_sales TYPE horizontal_bar
`,
	},
	{
		Intent:          "average_order_value_over_time",
		DefaultSort:     "day ASC",
		Grouping:        "TIMESERIES day",
		ComparePrevious: true,
		Visualization:   "line",
		Body: `
FROM sales
SHOW gross_sales, discounts, orders, average_order_value
WHERE excludes_post_order_adjustments = true
TIMESERIES day WITH TOTALS, PERCENT_CHANGE
SINCE {since_date} UNTIL {until_date}
COMPARE TO previous_period
ORDER BY day ASC
LIMIT 1000
VISUALIZE average_order_value TYPE line
`,
	},
	{
		Intent:      "profit_margin_by_order",
		DefaultSort: "day DESC",
		Grouping:    "order_name, day",
		Body: `
FROM sales, profitability
SHOW day, order_name, average_revenue_before_returns, average_store_costs_before_returns, average_profit_at_delivery_before_returns, average_sale_after_discounts, average_sales_taxes, average_customer_shipping_charges, average_store_shipping_costs, average_customer_duties_and_import_taxes, average_store_duties_and_import_taxes, average_cost_of_goods_sold
GROUP BY order_name, day
SINCE {since_date} UNTIL {until_date}
ORDER BY day DESC
LIMIT 1000
`,
	},
	{
		Intent:        "gross_sales_over_time",
		DefaultSort:   "day ASC",
		Grouping:      "TIMESERIES day",
		Visualization: "line",
		Body: `
FROM sales
SHOW gross_sales
TIMESERIES day WITH TOTALS
SINCE {since_date} UNTIL {until_date}
ORDER BY day ASC
LIMIT 1000
VISUALIZE gross_sales TYPE line
`,
	},
	{
		Intent:          "new_vs_returning_customer_sales",
		DefaultSort:     "month ASC, new_or_returning_customer ASC",
		Grouping:        "new_or_returning_customer, month",
		ComparePrevious: true,
		Visualization:   "stacked_area",
		Body: `
FROM sales
SHOW customers, orders, total_sales
WHERE new_or_returning_customer IS NOT NULL
GROUP BY new_or_returning_customer, month WITH TOTALS, GROUP_TOTALS, PERCENT_CHANGE
TIMESERIES month
SINCE {since_date} UNTIL {until_date}
COMPARE TO previous_period
ORDER BY month ASC, new_or_returning_customer ASC
LIMIT 1000
VISUALIZE total_sales TYPE stacked_area
`,
	},
	{
		Intent:          "total_returns_over_time",
		DefaultSort:     "day ASC",
		Grouping:        "TIMESERIES day",
		ComparePrevious: true,
		Visualization:   "line",
		Body: `
FROM sales
SHOW total_returns
TIMESERIES day WITH TOTALS, PERCENT_CHANGE
SINCE {since_date} UNTIL {until_date}
COMPARE TO previous_period
ORDER BY day ASC
LIMIT 1000
VISUALIZE total_returns TYPE line
`,
	},
	{
		Intent:          "total_sales_over_time",
		DefaultSort:     "day ASC",
		Grouping:        "TIMESERIES day",
		ComparePrevious: true,
		Visualization:   "line",
		Body: `
FROM sales
SHOW orders, gross_sales, discounts, returns, net_sales, shipping_charges, duties, additional_fees, taxes, total_sales
TIMESERIES day WITH TOTALS, PERCENT_CHANGE
SINCE {since_date} UNTIL {until_date}
COMPARE TO previous_period
ORDER BY day ASC
LIMIT 1000
VISUALIZE total_sales TYPE line
`,
	},
	{
		Intent:          "average_order_quantity_over_time",
		DefaultSort:     "day ASC",
		Grouping:        "TIMESERIES day",
		ComparePrevious: true,
		Visualization:   "line",
		Body: `
FROM sales
SHOW quantity_ordered_per_order
TIMESERIES day WITH TOTALS, PERCENT_CHANGE
SINCE {since_date} UNTIL {until_date}
COMPARE TO previous_period
ORDER BY day ASC
LIMIT 1000
VISUALIZE quantity_ordered_per_order TYPE line
`,
	},
	{
		Intent:        "sales_by_customer_name",
		DefaultSort:   "total_sales DESC",
		Grouping:      "customer_name, customer_email",
		Visualization: "horizontal_bar",
		Body: `
FROM sales
SHOW orders, gross_sales, net_sales, total_sales
WHERE customer_name IS NOT NULL
GROUP BY customer_name, customer_email WITH TOTALS, PERCENT_CHANGE
SINCE {since_date} UNTIL {until_date}
ORDER BY total_sales DESC
LIMIT 1000
VISUALIZE total_sales TYPE horizontal_bar
`,
	},
	{
		Intent:        "top_product_variants_by_units_sold",
		DefaultSort:   "net_items_sold DESC",
		Grouping:      "product_title, product_variant_sku",
		Visualization: "horizontal_bar",
		Body: `
FROM sales
SHOW net_items_sold
WHERE line_type = 'product'
GROUP BY product_title, product_variant_sku WITH TOTALS
SINCE {since_date} UNTIL {until_date}
ORDER BY net_items_sold DESC
LIMIT 1000
VISUALIZE net_items_sold TYPE horizontal_bar
`,
	},
	{
		Intent:        "total_sales_by_product_variant",
		DefaultSort:   "total_sales DESC",
		Grouping:      "product_title, product_variant_title, product_variant_sku",
		Visualization: "horizontal_bar",
		Body: `
FROM sales
SHOW net_items_sold, gross_sales, discounts, returns, net_sales, taxes,
  total_sales
WHERE line_type = 'product'
GROUP BY product_title, product_variant_title, product_variant_sku WITH TOTALS
SINCE {since_date} UNTIL {until_date}
ORDER BY total_sales DESC
LIMIT 1000
VISUALIZE total_sales TYPE horizontal_bar
`,
	},
}
