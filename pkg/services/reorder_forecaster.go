package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"shop-analytics-api/pkg/logger"
	"shop-analytics-api/pkg/models"
)

const (
	// salesWindowDays 販売実績を集計する日数（クエリの SINCE と一致させる）
	salesWindowDays = 30
	// forecastHorizonDays 予測する日数。現状は集計期間と同じため forecast_30d は sold_30d と等しくなる
	forecastHorizonDays = 30
	// maxReorderLines 回答に列挙する発注候補の最大数
	maxReorderLines = 5
)

const (
	salesValueColumn     = "net_items_sold"
	inventoryValueColumn = "ending_inventory_units"
)

// ForecastReport 発注予測の結果。Failure が設定されている場合は他のフィールドは空です。
type ForecastReport struct {
	Failure *QueryOutcome
	// Lines は発注が必要な品目のみ（発注数の降順）
	Lines  []models.ForecastLine
	Totals models.ForecastTotals
	Answer string
}

// Response 予測結果を回答に変換（常に高信頼度）
func (r ForecastReport) Response() models.Response {
	if r.Failure != nil {
		return r.Failure.ErrorResponse()
	}
	return models.Response{Answer: r.Answer, Confidence: models.ConfidenceHigh}
}

// ReorderForecaster は直近30日の販売数と現在庫を突き合わせて発注量を算出します。
type ReorderForecaster struct {
	builder  *QueryBuilder
	executor *QueryExecutor
	logger   *zap.Logger
}

// NewReorderForecaster 新しいReorderForecasterを生成
func NewReorderForecaster(builder *QueryBuilder, executor *QueryExecutor, l *zap.Logger) *ReorderForecaster {
	return &ReorderForecaster{builder: builder, executor: executor, logger: logger.OrNop(l)}
}

// Forecast は販売クエリ、在庫クエリの順に実行し、発注計画を組み立てます。
// どちらかのクエリがエラーになった場合はその内容をそのまま返します。
func (rf *ReorderForecaster) Forecast(ctx context.Context, shopDomain, accessToken string) ForecastReport {
	rf.logger.Info("📦 発注予測を開始", zap.String("shop", shopDomain))

	sales := rf.run(ctx, shopDomain, accessToken, forecastSalesTemplate)
	if sales.Failed() {
		return ForecastReport{Failure: &sales}
	}
	inventory := rf.run(ctx, shopDomain, accessToken, forecastInventoryTemplate)
	if inventory.Failed() {
		return ForecastReport{Failure: &inventory}
	}

	soldBySKU := aggregateBySKU(NormalizeTable(sales.Table), salesValueColumn)
	onHandBySKU := aggregateBySKU(NormalizeTable(inventory.Table), inventoryValueColumn)

	lines, totals := computeReorders(soldBySKU, onHandBySKU)
	rf.logger.Info("📦 発注予測が完了",
		zap.Int("skus", len(unionKeys(soldBySKU, onHandBySKU))),
		zap.Int("reorder_lines", len(lines)),
		zap.Float64("total_reorder", totals.ReorderQty))

	return ForecastReport{
		Lines:  lines,
		Totals: totals,
		Answer: renderForecast(lines, totals),
	}
}

func (rf *ReorderForecaster) run(ctx context.Context, shopDomain, accessToken, name string) QueryOutcome {
	built, err := rf.builder.BuildInternal(name)
	if err != nil {
		rf.logger.Error("発注予測クエリの組み立てに失敗", zap.String("query", name), zap.Error(err))
		return QueryOutcome{Kind: OutcomeTransportError, Errors: quoteJSON(err.Error())}
	}
	return rf.executor.Execute(ctx, shopDomain, accessToken, built.Query)
}

type skuValue struct {
	title string
	value float64
}

// aggregateBySKU は行をSKU（なければ商品名）でまとめます。
// 値が列名そのものの行（ヘッダーの重複）とキーのない行は読み飛ばします。
// 同じキーが複数回現れた場合は後の行が優先されます。
func aggregateBySKU(rows []models.NormalizedRow, valueColumn string) map[string]skuValue {
	out := make(map[string]skuValue, len(rows))
	for _, row := range rows {
		title := strings.TrimSpace(stringField(row, "product_title"))
		key := strings.TrimSpace(stringField(row, "product_variant_sku"))
		if key == "" {
			key = title
		}
		if key == "" {
			continue
		}

		val := row[valueColumn]
		if s, ok := val.(string); ok && strings.EqualFold(strings.TrimSpace(s), valueColumn) {
			continue
		}
		if title == "" {
			title = key
		}
		out[key] = skuValue{title: title, value: ToNumber(val)}
	}
	return out
}

func stringField(row models.NormalizedRow, name string) string {
	switch v := row[name].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// unionKeys 販売・在庫のどちらかに現れるSKUを名前順で返す
func unionKeys(sold, onHand map[string]skuValue) []string {
	seen := make(map[string]struct{}, len(sold)+len(onHand))
	for k := range sold {
		seen[k] = struct{}{}
	}
	for k := range onHand {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// computeReorders は販売数と在庫数を結合し、全SKUの合計と発注が必要な品目を返します。
func computeReorders(sold, onHand map[string]skuValue) ([]models.ForecastLine, models.ForecastTotals) {
	skus := unionKeys(sold, onHand)

	var totals models.ForecastTotals
	lines := make([]models.ForecastLine, 0)
	for _, sku := range skus {
		s, inv := sold[sku], onHand[sku]

		dailyRate := s.value / salesWindowDays
		forecast := dailyRate * forecastHorizonDays
		reorder := math.Max(0, forecast-inv.value)

		title := s.title
		if title == "" {
			title = inv.title
		}
		if title == "" {
			title = sku
		}

		totals.Forecast30d += forecast
		totals.OnHand += inv.value
		totals.ReorderQty += reorder

		if reorder > 0 {
			lines = append(lines, models.ForecastLine{
				SKU:         sku,
				Title:       title,
				DailyRate:   dailyRate,
				Forecast30d: forecast,
				OnHand:      inv.value,
				ReorderQty:  reorder,
			})
		}
	}

	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].ReorderQty != lines[j].ReorderQty {
			return lines[i].ReorderQty > lines[j].ReorderQty
		}
		return lines[i].SKU < lines[j].SKU
	})
	return lines, totals
}

func renderForecast(lines []models.ForecastLine, totals models.ForecastTotals) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Based on the last 30 days, you will likely need about %d units next month across all products. ", roundUnits(totals.Forecast30d))
	fmt.Fprintf(&b, "You currently have ~%d units on hand. ", roundUnits(totals.OnHand))
	fmt.Fprintf(&b, "Planned reorder: %d units.\n\n", roundUnits(totals.ReorderQty))

	if len(lines) == 0 {
		b.WriteString("No immediate reorders are required given current inventory levels and recent demand.")
		return b.String()
	}

	b.WriteString("Top products to reorder:")
	for i, line := range lines {
		if i >= maxReorderLines {
			break
		}
		fmt.Fprintf(&b, "\n- %s (%s): need ~%d, on hand %d → reorder %d",
			line.Title, line.SKU, roundUnits(line.Forecast30d), roundUnits(line.OnHand), roundUnits(line.ReorderQty))
	}
	return b.String()
}

// roundUnits 端数は偶数丸め
func roundUnits(v float64) int64 {
	return int64(math.RoundToEven(v))
}
