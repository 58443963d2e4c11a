package models

import "encoding/json"

// Confidence は回答の信頼度ラベルです。
type Confidence string

const (
	// ConfidenceHigh 定義済みテンプレート・予測パス・エラー応答
	ConfidenceHigh Confidence = "high"
	// ConfidenceMedium AIが合成したクエリによる回答
	ConfidenceMedium Confidence = "medium"
)

const (
	// IntentUnknown 分類できなかった質問
	IntentUnknown = "unknown"
	// IntentReorderForecast 発注予測パスへ分岐する予約済みインテント
	IntentReorderForecast = "reorder_forecast"

	// DefaultSince / DefaultUntil 直近30日間の既定期間
	DefaultSince = "startOfDay(-30d)"
	DefaultUntil = "today"
)

// Request represents an incoming analytics question
type Request struct {
	ShopDomain  string `json:"shop_domain" binding:"required"`
	AccessToken string `json:"access_token" binding:"required"`
	Question    string `json:"question"`
	ForceIntent string `json:"force_intent,omitempty"` // 分類を飛ばして強制するインテント
	ForceSince  string `json:"force_since,omitempty"`
	ForceUntil  string `json:"force_until,omitempty"`
}

// Response represents the answer returned to the caller
type Response struct {
	Answer     string     `json:"answer"`
	Confidence Confidence `json:"confidence"`
}

// QueryParams 分類結果（インテント・期間・件数上限）
type QueryParams struct {
	Intent string `json:"intent"`
	Since  string `json:"since"`
	Until  string `json:"until"`
	Limit  *int   `json:"limit,omitempty"`
}

// QueryTemplate はインテントに紐づくShopifyQLテンプレートです。
// Body には {since_date} / {until_date} のプレースホルダと既定の LIMIT 1000 が含まれます。
type QueryTemplate struct {
	Intent          string `json:"intent"`
	Body            string `json:"-"`
	DefaultSort     string `json:"default_sort"`
	Grouping        string `json:"grouping"`
	ComparePrevious bool   `json:"compare_previous"`
	Visualization   string `json:"visualization,omitempty"`
}

// Column ShopifyQLの列メタデータ
type Column struct {
	Name        string `json:"name"`
	DataType    string `json:"dataType"`
	DisplayName string `json:"displayName"`
}

// TableResult ShopifyQLの tableData。行の形式は配列・オブジェクト・スカラーのいずれか。
type TableResult struct {
	Columns []Column          `json:"columns"`
	Rows    []json.RawMessage `json:"rows"`
}

// NormalizedRow 列名→値 の正規化済み行
type NormalizedRow map[string]interface{}

// ForecastLine 発注予測の1行
type ForecastLine struct {
	SKU         string  `json:"sku"`
	Title       string  `json:"title"`
	DailyRate   float64 `json:"daily_rate"`
	Forecast30d float64 `json:"forecast_30d"`
	OnHand      float64 `json:"on_hand"`
	ReorderQty  float64 `json:"reorder_qty"`
}

// ForecastTotals 全SKUの合計値
type ForecastTotals struct {
	Forecast30d float64 `json:"forecast_30d"`
	OnHand      float64 `json:"on_hand"`
	ReorderQty  float64 `json:"reorder_qty"`
}
