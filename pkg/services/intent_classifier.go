package services

import (
	"context"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"shop-analytics-api/pkg/logger"
	"shop-analytics-api/pkg/models"
)

// Overrides 分類を飛ばして強制するインテント・期間（結合テスト用）
type Overrides struct {
	Intent string
	Since  string
	Until  string
}

// OverridesFromRequest リクエストの force_* フィールドを取り出す
func OverridesFromRequest(req models.Request) *Overrides {
	if req.ForceIntent == "" {
		return nil
	}
	return &Overrides{Intent: req.ForceIntent, Since: req.ForceSince, Until: req.ForceUntil}
}

// 売れ筋・トップN系の決定的ルール
var (
	bestSellerPhrases = []string{
		"top products", "top product", "top 5", "top five",
		"best sellers", "best seller", "top selling", "top-selling",
	}
	topNProductsPattern = regexp.MustCompile(`top\s*\d+\s+(?:[a-z-]+\s+)?(?:products?|sellers?|items?|selling)`)
	topNPattern         = regexp.MustCompile(`top\s*(\d+)`)
)

const bestSellerIntent = "total_sales_by_product"

// classifierOutputSchema 分類AIの出力に要求するJSONの形
const classifierOutputSchema = `{
  "type": "object",
  "required": ["intent"],
  "properties": {
    "intent": {"type": "string"},
    "since":  {"type": "string"},
    "until":  {"type": "string"}
  }
}`

var fencePattern = regexp.MustCompile("```[a-zA-Z]*")

// IntentClassifier は質問をインテント・期間・件数上限に分類します。
type IntentClassifier struct {
	registry     *TemplateRegistry
	generator    TextGenerator
	systemPrompt string
	schema       *gojsonschema.Schema
	logger       *zap.Logger
}

// NewIntentClassifier 新しいIntentClassifierを生成
func NewIntentClassifier(registry *TemplateRegistry, generator TextGenerator, systemPrompt string, l *zap.Logger) *IntentClassifier {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(classifierOutputSchema))
	if err != nil {
		// スキーマは定数のため、ここに来るのは実装ミスのみ
		panic(err)
	}
	return &IntentClassifier{
		registry:     registry,
		generator:    generator,
		systemPrompt: systemPrompt,
		schema:       schema,
		logger:       logger.OrNop(l),
	}
}

// KnownIntents AIに提示するインテントの閉集合（unknownを除く）
func (ic *IntentClassifier) KnownIntents() []string {
	return append(ic.registry.Intents(), models.IntentReorderForecast)
}

// Classify は質問（または強制指定）からQueryParamsを決定します。エラーは返しません。
func (ic *IntentClassifier) Classify(ctx context.Context, question string, overrides *Overrides) models.QueryParams {
	if overrides != nil && overrides.Intent != "" {
		params := models.QueryParams{
			Intent: overrides.Intent,
			Since:  firstNonEmpty(overrides.Since, models.DefaultSince),
			Until:  firstNonEmpty(overrides.Until, models.DefaultUntil),
		}
		ic.logger.Info("強制インテントを使用", zap.String("intent", params.Intent))
		return params
	}

	q := strings.ToLower(question)
	since, until, datesMatched := PickDateRange(q)

	if isBestSellerQuestion(q) {
		limit := extractTopN(q)
		return models.QueryParams{Intent: bestSellerIntent, Since: since, Until: until, Limit: &limit}
	}

	if strings.TrimSpace(question) == "" || ic.generator == nil {
		return models.QueryParams{Intent: models.IntentUnknown, Since: since, Until: until}
	}

	content, err := ic.generator.Complete(ctx, ic.systemPrompt, question)
	if err != nil {
		ic.logger.Warn("インテント分類AIの呼び出しに失敗", zap.Error(err))
		return models.QueryParams{Intent: models.IntentUnknown, Since: since, Until: until}
	}

	params, ok := ic.parseClassifierOutput(content)
	if !ok {
		ic.logger.Info("分類結果を解析できないためunknownとして扱う", zap.String("raw", content))
		return models.QueryParams{Intent: models.IntentUnknown, Since: since, Until: until}
	}

	if datesMatched || params.Since == "" {
		params.Since = since
	}
	if datesMatched || params.Until == "" {
		params.Until = until
	}
	return params
}

type classifierOutput struct {
	Intent string      `json:"intent"`
	Since  string      `json:"since"`
	Until  string      `json:"until"`
	Limit  interface{} `json:"limit"`
}

func (ic *IntentClassifier) parseClassifierOutput(content string) (models.QueryParams, bool) {
	cleaned := strings.TrimSpace(fencePattern.ReplaceAllString(content, ""))

	result, err := ic.schema.Validate(gojsonschema.NewStringLoader(cleaned))
	if err != nil || !result.Valid() {
		return models.QueryParams{}, false
	}

	var out classifierOutput
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return models.QueryParams{}, false
	}

	intent := strings.TrimSpace(out.Intent)
	if intent != models.IntentReorderForecast && !ic.registry.Has(intent) {
		intent = models.IntentUnknown
	}

	params := models.QueryParams{
		Intent: intent,
		Since:  strings.TrimSpace(out.Since),
		Until:  strings.TrimSpace(out.Until),
	}
	if out.Limit != nil {
		n := CoerceLimit(out.Limit)
		params.Limit = &n
	}
	return params, true
}

// PickDateRange は質問中の期間表現を固定の日付式に対応付けます。
// 認識できる表現がなければ直近30日を返し、matched は false です。
func PickDateRange(lowerQuestion string) (since, until string, matched bool) {
	q := lowerQuestion
	switch {
	case strings.Contains(q, "last week"), strings.Contains(q, "past week"), strings.Contains(q, "previous week"):
		return "startOfDay(-7d)", "today", true
	case strings.Contains(q, "last 7"), strings.Contains(q, "past 7"):
		return "startOfDay(-7d)", "today", true
	case strings.Contains(q, "last 30"), strings.Contains(q, "past 30"):
		return "startOfDay(-30d)", "today", true
	case strings.Contains(q, "last month"):
		return "startOfDay(-30d)", "today", true
	}
	return models.DefaultSince, models.DefaultUntil, false
}

func isBestSellerQuestion(q string) bool {
	for _, phrase := range bestSellerPhrases {
		if strings.Contains(q, phrase) {
			return true
		}
	}
	return topNProductsPattern.MatchString(q)
}

// extractTopN は "top <N>" のNを取り出す。なし・不正・0以下なら5
func extractTopN(q string) int {
	m := topNPattern.FindStringSubmatch(q)
	if m == nil {
		return fallbackLimit
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return fallbackLimit
	}
	return n
}

// CoerceLimit は件数上限を正の整数にします。数値として解釈できない・0以下なら5
func CoerceLimit(v interface{}) int {
	switch n := v.(type) {
	case float64:
		if n >= 1 && n <= math.MaxInt32 {
			return int(n)
		}
	case int:
		if n > 0 {
			return n
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil && i > 0 {
			return i
		}
	}
	return fallbackLimit
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
