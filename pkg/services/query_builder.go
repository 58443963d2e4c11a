package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"shop-analytics-api/pkg/logger"
	"shop-analytics-api/pkg/models"
)

// BuiltQuery は実行するShopifyQLと、それが定義済みテンプレート由来かどうかです。
type BuiltQuery struct {
	Query     string
	Templated bool
}

// QueryBuilder はインテントからShopifyQLを組み立てます。
// カタログにないインテントはAIによるクエリ生成にフォールバックします。
type QueryBuilder struct {
	registry     *TemplateRegistry
	generator    TextGenerator
	systemPrompt string
	logger       *zap.Logger
}

// NewQueryBuilder 新しいQueryBuilderを生成
func NewQueryBuilder(registry *TemplateRegistry, generator TextGenerator, systemPrompt string, l *zap.Logger) *QueryBuilder {
	return &QueryBuilder{
		registry:     registry,
		generator:    generator,
		systemPrompt: systemPrompt,
		logger:       logger.OrNop(l),
	}
}

// Build はQueryParamsからクエリを生成します。AI呼び出しに失敗した場合のみエラーを返します。
func (qb *QueryBuilder) Build(ctx context.Context, params models.QueryParams, question string) (BuiltQuery, error) {
	if tpl, ok := qb.registry.Lookup(params.Intent); ok {
		qb.logger.Info("🎯 定義済みクエリを使用", zap.String("intent", params.Intent))
		return BuiltQuery{
			Query:     RenderTemplate(tpl, params.Since, params.Until, params.Limit),
			Templated: true,
		}, nil
	}

	qb.logger.Info("🤖 AIでShopifyQLを生成", zap.String("intent", params.Intent))
	if qb.generator == nil {
		return BuiltQuery{}, fmt.Errorf("クエリ生成AIが設定されていません")
	}

	userMessage := fmt.Sprintf("Generate ShopifyQL for intent '%s' based on question: %s", params.Intent, question)
	raw, err := qb.generator.Complete(ctx, qb.systemPrompt, userMessage)
	if err != nil {
		return BuiltQuery{}, fmt.Errorf("ShopifyQLの生成に失敗: %w", err)
	}
	return BuiltQuery{Query: SanitizeGeneratedQuery(raw)}, nil
}

// BuildInternal は発注予測などが使うカタログ外の固定クエリを組み立てます。
func (qb *QueryBuilder) BuildInternal(name string) (BuiltQuery, error) {
	tpl, ok := qb.registry.LookupInternal(name)
	if !ok {
		return BuiltQuery{}, fmt.Errorf("内部クエリが見つかりません: %s", name)
	}
	return BuiltQuery{Query: RenderTemplate(tpl, "", "", nil), Templated: true}, nil
}

var (
	codeFence    = regexp.MustCompile("```[ \t]*(?i:shopifyql|sql)?")
	languageLine = regexp.MustCompile(`(?im)^[ \t]*(?:shopifyql|sql)[ \t]*$`)
)

// SanitizeGeneratedQuery はAIの出力からMarkdownのコードフェンスと言語タグを取り除きます。
// 文法チェックは行わず、誤りはShopify側のparseErrorsで検出されます。
func SanitizeGeneratedQuery(raw string) string {
	q := codeFence.ReplaceAllString(raw, "")
	q = strings.ReplaceAll(q, "`", "")
	q = languageLine.ReplaceAllString(q, "")
	q = strings.TrimSpace(q)

	lower := strings.ToLower(q)
	for _, tag := range []string{"shopifyql ", "sql "} {
		if strings.HasPrefix(lower, tag) {
			q = strings.TrimSpace(q[len(tag):])
			break
		}
	}
	return q
}
