package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"shop-analytics-api/pkg/logger"
	"shop-analytics-api/pkg/models"
)

// ResponseExplainer は正規化済みの行をビジネス向けの文章に変換します。
type ResponseExplainer struct {
	generator    TextGenerator
	systemPrompt string
	logger       *zap.Logger
}

// NewResponseExplainer 新しいResponseExplainerを生成
func NewResponseExplainer(generator TextGenerator, systemPrompt string, l *zap.Logger) *ResponseExplainer {
	return &ResponseExplainer{
		generator:    generator,
		systemPrompt: systemPrompt,
		logger:       logger.OrNop(l),
	}
}

// Explain は質問とデータから回答文を生成します。
// AIが使えない場合はデータの件数と先頭行の値だけを述べる要約を返します。
func (re *ResponseExplainer) Explain(ctx context.Context, rows []models.NormalizedRow, question string) string {
	if rows == nil {
		rows = []models.NormalizedRow{}
	}

	if re.generator != nil {
		data, err := json.Marshal(rows)
		if err != nil {
			re.logger.Warn("データのJSON化に失敗", zap.Error(err))
		} else {
			userMessage := fmt.Sprintf("Question: %s\nData: %s", question, data)
			answer, err := re.generator.Complete(ctx, re.systemPrompt, userMessage)
			if err == nil && strings.TrimSpace(answer) != "" {
				return strings.TrimSpace(answer)
			}
			re.logger.Warn("回答文の生成に失敗。要約にフォールバック", zap.Error(err))
		}
	}

	return SummarizeRows(rows)
}

// SummarizeRows はデータに含まれる値だけを使った決定的な要約を返します。
func SummarizeRows(rows []models.NormalizedRow) string {
	if len(rows) == 0 {
		return "The query returned no rows for this period."
	}

	first := rows[0]
	keys := make([]string, 0, len(first))
	for k := range first {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s = %s", k, formatValue(first[k])))
	}

	noun := "rows"
	if len(rows) == 1 {
		noun = "row"
	}
	if len(parts) == 0 {
		return fmt.Sprintf("The query returned %d %s.", len(rows), noun)
	}
	return fmt.Sprintf("The query returned %d %s. First row: %s.", len(rows), noun, strings.Join(parts, ", "))
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "n/a"
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprint(val)
	}
}
