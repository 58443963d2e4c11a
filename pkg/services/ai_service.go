package services

import (
	"context"
	"fmt"
	"time"

	"shop-analytics-api/pkg/azure"
)

// TextGenerator はシステム指示とユーザーメッセージを受け取り、生成テキストを返す外部呼び出しです。
// 分類・ShopifyQL生成・回答文生成のすべてがこの形を使います。
type TextGenerator interface {
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// AzureOpenAIService Azure OpenAI API サービス
type AzureOpenAIService struct {
	client      *azure.OpenAIClient
	timeout     time.Duration
	maxTokens   int
	temperature float32
}

// NewAzureOpenAIService 新しいAzure OpenAI サービスを作成
func NewAzureOpenAIService(endpoint, apiKey, apiVersion, chatDeploymentName string) *AzureOpenAIService {
	return &AzureOpenAIService{
		client:      azure.NewOpenAIClient(endpoint, apiKey, apiVersion, chatDeploymentName),
		timeout:     30 * time.Second,
		maxTokens:   1500,
		temperature: 0.2,
	}
}

// Complete Azure OpenAI チャット補完を実行
func (aos *AzureOpenAIService) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, aos.timeout)
	defer cancel()

	out, err := aos.client.Complete(ctx, systemPrompt, userMessage, aos.maxTokens, aos.temperature)
	if err != nil {
		return "", fmt.Errorf("AI処理中にエラーが発生しました: %w", err)
	}
	return out, nil
}
