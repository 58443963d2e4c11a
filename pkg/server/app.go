package server

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	config "shop-analytics-api/configs"
	"shop-analytics-api/pkg/models"
	"shop-analytics-api/pkg/services"
	"shop-analytics-api/pkg/shopify"
)

// Components はパイプラインを構成するサービス群です。
type Components struct {
	Registry *services.TemplateRegistry
	Agent    *services.AnalyticsAgent
	Exporter *services.ExportService
}

// Options はテストなどで外部接続先を差し替えるための設定です。
type Options struct {
	// Generator が nil の場合は設定からAzure OpenAIクライアントを作る
	Generator services.TextGenerator
	// Runner が nil の場合は設定からShopifyクライアントを作る
	Runner services.ShopifyQLRunner
}

// BuildComponents は設定からパイプラインを組み立てます。
func BuildComponents(cfg *config.Config, logger *zap.Logger, opts Options) (*Components, error) {
	prompts, err := config.LoadPrompts(cfg.PromptsFile)
	if err != nil {
		return nil, fmt.Errorf("プロンプト設定の読み込みに失敗: %w", err)
	}

	generator := opts.Generator
	if generator == nil {
		if cfg.AzureOpenAIAPIKey == "" || cfg.AzureOpenAIEndpoint == "" {
			logger.Warn("⚠️ Azure OpenAIが未設定です。AI分類・クエリ生成・回答文生成は無効になります")
		} else {
			generator = services.NewAzureOpenAIService(
				cfg.AzureOpenAIEndpoint,
				cfg.AzureOpenAIAPIKey,
				cfg.AzureOpenAIAPIVersion,
				cfg.AzureOpenAIChatDeploymentName,
			)
		}
	}

	runner := opts.Runner
	if runner == nil {
		runner = shopify.NewClient(cfg.ShopifyAPIVersion, time.Duration(cfg.ShopifyTimeoutSeconds)*time.Second)
	}

	registry := services.NewTemplateRegistry()
	classifier := services.NewIntentClassifier(registry, generator, prompts.BuildClassifierPrompt(append(registry.Intents(), models.IntentReorderForecast)), logger.Named("classifier"))
	builder := services.NewQueryBuilder(registry, generator, prompts.BuildSynthesizerPrompt(), logger.Named("builder"))
	executor := services.NewQueryExecutor(runner, logger.Named("executor"))
	forecaster := services.NewReorderForecaster(builder, executor, logger.Named("forecaster"))
	explainer := services.NewResponseExplainer(generator, prompts.BuildExplainerPrompt(), logger.Named("explainer"))

	return &Components{
		Registry: registry,
		Agent:    services.NewAnalyticsAgent(classifier, builder, executor, forecaster, explainer, logger.Named("agent")),
		Exporter: services.NewExportService(),
	}, nil
}
