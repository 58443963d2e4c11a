package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"shop-analytics-api/pkg/logger"
	"shop-analytics-api/pkg/models"
)

// ResolutionPath 質問がどの経路で処理されたか
type ResolutionPath string

const (
	PathTemplated   ResolutionPath = "templated"
	PathSynthesized ResolutionPath = "synthesized"
	PathForecast    ResolutionPath = "forecast"
)

// Resolution は1件の質問の処理結果です。エクスポートや監視で使う中間データも保持します。
type Resolution struct {
	Params  models.QueryParams
	Path    ResolutionPath
	Query   string
	Columns []models.Column
	Rows    []models.NormalizedRow
	// Forecast は Path == PathForecast のときのみ設定
	Forecast *ForecastReport
	// Outcome はクエリ実行の判定結果（AI生成失敗時は OutcomeTransportError）
	Outcome  OutcomeKind
	Response models.Response
	Duration time.Duration

	answered bool
}

// Failed エラー応答で終わったかどうか
func (r Resolution) Failed() bool {
	return r.Outcome != OutcomeTable
}

// AnalyticsAgent は質問→分類→クエリ生成→実行→正規化→回答文 の流れを統括します。
type AnalyticsAgent struct {
	classifier *IntentClassifier
	builder    *QueryBuilder
	executor   *QueryExecutor
	forecaster *ReorderForecaster
	explainer  *ResponseExplainer
	logger     *zap.Logger
}

// NewAnalyticsAgent 新しいAnalyticsAgentを生成
func NewAnalyticsAgent(classifier *IntentClassifier, builder *QueryBuilder, executor *QueryExecutor, forecaster *ReorderForecaster, explainer *ResponseExplainer, l *zap.Logger) *AnalyticsAgent {
	return &AnalyticsAgent{
		classifier: classifier,
		builder:    builder,
		executor:   executor,
		forecaster: forecaster,
		explainer:  explainer,
		logger:     logger.OrNop(l),
	}
}

// Handle は質問に回答します。どの経路でも必ず Response を返します。
func (a *AnalyticsAgent) Handle(ctx context.Context, req models.Request) models.Response {
	return a.Answer(ctx, req).Response
}

// Answer は質問を解決し、必要なら回答文まで生成した Resolution を返します。
func (a *AnalyticsAgent) Answer(ctx context.Context, req models.Request) Resolution {
	start := time.Now()
	res := a.Resolve(ctx, req)
	if !res.answered {
		res.Response.Answer = a.explainer.Explain(ctx, res.Rows, req.Question)
		res.answered = true
	}
	res.Duration = time.Since(start)

	a.logger.Info("✅ 回答を返却",
		zap.String("intent", res.Params.Intent),
		zap.String("path", string(res.Path)),
		zap.String("outcome", res.Outcome.String()),
		zap.String("confidence", string(res.Response.Confidence)),
		zap.Duration("duration", res.Duration))
	return res
}

// Resolve は回答文の生成を除いた処理を行います。
// エラー応答と発注予測はこの時点で Response が確定します。
func (a *AnalyticsAgent) Resolve(ctx context.Context, req models.Request) Resolution {
	start := time.Now()
	params := a.classifier.Classify(ctx, req.Question, OverridesFromRequest(req))
	res := Resolution{Params: params}

	if params.Intent == models.IntentReorderForecast {
		report := a.forecaster.Forecast(ctx, req.ShopDomain, req.AccessToken)
		res.Path = PathForecast
		res.Forecast = &report
		res.Response = report.Response()
		res.answered = true
		if report.Failure != nil {
			res.Outcome = report.Failure.Kind
		}
		res.Duration = time.Since(start)
		return res
	}

	built, err := a.builder.Build(ctx, params, req.Question)
	if err != nil {
		a.logger.Warn("ShopifyQLの生成に失敗", zap.String("intent", params.Intent), zap.Error(err))
		res.Path = PathSynthesized
		res.Outcome = OutcomeTransportError
		res.Response = models.Response{Answer: "AI Service Error: " + err.Error(), Confidence: models.ConfidenceHigh}
		res.answered = true
		res.Duration = time.Since(start)
		return res
	}

	res.Query = built.Query
	res.Path = PathSynthesized
	if built.Templated {
		res.Path = PathTemplated
	}

	outcome := a.executor.Execute(ctx, req.ShopDomain, req.AccessToken, built.Query)
	res.Outcome = outcome.Kind
	if outcome.Failed() {
		res.Response = outcome.ErrorResponse()
		res.answered = true
		res.Duration = time.Since(start)
		return res
	}

	res.Columns = outcome.Table.Columns
	res.Rows = NormalizeTable(outcome.Table)
	// 回答文は Answer で生成する
	res.Response.Confidence = confidenceFor(res.Path)
	res.Duration = time.Since(start)
	return res
}

func confidenceFor(path ResolutionPath) models.Confidence {
	if path == PathSynthesized {
		return models.ConfidenceMedium
	}
	return models.ConfidenceHigh
}
