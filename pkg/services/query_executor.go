package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"shop-analytics-api/pkg/logger"
	"shop-analytics-api/pkg/metrics"
	"shop-analytics-api/pkg/models"
)

// ShopifyQLRunner はShopifyQLを送信し、GraphQLレスポンスの生JSONを返すトランスポートです。
type ShopifyQLRunner interface {
	RunShopifyQL(ctx context.Context, shopDomain, accessToken, query string) ([]byte, int, error)
}

// OutcomeKind クエリ実行結果の種類
type OutcomeKind int

const (
	// OutcomeTable 正常なテーブル結果
	OutcomeTable OutcomeKind = iota
	// OutcomeTransportError トップレベルの errors（認証・通信エラー）
	OutcomeTransportError
	// OutcomeParseError shopifyqlQuery.parseErrors（クエリの構文エラー）
	OutcomeParseError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeTable:
		return "table"
	case OutcomeTransportError:
		return "transport_error"
	case OutcomeParseError:
		return "parse_error"
	}
	return "unknown"
}

// QueryOutcome はクエリ実行の判別可能な結果です。
type QueryOutcome struct {
	Kind OutcomeKind
	// Table は Kind == OutcomeTable のときのみ有効
	Table models.TableResult
	// Errors はエラー時の生のJSON（エラーリスト）
	Errors string
}

// Failed エラー結果かどうか
func (o QueryOutcome) Failed() bool {
	return o.Kind != OutcomeTable
}

// ErrorResponse エラー結果をそのまま引用した高信頼度の回答に変換
func (o QueryOutcome) ErrorResponse() models.Response {
	switch o.Kind {
	case OutcomeParseError:
		return models.Response{Answer: "Query Error: " + o.Errors, Confidence: models.ConfidenceHigh}
	default:
		return models.Response{Answer: "Shopify API Error: " + o.Errors, Confidence: models.ConfidenceHigh}
	}
}

// QueryExecutor はShopifyQLを実行し、2つのエラーチャネルを判定します。
type QueryExecutor struct {
	runner ShopifyQLRunner
	logger *zap.Logger
}

// NewQueryExecutor 新しいQueryExecutorを生成
func NewQueryExecutor(runner ShopifyQLRunner, l *zap.Logger) *QueryExecutor {
	return &QueryExecutor{runner: runner, logger: logger.OrNop(l)}
}

// Execute はクエリを実行します。リトライは行いません。
func (qe *QueryExecutor) Execute(ctx context.Context, shopDomain, accessToken, query string) QueryOutcome {
	body, status, err := qe.runner.RunShopifyQL(ctx, shopDomain, accessToken, query)
	if err != nil {
		qe.logger.Warn("Shopifyへのリクエストに失敗", zap.String("shop", shopDomain), zap.Error(err))
		metrics.IncShopifyOutcome(OutcomeTransportError.String())
		return QueryOutcome{Kind: OutcomeTransportError, Errors: quoteJSON(err.Error())}
	}
	qe.logger.Debug("Shopifyレスポンス", zap.Int("status", status), zap.ByteString("body", body))

	outcome := ClassifyResponse(body, status)
	if outcome.Failed() {
		qe.logger.Warn("ShopifyQLの実行結果がエラー", zap.String("kind", outcome.Kind.String()), zap.String("errors", truncate(outcome.Errors, 500)))
	}
	metrics.IncShopifyOutcome(outcome.Kind.String())
	return outcome
}

// ClassifyResponse はGraphQLレスポンスを判定します。
// (a) トップレベルの errors、(b) data.shopifyqlQuery.parseErrors の順に確認し、
// どちらもなければ tableData を取り出します。
func ClassifyResponse(body []byte, status int) QueryOutcome {
	if !gjson.ValidBytes(body) {
		msg := fmt.Sprintf("invalid response (status %d): %s", status, truncate(string(body), 500))
		return QueryOutcome{Kind: OutcomeTransportError, Errors: quoteJSON(msg)}
	}

	if errs := gjson.GetBytes(body, "errors"); errs.Exists() && errs.Type != gjson.Null {
		return QueryOutcome{Kind: OutcomeTransportError, Errors: errs.Raw}
	}

	if parseErrs := gjson.GetBytes(body, "data.shopifyqlQuery.parseErrors"); isPresent(parseErrs) {
		return QueryOutcome{Kind: OutcomeParseError, Errors: parseErrs.Raw}
	}

	if status >= http.StatusBadRequest {
		msg := fmt.Sprintf("unexpected status %d: %s", status, truncate(string(body), 500))
		return QueryOutcome{Kind: OutcomeTransportError, Errors: quoteJSON(msg)}
	}

	var table models.TableResult
	if tableData := gjson.GetBytes(body, "data.shopifyqlQuery.tableData"); tableData.IsObject() {
		// 列・行の形が想定外でも失敗させず、空のテーブルとして扱う
		if err := json.Unmarshal([]byte(tableData.Raw), &table); err != nil {
			table = models.TableResult{}
		}
	}
	return QueryOutcome{Kind: OutcomeTable, Table: table}
}

// isPresent は parseErrors が空でない値かどうか（null・空配列・空文字は存在しない扱い）
func isPresent(r gjson.Result) bool {
	if !r.Exists() {
		return false
	}
	switch r.Type {
	case gjson.Null:
		return false
	case gjson.String:
		return r.Str != ""
	case gjson.False:
		return false
	}
	if r.IsArray() {
		return len(r.Array()) > 0
	}
	if r.IsObject() {
		return len(r.Map()) > 0
	}
	return true
}

func quoteJSON(s string) string {
	b, _ := json.Marshal([]string{s})
	return string(b)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
