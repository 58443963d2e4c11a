package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client はShopify Admin API（GraphQL / REST）へのリクエストを管理します。
type Client struct {
	apiVersion string
	baseURL    string // テスト用。空の場合は https://{shop}
	httpClient *http.Client
}

// NewClient 新しいShopifyクライアントを作成
func NewClient(apiVersion string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		apiVersion: apiVersion,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithBaseURL はショップドメインの代わりに使う接続先を設定します（httptest用）。
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimSuffix(baseURL, "/")
	return c
}

// APIVersion 利用中のAdmin APIバージョン
func (c *Client) APIVersion() string {
	return c.apiVersion
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\r", "",
	"\n", `\n`,
)

// EscapeQuery はShopifyQLをGraphQLの文字列リテラルに埋め込めるようエスケープします。
func EscapeQuery(query string) string {
	return queryEscaper.Replace(query)
}

// BuildShopifyQLDocument shopifyqlQuery を呼び出すGraphQLドキュメントを組み立てる
func BuildShopifyQLDocument(query string) string {
	return fmt.Sprintf(`{
  shopifyqlQuery(query: "%s") {
    tableData {
      columns {
        name
        dataType
        displayName
      }
      rows
    }
    parseErrors
  }
}`, EscapeQuery(query))
}

// RunShopifyQL はShopifyQLを実行し、GraphQLレスポンスの生のJSONを返します。
// エラー判定（errors / parseErrors）は呼び出し側の責務です。
func (c *Client) RunShopifyQL(ctx context.Context, shopDomain, accessToken, query string) ([]byte, int, error) {
	payload := map[string]string{"query": BuildShopifyQLDocument(query)}
	return c.post(ctx, shopDomain, accessToken, "graphql.json", payload)
}

// PostREST はAdmin REST API（例: "products.json"）へJSONをPOSTします。
func (c *Client) PostREST(ctx context.Context, shopDomain, accessToken, resource string, payload interface{}) ([]byte, int, error) {
	return c.post(ctx, shopDomain, accessToken, resource, payload)
}

func (c *Client) endpoint(shopDomain, resource string) string {
	base := c.baseURL
	if base == "" {
		base = "https://" + strings.TrimSuffix(shopDomain, "/")
	}
	return fmt.Sprintf("%s/admin/api/%s/%s", base, c.apiVersion, resource)
}

func (c *Client) post(ctx context.Context, shopDomain, accessToken, resource string, payload interface{}) ([]byte, int, error) {
	requestBody, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("リクエストのJSON化に失敗: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(shopDomain, resource), bytes.NewReader(requestBody))
	if err != nil {
		return nil, 0, fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("HTTPリクエストの実行に失敗: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("レスポンスの読み取りに失敗: %w", err)
	}
	return body, resp.StatusCode, nil
}
