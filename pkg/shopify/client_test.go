package shopify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeQuery(t *testing.T) {
	in := "FROM sales\nWHERE line_type = 'product' AND x = \"y\" AND p = 'a\\b'"
	want := `FROM sales\nWHERE line_type = 'product' AND x = \"y\" AND p = 'a\\b'`
	assert.Equal(t, want, EscapeQuery(in))
}

func TestBuildShopifyQLDocument(t *testing.T) {
	doc := BuildShopifyQLDocument(`FROM sales SHOW "x"`)
	assert.Contains(t, doc, `shopifyqlQuery(query: "FROM sales SHOW \"x\"")`)
	assert.Contains(t, doc, "parseErrors")
	assert.Contains(t, doc, "displayName")
}

func TestRunShopifyQL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/api/2025-10/graphql.json", r.URL.Path)
		assert.Equal(t, "shpat_test", r.Header.Get("X-Shopify-Access-Token"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body["query"], `shopifyqlQuery(query: "FROM sales SHOW total_sales")`)

		w.Write([]byte(`{"data":{"shopifyqlQuery":{"tableData":{"columns":[],"rows":[]},"parseErrors":[]}}}`))
	}))
	defer srv.Close()

	client := NewClient("2025-10", time.Second).WithBaseURL(srv.URL)
	body, status, err := client.RunShopifyQL(context.Background(), "demo.myshopify.com", "shpat_test", "FROM sales SHOW total_sales")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "shopifyqlQuery")
}

func TestEndpointDefaultsToShopDomain(t *testing.T) {
	client := NewClient("2025-01", 0)
	assert.Equal(t, "https://demo.myshopify.com/admin/api/2025-01/products.json", client.endpoint("demo.myshopify.com", "products.json"))
	assert.Equal(t, "2025-01", client.APIVersion())
}

func TestPostRESTTransportError(t *testing.T) {
	client := NewClient("2025-01", 50*time.Millisecond).WithBaseURL("http://127.0.0.1:1")
	_, _, err := client.PostREST(context.Background(), "demo", "t", "orders.json", map[string]string{})
	assert.Error(t, err)
}
