package azure

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplete(t *testing.T) {
	var got ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/deployments/gpt-test/chat/completions", r.URL.Path)
		assert.Equal(t, "2024-06-01", r.URL.Query().Get("api-version"))
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"id":"x","choices":[{"index":0,"message":{"role":"assistant","content":"  hello  "}}]}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient(srv.URL+"/", "secret", "2024-06-01", "gpt-test")
	out, err := client.Complete(context.Background(), "sys", "user", 100, 0.2)
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "sys", got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Content)
	assert.Equal(t, 100, got.MaxTokens)
}

func TestCompleteErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":"429","message":"rate limited"}}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient(srv.URL, "secret", "v", "d")
	_, err := client.Complete(context.Background(), "s", "u", 10, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")

	noKey := NewOpenAIClient(srv.URL, "", "v", "d")
	_, err = noKey.Complete(context.Background(), "s", "u", 10, 0)
	assert.Error(t, err)
}

func TestCompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIClient(srv.URL, "k", "v", "d").Complete(context.Background(), "s", "u", 10, 0)
	assert.Error(t, err)
}
