package services

import (
	"context"
	"errors"
	"sync"
)

// fakeGenerator は呼び出しを記録し、決められた応答を返すTextGeneratorです。
type fakeGenerator struct {
	mu       sync.Mutex
	response string
	err      error
	calls    []generatorCall
}

type generatorCall struct {
	System string
	User   string
}

func (f *fakeGenerator) Complete(_ context.Context, systemPrompt, userMessage string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, generatorCall{System: systemPrompt, User: userMessage})
	return f.response, f.err
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

var errGeneratorDown = errors.New("generator unavailable")

// fakeRunner はクエリごとに決められたレスポンスを返すShopifyQLRunnerです。
type fakeRunner struct {
	mu        sync.Mutex
	responses []runnerResponse
	queries   []string
}

type runnerResponse struct {
	body   string
	status int
	err    error
}

func (f *fakeRunner) RunShopifyQL(_ context.Context, _, _, query string) ([]byte, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if len(f.responses) == 0 {
		return []byte(`{"data":{"shopifyqlQuery":{"tableData":{"columns":[],"rows":[]},"parseErrors":[]}}}`), 200, nil
	}
	r := f.responses[0]
	f.responses = f.responses[1:]
	status := r.status
	if status == 0 {
		status = 200
	}
	return []byte(r.body), status, r.err
}

func (f *fakeRunner) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

// tableBody は shopifyqlQuery の正常レスポンスを組み立てる
func tableBody(columnsJSON, rowsJSON string) string {
	return `{"data":{"shopifyqlQuery":{"tableData":{"columns":` + columnsJSON + `,"rows":` + rowsJSON + `},"parseErrors":[]}}}`
}
