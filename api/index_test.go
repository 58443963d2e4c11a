package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerServesHealth(t *testing.T) {
	t.Setenv("PROMPTS_FILE", "")

	w := httptest.NewRecorder()
	Handler(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// 2回目以降は同じエンジンを使う
	first := setupApp()
	assert.Same(t, first, setupApp())
}
