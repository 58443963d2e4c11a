package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"shop-analytics-api/pkg/models"
	"shop-analytics-api/pkg/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// QuestionHandler は分析の質問を受け付けるハンドラです。
type QuestionHandler struct {
	agent    *services.AnalyticsAgent
	exporter *services.ExportService
	registry *services.TemplateRegistry
	logger   *zap.Logger
}

// NewQuestionHandler は新しいQuestionHandlerを生成します。
func NewQuestionHandler(agent *services.AnalyticsAgent, exporter *services.ExportService, registry *services.TemplateRegistry, logger *zap.Logger) *QuestionHandler {
	return &QuestionHandler{
		agent:    agent,
		exporter: exporter,
		registry: registry,
		logger:   logger,
	}
}

func (h *QuestionHandler) bindRequest(c *gin.Context) (models.Request, bool) {
	var req models.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "shop_domain and access_token are required"})
		return req, false
	}
	req.ShopDomain = strings.TrimSpace(req.ShopDomain)
	if strings.TrimSpace(req.Question) == "" && req.ForceIntent == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return req, false
	}
	return req, true
}

// Ask は質問に回答し {answer, confidence} を返します。
func (h *QuestionHandler) Ask(c *gin.Context) {
	req, ok := h.bindRequest(c)
	if !ok {
		return
	}

	res := h.agent.Answer(c.Request.Context(), req)
	services.RecordResolution(c, res)
	c.JSON(http.StatusOK, res.Response)
}

// CreateQuestion は /ask と同じ処理を行い、分類結果などのメタデータを付けて返します。
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	req, ok := h.bindRequest(c)
	if !ok {
		return
	}

	res := h.agent.Answer(c.Request.Context(), req)
	services.RecordResolution(c, res)

	c.JSON(http.StatusOK, gin.H{
		"answer":     res.Response.Answer,
		"confidence": res.Response.Confidence,
		"intent":     res.Params.Intent,
		"since":      res.Params.Since,
		"until":      res.Params.Until,
		"path":       res.Path,
		"outcome":    res.Outcome.String(),
		"request_id": c.GetString(services.ContextKeyRequestID),
	})
}

// ExportQuestion は質問を実行し、結果のテーブル（発注予測の場合は発注候補）をExcelで返します。
func (h *QuestionHandler) ExportQuestion(c *gin.Context) {
	req, ok := h.bindRequest(c)
	if !ok {
		return
	}

	res := h.agent.Resolve(c.Request.Context(), req)
	services.RecordResolution(c, res)
	if res.Failed() {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":      res.Response.Answer,
			"confidence": res.Response.Confidence,
		})
		return
	}

	buf, err := h.exporter.WriteXLSX(req.Question, res)
	if err != nil {
		h.logger.Error("Excelファイルの作成に失敗", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Excelファイルの作成に失敗しました。"})
		return
	}

	filename := fmt.Sprintf("%s_%s.xlsx", res.Params.Intent, time.Now().UTC().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ListReports は定義済みレポート（インテント）のカタログを返します。
func (h *QuestionHandler) ListReports(c *gin.Context) {
	templates := h.registry.Templates()
	c.JSON(http.StatusOK, gin.H{
		"reports": templates,
		"count":   len(templates),
		"special": []string{models.IntentReorderForecast},
	})
}
