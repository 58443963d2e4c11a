package handlers

import (
	"net/http"

	"shop-analytics-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// MonitoringHandler はモニタリング関連の操作のハンドラです。
type MonitoringHandler struct {
	Service *services.MonitoringService
}

// NewMonitoringHandler は新しいMonitoringHandlerを生成します。
func NewMonitoringHandler(service *services.MonitoringService) *MonitoringHandler {
	return &MonitoringHandler{
		Service: service,
	}
}

var periodHours = map[string]int{
	"1h":  1,
	"6h":  6,
	"24h": 24,
	"7d":  24 * 7,
}

// GetLogs は集計されたログデータ（インテント・信頼度の内訳を含む）を返します。
func (h *MonitoringHandler) GetLogs(c *gin.Context) {
	period := c.DefaultQuery("period", "24h")
	hours, ok := periodHours[period]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "period must be one of 1h, 6h, 24h, 7d"})
		return
	}
	c.JSON(http.StatusOK, h.Service.GetDashboardData(hours))
}
