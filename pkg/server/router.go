package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	config "shop-analytics-api/configs"
	"shop-analytics-api/pkg/handlers"
	"shop-analytics-api/pkg/metrics"
	"shop-analytics-api/pkg/services"
)

// NewRouter はすべてのエンドポイントを登録したGinエンジンを返します。
func NewRouter(cfg *config.Config, components *Components, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	monitoringService := services.NewMonitoringService(cfg.MonitoringTimezone)
	questionHandler := handlers.NewQuestionHandler(components.Agent, components.Exporter, components.Registry, logger.Named("handler"))
	adminHandler := handlers.NewAdminHandler(cfg, logger.Named("admin"))
	monitoringHandler := handlers.NewMonitoringHandler(monitoringService)

	// ミドルウェアの登録
	r.Use(monitoringService.LoggingMiddleware())
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "X-API-KEY", services.RequestIDHeader)
	corsConfig.ExposeHeaders = []string{services.RequestIDHeader, "Content-Disposition"}
	r.Use(cors.New(corsConfig))

	metrics.Register()

	r.GET("/health", adminHandler.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 元のAIサービスと同じ形のエンドポイント
	r.POST("/ask", adminHandler.MaintenanceGuard(), authMiddleware(cfg.APIKey, logger), questionHandler.Ask)

	// APIバージョン1のルートグループ
	v1 := r.Group("/api/v1")
	v1.Use(authMiddleware(cfg.APIKey, logger))
	{
		questions := v1.Group("/questions")
		questions.Use(adminHandler.MaintenanceGuard())
		{
			questions.POST("", questionHandler.CreateQuestion)
			questions.POST("/export", questionHandler.ExportQuestion)
		}

		v1.GET("/reports", questionHandler.ListReports)

		// 管理者向けAPI
		admin := v1.Group("/admin")
		{
			admin.GET("/health-status", adminHandler.GetHealthStatus)
			admin.POST("/maintenance/start", adminHandler.StartMaintenance)
			admin.POST("/maintenance/stop", adminHandler.StopMaintenance)
		}

		// モニタリングAPI
		monitoring := v1.Group("/monitoring")
		{
			monitoring.GET("/logs", monitoringHandler.GetLogs)
		}
	}

	return r
}

// authMiddleware は API_KEY が設定されている場合に X-API-KEY ヘッダーを検証します。
func authMiddleware(apiKey string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}
		if c.GetHeader("X-API-KEY") != apiKey {
			logger.Warn("❌ [認証] 無効なAPI Key", zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}
