package handler

import (
	"net/http"
	"sync"

	config "shop-analytics-api/configs"
	"shop-analytics-api/pkg/logger"
	"shop-analytics-api/pkg/server"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	app  *gin.Engine
	once sync.Once
)

// setupApp はGinアプリケーションを初期化します。
// サーバーレス環境では、リクエストごとに初期化が走らないようsync.Onceで一度だけ実行します。
func setupApp() *gin.Engine {
	once.Do(func() {
		// .envファイルはVercelの環境変数設定から読み込まれるため、ここではgodotenvを呼び出しません。
		cfg := config.LoadConfig()
		zl := logger.New(cfg.LogLevel, "json")
		gin.SetMode(gin.ReleaseMode)

		components, err := server.BuildComponents(cfg, zl, server.Options{})
		if err != nil {
			zl.Error("🔴 [setupApp] パイプラインの初期化に失敗", zap.Error(err))
			app = unavailableApp()
			return
		}

		app = server.NewRouter(cfg, components, zl)
		zl.Info("🟢 [setupApp] Gin application initialized")
	})
	return app
}

// unavailableApp は初期化に失敗した場合にすべてのリクエストへ 503 を返します。
func unavailableApp() *gin.Engine {
	r := gin.New()
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service initialization failed"})
	})
	return r
}

// Handler はVercelからのすべてのリクエストを処理するエントリーポイントです。
func Handler(w http.ResponseWriter, r *http.Request) {
	setupApp().ServeHTTP(w, r)
}
