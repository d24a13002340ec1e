package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"jobintake/internal/api/middleware"
	"jobintake/internal/metrics"
)

// NewRouter 构建 Gin 路由引擎，挂载基础中间件与运维端点。
func NewRouter(logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.SlogLogger(logger),
		metrics.GinMiddleware(),
		gin.Recovery(),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Job application API is running",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
