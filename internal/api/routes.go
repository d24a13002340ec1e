package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"jobintake/internal/config"
	"jobintake/internal/intake"
	"jobintake/internal/notify"
	"jobintake/internal/storage"
)

// RegisterRoutes 组装协作方并注册全部 API 路由。
func RegisterRoutes(
	router *gin.Engine,
	db *gorm.DB,
	backend storage.Backend,
	asynqClient *asynq.Client,
	redisClient *redis.Client,
	logger *slog.Logger,
	cfg *config.Config,
) {
	notifier := notify.NewQueueNotifier(asynqClient, redisClient, logger)
	service := intake.NewService(db, backend, notifier, logger)
	gate := intake.NewFileGate(backend, cfg.Upload.MaxFileBytes, cfg.Upload.ClamdAddr, logger)

	appHandler := NewApplicationHandler(service, gate, logger, cfg.API.Debug)
	eventsHandler := NewEventsHandler(redisClient, logger)

	router.POST("/apply", appHandler.SubmitApplication)

	// 管理端路由。来源系统未设计鉴权，与其保持一致。
	router.GET("/applications", appHandler.GetApplications)
	router.GET("/applications/:id", appHandler.GetApplicationByID)
	router.PATCH("/applications/:id/status", appHandler.UpdateStatus)
	router.DELETE("/applications/:id", appHandler.DeleteApplication)
	router.GET("/stats", appHandler.GetStatistics)
	router.GET("/ws", eventsHandler.HandleConnection)
}
