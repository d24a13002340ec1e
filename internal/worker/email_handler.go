package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"jobintake/internal/database"
	"jobintake/internal/errcode"
	"jobintake/internal/mailer"
	"jobintake/internal/notify"
	"jobintake/internal/tasks"
)

// EmailTaskHandler 消费邮件任务并通过 SMTP 发送。
// mailer 为 nil 时（未配置 SMTP）任务被直接确认，不做发送。
type EmailTaskHandler struct {
	db          *gorm.DB
	mailer      *mailer.Mailer
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewEmailTaskHandler 创建任务处理器。
func NewEmailTaskHandler(db *gorm.DB, m *mailer.Mailer, redisClient *redis.Client, logger *slog.Logger) *EmailTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmailTaskHandler{db: db, mailer: m, redisClient: redisClient, logger: logger}
}

// HandleConfirmation 处理申请确认邮件任务。
func (h *EmailTaskHandler) HandleConfirmation(ctx context.Context, t *asynq.Task) error {
	var payload tasks.EmailConfirmationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.logger.Error("unmarshal confirmation payload failed", slog.String("error", err.Error()))
		return err
	}

	log := h.logger.With(
		slog.String("request_id", payload.RequestID),
		slog.Uint64("application_id", uint64(payload.ApplicationID)),
	)

	app, ok, err := h.loadApplication(ctx, log, payload.ApplicationID)
	if err != nil || !ok {
		return err
	}

	if h.mailer == nil {
		log.Info("smtp not configured, skipping confirmation email")
		return nil
	}

	if err := h.mailer.SendApplicationConfirmation(app); err != nil {
		log.Error("send confirmation email failed", slog.String("error", err.Error()))
		h.reportFinalFailure(ctx, app, app.Status, payload.RequestID, err)
		return err
	}

	log.Info("confirmation email sent", slog.String("to", app.Email))
	return nil
}

// HandleStatusUpdate 处理状态变更邮件任务。
func (h *EmailTaskHandler) HandleStatusUpdate(ctx context.Context, t *asynq.Task) error {
	var payload tasks.EmailStatusUpdatePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.logger.Error("unmarshal status update payload failed", slog.String("error", err.Error()))
		return err
	}

	log := h.logger.With(
		slog.String("request_id", payload.RequestID),
		slog.Uint64("application_id", uint64(payload.ApplicationID)),
		slog.String("status", payload.Status),
	)

	app, ok, err := h.loadApplication(ctx, log, payload.ApplicationID)
	if err != nil || !ok {
		return err
	}

	if h.mailer == nil {
		log.Info("smtp not configured, skipping status email")
		return nil
	}

	if err := h.mailer.SendStatusUpdate(app, payload.Status); err != nil {
		log.Error("send status email failed", slog.String("error", err.Error()))
		h.reportFinalFailure(ctx, app, payload.Status, payload.RequestID, err)
		return err
	}

	log.Info("status email sent", slog.String("to", app.Email))
	return nil
}

// loadApplication 读取申请记录；记录已被删除时跳过任务而非报错。
func (h *EmailTaskHandler) loadApplication(ctx context.Context, log *slog.Logger, id uint) (*database.Application, bool, error) {
	var app database.Application
	if err := h.db.WithContext(ctx).First(&app, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("application not found, skipping task")
			return nil, false, nil
		}
		log.Error("query application failed", slog.String("error", err.Error()))
		return nil, false, err
	}
	return &app, true, nil
}

// reportFinalFailure 在重试耗尽的最后一次尝试后发布失败事件。
func (h *EmailTaskHandler) reportFinalFailure(ctx context.Context, app *database.Application, status, requestID string, sendErr error) {
	if !isFinalAttempt(ctx) {
		return
	}
	notify.Publish(ctx, h.redisClient, h.logger, notify.Event{
		Event:             notify.EventEmailFailed,
		ApplicationID:     app.ID,
		ApplicationNumber: app.ApplicationNumber,
		Status:            status,
		RequestID:         requestID,
		ErrorCode:         errcode.SystemError,
		ErrorMessage:      strings.TrimSpace(sendErr.Error()),
	})
}

func isFinalAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
