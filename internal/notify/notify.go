package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"jobintake/internal/database"
	"jobintake/internal/tasks"
)

// EventChannel 是生命周期事件的 Redis Pub/Sub 频道，管理端 WebSocket 订阅于此。
const EventChannel = "application_events"

// 事件类型。
const (
	EventSubmitted     = "submitted"
	EventStatusChanged = "status_changed"
	EventEmailFailed   = "email_failed"
)

// Event 是推送给订阅方的生命周期事件载荷。
type Event struct {
	Event             string `json:"event"`
	ApplicationID     uint   `json:"application_id"`
	ApplicationNumber string `json:"application_number"`
	Status            string `json:"status"`
	RequestID         string `json:"request_id,omitempty"`
	ErrorCode         int    `json:"error_code"`
	ErrorMessage      string `json:"error_message,omitempty"`
}

// QueueNotifier 通过 asynq 入队邮件任务，并把生命周期事件发布到 Redis。
// 邮件本身由 worker 进程发送，对提交请求而言是 fire-and-forget。
type QueueNotifier struct {
	asynqClient *asynq.Client
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewQueueNotifier 构造 QueueNotifier。
func NewQueueNotifier(asynqClient *asynq.Client, redisClient *redis.Client, logger *slog.Logger) *QueueNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueueNotifier{asynqClient: asynqClient, redisClient: redisClient, logger: logger}
}

// ApplicationSubmitted 入队确认邮件并发布提交事件。
func (n *QueueNotifier) ApplicationSubmitted(ctx context.Context, app *database.Application, requestID string) error {
	task, err := tasks.NewEmailConfirmationTask(app.ID, requestID)
	if err != nil {
		return fmt.Errorf("build confirmation task: %w", err)
	}
	if _, err := n.asynqClient.EnqueueContext(ctx, task, asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("enqueue confirmation task: %w", err)
	}

	n.publish(ctx, Event{
		Event:             EventSubmitted,
		ApplicationID:     app.ID,
		ApplicationNumber: app.ApplicationNumber,
		Status:            app.Status,
		RequestID:         requestID,
	})
	return nil
}

// StatusChanged 入队状态变更邮件并发布状态事件。
func (n *QueueNotifier) StatusChanged(ctx context.Context, app *database.Application, status, requestID string) error {
	task, err := tasks.NewEmailStatusUpdateTask(app.ID, status, requestID)
	if err != nil {
		return fmt.Errorf("build status update task: %w", err)
	}
	if _, err := n.asynqClient.EnqueueContext(ctx, task, asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("enqueue status update task: %w", err)
	}

	n.publish(ctx, Event{
		Event:             EventStatusChanged,
		ApplicationID:     app.ID,
		ApplicationNumber: app.ApplicationNumber,
		Status:            status,
		RequestID:         requestID,
	})
	return nil
}

// publish 发布事件；失败只记录日志，不影响主流程。
func (n *QueueNotifier) publish(ctx context.Context, event Event) {
	if n.redisClient == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("marshal event failed", slog.String("error", err.Error()))
		return
	}
	if err := n.redisClient.Publish(ctx, EventChannel, data).Err(); err != nil {
		n.logger.Error("publish event failed",
			slog.String("event", event.Event),
			slog.String("error", err.Error()),
		)
	}
}

// Publish 供其他进程（如 worker）复用的事件发布入口。
func Publish(ctx context.Context, redisClient *redis.Client, logger *slog.Logger, event Event) {
	n := &QueueNotifier{redisClient: redisClient, logger: logger}
	if n.logger == nil {
		n.logger = slog.Default()
	}
	n.publish(ctx, event)
}
