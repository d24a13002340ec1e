package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeEmailConfirmation = "email:confirmation"
	TypeEmailStatusUpdate = "email:status_update"
)

// EmailConfirmationPayload 描述发送申请确认邮件所需的最小信息。
type EmailConfirmationPayload struct {
	ApplicationID uint   `json:"application_id"`
	RequestID     string `json:"request_id"`
}

// EmailStatusUpdatePayload 描述发送状态变更邮件所需的最小信息。
type EmailStatusUpdatePayload struct {
	ApplicationID uint   `json:"application_id"`
	Status        string `json:"status"`
	RequestID     string `json:"request_id"`
}

// NewEmailConfirmationTask 构造一个申请确认邮件任务。
func NewEmailConfirmationTask(applicationID uint, requestID string) (*asynq.Task, error) {
	payload, err := json.Marshal(EmailConfirmationPayload{
		ApplicationID: applicationID,
		RequestID:     requestID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeEmailConfirmation, payload), nil
}

// NewEmailStatusUpdateTask 构造一个状态变更邮件任务。
func NewEmailStatusUpdateTask(applicationID uint, status, requestID string) (*asynq.Task, error) {
	payload, err := json.Marshal(EmailStatusUpdatePayload{
		ApplicationID: applicationID,
		Status:        status,
		RequestID:     requestID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeEmailStatusUpdate, payload), nil
}
