package queue

import (
	"encoding/json"
	"time"

	"github.com/smartcargo-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskAlertEmit 告警落库任务
	TaskAlertEmit = constants.TaskAlertEmit
	// TaskAuditAppend 审计事件落库任务
	TaskAuditAppend = constants.TaskAuditAppend
)

// AlertPayload 告警任务载荷
type AlertPayload struct {
	Message           string    `json:"message"`
	Severity          string    `json:"severity"`
	RelatedShipmentID *uint     `json:"related_shipment_id,omitempty"`
	RecipientID       *uint     `json:"recipient_id,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// AuditPayload 审计任务载荷，EventID 由生产方生成以保证重试幂等
type AuditPayload struct {
	EventID         string                 `json:"event_id"`
	EventType       string                 `json:"event_type"`
	Details         map[string]interface{} `json:"details,omitempty"`
	RelatedEntityID *uint                  `json:"related_entity_id,omitempty"`
	ActorID         *uint                  `json:"actor_id,omitempty"`
	RequestID       string                 `json:"request_id,omitempty"`
	Timestamp       time.Time              `json:"timestamp"`
}

// NewAlertTask 创建告警任务
func NewAlertTask(payload AlertPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAlertEmit, body), nil
}

// NewAuditTask 创建审计任务
func NewAuditTask(payload AuditPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditAppend, body), nil
}
