package service

import (
	"context"
	"strings"
	"time"

	"github.com/smartcargo-next/internal/constants"
	"github.com/smartcargo-next/internal/logger"
	"github.com/smartcargo-next/internal/models"
	"github.com/smartcargo-next/internal/queue"
	"github.com/smartcargo-next/internal/repository"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// AlertInput 告警参数
type AlertInput struct {
	Message           string
	Severity          string
	RelatedShipmentID uint
	RecipientID       uint
}

// AuditInput 审计事件参数
type AuditInput struct {
	EventType       string
	Details         map[string]interface{}
	RelatedEntityID uint
	Actor           Actor
}

// EventEmitter 告警与审计的发送端，调用方不感知失败
type EventEmitter interface {
	EmitAlert(ctx context.Context, input AlertInput)
	EmitAudit(ctx context.Context, input AuditInput)
}

// AuditPublisher 审计事件外发（事件流）
type AuditPublisher interface {
	PublishAudit(ctx context.Context, event *models.AuditEvent) error
}

// EventQueue 异步任务入队端
type EventQueue interface {
	Enabled() bool
	EnqueueAlert(payload queue.AlertPayload, opts ...asynq.Option) error
	EnqueueAudit(payload queue.AuditPayload, opts ...asynq.Option) error
}

// EmitterService 告警/审计发送服务
// 队列可用时异步入队由 worker 落库，否则同步落库；任何失败只记录日志。
type EmitterService struct {
	queue     EventQueue
	alertRepo repository.AlertRepository
	auditRepo repository.AuditEventRepository
	publisher AuditPublisher
	now       func() time.Time
}

// NewEmitterService 创建发送服务，queueClient 与 publisher 均可为空
func NewEmitterService(queueClient EventQueue, alertRepo repository.AlertRepository, auditRepo repository.AuditEventRepository, publisher AuditPublisher) *EmitterService {
	return &EmitterService{
		queue:     queueClient,
		alertRepo: alertRepo,
		auditRepo: auditRepo,
		publisher: publisher,
		now:       time.Now,
	}
}

// EmitAlert 发送告警
func (s *EmitterService) EmitAlert(ctx context.Context, input AlertInput) {
	if s == nil {
		return
	}
	payload := queue.AlertPayload{
		Message:           strings.TrimSpace(input.Message),
		Severity:          input.Severity,
		RelatedShipmentID: uintPtr(input.RelatedShipmentID),
		RecipientID:       uintPtr(input.RecipientID),
		Timestamp:         s.now(),
	}
	if s.queueEnabled() {
		err := s.queue.EnqueueAlert(payload, asynq.MaxRetry(5))
		if err == nil {
			return
		}
		logger.Warnw("emitter_enqueue_alert_failed", "severity", payload.Severity, "error", err)
	}
	if err := s.PersistAlert(ctx, payload); err != nil {
		logger.Warnw("emitter_persist_alert_failed",
			"severity", payload.Severity,
			"recipient_id", input.RecipientID,
			"shipment_id", input.RelatedShipmentID,
			"error", err,
		)
	}
}

// EmitAudit 发送审计事件
func (s *EmitterService) EmitAudit(ctx context.Context, input AuditInput) {
	if s == nil {
		return
	}
	payload := queue.AuditPayload{
		EventID:         uuid.NewString(),
		EventType:       input.EventType,
		Details:         input.Details,
		RelatedEntityID: uintPtr(input.RelatedEntityID),
		ActorID:         input.Actor.idPtr(),
		RequestID:       input.Actor.RequestID,
		Timestamp:       s.now(),
	}
	if s.queueEnabled() {
		err := s.queue.EnqueueAudit(payload, asynq.MaxRetry(10))
		if err == nil {
			return
		}
		logger.Warnw("emitter_enqueue_audit_failed", "event_type", payload.EventType, "error", err)
	}
	if err := s.PersistAudit(ctx, payload); err != nil {
		logger.Warnw("emitter_persist_audit_failed",
			"event_type", payload.EventType,
			"event_id", payload.EventID,
			"error", err,
		)
	}
}

// PersistAlert 告警落库（worker 与同步路径共用）
func (s *EmitterService) PersistAlert(ctx context.Context, payload queue.AlertPayload) error {
	if !isValidSeverity(payload.Severity) {
		return ErrInvalidSeverity
	}
	if payload.Message == "" {
		return ErrRequiredField
	}
	ts := payload.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	return s.alertRepo.Create(&models.Alert{
		Message:           payload.Message,
		Severity:          payload.Severity,
		RelatedShipmentID: payload.RelatedShipmentID,
		RecipientID:       payload.RecipientID,
		Timestamp:         ts,
	})
}

// PersistAudit 审计事件落库并外发，按 EventID 幂等
func (s *EmitterService) PersistAudit(ctx context.Context, payload queue.AuditPayload) error {
	if strings.TrimSpace(payload.EventType) == "" {
		return ErrRequiredField
	}
	if payload.EventID == "" {
		payload.EventID = uuid.NewString()
	}
	event, err := s.auditRepo.GetByEventID(payload.EventID)
	if err != nil {
		return err
	}
	if event == nil {
		ts := payload.Timestamp
		if ts.IsZero() {
			ts = s.now()
		}
		event = &models.AuditEvent{
			EventID:         payload.EventID,
			EventType:       payload.EventType,
			Details:         models.JSON(payload.Details),
			RelatedEntityID: payload.RelatedEntityID,
			ActorID:         payload.ActorID,
			RequestID:       payload.RequestID,
			Timestamp:       ts,
		}
		if event.Details == nil {
			event.Details = models.JSON{}
		}
		if err := s.auditRepo.Create(event); err != nil {
			return err
		}
	}
	if s.publisher == nil {
		return nil
	}
	return s.publisher.PublishAudit(ctx, event)
}

func (s *EmitterService) queueEnabled() bool {
	return s.queue != nil && s.queue.Enabled()
}

func isValidSeverity(severity string) bool {
	switch severity {
	case constants.AlertSeverityInfo, constants.AlertSeverityWarning, constants.AlertSeverityCritical:
		return true
	}
	return false
}

type noopEmitter struct{}

func (noopEmitter) EmitAlert(context.Context, AlertInput) {}

func (noopEmitter) EmitAudit(context.Context, AuditInput) {}

func emitterOrNoop(e EventEmitter) EventEmitter {
	if e == nil {
		return noopEmitter{}
	}
	return e
}
