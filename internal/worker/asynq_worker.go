package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/smartcargo-next/internal/logger"
	"github.com/smartcargo-next/internal/provider"
	"github.com/smartcargo-next/internal/queue"
	"github.com/smartcargo-next/internal/service"

	"github.com/hibiken/asynq"
)

type eventPersister interface {
	PersistAlert(ctx context.Context, payload queue.AlertPayload) error
	PersistAudit(ctx context.Context, payload queue.AuditPayload) error
}

// Consumer 异步任务消费者，负责告警与审计事件落库
type Consumer struct {
	persister eventPersister
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	consumer := &Consumer{}
	if c != nil && c.EmitterService != nil {
		consumer.persister = c.EmitterService
	}
	return consumer
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskAlertEmit, c.handleAlertEmit)
	mux.HandleFunc(queue.TaskAuditAppend, c.handleAuditAppend)
}

func (c *Consumer) handleAlertEmit(ctx context.Context, task *asynq.Task) error {
	if c == nil || c.persister == nil || task == nil {
		logger.Debugw("worker_alert_emit_skip_nil", "task_nil", task == nil)
		return nil
	}
	var payload queue.AlertPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_alert_emit_unmarshal_failed", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err := c.persister.PersistAlert(ctx, payload); err != nil {
		return c.classify("worker_alert_emit_failed", err, "severity", payload.Severity)
	}
	return nil
}

func (c *Consumer) handleAuditAppend(ctx context.Context, task *asynq.Task) error {
	if c == nil || c.persister == nil || task == nil {
		logger.Debugw("worker_audit_append_skip_nil", "task_nil", task == nil)
		return nil
	}
	var payload queue.AuditPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_audit_append_unmarshal_failed", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err := c.persister.PersistAudit(ctx, payload); err != nil {
		return c.classify("worker_audit_append_failed", err, "event_id", payload.EventID, "event_type", payload.EventType)
	}
	return nil
}

// classify 业务校验失败不再重试，其余错误交给 asynq 重试
func (c *Consumer) classify(event string, err error, kv ...interface{}) error {
	fields := append([]interface{}{"error", err}, kv...)
	if service.KindOf(err) != 0 {
		logger.Warnw(event+"_skip_invalid", fields...)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	logger.Warnw(event, fields...)
	return err
}
