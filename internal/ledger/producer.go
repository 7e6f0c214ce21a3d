// Package ledger 将审计事件发布到 Kafka 事件流，供下游对账与归档使用。
package ledger

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/smartcargo-next/internal/config"
	"github.com/smartcargo-next/internal/models"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer 审计事件流生产者
type Producer struct {
	w       messageWriter
	topic   string
	timeout time.Duration
}

// NewProducer 根据配置创建生产者，未启用时返回 nil
func NewProducer(cfg *config.LedgerConfig) *Producer {
	if cfg == nil || !cfg.Enabled || len(cfg.Brokers) == 0 {
		return nil
	}
	topic := strings.TrimSpace(cfg.Topic)
	if topic == "" {
		topic = "smartcargo.audit-events"
	}
	timeout := time.Duration(cfg.WriteTimeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Producer{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		topic:   topic,
		timeout: timeout,
	}
}

func newProducerWithWriter(w messageWriter, topic string) *Producer {
	return &Producer{w: w, topic: topic, timeout: time.Second}
}

// Event 事件流消息体
type Event struct {
	EventID         string                 `json:"event_id"`
	EventType       string                 `json:"event_type"`
	Details         map[string]interface{} `json:"details,omitempty"`
	RelatedEntityID *uint                  `json:"related_entity_id,omitempty"`
	ActorID         *uint                  `json:"actor_id,omitempty"`
	Timestamp       time.Time              `json:"timestamp"`
}

// PublishAudit 发布审计事件，消息键为事件 ID
func (p *Producer) PublishAudit(ctx context.Context, event *models.AuditEvent) error {
	if p == nil || p.w == nil || event == nil {
		return nil
	}
	value, err := json.Marshal(Event{
		EventID:         event.EventID,
		EventType:       event.EventType,
		Details:         map[string]interface{}(event.Details),
		RelatedEntityID: event.RelatedEntityID,
		ActorID:         event.ActorID,
		Timestamp:       event.Timestamp,
	})
	if err != nil {
		return errors.Wrap(err, "marshal audit event")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.w.WriteMessages(ctx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.EventID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}); err != nil {
		return errors.Wrapf(err, "kafka publish %s", event.EventType)
	}
	return nil
}

// Close 关闭底层 writer
func (p *Producer) Close() error {
	if p == nil || p.w == nil {
		return nil
	}
	return p.w.Close()
}
