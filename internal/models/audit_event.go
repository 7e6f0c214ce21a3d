package models

import "time"

// AuditEvent 业务审计事件（只追加）
// 说明：记录撮合、运单状态、用户变更等关键动作，EventID 作为事件流的消息键。
type AuditEvent struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	EventID         string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"event_id"`
	EventType       string    `gorm:"type:varchar(64);index;not null" json:"event_type"`
	Details         JSON      `gorm:"type:json" json:"details"`
	RelatedEntityID *uint     `gorm:"index" json:"related_entity_id,omitempty"`
	ActorID         *uint     `gorm:"index" json:"actor_id,omitempty"`
	RequestID       string    `gorm:"type:varchar(64);not null;default:''" json:"request_id,omitempty"`
	Timestamp       time.Time `gorm:"index;not null" json:"timestamp"`
}

// TableName 指定表名
func (AuditEvent) TableName() string {
	return "audit_events"
}
