package models

import "time"

// Alert 面向用户的告警，仅 IsRead 可变更
type Alert struct {
	ID                uint      `gorm:"primarykey" json:"id"`
	Message           string    `gorm:"type:text;not null" json:"message"`
	Severity          string    `gorm:"type:varchar(16);index;not null" json:"severity"`
	RelatedShipmentID *uint     `gorm:"index" json:"related_shipment_id,omitempty"`
	RecipientID       *uint     `gorm:"index" json:"recipient_id,omitempty"`
	IsRead            bool      `gorm:"not null;default:false" json:"is_read"`
	Timestamp         time.Time `gorm:"index;not null" json:"timestamp"`
}

// TableName 指定表名
func (Alert) TableName() string {
	return "alerts"
}
