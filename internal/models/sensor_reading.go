package models

import "time"

// SensorReading 传感器读数（只追加）
type SensorReading struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	ShipmentID  uint      `gorm:"index:idx_reading_shipment_time,priority:1;not null" json:"shipment_id"`
	SensorType  string    `gorm:"type:varchar(32);index;not null" json:"sensor_type"`
	Value       float64   `gorm:"not null" json:"value"`
	Unit        string    `gorm:"type:varchar(32);not null;default:''" json:"unit"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
	DeviceID    string    `gorm:"type:varchar(64);not null;default:''" json:"device_id,omitempty"`
	IsSimulated bool      `gorm:"not null;default:false" json:"is_simulated"`
	Timestamp   time.Time `gorm:"index:idx_reading_shipment_time,priority:2;not null" json:"timestamp"`
}

// TableName 指定表名
func (SensorReading) TableName() string {
	return "sensor_readings"
}
