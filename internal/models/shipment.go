package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// RealTimeData 运单最近一次遥测快照，缺失字段不输出
type RealTimeData struct {
	TemperatureCelsius *float64 `json:"temperatureCelsius,omitempty"`
	HumidityPercent    *float64 `json:"humidityPercent,omitempty"`
	Latitude           *float64 `json:"latitude,omitempty"`
	Longitude          *float64 `json:"longitude,omitempty"`
	SpeedKmh           *float64 `json:"speedKmh,omitempty"`
	VibrationLevel     *string  `json:"vibrationLevel,omitempty"`
	DoorOpen           *bool    `json:"doorOpen,omitempty"`
}

// Value 实现 driver.Valuer 接口
func (r RealTimeData) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan 实现 sql.Scanner 接口
func (r *RealTimeData) Scan(value interface{}) error {
	raw, err := scanBytes(value)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		*r = RealTimeData{}
		return nil
	}
	return json.Unmarshal(raw, r)
}

// Shipment 撮合成功后生成的运单
type Shipment struct {
	ID                uint         `gorm:"primarykey" json:"id"`
	CargoID           uint         `gorm:"index;not null" json:"cargo_id"`
	VehicleID         uint         `gorm:"index;not null" json:"vehicle_id"`
	ShipperID         uint         `gorm:"index;not null" json:"shipper_id"`
	CarrierID         uint         `gorm:"index;not null" json:"carrier_id"`
	CurrentLocation   string       `gorm:"type:varchar(255);not null;default:''" json:"current_location"`
	Status            string       `gorm:"type:varchar(32);index;not null" json:"status"`
	EstimatedDelivery time.Time    `json:"estimated_delivery"`
	RealTimeData      RealTimeData `gorm:"type:json" json:"real_time_data"`
	DeliveredAt       *time.Time   `json:"delivered_at,omitempty"`
	Cargo             *CargoOffer  `gorm:"foreignKey:CargoID" json:"cargo,omitempty"`
	Vehicle           *Vehicle     `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
	CreatedAt         time.Time    `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// TableName 指定表名
func (Shipment) TableName() string {
	return "shipments"
}
