package models

import "time"

// Vehicle 承运商登记的车辆
type Vehicle struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	Type            string    `gorm:"type:varchar(32);index;not null" json:"type"`
	CapacityKg      float64   `gorm:"not null" json:"capacity_kg"`
	CapacityM3      float64   `gorm:"not null" json:"capacity_m3"`
	CurrentLocation string    `gorm:"type:varchar(255);not null;default:''" json:"current_location"`
	Availability    string    `gorm:"type:varchar(32);index;not null" json:"availability"`
	DriverName      string    `gorm:"type:varchar(120);not null;default:''" json:"driver_name"`
	CarrierID       uint      `gorm:"index;not null" json:"carrier_id"`
	Carrier         *User     `gorm:"foreignKey:CarrierID" json:"carrier,omitempty"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Vehicle) TableName() string {
	return "vehicles"
}
