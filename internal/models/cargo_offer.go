package models

import "time"

// CargoOffer 货主发布的货源
type CargoOffer struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	Origin       string    `gorm:"type:varchar(255);not null" json:"origin"`
	Destination  string    `gorm:"type:varchar(255);not null" json:"destination"`
	CargoType    string    `gorm:"type:varchar(120);not null" json:"cargo_type"`
	WeightKg     float64   `gorm:"not null" json:"weight_kg"`
	VolumeM3     float64   `gorm:"not null" json:"volume_m3"`
	PickupDate   time.Time `gorm:"not null" json:"pickup_date"`
	DeliveryDate time.Time `gorm:"not null" json:"delivery_date"`
	Status       string    `gorm:"type:varchar(32);index;not null" json:"status"`
	ShipperID    uint      `gorm:"index;not null" json:"shipper_id"`
	Shipper      *User     `gorm:"foreignKey:ShipperID" json:"shipper,omitempty"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName 指定表名
func (CargoOffer) TableName() string {
	return "cargo_offers"
}
