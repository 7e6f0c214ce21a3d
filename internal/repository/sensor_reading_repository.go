package repository

import (
	"github.com/smartcargo-next/internal/models"

	"gorm.io/gorm"
)

// SensorReadingRepository 传感器读数数据访问接口
type SensorReadingRepository interface {
	Create(reading *models.SensorReading) error
	ListByShipment(shipmentID uint, limit int) ([]models.SensorReading, error)
	LatestByType(shipmentID uint, sensorType string) (*models.SensorReading, error)
	WithTx(tx *gorm.DB) SensorReadingRepository
}

// GormSensorReadingRepository GORM 实现
type GormSensorReadingRepository struct {
	db *gorm.DB
}

// NewSensorReadingRepository 创建读数仓库
func NewSensorReadingRepository(db *gorm.DB) *GormSensorReadingRepository {
	return &GormSensorReadingRepository{db: db}
}

// WithTx 绑定事务
func (r *GormSensorReadingRepository) WithTx(tx *gorm.DB) SensorReadingRepository {
	if tx == nil {
		return r
	}
	return &GormSensorReadingRepository{db: tx}
}

// Create 追加读数
func (r *GormSensorReadingRepository) Create(reading *models.SensorReading) error {
	return r.db.Create(reading).Error
}

// ListByShipment 按时间倒序列出运单读数
func (r *GormSensorReadingRepository) ListByShipment(shipmentID uint, limit int) ([]models.SensorReading, error) {
	query := r.db.Where("shipment_id = ?", shipmentID).Order("timestamp DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var readings []models.SensorReading
	if err := query.Find(&readings).Error; err != nil {
		return nil, err
	}
	return readings, nil
}

// LatestByType 获取运单某类传感器的最新读数，无记录时返回 nil
func (r *GormSensorReadingRepository) LatestByType(shipmentID uint, sensorType string) (*models.SensorReading, error) {
	var reading models.SensorReading
	result := r.db.Where("shipment_id = ? AND sensor_type = ?", shipmentID, sensorType).
		Order("timestamp DESC, id DESC").
		Limit(1).
		Find(&reading)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &reading, nil
}
