package repository

import (
	"errors"
	"time"

	"github.com/smartcargo-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ShipmentRepository 运单数据访问接口
type ShipmentRepository interface {
	GetByID(id uint) (*models.Shipment, error)
	GetDetailByID(id uint) (*models.Shipment, error)
	GetByIDForUpdate(id uint) (*models.Shipment, error)
	Create(shipment *models.Shipment) error
	UpdateFields(id uint, updates map[string]interface{}) error
	UpdateSnapshot(id uint, data models.RealTimeData, currentLocation string) error
	Delete(id uint) error
	List(filter ShipmentListFilter) ([]models.Shipment, int64, error)
	WithTx(tx *gorm.DB) ShipmentRepository
}

// GormShipmentRepository GORM 实现
type GormShipmentRepository struct {
	db *gorm.DB
}

// NewShipmentRepository 创建运单仓库
func NewShipmentRepository(db *gorm.DB) *GormShipmentRepository {
	return &GormShipmentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormShipmentRepository) WithTx(tx *gorm.DB) ShipmentRepository {
	if tx == nil {
		return r
	}
	return &GormShipmentRepository{db: tx}
}

// GetByID 根据 ID 获取运单
func (r *GormShipmentRepository) GetByID(id uint) (*models.Shipment, error) {
	return r.first(r.db, id)
}

// GetDetailByID 获取运单并预加载货源与车辆
func (r *GormShipmentRepository) GetDetailByID(id uint) (*models.Shipment, error) {
	return r.first(r.db.Preload("Cargo").Preload("Vehicle"), id)
}

// GetByIDForUpdate 加行锁读取运单，用于串行化快照写入
func (r *GormShipmentRepository) GetByIDForUpdate(id uint) (*models.Shipment, error) {
	return r.first(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormShipmentRepository) first(query *gorm.DB, id uint) (*models.Shipment, error) {
	var shipment models.Shipment
	if err := query.First(&shipment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &shipment, nil
}

// Create 创建运单
func (r *GormShipmentRepository) Create(shipment *models.Shipment) error {
	return r.db.Create(shipment).Error
}

// UpdateFields 按字段更新运单
func (r *GormShipmentRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return r.db.Model(&models.Shipment{}).Where("id = ?", id).Updates(updates).Error
}

// UpdateSnapshot 写入遥测快照与当前位置
func (r *GormShipmentRepository) UpdateSnapshot(id uint, data models.RealTimeData, currentLocation string) error {
	return r.UpdateFields(id, map[string]interface{}{
		"real_time_data":   data,
		"current_location": currentLocation,
	})
}

// Delete 删除运单
func (r *GormShipmentRepository) Delete(id uint) error {
	return r.db.Delete(&models.Shipment{}, id).Error
}

// List 运单列表
func (r *GormShipmentRepository) List(filter ShipmentListFilter) ([]models.Shipment, int64, error) {
	query := r.db.Model(&models.Shipment{})
	if filter.PartyUserID != 0 {
		query = query.Where("shipper_id = ? OR carrier_id = ?", filter.PartyUserID, filter.PartyUserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.VehicleID != 0 {
		query = query.Where("vehicle_id = ?", filter.VehicleID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var shipments []models.Shipment
	if err := query.Preload("Cargo").Preload("Vehicle").
		Order("created_at DESC, id DESC").Find(&shipments).Error; err != nil {
		return nil, 0, err
	}
	return shipments, total, nil
}
