package repository

import (
	"errors"
	"time"

	"github.com/smartcargo-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VehicleRepository 车辆数据访问接口
type VehicleRepository interface {
	GetByID(id uint) (*models.Vehicle, error)
	GetByIDForUpdate(id uint) (*models.Vehicle, error)
	Create(vehicle *models.Vehicle) error
	UpdateFieldsIfAvailability(id uint, availability string, updates map[string]interface{}) (bool, error)
	Delete(id uint) error
	List(filter VehicleListFilter) ([]models.Vehicle, int64, error)
	ListByAvailability(availability string) ([]models.Vehicle, error)
	TransitionAvailability(id uint, from, to string) (bool, error)
	WithTx(tx *gorm.DB) VehicleRepository
}

// GormVehicleRepository GORM 实现
type GormVehicleRepository struct {
	db *gorm.DB
}

// NewVehicleRepository 创建车辆仓库
func NewVehicleRepository(db *gorm.DB) *GormVehicleRepository {
	return &GormVehicleRepository{db: db}
}

// WithTx 绑定事务
func (r *GormVehicleRepository) WithTx(tx *gorm.DB) VehicleRepository {
	if tx == nil {
		return r
	}
	return &GormVehicleRepository{db: tx}
}

// GetByID 根据 ID 获取车辆
func (r *GormVehicleRepository) GetByID(id uint) (*models.Vehicle, error) {
	return r.first(r.db, id)
}

// GetByIDForUpdate 加行锁读取车辆
func (r *GormVehicleRepository) GetByIDForUpdate(id uint) (*models.Vehicle, error) {
	return r.first(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormVehicleRepository) first(query *gorm.DB, id uint) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	if err := query.First(&vehicle, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &vehicle, nil
}

// Create 创建车辆
func (r *GormVehicleRepository) Create(vehicle *models.Vehicle) error {
	return r.db.Create(vehicle).Error
}

// UpdateFieldsIfAvailability 仅当可用状态仍为 availability 时写入指定列，返回是否命中
func (r *GormVehicleRepository) UpdateFieldsIfAvailability(id uint, availability string, updates map[string]interface{}) (bool, error) {
	if len(updates) == 0 {
		return true, nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	result := r.db.Model(&models.Vehicle{}).
		Where("id = ? AND availability = ?", id, availability).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Delete 删除车辆
func (r *GormVehicleRepository) Delete(id uint) error {
	return r.db.Delete(&models.Vehicle{}, id).Error
}

// List 车辆列表
func (r *GormVehicleRepository) List(filter VehicleListFilter) ([]models.Vehicle, int64, error) {
	query := r.db.Model(&models.Vehicle{})
	if filter.CarrierID != 0 {
		query = query.Where("carrier_id = ?", filter.CarrierID)
	}
	if filter.Availability != "" {
		query = query.Where("availability = ?", filter.Availability)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var vehicles []models.Vehicle
	if err := query.Order("created_at DESC, id DESC").Find(&vehicles).Error; err != nil {
		return nil, 0, err
	}
	return vehicles, total, nil
}

// ListByAvailability 按可用状态列出全部车辆，按 ID 升序保证结果稳定
func (r *GormVehicleRepository) ListByAvailability(availability string) ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	if err := r.db.Where("availability = ?", availability).Order("id ASC").Find(&vehicles).Error; err != nil {
		return nil, err
	}
	return vehicles, nil
}

// TransitionAvailability 条件更新可用状态
func (r *GormVehicleRepository) TransitionAvailability(id uint, from, to string) (bool, error) {
	result := r.db.Model(&models.Vehicle{}).
		Where("id = ? AND availability = ?", id, from).
		Updates(map[string]interface{}{
			"availability": to,
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
