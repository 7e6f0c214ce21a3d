package repository

import (
	"errors"
	"time"

	"github.com/smartcargo-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CargoOfferRepository 货源数据访问接口
type CargoOfferRepository interface {
	GetByID(id uint) (*models.CargoOffer, error)
	GetByIDForUpdate(id uint) (*models.CargoOffer, error)
	Create(offer *models.CargoOffer) error
	UpdateFieldsIfStatus(id uint, status string, updates map[string]interface{}) (bool, error)
	Delete(id uint) error
	List(filter CargoOfferListFilter) ([]models.CargoOffer, int64, error)
	TransitionStatus(id uint, from []string, to string) (bool, error)
	WithTx(tx *gorm.DB) CargoOfferRepository
}

// GormCargoOfferRepository GORM 实现
type GormCargoOfferRepository struct {
	db *gorm.DB
}

// NewCargoOfferRepository 创建货源仓库
func NewCargoOfferRepository(db *gorm.DB) *GormCargoOfferRepository {
	return &GormCargoOfferRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCargoOfferRepository) WithTx(tx *gorm.DB) CargoOfferRepository {
	if tx == nil {
		return r
	}
	return &GormCargoOfferRepository{db: tx}
}

// GetByID 根据 ID 获取货源
func (r *GormCargoOfferRepository) GetByID(id uint) (*models.CargoOffer, error) {
	return r.first(r.db, id)
}

// GetByIDForUpdate 加行锁读取货源（sqlite 下为普通读取）
func (r *GormCargoOfferRepository) GetByIDForUpdate(id uint) (*models.CargoOffer, error) {
	return r.first(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormCargoOfferRepository) first(query *gorm.DB, id uint) (*models.CargoOffer, error) {
	var offer models.CargoOffer
	if err := query.First(&offer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &offer, nil
}

// Create 创建货源
func (r *GormCargoOfferRepository) Create(offer *models.CargoOffer) error {
	return r.db.Create(offer).Error
}

// UpdateFieldsIfStatus 仅当状态仍为 status 时写入指定列，返回是否命中
func (r *GormCargoOfferRepository) UpdateFieldsIfStatus(id uint, status string, updates map[string]interface{}) (bool, error) {
	if len(updates) == 0 {
		return true, nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	result := r.db.Model(&models.CargoOffer{}).
		Where("id = ? AND status = ?", id, status).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Delete 删除货源
func (r *GormCargoOfferRepository) Delete(id uint) error {
	return r.db.Delete(&models.CargoOffer{}, id).Error
}

// List 货源列表，按创建时间倒序
func (r *GormCargoOfferRepository) List(filter CargoOfferListFilter) ([]models.CargoOffer, int64, error) {
	query := r.db.Model(&models.CargoOffer{})
	if filter.ShipperID != 0 {
		query = query.Where("shipper_id = ?", filter.ShipperID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	query = whereLike(query, filter.Origin, "origin")
	query = whereLike(query, filter.Destination, "destination")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var offers []models.CargoOffer
	if err := query.Order("created_at DESC, id DESC").Find(&offers).Error; err != nil {
		return nil, 0, err
	}
	return offers, total, nil
}

// TransitionStatus 条件更新状态，仅当当前状态属于 from 时生效
func (r *GormCargoOfferRepository) TransitionStatus(id uint, from []string, to string) (bool, error) {
	result := r.db.Model(&models.CargoOffer{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
