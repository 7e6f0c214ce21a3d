package repository

import (
	"errors"

	"github.com/smartcargo-next/internal/models"

	"gorm.io/gorm"
)

// AlertRepository 告警数据访问接口
type AlertRepository interface {
	Create(alert *models.Alert) error
	GetByID(id uint) (*models.Alert, error)
	List(filter AlertListFilter) ([]models.Alert, int64, error)
	MarkRead(id uint) error
	Delete(id uint) error
}

// GormAlertRepository GORM 实现
type GormAlertRepository struct {
	db *gorm.DB
}

// NewAlertRepository 创建告警仓库
func NewAlertRepository(db *gorm.DB) *GormAlertRepository {
	return &GormAlertRepository{db: db}
}

// Create 创建告警
func (r *GormAlertRepository) Create(alert *models.Alert) error {
	return r.db.Create(alert).Error
}

// GetByID 根据 ID 获取告警
func (r *GormAlertRepository) GetByID(id uint) (*models.Alert, error) {
	var alert models.Alert
	if err := r.db.First(&alert, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &alert, nil
}

// List 告警列表，最新在前
func (r *GormAlertRepository) List(filter AlertListFilter) ([]models.Alert, int64, error) {
	query := r.db.Model(&models.Alert{})
	if filter.RecipientID != 0 {
		query = query.Where("recipient_id = ?", filter.RecipientID)
	}
	if filter.RelatedShipmentID != 0 {
		query = query.Where("related_shipment_id = ?", filter.RelatedShipmentID)
	}
	if filter.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var alerts []models.Alert
	if err := query.Order("timestamp DESC, id DESC").Find(&alerts).Error; err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}

// MarkRead 标记已读
func (r *GormAlertRepository) MarkRead(id uint) error {
	return r.db.Model(&models.Alert{}).Where("id = ?", id).Update("is_read", true).Error
}

// Delete 删除告警
func (r *GormAlertRepository) Delete(id uint) error {
	return r.db.Delete(&models.Alert{}, id).Error
}
