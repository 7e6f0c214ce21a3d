package repository

import (
	"errors"

	"github.com/smartcargo-next/internal/models"

	"gorm.io/gorm"
)

// AuditEventRepository 审计事件数据访问接口（只追加）
type AuditEventRepository interface {
	Create(event *models.AuditEvent) error
	GetByEventID(eventID string) (*models.AuditEvent, error)
	List(filter AuditEventListFilter) ([]models.AuditEvent, int64, error)
}

// GormAuditEventRepository GORM 实现
type GormAuditEventRepository struct {
	db *gorm.DB
}

// NewAuditEventRepository 创建审计事件仓库
func NewAuditEventRepository(db *gorm.DB) *GormAuditEventRepository {
	return &GormAuditEventRepository{db: db}
}

// Create 追加事件
func (r *GormAuditEventRepository) Create(event *models.AuditEvent) error {
	return r.db.Create(event).Error
}

// GetByEventID 根据事件 UUID 查询
func (r *GormAuditEventRepository) GetByEventID(eventID string) (*models.AuditEvent, error) {
	var event models.AuditEvent
	if err := r.db.Where("event_id = ?", eventID).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

// List 事件列表，最新在前
func (r *GormAuditEventRepository) List(filter AuditEventListFilter) ([]models.AuditEvent, int64, error) {
	query := r.db.Model(&models.AuditEvent{})
	if filter.EventType != "" {
		query = query.Where("event_type = ?", filter.EventType)
	}
	if filter.RelatedEntityID != 0 {
		query = query.Where("related_entity_id = ?", filter.RelatedEntityID)
	}
	if filter.ActorID != 0 {
		query = query.Where("actor_id = ?", filter.ActorID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var events []models.AuditEvent
	if err := query.Order("timestamp DESC, id DESC").Find(&events).Error; err != nil {
		return nil, 0, err
	}
	return events, total, nil
}
