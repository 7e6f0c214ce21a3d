package service

import (
	"strings"
	"time"

	"github.com/smartcargo-next/internal/models"
	"github.com/smartcargo-next/internal/repository"
)

// AlertService 告警查询与管理
type AlertService struct {
	alertRepo    repository.AlertRepository
	shipmentRepo repository.ShipmentRepository
	userRepo     repository.UserRepository
}

// NewAlertService 创建告警服务
func NewAlertService(alertRepo repository.AlertRepository, shipmentRepo repository.ShipmentRepository, userRepo repository.UserRepository) *AlertService {
	return &AlertService{alertRepo: alertRepo, shipmentRepo: shipmentRepo, userRepo: userRepo}
}

// CreateAlertInput 手动创建告警参数
type CreateAlertInput struct {
	Message           string
	Severity          string
	RelatedShipmentID uint
	RecipientID       uint
}

// List 告警列表；all 仅对管理员生效
func (s *AlertService) List(actor Actor, filter repository.AlertListFilter, all bool) ([]models.Alert, int64, error) {
	if !actor.IsAdmin() || !all {
		filter.RecipientID = actor.UserID
	}
	return s.alertRepo.List(filter)
}

// Get 获取告警
func (s *AlertService) Get(actor Actor, id uint) (*models.Alert, error) {
	alert, err := s.alertRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if alert == nil {
		return nil, ErrAlertNotFound
	}
	if !canAccessAlert(actor, alert) {
		return nil, ErrForbidden
	}
	return alert, nil
}

// Create 管理员手动创建告警
func (s *AlertService) Create(actor Actor, input CreateAlertInput) (*models.Alert, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, ErrRequiredField
	}
	if !isValidSeverity(input.Severity) {
		return nil, ErrInvalidSeverity
	}
	if input.RelatedShipmentID != 0 {
		shipment, err := s.shipmentRepo.GetByID(input.RelatedShipmentID)
		if err != nil {
			return nil, err
		}
		if shipment == nil {
			return nil, ErrShipmentNotFound
		}
	}
	if input.RecipientID != 0 {
		user, err := s.userRepo.GetByID(input.RecipientID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, ErrUserNotFound
		}
	}
	alert := &models.Alert{
		Message:           message,
		Severity:          input.Severity,
		RelatedShipmentID: uintPtr(input.RelatedShipmentID),
		RecipientID:       uintPtr(input.RecipientID),
		Timestamp:         time.Now(),
	}
	if err := s.alertRepo.Create(alert); err != nil {
		return nil, err
	}
	return alert, nil
}

// MarkAsRead 标记已读
func (s *AlertService) MarkAsRead(actor Actor, id uint) (*models.Alert, error) {
	alert, err := s.Get(actor, id)
	if err != nil {
		return nil, err
	}
	if alert.IsRead {
		return alert, nil
	}
	if err := s.alertRepo.MarkRead(id); err != nil {
		return nil, err
	}
	alert.IsRead = true
	return alert, nil
}

// Delete 删除告警
func (s *AlertService) Delete(actor Actor, id uint) error {
	if _, err := s.Get(actor, id); err != nil {
		return err
	}
	return s.alertRepo.Delete(id)
}

func canAccessAlert(actor Actor, alert *models.Alert) bool {
	if actor.IsAdmin() {
		return true
	}
	return alert.RecipientID != nil && *alert.RecipientID == actor.UserID
}
