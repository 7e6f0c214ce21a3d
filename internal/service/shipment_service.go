package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smartcargo-next/internal/cache"
	"github.com/smartcargo-next/internal/config"
	"github.com/smartcargo-next/internal/constants"
	"github.com/smartcargo-next/internal/logger"
	"github.com/smartcargo-next/internal/models"
	"github.com/smartcargo-next/internal/repository"

	"gorm.io/gorm"
)

// ShipmentService 运单生命周期服务
type ShipmentService struct {
	cfg          config.TelemetryConfig
	shipmentRepo repository.ShipmentRepository
	offerRepo    repository.CargoOfferRepository
	vehicleRepo  repository.VehicleRepository
	emitter      EventEmitter
}

// NewShipmentService 创建运单服务
func NewShipmentService(cfg config.TelemetryConfig, shipmentRepo repository.ShipmentRepository, offerRepo repository.CargoOfferRepository, vehicleRepo repository.VehicleRepository, emitter EventEmitter) *ShipmentService {
	return &ShipmentService{
		cfg:          cfg,
		shipmentRepo: shipmentRepo,
		offerRepo:    offerRepo,
		vehicleRepo:  vehicleRepo,
		emitter:      emitterOrNoop(emitter),
	}
}

// UpdateShipmentInput 运单更新参数
type UpdateShipmentInput struct {
	Status            *string
	CurrentLocation   *string
	EstimatedDelivery *time.Time
}

// RealtimeView 运单实时数据
type RealtimeView struct {
	ID              uint                `json:"id"`
	RealTimeData    models.RealTimeData `json:"realTimeData"`
	CurrentLocation string              `json:"currentLocation"`
	Status          string              `json:"status"`
}

// List 运单列表，非管理员只能看到自己参与的运单
func (s *ShipmentService) List(actor Actor, filter repository.ShipmentListFilter) ([]models.Shipment, int64, error) {
	if filter.Status != "" && !isValidShipmentStatus(filter.Status) {
		return nil, 0, ErrInvalidShipmentStatus
	}
	if !actor.IsAdmin() {
		filter.PartyUserID = actor.UserID
	}
	return s.shipmentRepo.List(filter)
}

// Get 运单详情（含货源与车辆）
func (s *ShipmentService) Get(actor Actor, id uint) (*models.Shipment, error) {
	shipment, err := s.shipmentRepo.GetDetailByID(id)
	if err != nil {
		return nil, err
	}
	if shipment == nil {
		return nil, ErrShipmentNotFound
	}
	if !canAccessShipment(actor, shipment.ShipperID, shipment.CarrierID) {
		return nil, ErrForbidden
	}
	return shipment, nil
}

// Update 更新运单状态、位置或预计送达时间；DELIVERED 为终态
func (s *ShipmentService) Update(ctx context.Context, actor Actor, id uint, input UpdateShipmentInput) (*models.Shipment, error) {
	if input.Status != nil && !isValidShipmentStatus(*input.Status) {
		return nil, ErrInvalidShipmentStatus
	}

	var previous string
	var shipment *models.Shipment
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		shipmentRepo := s.shipmentRepo.WithTx(tx)
		var err error
		shipment, err = shipmentRepo.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if shipment == nil {
			return ErrShipmentNotFound
		}
		if !canAccessShipment(actor, shipment.ShipperID, shipment.CarrierID) {
			return ErrForbidden
		}
		if shipment.Status == constants.ShipmentStatusDelivered {
			return ErrShipmentDelivered
		}
		previous = shipment.Status

		updates := map[string]interface{}{}
		if input.CurrentLocation != nil {
			shipment.CurrentLocation = strings.TrimSpace(*input.CurrentLocation)
			updates["current_location"] = shipment.CurrentLocation
		}
		if input.EstimatedDelivery != nil && !input.EstimatedDelivery.IsZero() {
			shipment.EstimatedDelivery = *input.EstimatedDelivery
			updates["estimated_delivery"] = shipment.EstimatedDelivery
		}
		if input.Status != nil && *input.Status != shipment.Status {
			shipment.Status = *input.Status
			updates["status"] = shipment.Status
			if shipment.Status == constants.ShipmentStatusDelivered {
				now := time.Now()
				shipment.DeliveredAt = &now
				updates["delivered_at"] = now
			}
		}
		if len(updates) == 0 {
			return nil
		}
		if err := shipmentRepo.UpdateFields(id, updates); err != nil {
			return err
		}
		if shipment.Status == constants.ShipmentStatusDelivered {
			return s.completeDelivery(tx, shipment)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidateRealtime(ctx, id)

	if shipment.Status != previous {
		s.emitStatusChange(ctx, actor, shipment, previous)
	}
	return shipment, nil
}

// completeDelivery 送达后货源置为 DELIVERED，车辆释放
func (s *ShipmentService) completeDelivery(tx *gorm.DB, shipment *models.Shipment) error {
	_, err := s.offerRepo.WithTx(tx).TransitionStatus(shipment.CargoID, []string{
		constants.CargoStatusMatched,
		constants.CargoStatusConsolidating,
		constants.CargoStatusInTransit,
	}, constants.CargoStatusDelivered)
	if err != nil {
		return err
	}
	released, err := s.vehicleRepo.WithTx(tx).TransitionAvailability(shipment.VehicleID, constants.VehicleOnTrip, constants.VehicleAvailable)
	if err != nil {
		return err
	}
	if !released {
		logger.Warnw("shipment_vehicle_not_on_trip", "shipment_id", shipment.ID, "vehicle_id", shipment.VehicleID)
	}
	return nil
}

func (s *ShipmentService) emitStatusChange(ctx context.Context, actor Actor, shipment *models.Shipment, previous string) {
	s.emitter.EmitAudit(ctx, AuditInput{
		EventType:       constants.EventShipmentStatusChanged,
		RelatedEntityID: shipment.ID,
		Actor:           actor,
		Details: map[string]interface{}{
			"from":            previous,
			"to":              shipment.Status,
			"currentLocation": shipment.CurrentLocation,
		},
	})
	s.emitter.EmitAlert(ctx, AlertInput{
		Message:           fmt.Sprintf("Shipment #%d status changed to %s", shipment.ID, shipment.Status),
		Severity:          statusAlertSeverity(shipment.Status),
		RelatedShipmentID: shipment.ID,
		RecipientID:       shipment.ShipperID,
	})
}

// Reopen 管理员重新打开已送达运单
func (s *ShipmentService) Reopen(ctx context.Context, actor Actor, id uint) (*models.Shipment, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	var shipment *models.Shipment
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		shipmentRepo := s.shipmentRepo.WithTx(tx)
		var err error
		shipment, err = shipmentRepo.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if shipment == nil {
			return ErrShipmentNotFound
		}
		if shipment.Status != constants.ShipmentStatusDelivered {
			return ErrShipmentNotDelivered
		}
		if err := shipmentRepo.UpdateFields(id, map[string]interface{}{
			"status":       constants.ShipmentStatusInTransit,
			"delivered_at": nil,
		}); err != nil {
			return err
		}
		shipment.Status = constants.ShipmentStatusInTransit
		shipment.DeliveredAt = nil

		if _, err := s.offerRepo.WithTx(tx).TransitionStatus(shipment.CargoID,
			[]string{constants.CargoStatusDelivered}, constants.CargoStatusInTransit); err != nil {
			return err
		}
		claimed, err := s.vehicleRepo.WithTx(tx).TransitionAvailability(shipment.VehicleID, constants.VehicleAvailable, constants.VehicleOnTrip)
		if err != nil {
			return err
		}
		if !claimed {
			logger.Warnw("shipment_reopen_vehicle_unavailable", "shipment_id", id, "vehicle_id", shipment.VehicleID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidateRealtime(ctx, id)

	s.emitter.EmitAudit(ctx, AuditInput{
		EventType:       constants.EventShipmentReopened,
		RelatedEntityID: id,
		Actor:           actor,
		Details: map[string]interface{}{
			"from": constants.ShipmentStatusDelivered,
			"to":   constants.ShipmentStatusInTransit,
		},
	})
	s.emitter.EmitAlert(ctx, AlertInput{
		Message:           fmt.Sprintf("Shipment #%d was reopened", id),
		Severity:          constants.AlertSeverityWarning,
		RelatedShipmentID: id,
		RecipientID:       shipment.ShipperID,
	})
	return shipment, nil
}

// GetRealtimeData 运单实时数据，优先读缓存
func (s *ShipmentService) GetRealtimeData(ctx context.Context, actor Actor, id uint) (*RealtimeView, error) {
	cached, hit, err := cache.GetShipmentRealtime(ctx, id)
	if err != nil {
		logger.Warnw("shipment_realtime_cache_read_failed", "shipment_id", id, "error", err)
	}
	if !hit || cached == nil {
		shipment, err := s.shipmentRepo.GetByID(id)
		if err != nil {
			return nil, err
		}
		if shipment == nil {
			return nil, ErrShipmentNotFound
		}
		cached = &cache.ShipmentRealtime{
			ID:              shipment.ID,
			RealTimeData:    shipment.RealTimeData,
			CurrentLocation: shipment.CurrentLocation,
			Status:          shipment.Status,
			ShipperID:       shipment.ShipperID,
			CarrierID:       shipment.CarrierID,
		}
		ttl := time.Duration(s.cfg.RealtimeCacheSeconds) * time.Second
		if err := cache.SetShipmentRealtime(ctx, cached, ttl); err != nil {
			logger.Warnw("shipment_realtime_cache_write_failed", "shipment_id", id, "error", err)
		}
	}
	if !canAccessShipment(actor, cached.ShipperID, cached.CarrierID) {
		return nil, ErrForbidden
	}
	return &RealtimeView{
		ID:              cached.ID,
		RealTimeData:    cached.RealTimeData,
		CurrentLocation: cached.CurrentLocation,
		Status:          cached.Status,
	}, nil
}

// Delete 管理员删除运单；未送达的运单会释放车辆并退回货源
func (s *ShipmentService) Delete(ctx context.Context, actor Actor, id uint) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	var shipment *models.Shipment
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		shipmentRepo := s.shipmentRepo.WithTx(tx)
		var err error
		shipment, err = shipmentRepo.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if shipment == nil {
			return ErrShipmentNotFound
		}
		if err := shipmentRepo.Delete(id); err != nil {
			return err
		}
		if shipment.Status == constants.ShipmentStatusDelivered {
			return nil
		}
		if _, err := s.offerRepo.WithTx(tx).TransitionStatus(shipment.CargoID, []string{
			constants.CargoStatusMatched,
			constants.CargoStatusInTransit,
		}, constants.CargoStatusPending); err != nil {
			return err
		}
		_, err = s.vehicleRepo.WithTx(tx).TransitionAvailability(shipment.VehicleID, constants.VehicleOnTrip, constants.VehicleAvailable)
		return err
	})
	if err != nil {
		return err
	}
	s.invalidateRealtime(ctx, id)
	s.emitter.EmitAudit(ctx, AuditInput{
		EventType:       constants.EventShipmentDeleted,
		RelatedEntityID: id,
		Actor:           actor,
		Details: map[string]interface{}{
			"cargoId":   shipment.CargoID,
			"vehicleId": shipment.VehicleID,
			"status":    shipment.Status,
		},
	})
	return nil
}

func (s *ShipmentService) invalidateRealtime(ctx context.Context, id uint) {
	if err := cache.InvalidateShipmentRealtime(ctx, id); err != nil {
		logger.Warnw("shipment_realtime_cache_invalidate_failed", "shipment_id", id, "error", err)
	}
}

func canAccessShipment(actor Actor, shipperID, carrierID uint) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.UserID != 0 && (actor.UserID == shipperID || actor.UserID == carrierID)
}

func statusAlertSeverity(status string) string {
	switch status {
	case constants.ShipmentStatusDelayed:
		return constants.AlertSeverityWarning
	case constants.ShipmentStatusIssueReported:
		return constants.AlertSeverityCritical
	default:
		return constants.AlertSeverityInfo
	}
}

func isValidShipmentStatus(status string) bool {
	switch status {
	case constants.ShipmentStatusInTransit,
		constants.ShipmentStatusDelayed,
		constants.ShipmentStatusDelivered,
		constants.ShipmentStatusIssueReported:
		return true
	}
	return false
}
