package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smartcargo-next/internal/config"
	"github.com/smartcargo-next/internal/constants"
	"github.com/smartcargo-next/internal/logger"
	"github.com/smartcargo-next/internal/models"
	"github.com/smartcargo-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// IsCompatible 判断车辆能否承运货源
// 需可用且载重、容积均不小于货物；易腐货物只能使用冷藏车。
func IsCompatible(offer *models.CargoOffer, vehicle *models.Vehicle) bool {
	if offer == nil || vehicle == nil {
		return false
	}
	if vehicle.Availability != constants.VehicleAvailable {
		return false
	}
	if decimal.NewFromFloat(vehicle.CapacityKg).LessThan(decimal.NewFromFloat(offer.WeightKg)) {
		return false
	}
	if decimal.NewFromFloat(vehicle.CapacityM3).LessThan(decimal.NewFromFloat(offer.VolumeM3)) {
		return false
	}
	if IsPerishable(offer.CargoType) && vehicle.Type != constants.VehicleTypeRefrigeratedTruck {
		return false
	}
	return true
}

// IsPerishable 货物类型是否易腐
func IsPerishable(cargoType string) bool {
	return strings.Contains(strings.ToLower(cargoType), constants.PerishableKeyword)
}

// FindCompatibleVehicles 过滤可承运车辆，保持输入顺序
func FindCompatibleVehicles(offer *models.CargoOffer, vehicles []models.Vehicle) []models.Vehicle {
	result := make([]models.Vehicle, 0, len(vehicles))
	for i := range vehicles {
		if IsCompatible(offer, &vehicles[i]) {
			result = append(result, vehicles[i])
		}
	}
	return result
}

// MatchingService 撮合服务
type MatchingService struct {
	cfg          config.MatchingConfig
	offerRepo    repository.CargoOfferRepository
	vehicleRepo  repository.VehicleRepository
	shipmentRepo repository.ShipmentRepository
	emitter      EventEmitter
}

// NewMatchingService 创建撮合服务
func NewMatchingService(cfg config.MatchingConfig, offerRepo repository.CargoOfferRepository, vehicleRepo repository.VehicleRepository, shipmentRepo repository.ShipmentRepository, emitter EventEmitter) *MatchingService {
	return &MatchingService{
		cfg:          cfg,
		offerRepo:    offerRepo,
		vehicleRepo:  vehicleRepo,
		shipmentRepo: shipmentRepo,
		emitter:      emitterOrNoop(emitter),
	}
}

// AssignInput 指派参数
type AssignInput struct {
	CargoID           uint
	VehicleID         uint
	CurrentLocation   *string
	EstimatedDelivery *time.Time
}

// CompatibleVehicles 列出可承运指定货源的车辆
func (s *MatchingService) CompatibleVehicles(actor Actor, offerID uint) ([]models.Vehicle, error) {
	offer, err := s.offerRepo.GetByID(offerID)
	if err != nil {
		return nil, err
	}
	if offer == nil {
		return nil, ErrCargoOfferNotFound
	}
	if actor.IsShipper() && offer.ShipperID != actor.UserID {
		return nil, ErrForbidden
	}
	vehicles, err := s.vehicleRepo.ListByAvailability(constants.VehicleAvailable)
	if err != nil {
		return nil, err
	}
	return FindCompatibleVehicles(offer, vehicles), nil
}

// Assign 将货源指派给车辆并生成运单
// 货源与车辆的状态迁移都是条件更新，并发指派只有一个成功，其余返回冲突。
func (s *MatchingService) Assign(ctx context.Context, actor Actor, input AssignInput) (*models.Shipment, error) {
	if input.CargoID == 0 || input.VehicleID == 0 {
		return nil, ErrRequiredField
	}
	offerStatus := constants.CargoStatusMatched
	if s.cfg.SingleStepTransit {
		offerStatus = constants.CargoStatusInTransit
	}

	var shipment *models.Shipment
	var offer *models.CargoOffer
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		offerRepo := s.offerRepo.WithTx(tx)
		vehicleRepo := s.vehicleRepo.WithTx(tx)
		shipmentRepo := s.shipmentRepo.WithTx(tx)

		var err error
		offer, err = offerRepo.GetByIDForUpdate(input.CargoID)
		if err != nil {
			return err
		}
		if offer == nil {
			return ErrCargoOfferNotFound
		}
		vehicle, err := vehicleRepo.GetByIDForUpdate(input.VehicleID)
		if err != nil {
			return err
		}
		if vehicle == nil {
			return ErrVehicleNotFound
		}
		if !actor.IsAdmin() && actor.UserID != offer.ShipperID && actor.UserID != vehicle.CarrierID {
			return ErrForbidden
		}
		if offer.Status != constants.CargoStatusPending {
			return ErrCargoNotPending
		}
		if vehicle.Availability != constants.VehicleAvailable {
			return ErrVehicleNotAvailable
		}
		if !IsCompatible(offer, vehicle) {
			return ErrVehicleIncompatible
		}

		ok, err := offerRepo.TransitionStatus(offer.ID, []string{constants.CargoStatusPending}, offerStatus)
		if err != nil {
			return err
		}
		if !ok {
			return ErrCargoNotPending
		}
		ok, err = vehicleRepo.TransitionAvailability(vehicle.ID, constants.VehicleAvailable, constants.VehicleOnTrip)
		if err != nil {
			return err
		}
		if !ok {
			return ErrVehicleNotAvailable
		}
		offer.Status = offerStatus

		location := vehicle.CurrentLocation
		if input.CurrentLocation != nil && strings.TrimSpace(*input.CurrentLocation) != "" {
			location = strings.TrimSpace(*input.CurrentLocation)
		}
		estimated := offer.DeliveryDate
		if input.EstimatedDelivery != nil && !input.EstimatedDelivery.IsZero() {
			estimated = *input.EstimatedDelivery
		}
		shipment = &models.Shipment{
			CargoID:           offer.ID,
			VehicleID:         vehicle.ID,
			ShipperID:         offer.ShipperID,
			CarrierID:         vehicle.CarrierID,
			CurrentLocation:   location,
			Status:            constants.ShipmentStatusInTransit,
			EstimatedDelivery: estimated,
			RealTimeData:      models.RealTimeData{},
		}
		return shipmentRepo.Create(shipment)
	})
	if err != nil {
		if KindOf(err) == 0 {
			logger.Errorw("matching_assign_failed",
				"cargo_id", input.CargoID,
				"vehicle_id", input.VehicleID,
				"error", err,
			)
		}
		return nil, err
	}

	s.emitter.EmitAudit(ctx, AuditInput{
		EventType:       constants.EventCargoAssigned,
		RelatedEntityID: shipment.ID,
		Actor:           actor,
		Details: map[string]interface{}{
			"cargoId":     shipment.CargoID,
			"vehicleId":   shipment.VehicleID,
			"shipmentId":  shipment.ID,
			"cargoStatus": offer.Status,
		},
	})
	message := fmt.Sprintf("Cargo %s → %s assigned to vehicle #%d (shipment #%d)",
		offer.Origin, offer.Destination, shipment.VehicleID, shipment.ID)
	s.emitter.EmitAlert(ctx, AlertInput{
		Message:           message,
		Severity:          constants.AlertSeverityInfo,
		RelatedShipmentID: shipment.ID,
		RecipientID:       shipment.ShipperID,
	})
	if shipment.CarrierID != shipment.ShipperID {
		s.emitter.EmitAlert(ctx, AlertInput{
			Message:           message,
			Severity:          constants.AlertSeverityInfo,
			RelatedShipmentID: shipment.ID,
			RecipientID:       shipment.CarrierID,
		})
	}
	return shipment, nil
}
