package service

import (
	"context"
	"strings"

	"github.com/smartcargo-next/internal/constants"
	"github.com/smartcargo-next/internal/models"
	"github.com/smartcargo-next/internal/repository"

	"gorm.io/gorm"
)

// VehicleService 车辆服务
type VehicleService struct {
	vehicleRepo repository.VehicleRepository
	emitter     EventEmitter
}

// NewVehicleService 创建车辆服务
func NewVehicleService(vehicleRepo repository.VehicleRepository, emitter EventEmitter) *VehicleService {
	return &VehicleService{vehicleRepo: vehicleRepo, emitter: emitterOrNoop(emitter)}
}

// CreateVehicleInput 登记车辆参数
type CreateVehicleInput struct {
	Type            string
	CapacityKg      float64
	CapacityM3      float64
	CurrentLocation string
	Availability    string
	DriverName      string
	CarrierID       uint
}

// UpdateVehicleInput 更新车辆参数
type UpdateVehicleInput struct {
	Type            *string
	CapacityKg      *float64
	CapacityM3      *float64
	CurrentLocation *string
	Availability    *string
	DriverName      *string
}

// List 车辆列表，承运商只能看到自己的车辆
func (s *VehicleService) List(actor Actor, filter repository.VehicleListFilter) ([]models.Vehicle, int64, error) {
	if filter.Availability != "" && !isValidAvailability(filter.Availability) {
		return nil, 0, ErrInvalidAvailability
	}
	if filter.Type != "" && !isValidVehicleType(filter.Type) {
		return nil, 0, ErrInvalidVehicleType
	}
	if actor.IsCarrier() {
		filter.CarrierID = actor.UserID
	}
	return s.vehicleRepo.List(filter)
}

// Get 获取车辆
func (s *VehicleService) Get(actor Actor, id uint) (*models.Vehicle, error) {
	vehicle, err := s.vehicleRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if vehicle == nil {
		return nil, ErrVehicleNotFound
	}
	if actor.IsCarrier() && vehicle.CarrierID != actor.UserID {
		return nil, ErrForbidden
	}
	return vehicle, nil
}

// Create 登记车辆
func (s *VehicleService) Create(ctx context.Context, actor Actor, input CreateVehicleInput) (*models.Vehicle, error) {
	carrierID := actor.UserID
	switch {
	case actor.IsCarrier():
	case actor.IsAdmin():
		if input.CarrierID != 0 {
			carrierID = input.CarrierID
		}
	default:
		return nil, ErrForbidden
	}

	availability := input.Availability
	if availability == "" {
		availability = constants.VehicleAvailable
	}
	if availability == constants.VehicleOnTrip {
		return nil, ErrInvalidAvailability
	}
	vehicle := &models.Vehicle{
		Type:            input.Type,
		CapacityKg:      input.CapacityKg,
		CapacityM3:      input.CapacityM3,
		CurrentLocation: strings.TrimSpace(input.CurrentLocation),
		Availability:    availability,
		DriverName:      strings.TrimSpace(input.DriverName),
		CarrierID:       carrierID,
	}
	if err := validateVehicle(vehicle); err != nil {
		return nil, err
	}
	if err := s.vehicleRepo.Create(vehicle); err != nil {
		return nil, err
	}

	s.emitter.EmitAudit(ctx, AuditInput{
		EventType:       constants.EventVehicleRegistered,
		RelatedEntityID: vehicle.ID,
		Actor:           actor,
		Details: map[string]interface{}{
			"type":       vehicle.Type,
			"capacityKg": vehicle.CapacityKg,
			"capacityM3": vehicle.CapacityM3,
		},
	})
	return vehicle, nil
}

// Update 更新车辆
// ON_TRIP 只由撮合与运单生命周期切换，运输途中的车型与载重不可修改
func (s *VehicleService) Update(ctx context.Context, actor Actor, id uint, input UpdateVehicleInput) (*models.Vehicle, error) {
	var vehicle *models.Vehicle
	changed := make([]string, 0, 6)
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		vehicleRepo := s.vehicleRepo.WithTx(tx)
		var err error
		vehicle, err = vehicleRepo.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if vehicle == nil {
			return ErrVehicleNotFound
		}
		if !actor.OwnsOrAdmin(vehicle.CarrierID) {
			return ErrForbidden
		}

		readAvailability := vehicle.Availability
		onTrip := readAvailability == constants.VehicleOnTrip
		updates := map[string]interface{}{}
		if input.Type != nil || input.CapacityKg != nil || input.CapacityM3 != nil {
			if onTrip {
				return ErrVehicleInUse
			}
		}
		if input.Type != nil {
			vehicle.Type = *input.Type
			updates["type"] = vehicle.Type
			changed = append(changed, "type")
		}
		if input.CapacityKg != nil {
			vehicle.CapacityKg = *input.CapacityKg
			updates["capacity_kg"] = vehicle.CapacityKg
			changed = append(changed, "capacityKg")
		}
		if input.CapacityM3 != nil {
			vehicle.CapacityM3 = *input.CapacityM3
			updates["capacity_m3"] = vehicle.CapacityM3
			changed = append(changed, "capacityM3")
		}
		if input.CurrentLocation != nil {
			vehicle.CurrentLocation = strings.TrimSpace(*input.CurrentLocation)
			updates["current_location"] = vehicle.CurrentLocation
			changed = append(changed, "currentLocation")
		}
		if input.Availability != nil && *input.Availability != readAvailability {
			if !isValidAvailability(*input.Availability) {
				return ErrInvalidAvailability
			}
			if onTrip || *input.Availability == constants.VehicleOnTrip {
				return ErrVehicleInUse
			}
			vehicle.Availability = *input.Availability
			updates["availability"] = vehicle.Availability
			changed = append(changed, "availability")
		}
		if input.DriverName != nil {
			vehicle.DriverName = strings.TrimSpace(*input.DriverName)
			updates["driver_name"] = vehicle.DriverName
			changed = append(changed, "driverName")
		}
		if err := validateVehicle(vehicle); err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		// 以读取时的可用状态为条件写入，撮合已提交时不会覆盖 ON_TRIP
		applied, err := vehicleRepo.UpdateFieldsIfAvailability(id, readAvailability, updates)
		if err != nil {
			return err
		}
		if !applied {
			return ErrConcurrentUpdate
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(changed) == 0 {
		return vehicle, nil
	}

	s.emitter.EmitAudit(ctx, AuditInput{
		EventType:       constants.EventVehicleUpdated,
		RelatedEntityID: vehicle.ID,
		Actor:           actor,
		Details:         map[string]interface{}{"fields": changed, "availability": vehicle.Availability},
	})
	return vehicle, nil
}

// Delete 删除车辆，运输途中的车辆不可删除
func (s *VehicleService) Delete(ctx context.Context, actor Actor, id uint) error {
	vehicle, err := s.vehicleRepo.GetByID(id)
	if err != nil {
		return err
	}
	if vehicle == nil {
		return ErrVehicleNotFound
	}
	if !actor.OwnsOrAdmin(vehicle.CarrierID) {
		return ErrForbidden
	}
	if vehicle.Availability == constants.VehicleOnTrip {
		return ErrVehicleInUse
	}
	if err := s.vehicleRepo.Delete(id); err != nil {
		return err
	}
	s.emitter.EmitAudit(ctx, AuditInput{
		EventType:       constants.EventVehicleDeleted,
		RelatedEntityID: id,
		Actor:           actor,
		Details:         map[string]interface{}{"type": vehicle.Type},
	})
	return nil
}

func validateVehicle(vehicle *models.Vehicle) error {
	if !isValidVehicleType(vehicle.Type) {
		return ErrInvalidVehicleType
	}
	if !isValidAvailability(vehicle.Availability) {
		return ErrInvalidAvailability
	}
	if vehicle.CapacityKg <= 0 || vehicle.CapacityM3 <= 0 {
		return ErrInvalidCapacity
	}
	return nil
}

func isValidVehicleType(t string) bool {
	switch t {
	case constants.VehicleTypeTruckLTL,
		constants.VehicleTypeTruckFTL,
		constants.VehicleTypeVan,
		constants.VehicleTypeRefrigeratedTruck:
		return true
	}
	return false
}

func isValidAvailability(a string) bool {
	switch a {
	case constants.VehicleAvailable, constants.VehicleOnTrip, constants.VehicleMaintenance:
		return true
	}
	return false
}
