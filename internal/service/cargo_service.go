package service

import (
	"context"
	"strings"
	"time"

	"github.com/smartcargo-next/internal/constants"
	"github.com/smartcargo-next/internal/models"
	"github.com/smartcargo-next/internal/repository"

	"gorm.io/gorm"
)

// CargoService 货源服务
type CargoService struct {
	offerRepo repository.CargoOfferRepository
	emitter   EventEmitter
}

// NewCargoService 创建货源服务
func NewCargoService(offerRepo repository.CargoOfferRepository, emitter EventEmitter) *CargoService {
	return &CargoService{offerRepo: offerRepo, emitter: emitterOrNoop(emitter)}
}

// CreateCargoOfferInput 发布货源参数
type CreateCargoOfferInput struct {
	Origin       string
	Destination  string
	CargoType    string
	WeightKg     float64
	VolumeM3     float64
	PickupDate   time.Time
	DeliveryDate time.Time
	// ShipperID 仅管理员代发时使用
	ShipperID uint
}

// UpdateCargoOfferInput 更新货源参数，空指针表示不修改
type UpdateCargoOfferInput struct {
	Origin       *string
	Destination  *string
	CargoType    *string
	WeightKg     *float64
	VolumeM3     *float64
	PickupDate   *time.Time
	DeliveryDate *time.Time
	Status       *string
}

// List 货源列表，货主只能看到自己的货源
func (s *CargoService) List(actor Actor, filter repository.CargoOfferListFilter) ([]models.CargoOffer, int64, error) {
	if filter.Status != "" && !isValidCargoStatus(filter.Status) {
		return nil, 0, ErrInvalidCargoStatus
	}
	if actor.IsShipper() {
		filter.ShipperID = actor.UserID
	}
	return s.offerRepo.List(filter)
}

// Get 获取货源
func (s *CargoService) Get(actor Actor, id uint) (*models.CargoOffer, error) {
	offer, err := s.offerRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if offer == nil {
		return nil, ErrCargoOfferNotFound
	}
	if actor.IsShipper() && offer.ShipperID != actor.UserID {
		return nil, ErrForbidden
	}
	return offer, nil
}

// Create 发布货源
func (s *CargoService) Create(ctx context.Context, actor Actor, input CreateCargoOfferInput) (*models.CargoOffer, error) {
	shipperID := actor.UserID
	switch {
	case actor.IsShipper():
	case actor.IsAdmin():
		if input.ShipperID != 0 {
			shipperID = input.ShipperID
		}
	default:
		return nil, ErrForbidden
	}

	offer := &models.CargoOffer{
		Origin:       strings.TrimSpace(input.Origin),
		Destination:  strings.TrimSpace(input.Destination),
		CargoType:    strings.TrimSpace(input.CargoType),
		WeightKg:     input.WeightKg,
		VolumeM3:     input.VolumeM3,
		PickupDate:   input.PickupDate,
		DeliveryDate: input.DeliveryDate,
		Status:       constants.CargoStatusPending,
		ShipperID:    shipperID,
	}
	if err := validateCargoOffer(offer); err != nil {
		return nil, err
	}
	if err := s.offerRepo.Create(offer); err != nil {
		return nil, err
	}

	s.emitter.EmitAudit(ctx, AuditInput{
		EventType:       constants.EventCargoOfferCreated,
		RelatedEntityID: offer.ID,
		Actor:           actor,
		Details: map[string]interface{}{
			"origin":      offer.Origin,
			"destination": offer.Destination,
			"cargoType":   offer.CargoType,
			"weightKg":    offer.WeightKg,
			"volumeM3":    offer.VolumeM3,
		},
	})
	return offer, nil
}

// Update 更新货源
// 撮合后货源的状态、货物类型、重量与体积只读，状态只能在 PENDING 与 CONSOLIDATING 之间手动切换
func (s *CargoService) Update(ctx context.Context, actor Actor, id uint, input UpdateCargoOfferInput) (*models.CargoOffer, error) {
	var offer *models.CargoOffer
	changed := make([]string, 0, 8)
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		offerRepo := s.offerRepo.WithTx(tx)
		var err error
		offer, err = offerRepo.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if offer == nil {
			return ErrCargoOfferNotFound
		}
		if !actor.OwnsOrAdmin(offer.ShipperID) {
			return ErrForbidden
		}

		readStatus := offer.Status
		editable := isEditableCargoStatus(readStatus)
		updates := map[string]interface{}{}
		if input.Origin != nil {
			offer.Origin = strings.TrimSpace(*input.Origin)
			updates["origin"] = offer.Origin
			changed = append(changed, "origin")
		}
		if input.Destination != nil {
			offer.Destination = strings.TrimSpace(*input.Destination)
			updates["destination"] = offer.Destination
			changed = append(changed, "destination")
		}
		if input.PickupDate != nil {
			offer.PickupDate = *input.PickupDate
			updates["pickup_date"] = offer.PickupDate
			changed = append(changed, "pickupDate")
		}
		if input.DeliveryDate != nil {
			offer.DeliveryDate = *input.DeliveryDate
			updates["delivery_date"] = offer.DeliveryDate
			changed = append(changed, "deliveryDate")
		}
		if input.CargoType != nil || input.WeightKg != nil || input.VolumeM3 != nil {
			if !editable {
				return ErrCargoOfferInUse
			}
		}
		if input.CargoType != nil {
			offer.CargoType = strings.TrimSpace(*input.CargoType)
			updates["cargo_type"] = offer.CargoType
			changed = append(changed, "cargoType")
		}
		if input.WeightKg != nil {
			offer.WeightKg = *input.WeightKg
			updates["weight_kg"] = offer.WeightKg
			changed = append(changed, "weightKg")
		}
		if input.VolumeM3 != nil {
			offer.VolumeM3 = *input.VolumeM3
			updates["volume_m3"] = offer.VolumeM3
			changed = append(changed, "volumeM3")
		}
		if input.Status != nil && *input.Status != readStatus {
			if !isValidCargoStatus(*input.Status) {
				return ErrInvalidCargoStatus
			}
			if !editable {
				return ErrCargoOfferInUse
			}
			if !isEditableCargoStatus(*input.Status) {
				return ErrCargoStatusManaged
			}
			offer.Status = *input.Status
			updates["status"] = offer.Status
			changed = append(changed, "status")
		}
		if err := validateCargoOffer(offer); err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		// 以读取时的状态为条件写入，撮合已提交时不会覆盖其结果
		applied, err := offerRepo.UpdateFieldsIfStatus(id, readStatus, updates)
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
		return offer, nil
	}

	s.emitter.EmitAudit(ctx, AuditInput{
		EventType:       constants.EventCargoOfferUpdated,
		RelatedEntityID: offer.ID,
		Actor:           actor,
		Details:         map[string]interface{}{"fields": changed, "status": offer.Status},
	})
	return offer, nil
}

// Delete 删除货源，已进入运输流程的货源不可删除
func (s *CargoService) Delete(ctx context.Context, actor Actor, id uint) error {
	offer, err := s.offerRepo.GetByID(id)
	if err != nil {
		return err
	}
	if offer == nil {
		return ErrCargoOfferNotFound
	}
	if !actor.OwnsOrAdmin(offer.ShipperID) {
		return ErrForbidden
	}
	if !isEditableCargoStatus(offer.Status) {
		return ErrCargoOfferInUse
	}
	if err := s.offerRepo.Delete(id); err != nil {
		return err
	}
	s.emitter.EmitAudit(ctx, AuditInput{
		EventType:       constants.EventCargoOfferDeleted,
		RelatedEntityID: id,
		Actor:           actor,
		Details:         map[string]interface{}{"origin": offer.Origin, "destination": offer.Destination},
	})
	return nil
}

func validateCargoOffer(offer *models.CargoOffer) error {
	if offer.Origin == "" || offer.Destination == "" || offer.CargoType == "" {
		return ErrRequiredField
	}
	if offer.PickupDate.IsZero() || offer.DeliveryDate.IsZero() {
		return ErrRequiredField
	}
	if offer.WeightKg <= 0 {
		return ErrInvalidWeight
	}
	if offer.VolumeM3 <= 0 {
		return ErrInvalidVolume
	}
	if offer.DeliveryDate.Before(offer.PickupDate) {
		return ErrInvalidDateRange
	}
	return nil
}

// isEditableCargoStatus 尚未进入撮合流程的状态
func isEditableCargoStatus(status string) bool {
	return status == constants.CargoStatusPending || status == constants.CargoStatusConsolidating
}

func isValidCargoStatus(status string) bool {
	switch status {
	case constants.CargoStatusPending,
		constants.CargoStatusMatched,
		constants.CargoStatusConsolidating,
		constants.CargoStatusInTransit,
		constants.CargoStatusDelivered:
		return true
	}
	return false
}
