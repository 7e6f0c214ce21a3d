package public

import (
	"strings"

	handlershared "github.com/smartcargo-next/internal/http/handlers/shared"
	"github.com/smartcargo-next/internal/http/response"
	"github.com/smartcargo-next/internal/repository"
	"github.com/smartcargo-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateCargoOfferRequest 发布货源请求
type CreateCargoOfferRequest struct {
	Origin       string  `json:"origin" binding:"required"`
	Destination  string  `json:"destination" binding:"required"`
	CargoType    string  `json:"cargo_type" binding:"required"`
	WeightKg     float64 `json:"weight_kg" binding:"required,gt=0"`
	VolumeM3     float64 `json:"volume_m3" binding:"required,gt=0"`
	PickupDate   string  `json:"pickup_date" binding:"required"`
	DeliveryDate string  `json:"delivery_date" binding:"required"`
	ShipperID    uint    `json:"shipper_id"`
}

// UpdateCargoOfferRequest 更新货源请求
type UpdateCargoOfferRequest struct {
	Origin       *string  `json:"origin"`
	Destination  *string  `json:"destination"`
	CargoType    *string  `json:"cargo_type"`
	WeightKg     *float64 `json:"weight_kg"`
	VolumeM3     *float64 `json:"volume_m3"`
	PickupDate   *string  `json:"pickup_date"`
	DeliveryDate *string  `json:"delivery_date"`
	Status       *string  `json:"status"`
}

// ListCargoOffers 货源列表
func (h *Handler) ListCargoOffers(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.PageQuery(c)
	offers, total, err := h.CargoService.List(actor, repository.CargoOfferListFilter{
		Page:        page,
		PageSize:    pageSize,
		Status:      strings.TrimSpace(c.Query("status")),
		Origin:      strings.TrimSpace(c.Query("origin")),
		Destination: strings.TrimSpace(c.Query("destination")),
	})
	if err != nil {
		respondServiceError(c, err, "Failed to list cargo offers")
		return
	}
	response.SuccessWithPage(c, offers, response.NewPagination(page, pageSize, total))
}

// GetCargoOffer 货源详情
func (h *Handler) GetCargoOffer(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	offer, err := h.CargoService.Get(actor, id)
	if err != nil {
		respondServiceError(c, err, "Failed to load cargo offer")
		return
	}
	response.Success(c, offer)
}

// CreateCargoOffer 发布货源
func (h *Handler) CreateCargoOffer(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req CreateCargoOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}
	pickup, okPickup := handlershared.ParseTime(req.PickupDate)
	delivery, okDelivery := handlershared.ParseTime(req.DeliveryDate)
	if !okPickup || !okDelivery || pickup == nil || delivery == nil {
		respondError(c, response.CodeBadRequest, "Invalid date format", nil)
		return
	}
	offer, err := h.CargoService.Create(c.Request.Context(), actor, service.CreateCargoOfferInput{
		Origin:       req.Origin,
		Destination:  req.Destination,
		CargoType:    req.CargoType,
		WeightKg:     req.WeightKg,
		VolumeM3:     req.VolumeM3,
		PickupDate:   *pickup,
		DeliveryDate: *delivery,
		ShipperID:    req.ShipperID,
	})
	if err != nil {
		respondServiceError(c, err, "Failed to create cargo offer")
		return
	}
	response.Created(c, offer)
}

// UpdateCargoOffer 更新货源
func (h *Handler) UpdateCargoOffer(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req UpdateCargoOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}
	input := service.UpdateCargoOfferInput{
		Origin:      req.Origin,
		Destination: req.Destination,
		CargoType:   req.CargoType,
		WeightKg:    req.WeightKg,
		VolumeM3:    req.VolumeM3,
		Status:      req.Status,
	}
	if req.PickupDate != nil {
		t, ok := handlershared.ParseTime(*req.PickupDate)
		if !ok || t == nil {
			respondError(c, response.CodeBadRequest, "Invalid date format", nil)
			return
		}
		input.PickupDate = t
	}
	if req.DeliveryDate != nil {
		t, ok := handlershared.ParseTime(*req.DeliveryDate)
		if !ok || t == nil {
			respondError(c, response.CodeBadRequest, "Invalid date format", nil)
			return
		}
		input.DeliveryDate = t
	}
	offer, err := h.CargoService.Update(c.Request.Context(), actor, id, input)
	if err != nil {
		respondServiceError(c, err, "Failed to update cargo offer")
		return
	}
	response.Success(c, offer)
}

// DeleteCargoOffer 删除货源
func (h *Handler) DeleteCargoOffer(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.CargoService.Delete(c.Request.Context(), actor, id); err != nil {
		respondServiceError(c, err, "Failed to delete cargo offer")
		return
	}
	response.SuccessWithMsg(c, "Cargo offer deleted", nil)
}

// CompatibleVehicles 可承运该货源的车辆
func (h *Handler) CompatibleVehicles(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	vehicles, err := h.MatchingService.CompatibleVehicles(actor, id)
	if err != nil {
		respondServiceError(c, err, "Failed to find compatible vehicles")
		return
	}
	response.Success(c, vehicles)
}
