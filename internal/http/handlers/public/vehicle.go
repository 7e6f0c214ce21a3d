package public

import (
	"strings"

	handlershared "github.com/smartcargo-next/internal/http/handlers/shared"
	"github.com/smartcargo-next/internal/http/response"
	"github.com/smartcargo-next/internal/repository"
	"github.com/smartcargo-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateVehicleRequest 登记车辆请求
type CreateVehicleRequest struct {
	Type            string  `json:"type" binding:"required"`
	CapacityKg      float64 `json:"capacity_kg" binding:"required,gt=0"`
	CapacityM3      float64 `json:"capacity_m3" binding:"required,gt=0"`
	CurrentLocation string  `json:"current_location"`
	Availability    string  `json:"availability"`
	DriverName      string  `json:"driver_name"`
	CarrierID       uint    `json:"carrier_id"`
}

// UpdateVehicleRequest 更新车辆请求
type UpdateVehicleRequest struct {
	Type            *string  `json:"type"`
	CapacityKg      *float64 `json:"capacity_kg"`
	CapacityM3      *float64 `json:"capacity_m3"`
	CurrentLocation *string  `json:"current_location"`
	Availability    *string  `json:"availability"`
	DriverName      *string  `json:"driver_name"`
}

// ListVehicles 车辆列表
func (h *Handler) ListVehicles(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.PageQuery(c)
	vehicles, total, err := h.VehicleService.List(actor, repository.VehicleListFilter{
		Page:         page,
		PageSize:     pageSize,
		Availability: strings.TrimSpace(c.Query("availability")),
		Type:         strings.TrimSpace(c.Query("type")),
	})
	if err != nil {
		respondServiceError(c, err, "Failed to list vehicles")
		return
	}
	response.SuccessWithPage(c, vehicles, response.NewPagination(page, pageSize, total))
}

// GetVehicle 车辆详情
func (h *Handler) GetVehicle(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	vehicle, err := h.VehicleService.Get(actor, id)
	if err != nil {
		respondServiceError(c, err, "Failed to load vehicle")
		return
	}
	response.Success(c, vehicle)
}

// CreateVehicle 登记车辆
func (h *Handler) CreateVehicle(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req CreateVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}
	vehicle, err := h.VehicleService.Create(c.Request.Context(), actor, service.CreateVehicleInput{
		Type:            req.Type,
		CapacityKg:      req.CapacityKg,
		CapacityM3:      req.CapacityM3,
		CurrentLocation: req.CurrentLocation,
		Availability:    req.Availability,
		DriverName:      req.DriverName,
		CarrierID:       req.CarrierID,
	})
	if err != nil {
		respondServiceError(c, err, "Failed to register vehicle")
		return
	}
	response.Created(c, vehicle)
}

// UpdateVehicle 更新车辆
func (h *Handler) UpdateVehicle(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req UpdateVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}
	vehicle, err := h.VehicleService.Update(c.Request.Context(), actor, id, service.UpdateVehicleInput{
		Type:            req.Type,
		CapacityKg:      req.CapacityKg,
		CapacityM3:      req.CapacityM3,
		CurrentLocation: req.CurrentLocation,
		Availability:    req.Availability,
		DriverName:      req.DriverName,
	})
	if err != nil {
		respondServiceError(c, err, "Failed to update vehicle")
		return
	}
	response.Success(c, vehicle)
}

// DeleteVehicle 删除车辆
func (h *Handler) DeleteVehicle(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.VehicleService.Delete(c.Request.Context(), actor, id); err != nil {
		respondServiceError(c, err, "Failed to delete vehicle")
		return
	}
	response.SuccessWithMsg(c, "Vehicle deleted", nil)
}
