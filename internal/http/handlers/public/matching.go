package public

import (
	handlershared "github.com/smartcargo-next/internal/http/handlers/shared"
	"github.com/smartcargo-next/internal/http/response"
	"github.com/smartcargo-next/internal/service"

	"github.com/gin-gonic/gin"
)

// AssignRequest 指派请求
type AssignRequest struct {
	CargoID           uint    `json:"cargo_id" binding:"required"`
	VehicleID         uint    `json:"vehicle_id" binding:"required"`
	CurrentLocation   *string `json:"current_location"`
	EstimatedDelivery string  `json:"estimated_delivery"`
}

// AssignCargo 将货源指派给车辆
func (h *Handler) AssignCargo(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}
	estimated, ok := handlershared.ParseTime(req.EstimatedDelivery)
	if !ok {
		respondError(c, response.CodeBadRequest, "Invalid date format", nil)
		return
	}
	shipment, err := h.MatchingService.Assign(c.Request.Context(), actor, service.AssignInput{
		CargoID:           req.CargoID,
		VehicleID:         req.VehicleID,
		CurrentLocation:   req.CurrentLocation,
		EstimatedDelivery: estimated,
	})
	if err != nil {
		respondServiceError(c, err, "Failed to assign cargo")
		return
	}
	response.Created(c, shipment)
}
