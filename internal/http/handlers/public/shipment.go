package public

import (
	"strings"

	handlershared "github.com/smartcargo-next/internal/http/handlers/shared"
	"github.com/smartcargo-next/internal/http/response"
	"github.com/smartcargo-next/internal/repository"
	"github.com/smartcargo-next/internal/service"

	"github.com/gin-gonic/gin"
)

// UpdateShipmentRequest 运单更新请求
type UpdateShipmentRequest struct {
	Status            *string `json:"status"`
	CurrentLocation   *string `json:"current_location"`
	EstimatedDelivery *string `json:"estimated_delivery"`
}

// ListShipments 运单列表
func (h *Handler) ListShipments(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.PageQuery(c)
	shipments, total, err := h.ShipmentService.List(actor, repository.ShipmentListFilter{
		Page:      page,
		PageSize:  pageSize,
		Status:    strings.TrimSpace(c.Query("status")),
		VehicleID: handlershared.ParseUintQuery(c, "vehicle_id"),
	})
	if err != nil {
		respondServiceError(c, err, "Failed to list shipments")
		return
	}
	response.SuccessWithPage(c, shipments, response.NewPagination(page, pageSize, total))
}

// GetShipment 运单详情
func (h *Handler) GetShipment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	shipment, err := h.ShipmentService.Get(actor, id)
	if err != nil {
		respondServiceError(c, err, "Failed to load shipment")
		return
	}
	response.Success(c, shipment)
}

// UpdateShipment 更新运单
func (h *Handler) UpdateShipment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req UpdateShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}
	input := service.UpdateShipmentInput{
		Status:          req.Status,
		CurrentLocation: req.CurrentLocation,
	}
	if req.EstimatedDelivery != nil {
		t, ok := handlershared.ParseTime(*req.EstimatedDelivery)
		if !ok {
			respondError(c, response.CodeBadRequest, "Invalid date format", nil)
			return
		}
		input.EstimatedDelivery = t
	}
	shipment, err := h.ShipmentService.Update(c.Request.Context(), actor, id, input)
	if err != nil {
		respondServiceError(c, err, "Failed to update shipment")
		return
	}
	response.Success(c, shipment)
}

// ReopenShipment 重新打开已送达运单
func (h *Handler) ReopenShipment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	shipment, err := h.ShipmentService.Reopen(c.Request.Context(), actor, id)
	if err != nil {
		respondServiceError(c, err, "Failed to reopen shipment")
		return
	}
	response.Success(c, shipment)
}

// GetShipmentRealtime 运单实时数据
func (h *Handler) GetShipmentRealtime(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	view, err := h.ShipmentService.GetRealtimeData(c.Request.Context(), actor, id)
	if err != nil {
		respondServiceError(c, err, "Failed to load realtime data")
		return
	}
	response.Success(c, view)
}

// DeleteShipment 删除运单
func (h *Handler) DeleteShipment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.ShipmentService.Delete(c.Request.Context(), actor, id); err != nil {
		respondServiceError(c, err, "Failed to delete shipment")
		return
	}
	response.SuccessWithMsg(c, "Shipment deleted", nil)
}
