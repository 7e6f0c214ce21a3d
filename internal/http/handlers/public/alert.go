package public

import (
	handlershared "github.com/smartcargo-next/internal/http/handlers/shared"
	"github.com/smartcargo-next/internal/http/response"
	"github.com/smartcargo-next/internal/repository"
	"github.com/smartcargo-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateAlertRequest 创建告警请求
type CreateAlertRequest struct {
	Message           string `json:"message" binding:"required"`
	Severity          string `json:"severity" binding:"required,oneof=INFO WARNING CRITICAL"`
	RelatedShipmentID uint   `json:"related_shipment_id"`
	RecipientID       uint   `json:"recipient_id"`
}

// ListAlerts 告警列表
func (h *Handler) ListAlerts(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.PageQuery(c)
	alerts, total, err := h.AlertService.List(actor, repository.AlertListFilter{
		Page:              page,
		PageSize:          pageSize,
		RelatedShipmentID: handlershared.ParseUintQuery(c, "shipment_id"),
		UnreadOnly:        c.Query("unread") == "true",
	}, c.Query("all") == "true")
	if err != nil {
		respondServiceError(c, err, "Failed to list alerts")
		return
	}
	response.SuccessWithPage(c, alerts, response.NewPagination(page, pageSize, total))
}

// GetAlert 告警详情
func (h *Handler) GetAlert(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	alert, err := h.AlertService.Get(actor, id)
	if err != nil {
		respondServiceError(c, err, "Failed to load alert")
		return
	}
	response.Success(c, alert)
}

// CreateAlert 手动创建告警
func (h *Handler) CreateAlert(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}
	alert, err := h.AlertService.Create(actor, service.CreateAlertInput{
		Message:           req.Message,
		Severity:          req.Severity,
		RelatedShipmentID: req.RelatedShipmentID,
		RecipientID:       req.RecipientID,
	})
	if err != nil {
		respondServiceError(c, err, "Failed to create alert")
		return
	}
	response.Created(c, alert)
}

// MarkAlertRead 标记告警已读
func (h *Handler) MarkAlertRead(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	alert, err := h.AlertService.MarkAsRead(actor, id)
	if err != nil {
		respondServiceError(c, err, "Failed to update alert")
		return
	}
	response.Success(c, alert)
}

// DeleteAlert 删除告警
func (h *Handler) DeleteAlert(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.AlertService.Delete(actor, id); err != nil {
		respondServiceError(c, err, "Failed to delete alert")
		return
	}
	response.SuccessWithMsg(c, "Alert deleted", nil)
}
