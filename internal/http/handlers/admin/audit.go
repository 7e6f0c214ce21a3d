package admin

import (
	"strings"

	handlershared "github.com/smartcargo-next/internal/http/handlers/shared"
	"github.com/smartcargo-next/internal/http/response"
	"github.com/smartcargo-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListAuditEvents 审计事件列表
func (h *Handler) ListAuditEvents(c *gin.Context) {
	actor, ok := handlershared.CurrentActor(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.PageQuery(c)
	events, total, err := h.AuditService.List(actor, repository.AuditEventListFilter{
		Page:            page,
		PageSize:        pageSize,
		EventType:       strings.TrimSpace(c.Query("event_type")),
		RelatedEntityID: handlershared.ParseUintQuery(c, "related_entity_id"),
		ActorID:         handlershared.ParseUintQuery(c, "actor_id"),
	})
	if err != nil {
		respondServiceError(c, err, "Failed to list audit events")
		return
	}
	response.SuccessWithPage(c, events, response.NewPagination(page, pageSize, total))
}
