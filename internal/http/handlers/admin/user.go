package admin

import (
	"strings"

	handlershared "github.com/smartcargo-next/internal/http/handlers/shared"
	"github.com/smartcargo-next/internal/http/response"
	"github.com/smartcargo-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// UpdateUserStatusRequest 更新用户状态请求
type UpdateUserStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=ACTIVE PENDING_APPROVAL INACTIVE"`
}

// ListUsers 用户列表
func (h *Handler) ListUsers(c *gin.Context) {
	actor, ok := handlershared.CurrentActor(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.PageQuery(c)
	users, total, err := h.UserAdminService.List(actor, repository.UserListFilter{
		Page:     page,
		PageSize: pageSize,
		Keyword:  strings.TrimSpace(c.Query("keyword")),
		Role:     strings.TrimSpace(c.Query("role")),
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondServiceError(c, err, "Failed to list users")
		return
	}
	response.SuccessWithPage(c, users, response.NewPagination(page, pageSize, total))
}

// UpdateUserStatus 审核或停用用户
func (h *Handler) UpdateUserStatus(c *gin.Context) {
	actor, ok := handlershared.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateUserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlershared.RespondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}
	user, err := h.UserAdminService.UpdateStatus(c.Request.Context(), actor, id, req.Status)
	if err != nil {
		respondServiceError(c, err, "Failed to update user status")
		return
	}
	response.Success(c, user)
}

// DeleteUser 删除用户
func (h *Handler) DeleteUser(c *gin.Context) {
	actor, ok := handlershared.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.UserAdminService.Delete(c.Request.Context(), actor, id); err != nil {
		respondServiceError(c, err, "Failed to delete user")
		return
	}
	response.SuccessWithMsg(c, "User deleted", nil)
}
