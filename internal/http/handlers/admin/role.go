package admin

import (
	"strings"

	"github.com/smartcargo-next/internal/authz"
	handlershared "github.com/smartcargo-next/internal/http/handlers/shared"
	"github.com/smartcargo-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// RolePolicyRequest 角色策略变更请求
type RolePolicyRequest struct {
	Object string `json:"object" binding:"required"`
	Action string `json:"action" binding:"required"`
}

type roleView struct {
	Role     string         `json:"role"`
	Policies []authz.Policy `json:"policies"`
}

// ListRoles 角色及其直接策略
func (h *Handler) ListRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		handlershared.RespondError(c, response.CodeInternal, "Failed to list roles", err)
		return
	}
	items := make([]roleView, 0, len(roles))
	for _, role := range roles {
		policies, err := h.AuthzService.GetRolePolicies(role)
		if err != nil {
			handlershared.RespondError(c, response.CodeInternal, "Failed to list roles", err)
			return
		}
		items = append(items, roleView{Role: role, Policies: policies})
	}
	response.Success(c, items)
}

// GrantRolePolicy 授予角色路由权限
func (h *Handler) GrantRolePolicy(c *gin.Context) {
	role, req, ok := bindRolePolicy(c)
	if !ok {
		return
	}
	if err := h.AuthzService.GrantRolePolicy(role, req.Object, req.Action); err != nil {
		handlershared.RespondError(c, response.CodeBadRequest, err.Error(), nil)
		return
	}
	handlershared.RequestLog(c).Infow("role_policy_granted", "role", role, "object", req.Object, "action", req.Action)
	h.respondRolePolicies(c, role)
}

// RevokeRolePolicy 撤销角色路由权限
func (h *Handler) RevokeRolePolicy(c *gin.Context) {
	role, req, ok := bindRolePolicy(c)
	if !ok {
		return
	}
	if err := h.AuthzService.RevokeRolePolicy(role, req.Object, req.Action); err != nil {
		handlershared.RespondError(c, response.CodeBadRequest, err.Error(), nil)
		return
	}
	handlershared.RequestLog(c).Infow("role_policy_revoked", "role", role, "object", req.Object, "action", req.Action)
	h.respondRolePolicies(c, role)
}

func (h *Handler) respondRolePolicies(c *gin.Context, role string) {
	policies, err := h.AuthzService.GetRolePolicies(role)
	if err != nil {
		handlershared.RespondError(c, response.CodeInternal, "Failed to load role policies", err)
		return
	}
	subject, _ := authz.SubjectForRole(role)
	response.Success(c, roleView{Role: subject, Policies: policies})
}

func bindRolePolicy(c *gin.Context) (string, RolePolicyRequest, bool) {
	var req RolePolicyRequest
	role := strings.TrimSpace(c.Param("role"))
	if err := c.ShouldBindJSON(&req); err != nil {
		handlershared.RespondError(c, response.CodeBadRequest, "Invalid request body", err)
		return "", req, false
	}
	return role, req, true
}
