package shared

import (
	"strconv"
	"strings"

	"github.com/smartcargo-next/internal/http/response"
	"github.com/smartcargo-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetContextUint 从上下文读取 uint 值
func GetContextUint(c *gin.Context, key string) (uint, bool) {
	value, exists := c.Get(key)
	if !exists {
		return 0, false
	}
	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	case float64:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	default:
		return 0, false
	}
}

// CurrentActor 读取鉴权中间件写入的身份；缺失时直接返回 401
func CurrentActor(c *gin.Context) (service.Actor, bool) {
	userID, ok := GetContextUint(c, "user_id")
	if !ok || userID == 0 {
		RespondError(c, response.CodeUnauthorized, service.ErrUnauthenticated.Message, nil)
		return service.Actor{}, false
	}
	role := c.GetString("user_role")
	return service.Actor{
		UserID:    userID,
		Role:      role,
		RequestID: c.GetString("request_id"),
	}, true
}

// ParseIDParam 解析路径中的正整数 ID
func ParseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		RespondError(c, response.CodeBadRequest, "Invalid "+name, nil)
		return 0, false
	}
	return uint(id), true
}

// ParseUintQuery 解析可选的 uint 查询参数，非法值视为未传
func ParseUintQuery(c *gin.Context, name string) uint {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}
