package admin

import (
	handlershared "github.com/smartcargo-next/internal/http/handlers/shared"
	"github.com/smartcargo-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// Handler 管理端接口处理器
type Handler struct {
	*provider.Container
}

// New 创建管理端处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

func respondServiceError(c *gin.Context, err error, fallbackMsg string) {
	handlershared.RespondServiceError(c, err, fallbackMsg)
}
