package public

import "github.com/smartcargo-next/internal/provider"

// Handler 业务接口处理器入口（货主、承运商、管理员共用）
type Handler struct {
	*provider.Container
}

// New 创建处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
