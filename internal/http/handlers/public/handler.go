package public

import "github.com/dujiao-next/checkout/internal/provider"

// Handler 结账接口处理器入口
// 说明：顾客与游客共用，游客通过 X-Cart-Token 访问自己的购物车。
type Handler struct {
	*provider.Container
}

// New 创建结账处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
