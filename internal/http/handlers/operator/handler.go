package operator

import (
	handlershared "github.com/dujiao-next/checkout/internal/http/handlers/shared"
	"github.com/dujiao-next/checkout/internal/http/response"
	"github.com/dujiao-next/checkout/internal/provider"

	"github.com/gin-gonic/gin"
)

// Handler 运营接口处理器：订单流转、支付结算确认、退款、后台任务
type Handler struct {
	*provider.Container
}

// New 创建运营处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

func parseID(c *gin.Context, name, invalidKey string) (uint, bool) {
	id, ok := handlershared.ParseUintParam(c, name)
	if !ok {
		handlershared.RespondError(c, response.CodeBadRequest, invalidKey, nil)
	}
	return id, ok
}
