package public

import (
	"errors"

	handlershared "github.com/dujiao-next/checkout/internal/http/handlers/shared"
	"github.com/dujiao-next/checkout/internal/http/response"
	"github.com/dujiao-next/checkout/internal/models"
	"github.com/dujiao-next/checkout/internal/service"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func respondServiceError(c *gin.Context, err error, fallbackKey string) {
	handlershared.RespondServiceError(c, err, fallbackKey)
}

func customerID(c *gin.Context) uint {
	return handlershared.CustomerID(c)
}

func cartToken(c *gin.Context) string {
	return handlershared.CartToken(c)
}

func parseOrderID(c *gin.Context) (uint, bool) {
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.order_id_invalid", nil)
	}
	return id, ok
}

// loadAccessibleOrder 读取订单并校验调用方（顾客 ID 或游客令牌）的访问权
func (h *Handler) loadAccessibleOrder(c *gin.Context) (*models.Order, bool) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return nil, false
	}
	order, err := h.OrderService.GetOrder(orderID)
	if err != nil {
		respondServiceError(c, err, "error.order_fetch_failed")
		return nil, false
	}
	if err := h.OrderService.CheckAccess(order, customerID(c), cartToken(c)); err != nil {
		// 无权访问时统一返回 404，避免暴露订单是否存在
		if errors.Is(err, service.ErrCartAccessDenied) {
			respondError(c, response.CodeNotFound, "error.order_not_found", nil)
			return nil, false
		}
		respondServiceError(c, err, "error.order_fetch_failed")
		return nil, false
	}
	return order, true
}
