package operator

import (
	"strings"

	"github.com/dujiao-next/checkout/internal/constants"
	handlershared "github.com/dujiao-next/checkout/internal/http/handlers/shared"
	"github.com/dujiao-next/checkout/internal/http/response"
	"github.com/dujiao-next/checkout/internal/service"

	"github.com/gin-gonic/gin"
)

// TransitionRequest 订单状态流转请求
type TransitionRequest struct {
	State string `json:"state" binding:"required"`
}

// GetOrder 查看任意订单
func (h *Handler) GetOrder(c *gin.Context) {
	orderID, ok := parseID(c, "id", "error.order_id_invalid")
	if !ok {
		return
	}
	order, err := h.OrderService.GetOrder(orderID)
	if err != nil {
		handlershared.RespondServiceError(c, err, "error.order_fetch_failed")
		return
	}
	promotions, err := h.OrderService.ListOrderPromotions(orderID)
	if err != nil {
		handlershared.RespondServiceError(c, err, "error.order_fetch_failed")
		return
	}
	payments, err := h.PaymentService.ListOrderPayments(orderID)
	if err != nil {
		handlershared.RespondServiceError(c, err, "error.order_fetch_failed")
		return
	}
	response.Success(c, gin.H{
		"order":           order,
		"promotions":      promotions,
		"payments":        payments,
		"allowed_targets": service.AllowedTransitions(order.State),
	})
}

// TransitionOrder 执行订单状态流转（发货、签收、取消等）
func (h *Handler) TransitionOrder(c *gin.Context) {
	orderID, ok := parseID(c, "id", "error.order_id_invalid")
	if !ok {
		return
	}
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlershared.RespondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	target := constants.OrderState(strings.ToLower(strings.TrimSpace(req.State)))
	order, err := h.OrderService.TransitionState(orderID, target)
	if err != nil {
		handlershared.RespondServiceError(c, err, "error.order_update_failed")
		return
	}
	response.Success(c, gin.H{"order": order})
}
