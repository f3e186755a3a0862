package public

import (
	handlershared "github.com/dujiao-next/checkout/internal/http/handlers/shared"
	"github.com/dujiao-next/checkout/internal/http/response"
	"github.com/dujiao-next/checkout/internal/models"

	"github.com/gin-gonic/gin"
)

// loadAccessiblePayment 读取支付记录并按其订单校验访问权
func (h *Handler) loadAccessiblePayment(c *gin.Context) (*models.Payment, bool) {
	paymentID, ok := handlershared.ParseUintParam(c, "payment_id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.payment_id_invalid", nil)
		return nil, false
	}
	payment, err := h.PaymentService.GetPayment(paymentID)
	if err != nil {
		respondServiceError(c, err, "error.order_fetch_failed")
		return nil, false
	}
	order, err := h.OrderService.GetOrder(payment.OrderID)
	if err != nil {
		respondServiceError(c, err, "error.order_fetch_failed")
		return nil, false
	}
	if err := h.OrderService.CheckAccess(order, customerID(c), cartToken(c)); err != nil {
		respondError(c, response.CodeNotFound, "error.payment_not_found", nil)
		return nil, false
	}
	return payment, true
}

// ListPayments 列出订单支付记录
func (h *Handler) ListPayments(c *gin.Context) {
	order, ok := h.loadAccessibleOrder(c)
	if !ok {
		return
	}
	payments, err := h.PaymentService.ListOrderPayments(order.ID)
	if err != nil {
		respondServiceError(c, err, "error.order_fetch_failed")
		return
	}
	response.Success(c, gin.H{"payments": payments})
}

// GetPayment 查询支付记录，待结算时向渠道同步一次状态
func (h *Handler) GetPayment(c *gin.Context) {
	payment, ok := h.loadAccessiblePayment(c)
	if !ok {
		return
	}
	synced, err := h.PaymentService.SyncStatus(c.Request.Context(), payment.ID)
	if err != nil {
		handlershared.RequestLog(c).Warnw("payment_status_sync_failed", "payment_id", payment.ID, "error", err)
		response.Success(c, gin.H{"payment": payment})
		return
	}
	response.Success(c, gin.H{"payment": synced})
}
