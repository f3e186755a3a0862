package operator

import (
	"strings"

	"github.com/dujiao-next/checkout/internal/constants"
	handlershared "github.com/dujiao-next/checkout/internal/http/handlers/shared"
	"github.com/dujiao-next/checkout/internal/http/response"
	"github.com/dujiao-next/checkout/internal/models"

	"github.com/gin-gonic/gin"
)

// SettleRequest 人工确认结算请求
type SettleRequest struct {
	Status string `json:"status" binding:"required"`
}

// RefundRequest 退款请求
type RefundRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

// SettlePayment 人工确认结算结果；手工渠道同步更新渠道侧状态
func (h *Handler) SettlePayment(c *gin.Context) {
	paymentID, ok := parseID(c, "payment_id", "error.payment_id_invalid")
	if !ok {
		return
	}
	var req SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlershared.RespondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	status := constants.PaymentStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	record, err := h.PaymentService.GetPayment(paymentID)
	if err != nil {
		handlershared.RespondServiceError(c, err, "error.order_fetch_failed")
		return
	}
	if err := h.confirmManual(record, status); err != nil {
		handlershared.RespondError(c, response.CodeBadRequest, "error.payment_status_invalid", err)
		return
	}
	settled, err := h.PaymentService.HandleSettlement(c.Request.Context(), paymentID, status)
	if err != nil {
		handlershared.RespondServiceError(c, err, "error.order_update_failed")
		return
	}
	response.Success(c, gin.H{"payment": settled})
}

func (h *Handler) confirmManual(record *models.Payment, status constants.PaymentStatus) error {
	if h.ManualPayment == nil || record.Provider != h.ManualPayment.Name() || record.TransactionRef == "" {
		return nil
	}
	if status == constants.PaymentStatusPending {
		return nil
	}
	return h.ManualPayment.Confirm(record.TransactionRef, status)
}

// RefundPayment 发起退款
func (h *Handler) RefundPayment(c *gin.Context) {
	paymentID, ok := parseID(c, "payment_id", "error.payment_id_invalid")
	if !ok {
		return
	}
	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlershared.RespondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	refunded, err := h.PaymentService.Refund(c.Request.Context(), paymentID, req.Amount)
	if err != nil {
		handlershared.RespondServiceError(c, err, "error.order_update_failed")
		return
	}
	response.Success(c, gin.H{"payment": refunded})
}
