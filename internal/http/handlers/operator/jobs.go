package operator

import (
	handlershared "github.com/dujiao-next/checkout/internal/http/handlers/shared"
	"github.com/dujiao-next/checkout/internal/http/response"

	"github.com/gin-gonic/gin"
)

// TriggerReservationCleanup 手动触发过期预占清理；队列可用时入队，否则同步执行
func (h *Handler) TriggerReservationCleanup(c *gin.Context) {
	if h.QueueClient.Enabled() {
		if err := h.QueueClient.EnqueueReservationCleanup("operator"); err != nil {
			handlershared.RespondError(c, response.CodeInternal, "error.internal", err)
			return
		}
		response.Success(c, gin.H{"queued": true})
		return
	}
	result, err := h.ReservationCleanupService.Run(c.Request.Context())
	if err != nil {
		handlershared.RespondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, gin.H{"queued": false, "skipped": result.Skipped, "deleted": result.Deleted})
}

// IssueCustomerToken 为顾客签发访问令牌（供受信前端或联调使用）
func (h *Handler) IssueCustomerToken(c *gin.Context) {
	customerID, ok := parseID(c, "id", "error.customer_not_found")
	if !ok {
		return
	}
	customer, err := h.CustomerRepo.GetByID(customerID)
	if err != nil {
		handlershared.RespondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	if customer == nil {
		handlershared.RespondError(c, response.CodeNotFound, "error.customer_not_found", nil)
		return
	}
	token, expiresAt, err := h.CustomerAuthService.GenerateCustomerJWT(customer)
	if err != nil {
		handlershared.RespondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, gin.H{"token": token, "expires_at": expiresAt})
}
