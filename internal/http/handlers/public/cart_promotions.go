package public

import (
	handlershared "github.com/dujiao-next/checkout/internal/http/handlers/shared"
	"github.com/dujiao-next/checkout/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ApplyPromotionRequest 使用促销码请求
type ApplyPromotionRequest struct {
	Code string `json:"code" binding:"required"`
}

// ApplyPromotion 使用促销码
func (h *Handler) ApplyPromotion(c *gin.Context) {
	order, ok := h.loadAccessibleOrder(c)
	if !ok {
		return
	}
	var req ApplyPromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	updated, err := h.OrderService.ApplyPromotionCode(c.Request.Context(), order.ID, req.Code, customerID(c))
	if err != nil {
		respondServiceError(c, err, "error.order_update_failed")
		return
	}
	response.Success(c, gin.H{"cart": updated})
}

// ListPromotions 列出订单已应用的促销
func (h *Handler) ListPromotions(c *gin.Context) {
	order, ok := h.loadAccessibleOrder(c)
	if !ok {
		return
	}
	promotions, err := h.OrderService.ListOrderPromotions(order.ID)
	if err != nil {
		respondServiceError(c, err, "error.order_fetch_failed")
		return
	}
	response.Success(c, gin.H{"promotions": promotions})
}

// RemovePromotion 移除单个促销
func (h *Handler) RemovePromotion(c *gin.Context) {
	order, ok := h.loadAccessibleOrder(c)
	if !ok {
		return
	}
	promotionID, ok := handlershared.ParseUintParam(c, "promotion_id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.promotion_invalid", nil)
		return
	}
	updated, err := h.OrderService.RemovePromotion(c.Request.Context(), order.ID, promotionID)
	if err != nil {
		respondServiceError(c, err, "error.order_update_failed")
		return
	}
	response.Success(c, gin.H{"cart": updated})
}

// RemoveAllPromotions 清空订单促销
func (h *Handler) RemoveAllPromotions(c *gin.Context) {
	order, ok := h.loadAccessibleOrder(c)
	if !ok {
		return
	}
	updated, err := h.OrderService.RemoveAllPromotions(c.Request.Context(), order.ID)
	if err != nil {
		respondServiceError(c, err, "error.order_update_failed")
		return
	}
	response.Success(c, gin.H{"cart": updated})
}
