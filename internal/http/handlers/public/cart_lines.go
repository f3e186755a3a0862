package public

import (
	handlershared "github.com/dujiao-next/checkout/internal/http/handlers/shared"
	"github.com/dujiao-next/checkout/internal/http/response"

	"github.com/gin-gonic/gin"
)

// AddLineRequest 加购请求
type AddLineRequest struct {
	VariantID uint `json:"variant_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required"`
}

// UpdateLineRequest 修改数量请求；数量小于等于 0 时删除该行
type UpdateLineRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// AddLine 加购商品变体
func (h *Handler) AddLine(c *gin.Context) {
	order, ok := h.loadAccessibleOrder(c)
	if !ok {
		return
	}
	var req AddLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	updated, err := h.OrderService.AddLine(c.Request.Context(), order.ID, req.VariantID, req.Quantity)
	if err != nil {
		respondServiceError(c, err, "error.order_update_failed")
		return
	}
	response.Success(c, gin.H{"cart": updated})
}

// UpdateLine 修改订单行数量
func (h *Handler) UpdateLine(c *gin.Context) {
	order, ok := h.loadAccessibleOrder(c)
	if !ok {
		return
	}
	lineID, ok := handlershared.ParseUintParam(c, "line_id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.line_id_invalid", nil)
		return
	}
	var req UpdateLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	result, err := h.OrderService.UpdateLineQuantity(c.Request.Context(), order.ID, lineID, *req.Quantity)
	if err != nil {
		respondServiceError(c, err, "error.order_update_failed")
		return
	}
	response.Success(c, gin.H{"cart": result.Order, "removed": result.Removed})
}

// RemoveLine 删除订单行
func (h *Handler) RemoveLine(c *gin.Context) {
	order, ok := h.loadAccessibleOrder(c)
	if !ok {
		return
	}
	lineID, ok := handlershared.ParseUintParam(c, "line_id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.line_id_invalid", nil)
		return
	}
	updated, err := h.OrderService.RemoveLine(c.Request.Context(), order.ID, lineID)
	if err != nil {
		respondServiceError(c, err, "error.order_update_failed")
		return
	}
	response.Success(c, gin.H{"cart": updated})
}
