package public

import (
	"errors"
	"sort"

	handlershared "github.com/dujiao-next/checkout/internal/http/handlers/shared"
	"github.com/dujiao-next/checkout/internal/http/response"
	"github.com/dujiao-next/checkout/internal/models"
	"github.com/dujiao-next/checkout/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
)

// ShippingMethodRequest 选择配送方式请求
type ShippingMethodRequest struct {
	Method string `json:"method" binding:"required"`
}

// ShippingAddressRequest 收货地址请求
type ShippingAddressRequest struct {
	Address models.JSON `json:"address" binding:"required"`
}

// CustomerEmailRequest 顾客邮箱请求
type CustomerEmailRequest struct {
	Email string `json:"email" binding:"required"`
}

// ShippingMethodOption 可选配送方式
type ShippingMethodOption struct {
	Method string `json:"method"`
	Price  int64  `json:"price"`
}

// ListShippingMethods 列出可选配送方式
func (h *Handler) ListShippingMethods(c *gin.Context) {
	options := make([]ShippingMethodOption, 0)
	if h.Shipping != nil {
		for method, price := range h.Shipping.Methods() {
			options = append(options, ShippingMethodOption{Method: method, Price: price})
		}
	}
	sort.Slice(options, func(i, j int) bool {
		if options[i].Price == options[j].Price {
			return options[i].Method < options[j].Method
		}
		return options[i].Price < options[j].Price
	})
	response.Success(c, gin.H{"methods": options})
}

// SetShippingMethod 选择配送方式
func (h *Handler) SetShippingMethod(c *gin.Context) {
	order, ok := h.loadAccessibleOrder(c)
	if !ok {
		return
	}
	var req ShippingMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	updated, err := h.OrderService.SetShippingMethod(c.Request.Context(), order.ID, req.Method)
	if err != nil {
		respondServiceError(c, err, "error.order_update_failed")
		return
	}
	response.Success(c, gin.H{"cart": updated})
}

// SetShippingAddress 保存收货地址
func (h *Handler) SetShippingAddress(c *gin.Context) {
	order, ok := h.loadAccessibleOrder(c)
	if !ok {
		return
	}
	var req ShippingAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	updated, err := h.OrderService.SetShippingAddress(c.Request.Context(), order.ID, req.Address)
	if err != nil {
		respondServiceError(c, err, "error.order_update_failed")
		return
	}
	response.Success(c, gin.H{"cart": updated})
}

// SetCustomerEmail 保存联系邮箱
func (h *Handler) SetCustomerEmail(c *gin.Context) {
	order, ok := h.loadAccessibleOrder(c)
	if !ok {
		return
	}
	var req CustomerEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	updated, err := h.OrderService.SetCustomerEmail(c.Request.Context(), order.ID, req.Email)
	if err != nil {
		respondServiceError(c, err, "error.order_update_failed")
		return
	}
	response.Success(c, gin.H{"cart": updated})
}

// Recalculate 重新计算订单总额
func (h *Handler) Recalculate(c *gin.Context) {
	order, ok := h.loadAccessibleOrder(c)
	if !ok {
		return
	}
	updated, err := h.OrderService.RecalculateTotals(c.Request.Context(), order.ID)
	if err != nil {
		respondServiceError(c, err, "error.order_update_failed")
		return
	}
	response.Success(c, gin.H{"cart": updated})
}

// ValidateStock 结账前库存预检，返回全部短缺行
func (h *Handler) ValidateStock(c *gin.Context) {
	order, ok := h.loadAccessibleOrder(c)
	if !ok {
		return
	}
	err := h.OrderService.ValidateStock(order.ID)
	if err == nil {
		response.Success(c, gin.H{"valid": true, "lines": []handlershared.StockShortfall{}})
		return
	}
	shortfalls := make([]handlershared.StockShortfall, 0)
	for _, item := range multierr.Errors(err) {
		var stockErr *service.InsufficientStockError
		if !errors.As(item, &stockErr) {
			respondServiceError(c, err, "error.order_fetch_failed")
			return
		}
		shortfalls = append(shortfalls, handlershared.ToShortfall(stockErr))
	}
	response.Success(c, gin.H{"valid": false, "lines": shortfalls})
}

// Checkout 下单并发起支付
func (h *Handler) Checkout(c *gin.Context) {
	order, ok := h.loadAccessibleOrder(c)
	if !ok {
		return
	}
	payment, err := h.PaymentService.CreatePayment(c.Request.Context(), order.ID)
	if err != nil {
		respondServiceError(c, err, "error.payment_create_failed")
		return
	}
	updated, err := h.OrderService.GetOrder(order.ID)
	if err != nil {
		respondServiceError(c, err, "error.order_fetch_failed")
		return
	}
	response.Success(c, gin.H{"order": updated, "payment": payment})
}
