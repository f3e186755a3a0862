package public

import (
	"strings"

	"github.com/dujiao-next/checkout/internal/constants"
	handlershared "github.com/dujiao-next/checkout/internal/http/handlers/shared"
	"github.com/dujiao-next/checkout/internal/http/response"
	"github.com/dujiao-next/checkout/internal/repository"
	"github.com/dujiao-next/checkout/internal/service"

	"github.com/gin-gonic/gin"
)

// OrderListQuery 顾客订单列表查询参数
type OrderListQuery struct {
	Page         int    `form:"page"`
	PageSize     int    `form:"page_size"`
	State        string `form:"state"`
	IncludeCarts bool   `form:"include_carts"`
}

// CartTransferRequest 游客购物车合并请求
type CartTransferRequest struct {
	CartToken string `json:"cart_token"`
}

// CreateCart 创建购物车；顾客已有活动购物车时直接返回
func (h *Handler) CreateCart(c *gin.Context) {
	order, err := h.OrderService.CreateCart(customerID(c))
	if err != nil {
		respondServiceError(c, err, "error.order_update_failed")
		return
	}
	data := gin.H{"cart": order}
	if order.GuestToken != nil {
		data["cart_token"] = *order.GuestToken
	}
	response.Success(c, data)
}

// GetActiveCart 获取当前调用方的活动购物车
func (h *Handler) GetActiveCart(c *gin.Context) {
	order, err := h.OrderService.GetActiveCart(customerID(c), cartToken(c))
	if err != nil {
		respondServiceError(c, err, "error.order_fetch_failed")
		return
	}
	if order == nil {
		respondError(c, response.CodeNotFound, "error.order_not_found", nil)
		return
	}
	response.Success(c, gin.H{"cart": order})
}

// GetOrder 获取订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	order, ok := h.loadAccessibleOrder(c)
	if !ok {
		return
	}
	response.Success(c, gin.H{
		"order":           order,
		"modifiable":      order.Active && order.State == constants.OrderStateCreated,
		"allowed_targets": service.AllowedTransitions(order.State),
	})
}

// ListOrders 顾客订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	uid := customerID(c)
	if uid == 0 {
		respondError(c, response.CodeUnauthorized, "error.customer_required", nil)
		return
	}
	var query OrderListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	page, pageSize := handlershared.NormalizePagination(query.Page, query.PageSize)
	orders, total, err := h.OrderService.ListCustomerOrders(repository.OrderListFilter{
		Page:         page,
		PageSize:     pageSize,
		CustomerID:   uid,
		State:        constants.OrderState(strings.TrimSpace(query.State)),
		IncludeCarts: query.IncludeCarts,
	})
	if err != nil {
		respondServiceError(c, err, "error.order_fetch_failed")
		return
	}
	totalPage := (total + int64(pageSize) - 1) / int64(pageSize)
	response.SuccessWithPage(c, orders, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: totalPage,
	})
}

// TransferCart 登录后将游客购物车转移或合并到顾客名下
func (h *Handler) TransferCart(c *gin.Context) {
	uid := customerID(c)
	if uid == 0 {
		respondError(c, response.CodeUnauthorized, "error.customer_required", nil)
		return
	}
	var req CartTransferRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", err)
			return
		}
	}
	token := strings.TrimSpace(req.CartToken)
	if token == "" {
		token = cartToken(c)
	}
	order, err := h.CartTransferService.TransferGuestCart(c.Request.Context(), token, uid)
	if err != nil {
		respondServiceError(c, err, "error.cart_transfer_failed")
		return
	}
	response.Success(c, gin.H{"cart": order})
}
