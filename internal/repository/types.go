package repository

import "github.com/dujiao-next/checkout/internal/constants"

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page         int
	PageSize     int
	CustomerID   uint
	State        constants.OrderState
	IncludeCarts bool
}
