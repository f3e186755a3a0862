package service

import (
	"errors"
	"fmt"

	"github.com/dujiao-next/checkout/internal/constants"
)

var (
	ErrOrderNotFound             = errors.New("order not found")
	ErrOrderNotModifiable        = errors.New("order is not modifiable")
	ErrOrderEmpty                = errors.New("order has no lines")
	ErrOrderUpdateFailed         = errors.New("order update failed")
	ErrVariantNotFound           = errors.New("variant not found")
	ErrInsufficientStock         = errors.New("insufficient stock")
	ErrLineNotFound              = errors.New("order line not found")
	ErrInvalidQuantity           = errors.New("invalid quantity")
	ErrInvalidTransition         = errors.New("invalid order state transition")
	ErrPromotionInvalid          = errors.New("promotion invalid")
	ErrPromotionNotApplied       = errors.New("promotion not applied to order")
	ErrStockUnavailableAtPayment = errors.New("stock unavailable at payment")
	ErrRefundExceedsPayment      = errors.New("refund exceeds payment")
	ErrRefundAmountInvalid       = errors.New("refund amount invalid")
	ErrPaymentNotFound           = errors.New("payment not found")
	ErrPaymentStatusInvalid      = errors.New("payment status invalid")
	ErrPaymentProviderFailed     = errors.New("payment provider request failed")
	ErrShippingMethodInvalid     = errors.New("shipping method invalid")
	ErrCartAccessDenied          = errors.New("cart access denied")
	ErrGuestTokenRequired        = errors.New("guest token required")
	ErrInvalidEmail              = errors.New("invalid email")
)

// InsufficientStockError 库存不足详情
type InsufficientStockError struct {
	VariantID uint
	SKU       string
	Requested int
	Available int
	InCart    int
}

func (e *InsufficientStockError) Error() string {
	if e.InCart > 0 {
		return fmt.Sprintf("insufficient stock for variant %d: only %d available, %d already in cart", e.VariantID, e.Available, e.InCart)
	}
	return fmt.Sprintf("insufficient stock for variant %d: only %d available", e.VariantID, e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// InvalidTransitionError 非法状态流转详情
type InvalidTransitionError struct {
	From constants.OrderState
	To   constants.OrderState
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// PromotionReason 促销校验失败原因
type PromotionReason string

const (
	PromotionReasonInvalidCode             PromotionReason = "invalid_code"
	PromotionReasonNotActive               PromotionReason = "not_active"
	PromotionReasonNotStarted              PromotionReason = "not_started"
	PromotionReasonExpired                 PromotionReason = "expired"
	PromotionReasonLimitReached            PromotionReason = "limit_reached"
	PromotionReasonMinimumNotMet           PromotionReason = "minimum_not_met"
	PromotionReasonPerCustomerLimitReached PromotionReason = "per_customer_limit_reached"
	PromotionReasonCannotCombine           PromotionReason = "cannot_combine"
	PromotionReasonCustomerGroupRestricted PromotionReason = "customer_group_restricted"
	PromotionReasonNoQualifyingProducts    PromotionReason = "no_qualifying_products"
)

// PromotionError 促销校验失败
type PromotionError struct {
	Reason PromotionReason
}

func (e *PromotionError) Error() string {
	return "promotion invalid: " + string(e.Reason)
}

func (e *PromotionError) Unwrap() error {
	return ErrPromotionInvalid
}

func promotionError(reason PromotionReason) error {
	return &PromotionError{Reason: reason}
}

// StockUnavailableError 支付时库存复核失败，Lines 为全部短缺行
type StockUnavailableError struct {
	Lines []*InsufficientStockError
}

func (e *StockUnavailableError) Error() string {
	return fmt.Sprintf("stock unavailable at payment for %d line(s)", len(e.Lines))
}

func (e *StockUnavailableError) Unwrap() error {
	return ErrStockUnavailableAtPayment
}
