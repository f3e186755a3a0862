package shared

import (
	"errors"

	"github.com/dujiao-next/checkout/internal/http/response"
	"github.com/dujiao-next/checkout/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

var checkoutErrorRules = []mappedHandlerError{
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, key: "error.order_not_found"},
	{target: service.ErrCartAccessDenied, code: response.CodeForbidden, key: "error.cart_access_denied"},
	{target: service.ErrGuestTokenRequired, code: response.CodeBadRequest, key: "error.cart_token_required"},
	{target: service.ErrOrderNotModifiable, code: response.CodeConflict, key: "error.order_not_modifiable"},
	{target: service.ErrOrderEmpty, code: response.CodeBadRequest, key: "error.order_empty"},
	{target: service.ErrOrderUpdateFailed, code: response.CodeConflict, key: "error.order_update_failed"},
	{target: service.ErrVariantNotFound, code: response.CodeNotFound, key: "error.variant_not_found"},
	{target: service.ErrLineNotFound, code: response.CodeNotFound, key: "error.line_not_found"},
	{target: service.ErrInvalidQuantity, code: response.CodeBadRequest, key: "error.quantity_invalid"},
	{target: service.ErrPromotionNotApplied, code: response.CodeNotFound, key: "error.promotion_not_applied"},
	{target: service.ErrShippingMethodInvalid, code: response.CodeBadRequest, key: "error.shipping_method_invalid"},
	{target: service.ErrInvalidEmail, code: response.CodeBadRequest, key: "error.email_invalid"},
	{target: service.ErrPaymentNotFound, code: response.CodeNotFound, key: "error.payment_not_found"},
	{target: service.ErrPaymentStatusInvalid, code: response.CodeBadRequest, key: "error.payment_status_invalid"},
	{target: service.ErrPaymentProviderFailed, code: response.CodeBadGateway, key: "error.payment_provider_failed"},
	{target: service.ErrRefundAmountInvalid, code: response.CodeBadRequest, key: "error.refund_amount_invalid"},
	{target: service.ErrRefundExceedsPayment, code: response.CodeUnprocessable, key: "error.refund_exceeds_payment"},
}

var promotionReasonKeys = map[service.PromotionReason]string{
	service.PromotionReasonInvalidCode:             "error.promotion_invalid_code",
	service.PromotionReasonNotActive:               "error.promotion_not_active",
	service.PromotionReasonNotStarted:              "error.promotion_not_started",
	service.PromotionReasonExpired:                 "error.promotion_expired",
	service.PromotionReasonLimitReached:            "error.promotion_limit_reached",
	service.PromotionReasonMinimumNotMet:           "error.promotion_minimum_not_met",
	service.PromotionReasonPerCustomerLimitReached: "error.promotion_customer_limit",
	service.PromotionReasonCannotCombine:           "error.promotion_not_combinable",
	service.PromotionReasonCustomerGroupRestricted: "error.promotion_customer_group",
	service.PromotionReasonNoQualifyingProducts:    "error.promotion_no_qualifying",
}

// StockShortfall 库存缺口响应项
type StockShortfall struct {
	VariantID uint   `json:"variant_id"`
	SKU       string `json:"sku,omitempty"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
	InCart    int    `json:"in_cart,omitempty"`
}

// ToShortfall 转换库存不足错误为响应项
func ToShortfall(e *service.InsufficientStockError) StockShortfall {
	return StockShortfall{
		VariantID: e.VariantID,
		SKU:       e.SKU,
		Requested: e.Requested,
		Available: e.Available,
		InCart:    e.InCart,
	}
}

// RespondServiceError 将 service 层错误映射为接口响应；未识别错误按 fallbackKey 返回 500
func RespondServiceError(c *gin.Context, err error, fallbackKey string) {
	var (
		stockErr      *service.InsufficientStockError
		unavailable   *service.StockUnavailableError
		promotionErr  *service.PromotionError
		transitionErr *service.InvalidTransitionError
	)
	switch {
	case errors.As(err, &unavailable):
		lines := make([]StockShortfall, 0, len(unavailable.Lines))
		for _, line := range unavailable.Lines {
			lines = append(lines, ToShortfall(line))
		}
		RespondErrorWithData(c, response.CodeConflict, "error.stock_unavailable", gin.H{"lines": lines})
		return
	case errors.As(err, &stockErr):
		lines := make([]StockShortfall, 0, 1)
		for _, item := range multierr.Errors(err) {
			var lineErr *service.InsufficientStockError
			if errors.As(item, &lineErr) {
				lines = append(lines, ToShortfall(lineErr))
			}
		}
		RespondErrorWithData(c, response.CodeConflict, "error.insufficient_stock", gin.H{"lines": lines})
		return
	case errors.As(err, &promotionErr):
		key, ok := promotionReasonKeys[promotionErr.Reason]
		if !ok {
			key = "error.promotion_invalid"
		}
		RespondErrorWithData(c, response.CodeBadRequest, key, gin.H{"reason": string(promotionErr.Reason)})
		return
	case errors.As(err, &transitionErr):
		RespondErrorWithData(c, response.CodeConflict, "error.invalid_transition", gin.H{
			"from": string(transitionErr.From),
			"to":   string(transitionErr.To),
		})
		return
	}
	for _, rule := range checkoutErrorRules {
		if errors.Is(err, rule.target) {
			RespondError(c, rule.code, rule.key, nil)
			return
		}
	}
	RespondError(c, response.CodeInternal, fallbackKey, err)
}
