package shared

// messages 错误消息键到默认文案的映射
var messages = map[string]string{
	"error.bad_request":                  "invalid request",
	"error.unauthorized":                 "unauthorized",
	"error.forbidden":                    "forbidden",
	"error.token_invalid":                "token invalid",
	"error.auth_header_invalid":          "authorization header invalid",
	"error.operator_key_invalid":         "operator key invalid",
	"error.operator_forbidden":           "operator role does not allow this action",
	"error.customer_required":            "customer login required",
	"error.cart_token_required":          "cart token required",
	"error.cart_access_denied":           "cart access denied",
	"error.order_not_found":              "order not found",
	"error.order_not_modifiable":         "order can no longer be modified",
	"error.order_empty":                  "order has no lines",
	"error.order_update_failed":          "order update failed",
	"error.order_fetch_failed":           "order fetch failed",
	"error.order_id_invalid":             "order id invalid",
	"error.line_id_invalid":              "line id invalid",
	"error.line_not_found":               "order line not found",
	"error.variant_not_found":            "product variant not found",
	"error.quantity_invalid":             "quantity invalid",
	"error.insufficient_stock":           "insufficient stock",
	"error.stock_unavailable":            "stock no longer available",
	"error.invalid_transition":           "order state transition not allowed",
	"error.promotion_invalid":            "promotion invalid",
	"error.promotion_not_applied":        "promotion not applied to order",
	"error.promotion_invalid_code":       "promotion code not found",
	"error.promotion_not_active":         "promotion not active",
	"error.promotion_not_started":        "promotion not started",
	"error.promotion_expired":            "promotion expired",
	"error.promotion_limit_reached":      "promotion usage limit reached",
	"error.promotion_customer_limit":     "promotion per-customer limit reached",
	"error.promotion_minimum_not_met":    "order amount below promotion minimum",
	"error.promotion_not_combinable":     "promotion cannot be combined",
	"error.promotion_customer_group":     "promotion not available for customer",
	"error.promotion_no_qualifying":      "no qualifying products for promotion",
	"error.shipping_method_invalid":      "shipping method invalid",
	"error.email_invalid":                "email invalid",
	"error.payment_not_found":            "payment not found",
	"error.payment_status_invalid":       "payment status invalid",
	"error.payment_provider_failed":      "payment provider request failed",
	"error.payment_create_failed":        "payment create failed",
	"error.payment_id_invalid":           "payment id invalid",
	"error.refund_amount_invalid":        "refund amount invalid",
	"error.refund_exceeds_payment":       "refund exceeds payment amount",
	"error.customer_not_found":           "customer not found",
	"error.cart_transfer_failed":         "cart transfer failed",
	"error.internal":                     "internal error",
	"error.not_found":                    "route not found",
}

// Message 返回消息键对应的文案，未登记时原样返回键
func Message(key string) string {
	if msg, ok := messages[key]; ok {
		return msg
	}
	return key
}
