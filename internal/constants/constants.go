package constants

// OrderState 订单生命周期状态
type OrderState string

// 订单状态常量
const (
	OrderStateCreated        OrderState = "created"
	OrderStatePaymentPending OrderState = "payment_pending"
	OrderStatePaid           OrderState = "paid"
	OrderStateShipped        OrderState = "shipped"
	OrderStateDelivered      OrderState = "delivered"
	OrderStateCancelled      OrderState = "cancelled"
)

// PromotionMethod 促销触发方式
type PromotionMethod string

// 促销触发方式常量
const (
	PromotionMethodCode      PromotionMethod = "code"
	PromotionMethodAutomatic PromotionMethod = "automatic"
)

// PromotionType 促销作用对象
type PromotionType string

// 促销作用对象常量
const (
	PromotionTypeOrder        PromotionType = "order"
	PromotionTypeProduct      PromotionType = "product"
	PromotionTypeFreeShipping PromotionType = "free_shipping"
)

// DiscountType 折扣计算方式
type DiscountType string

// 折扣计算方式常量
const (
	DiscountTypePercentage  DiscountType = "percentage"
	DiscountTypeFixedAmount DiscountType = "fixed_amount"
)

// AppliesTo 商品级促销的适用范围
type AppliesTo string

// 适用范围常量
const (
	AppliesToAll                 AppliesTo = "all"
	AppliesToSpecificProducts    AppliesTo = "specific_products"
	AppliesToSpecificCollections AppliesTo = "specific_collections"
)

// OrderPromotionType 订单促销记录的生效类型
type OrderPromotionType string

// 订单促销生效类型常量
const (
	OrderPromotionTypeOrder    OrderPromotionType = "order"
	OrderPromotionTypeProduct  OrderPromotionType = "product"
	OrderPromotionTypeShipping OrderPromotionType = "shipping"
)

// 商品集合过滤器类型
const (
	CollectionFilterProduct = "product"
	CollectionFilterFacet   = "facet"
)

// 税率编码
const (
	TaxCodeStandard = "standard"
	TaxCodeFood     = "food"
	TaxCodeBooks    = "books"
	TaxCodeZero     = "zero"
)

// 默认税率（字符串形式，避免浮点误差）
const (
	TaxRateStandardDefault = "0.24"
	TaxRateFoodDefault     = "0.13"
	TaxRateBooksDefault    = "0.06"
	TaxRateZeroDefault     = "0"
)

// B2B 认证状态
const (
	B2BStatusNone     = ""
	B2BStatusPending  = "pending"
	B2BStatusApproved = "approved"
	B2BStatusRejected = "rejected"
)

// PaymentStatus 支付结算状态
type PaymentStatus string

// 支付状态常量
const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// 支付提供方
const (
	PaymentProviderManual = "manual"
)

// 币种
const (
	CurrencyDefault = "EUR"
)

// 队列与任务
const (
	QueueDefault            = "default"
	QueueCritical           = "critical"
	TaskOrderPaymentTimeout = "order:payment_timeout"
	TaskReservationCleanup  = "reservation:cleanup"
)

// 后台任务名称
const (
	JobReservationCleanup = "reservation_cleanup"
)
