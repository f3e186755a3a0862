package models

import (
	"time"

	"github.com/dujiao-next/checkout/internal/constants"

	"gorm.io/gorm"
)

// Promotion 促销规则（优惠码或自动促销）
type Promotion struct {
	ID                          uint                      `gorm:"primarykey" json:"id"`                                           // 主键
	Method                      constants.PromotionMethod `gorm:"type:varchar(16);not null;index" json:"method"`                  // 触发方式（code/automatic）
	Code                        *string                   `gorm:"type:varchar(64);uniqueIndex" json:"code,omitempty"`             // 优惠码（大写，自动促销为空）
	Title                       string                    `gorm:"type:varchar(255)" json:"title"`                                 // 标题
	PromotionType               constants.PromotionType   `gorm:"type:varchar(32);not null" json:"promotion_type"`                // 作用对象（order/product/free_shipping）
	DiscountType                constants.DiscountType    `gorm:"type:varchar(32);not null" json:"discount_type"`                 // 折扣方式（percentage/fixed_amount）
	DiscountValue               int64                     `gorm:"not null;default:0" json:"discount_value"`                       // 折扣值（百分比 0-100 或最小货币单位）
	AppliesTo                   constants.AppliesTo       `gorm:"type:varchar(32);not null;default:'all'" json:"applies_to"`      // 商品级促销适用范围
	MinOrderAmount              int64                     `gorm:"not null;default:0" json:"min_order_amount"`                     // 最低订单金额
	UsageLimit                  int                       `gorm:"not null;default:0" json:"usage_limit"`                          // 总使用次数上限（0 不限）
	UsageLimitPerCustomer       int                       `gorm:"not null;default:0" json:"usage_limit_per_customer"`             // 每位顾客使用上限（0 不限）
	UsageCount                  int                       `gorm:"not null;default:0" json:"usage_count"`                          // 已使用次数（订单支付后累加）
	StartsAt                    *time.Time                `gorm:"index" json:"starts_at"`                                         // 生效时间
	EndsAt                      *time.Time                `gorm:"index" json:"ends_at"`                                           // 失效时间
	CustomerGroupID             *uint                     `gorm:"index" json:"customer_group_id,omitempty"`                       // 限定顾客分组
	CombinesWithOtherPromotions bool                      `gorm:"not null;default:false" json:"combines_with_other_promotions"`   // 是否可叠加
	Enabled                     bool                      `gorm:"not null;index" json:"enabled"`                                  // 是否启用
	CreatedAt                   time.Time                 `gorm:"index" json:"created_at"`                                        // 创建时间
	UpdatedAt                   time.Time                 `gorm:"index" json:"updated_at"`                                        // 更新时间
	DeletedAt                   gorm.DeletedAt            `gorm:"index" json:"-"`                                                 // 软删除时间
}

// TableName 指定表名
func (Promotion) TableName() string {
	return "promotions"
}

// PromotionProduct 促销指定商品
type PromotionProduct struct {
	PromotionID uint `gorm:"primaryKey;autoIncrement:false" json:"promotion_id"` // 促销ID
	ProductID   uint `gorm:"primaryKey;autoIncrement:false;index" json:"product_id"` // 商品ID
}

// TableName 指定表名
func (PromotionProduct) TableName() string {
	return "promotion_products"
}

// PromotionCollection 促销指定集合
type PromotionCollection struct {
	PromotionID  uint `gorm:"primaryKey;autoIncrement:false" json:"promotion_id"`        // 促销ID
	CollectionID uint `gorm:"primaryKey;autoIncrement:false;index" json:"collection_id"` // 集合ID
}

// TableName 指定表名
func (PromotionCollection) TableName() string {
	return "promotion_collections"
}

// OrderPromotion 订单已应用的促销及实际折扣
type OrderPromotion struct {
	ID             uint                         `gorm:"primarykey" json:"id"`                                             // 主键
	OrderID        uint                         `gorm:"not null;uniqueIndex:idx_order_promotion" json:"order_id"`         // 订单ID
	PromotionID    uint                         `gorm:"not null;uniqueIndex:idx_order_promotion;index" json:"promotion_id"` // 促销ID
	DiscountAmount int64                        `gorm:"not null;default:0" json:"discount_amount"`                        // 实际折扣金额
	Type           constants.OrderPromotionType `gorm:"type:varchar(16);not null" json:"type"`                            // 生效类型（order/product/shipping）
	CreatedAt      time.Time                    `gorm:"index" json:"created_at"`                                          // 创建时间
	UpdatedAt      time.Time                    `gorm:"index" json:"updated_at"`                                          // 更新时间

	Promotion *Promotion `gorm:"foreignKey:PromotionID" json:"promotion,omitempty"` // 关联促销
}

// TableName 指定表名
func (OrderPromotion) TableName() string {
	return "order_promotions"
}
