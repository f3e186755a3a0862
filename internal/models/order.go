package models

import (
	"time"

	"github.com/dujiao-next/checkout/internal/constants"

	"gorm.io/gorm"
)

// Order 订单表（active=true 时即购物车）
type Order struct {
	ID              uint                 `gorm:"primarykey" json:"id"`                                // 主键
	OrderNo         string               `gorm:"uniqueIndex;not null" json:"order_no"`                // 订单编号
	CustomerID      *uint                `gorm:"index" json:"customer_id,omitempty"`                  // 顾客ID（游客为空）
	GuestToken      *string              `gorm:"type:varchar(64);uniqueIndex" json:"-"`               // 游客购物车令牌（与顾客ID互斥）
	State           constants.OrderState `gorm:"type:varchar(32);index;not null" json:"state"`        // 生命周期状态
	Active          bool                 `gorm:"index;not null" json:"active"`                        // 是否仍为可修改的购物车
	Currency        string               `gorm:"type:varchar(8);not null" json:"currency"`            // 币种
	Subtotal        int64                `gorm:"not null;default:0" json:"subtotal"`                  // 商品含税小计
	SubtotalNet     int64                `gorm:"not null;default:0" json:"subtotal_net"`              // 商品不含税小计
	TaxTotal        int64                `gorm:"not null;default:0" json:"tax_total"`                 // 税额合计
	Discount        int64                `gorm:"not null;default:0" json:"discount"`                  // 优惠合计（含运费优惠）
	ShippingMethod  string               `gorm:"type:varchar(64)" json:"shipping_method"`             // 配送方式
	ShippingCharge  int64                `gorm:"not null;default:0" json:"shipping_charge"`           // 配送方式原始运费
	Shipping        int64                `gorm:"not null;default:0" json:"shipping"`                  // 实收运费
	Total           int64                `gorm:"not null;default:0" json:"total"`                     // 应付总额
	TotalNet        int64                `gorm:"not null;default:0" json:"total_net"`                 // 应付不含税总额
	IsTaxExempt     bool                 `gorm:"not null;default:false" json:"is_tax_exempt"`         // 是否免税
	ShippingAddress JSON                 `gorm:"type:json" json:"shipping_address,omitempty"`         // 收货地址快照
	CustomerEmail   string               `gorm:"type:varchar(255)" json:"customer_email,omitempty"`   // 顾客邮箱快照
	OrderPlacedAt   *time.Time           `gorm:"index" json:"order_placed_at"`                        // 下单时间（首次进入待支付）
	PaidAt          *time.Time           `gorm:"index" json:"paid_at"`                                // 支付时间
	CancelledAt     *time.Time           `gorm:"index" json:"cancelled_at"`                           // 取消时间
	CreatedAt       time.Time            `gorm:"index" json:"created_at"`                             // 创建时间
	UpdatedAt       time.Time            `gorm:"index" json:"updated_at"`                             // 更新时间
	DeletedAt       gorm.DeletedAt       `gorm:"index" json:"-"`                                      // 软删除时间

	Lines      []OrderLine      `gorm:"foreignKey:OrderID" json:"lines,omitempty"`      // 订单行
	Promotions []OrderPromotion `gorm:"foreignKey:OrderID" json:"promotions,omitempty"` // 已应用促销
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
