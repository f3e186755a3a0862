package models

import (
	"time"

	"github.com/dujiao-next/checkout/internal/constants"

	"gorm.io/gorm"
)

// Payment 支付记录
type Payment struct {
	ID             uint                    `gorm:"primarykey" json:"id"`                                   // 主键
	OrderID        uint                    `gorm:"index;not null" json:"order_id"`                         // 订单ID
	Provider       string                  `gorm:"type:varchar(32);not null" json:"provider"`              // 支付提供方
	TransactionRef string                  `gorm:"type:varchar(128);index" json:"transaction_ref"`         // 第三方交易号
	Amount         int64                   `gorm:"not null" json:"amount"`                                 // 支付金额
	RefundedAmount int64                   `gorm:"not null;default:0" json:"refunded_amount"`              // 已退款金额
	Currency       string                  `gorm:"type:varchar(8);not null" json:"currency"`               // 币种
	Status         constants.PaymentStatus `gorm:"type:varchar(16);index;not null" json:"status"`          // 结算状态
	SettledAt      *time.Time              `gorm:"index" json:"settled_at"`                                // 结算时间
	CreatedAt      time.Time               `gorm:"index" json:"created_at"`                                // 创建时间
	UpdatedAt      time.Time               `gorm:"index" json:"updated_at"`                                // 更新时间
	DeletedAt      gorm.DeletedAt          `gorm:"index" json:"-"`                                         // 软删除时间
}

// TableName 指定表名
func (Payment) TableName() string {
	return "payments"
}
