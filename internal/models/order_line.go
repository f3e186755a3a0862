package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderLine 订单行（商品名称/SKU/税率均为加入时快照）
type OrderLine struct {
	ID           uint            `gorm:"primarykey" json:"id"`                                                  // 主键
	OrderID      uint            `gorm:"not null;uniqueIndex:idx_order_line_variant" json:"order_id"`           // 订单ID
	VariantID    uint            `gorm:"not null;index;uniqueIndex:idx_order_line_variant" json:"variant_id"`   // 规格ID
	ProductID    uint            `gorm:"not null;index" json:"product_id"`                                      // 商品ID
	ProductName  string          `gorm:"type:varchar(255);not null" json:"product_name"`                        // 商品名称快照
	VariantName  string          `gorm:"type:varchar(255)" json:"variant_name"`                                 // 规格名称快照
	SKU          string          `gorm:"column:sku;type:varchar(64)" json:"sku"`                                // SKU 快照
	Quantity     int             `gorm:"not null" json:"quantity"`                                              // 数量
	UnitPrice    int64           `gorm:"not null;default:0" json:"unit_price"`                                  // 实收单价（含税，免税时为净价）
	UnitPriceNet int64           `gorm:"not null;default:0" json:"unit_price_net"`                              // 不含税单价
	LineTotal    int64           `gorm:"not null;default:0" json:"line_total"`                                  // 行合计（含税）
	LineTotalNet int64           `gorm:"not null;default:0" json:"line_total_net"`                              // 行合计（不含税）
	TaxAmount    int64           `gorm:"not null;default:0" json:"tax_amount"`                                  // 行税额
	TaxCode      string          `gorm:"type:varchar(32);not null" json:"tax_code"`                             // 税率编码快照
	TaxRate      decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"tax_rate"`                 // 税率快照
	CreatedAt    time.Time       `gorm:"index" json:"created_at"`                                               // 创建时间
	UpdatedAt    time.Time       `gorm:"index" json:"updated_at"`                                               // 更新时间
}

// TableName 指定表名
func (OrderLine) TableName() string {
	return "order_lines"
}
