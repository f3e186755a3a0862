package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxRate 税率表（编码 -> 小数税率，如 0.24）
type TaxRate struct {
	ID        uint            `gorm:"primarykey" json:"id"`                                   // 主键
	Code      string          `gorm:"type:varchar(32);uniqueIndex;not null" json:"code"`      // 税率编码
	Rate      decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"rate"`                // 税率
	CreatedAt time.Time       `gorm:"index" json:"created_at"`                                // 创建时间
	UpdatedAt time.Time       `gorm:"index" json:"updated_at"`                                // 更新时间
}

// TableName 指定表名
func (TaxRate) TableName() string {
	return "tax_rates"
}
