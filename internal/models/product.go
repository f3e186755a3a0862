package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品表（目录数据由外部维护，此处仅保留下单所需字段）
type Product struct {
	ID        uint           `gorm:"primarykey" json:"id"`                    // 主键
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`  // 名称
	Enabled   bool           `gorm:"not null" json:"enabled"`                 // 是否上架
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                 // 创建时间
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`                 // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                          // 软删除时间

	Variants []ProductVariant `gorm:"foreignKey:ProductID" json:"variants,omitempty"` // 规格
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}

// ProductVariant 商品规格（价格与库存维度）
type ProductVariant struct {
	ID             uint           `gorm:"primarykey" json:"id"`                                 // 主键
	ProductID      uint           `gorm:"not null;index" json:"product_id"`                     // 商品ID
	Name           string         `gorm:"type:varchar(255)" json:"name"`                        // 规格名称
	SKU            string         `gorm:"column:sku;type:varchar(64);uniqueIndex" json:"sku"`   // SKU 编码
	Price          int64          `gorm:"not null;default:0" json:"price"`                      // 含税售价（最小货币单位）
	Stock          int            `gorm:"not null;default:0" json:"stock"`                      // 实物库存
	TrackInventory bool           `gorm:"not null" json:"track_inventory"`                      // 是否跟踪库存
	TaxCode        string         `gorm:"type:varchar(32);not null;default:'standard'" json:"tax_code"` // 税率编码
	Enabled        bool           `gorm:"not null;index" json:"enabled"`                        // 是否启用
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                              // 创建时间
	UpdatedAt      time.Time      `gorm:"index" json:"updated_at"`                              // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                       // 软删除时间

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"` // 关联商品
}

// TableName 指定表名
func (ProductVariant) TableName() string {
	return "product_variants"
}
