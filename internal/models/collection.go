package models

import "time"

// Collection 商品集合
type Collection struct {
	ID        uint      `gorm:"primarykey" json:"id"`                   // 主键
	Name      string    `gorm:"type:varchar(255);not null" json:"name"` // 名称
	CreatedAt time.Time `gorm:"index" json:"created_at"`                // 创建时间
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`                // 更新时间

	Filters []CollectionFilter `gorm:"foreignKey:CollectionID" json:"filters,omitempty"` // 过滤器
}

// TableName 指定表名
func (Collection) TableName() string {
	return "collections"
}

// CollectionFilter 集合过滤器（直接指定商品或按属性值匹配）
type CollectionFilter struct {
	ID           uint   `gorm:"primarykey" json:"id"`                      // 主键
	CollectionID uint   `gorm:"not null;index" json:"collection_id"`       // 集合ID
	Type         string `gorm:"type:varchar(16);not null" json:"type"`     // 类型（product/facet）
	ProductID    *uint  `gorm:"index" json:"product_id,omitempty"`         // 商品ID（type=product）
	FacetValueID *uint  `gorm:"index" json:"facet_value_id,omitempty"`     // 属性值ID（type=facet）
}

// TableName 指定表名
func (CollectionFilter) TableName() string {
	return "collection_filters"
}

// ProductFacetValue 商品属性值关联
type ProductFacetValue struct {
	ProductID    uint `gorm:"primaryKey;autoIncrement:false" json:"product_id"`           // 商品ID
	FacetValueID uint `gorm:"primaryKey;autoIncrement:false;index" json:"facet_value_id"` // 属性值ID
}

// TableName 指定表名
func (ProductFacetValue) TableName() string {
	return "product_facet_values"
}
