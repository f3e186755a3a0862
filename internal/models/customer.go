package models

import (
	"time"

	"gorm.io/gorm"
)

// Customer 顾客（仅保留税务豁免判断所需字段）
type Customer struct {
	ID        uint           `gorm:"primarykey" json:"id"`                             // 主键
	Email     string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"` // 邮箱
	Name      string         `gorm:"type:varchar(255)" json:"name"`                    // 名称
	B2BStatus string         `gorm:"column:b2b_status;type:varchar(16);default:''" json:"b2b_status"` // B2B 认证状态
	VatID     string         `gorm:"type:varchar(64)" json:"vat_id"`                   // 增值税号
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                          // 创建时间
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`                          // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                   // 软删除时间
}

// TableName 指定表名
func (Customer) TableName() string {
	return "customers"
}

// CustomerGroupMember 顾客分组成员
type CustomerGroupMember struct {
	GroupID    uint      `gorm:"primaryKey;autoIncrement:false" json:"group_id"`          // 分组ID
	CustomerID uint      `gorm:"primaryKey;autoIncrement:false;index" json:"customer_id"` // 顾客ID
	CreatedAt  time.Time `json:"created_at"`                                              // 加入时间
}

// TableName 指定表名
func (CustomerGroupMember) TableName() string {
	return "customer_group_members"
}
