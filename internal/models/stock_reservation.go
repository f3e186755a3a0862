package models

import "time"

// StockReservation 库存预占（每个订单行至多一条）
type StockReservation struct {
	ID          uint      `gorm:"primarykey" json:"id"`                           // 主键
	VariantID   uint      `gorm:"not null;index:idx_reservation_variant_expiry" json:"variant_id"` // 规格ID
	OrderID     uint      `gorm:"not null;index" json:"order_id"`                 // 订单ID
	OrderLineID uint      `gorm:"not null;uniqueIndex" json:"order_line_id"`      // 订单行ID
	Quantity    int       `gorm:"not null" json:"quantity"`                       // 预占数量
	ExpiresAt   time.Time `gorm:"not null;index:idx_reservation_variant_expiry" json:"expires_at"` // 过期时间
	CreatedAt   time.Time `json:"created_at"`                                     // 创建时间
	UpdatedAt   time.Time `json:"updated_at"`                                     // 更新时间
}

// TableName 指定表名
func (StockReservation) TableName() string {
	return "stock_reservations"
}
