package repository

import (
	"github.com/dujiao-next/checkout/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderPromotionRepository 订单促销数据访问接口
type OrderPromotionRepository interface {
	ListByOrder(orderID uint) ([]models.OrderPromotion, error)
	Upsert(item *models.OrderPromotion) error
	UpdateDiscount(id uint, amount int64) error
	Delete(orderID, promotionID uint) (int64, error)
	DeleteByOrder(orderID uint) (int64, error)
	WithTx(tx *gorm.DB) OrderPromotionRepository
}

// GormOrderPromotionRepository GORM 实现
type GormOrderPromotionRepository struct {
	db *gorm.DB
}

// NewOrderPromotionRepository 创建订单促销仓库
func NewOrderPromotionRepository(db *gorm.DB) *GormOrderPromotionRepository {
	return &GormOrderPromotionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderPromotionRepository) WithTx(tx *gorm.DB) OrderPromotionRepository {
	if tx == nil {
		return r
	}
	return &GormOrderPromotionRepository{db: tx}
}

// ListByOrder 获取订单已应用促销（含促销详情，按应用顺序）
func (r *GormOrderPromotionRepository) ListByOrder(orderID uint) ([]models.OrderPromotion, error) {
	var rows []models.OrderPromotion
	if err := r.db.Preload("Promotion").
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Upsert 按 (order_id, promotion_id) 写入或更新折扣
func (r *GormOrderPromotionRepository) Upsert(item *models.OrderPromotion) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}, {Name: "promotion_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"discount_amount", "type", "updated_at"}),
	}).Create(item).Error
}

// UpdateDiscount 更新折扣金额
func (r *GormOrderPromotionRepository) UpdateDiscount(id uint, amount int64) error {
	return r.db.Model(&models.OrderPromotion{}).Where("id = ?", id).Update("discount_amount", amount).Error
}

// Delete 移除订单上的某个促销
func (r *GormOrderPromotionRepository) Delete(orderID, promotionID uint) (int64, error) {
	result := r.db.Where("order_id = ? AND promotion_id = ?", orderID, promotionID).Delete(&models.OrderPromotion{})
	return result.RowsAffected, result.Error
}

// DeleteByOrder 移除订单全部促销
func (r *GormOrderPromotionRepository) DeleteByOrder(orderID uint) (int64, error) {
	result := r.db.Where("order_id = ?", orderID).Delete(&models.OrderPromotion{})
	return result.RowsAffected, result.Error
}
