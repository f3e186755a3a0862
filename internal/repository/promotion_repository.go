package repository

import (
	"errors"
	"time"

	"github.com/dujiao-next/checkout/internal/constants"
	"github.com/dujiao-next/checkout/internal/models"

	"gorm.io/gorm"
)

// PromotionRepository 促销数据访问接口
type PromotionRepository interface {
	GetByID(id uint) (*models.Promotion, error)
	GetByCode(code string) (*models.Promotion, error)
	ListByIDs(ids []uint) ([]models.Promotion, error)
	ListActiveAutomatic(now time.Time) ([]models.Promotion, error)
	ListProductIDs(promotionID uint) ([]uint, error)
	ListCollectionIDs(promotionID uint) ([]uint, error)
	CountCustomerUsage(promotionID, customerID uint) (int64, error)
	IncrementUsage(ids []uint) error
	Create(promotion *models.Promotion) error
	WithTx(tx *gorm.DB) PromotionRepository
}

// GormPromotionRepository GORM 实现
type GormPromotionRepository struct {
	db *gorm.DB
}

// NewPromotionRepository 创建促销仓库
func NewPromotionRepository(db *gorm.DB) *GormPromotionRepository {
	return &GormPromotionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPromotionRepository) WithTx(tx *gorm.DB) PromotionRepository {
	if tx == nil {
		return r
	}
	return &GormPromotionRepository{db: tx}
}

// GetByID 根据 ID 获取促销
func (r *GormPromotionRepository) GetByID(id uint) (*models.Promotion, error) {
	var promotion models.Promotion
	if err := r.db.First(&promotion, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &promotion, nil
}

// GetByCode 根据优惠码获取促销（仅 method=code）
func (r *GormPromotionRepository) GetByCode(code string) (*models.Promotion, error) {
	if code == "" {
		return nil, nil
	}
	var promotion models.Promotion
	if err := r.db.Where("code = ? AND method = ?", code, constants.PromotionMethodCode).First(&promotion).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &promotion, nil
}

// ListByIDs 批量获取促销
func (r *GormPromotionRepository) ListByIDs(ids []uint) ([]models.Promotion, error) {
	if len(ids) == 0 {
		return []models.Promotion{}, nil
	}
	var promotions []models.Promotion
	if err := r.db.Where("id IN ?", ids).Order("id ASC").Find(&promotions).Error; err != nil {
		return nil, err
	}
	return promotions, nil
}

// ListActiveAutomatic 获取当前时间窗口内启用的自动促销
func (r *GormPromotionRepository) ListActiveAutomatic(now time.Time) ([]models.Promotion, error) {
	var promotions []models.Promotion
	query := r.db.Where("method = ? AND enabled = ?", constants.PromotionMethodAutomatic, true)
	query = query.Where("(starts_at IS NULL OR starts_at <= ?)", now)
	query = query.Where("(ends_at IS NULL OR ends_at >= ?)", now)
	if err := query.Order("id ASC").Find(&promotions).Error; err != nil {
		return nil, err
	}
	return promotions, nil
}

// ListProductIDs 获取促销指定的商品ID
func (r *GormPromotionRepository) ListProductIDs(promotionID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&models.PromotionProduct{}).
		Where("promotion_id = ?", promotionID).
		Pluck("product_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ListCollectionIDs 获取促销指定的集合ID
func (r *GormPromotionRepository) ListCollectionIDs(promotionID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&models.PromotionCollection{}).
		Where("promotion_id = ?", promotionID).
		Pluck("collection_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// CountCustomerUsage 统计顾客已支付订单中使用该促销的次数
func (r *GormPromotionRepository) CountCustomerUsage(promotionID, customerID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.OrderPromotion{}).
		Joins("JOIN orders ON orders.id = order_promotions.order_id AND orders.deleted_at IS NULL").
		Where("order_promotions.promotion_id = ? AND orders.customer_id = ?", promotionID, customerID).
		Where("orders.state IN ?", []constants.OrderState{
			constants.OrderStatePaid,
			constants.OrderStateShipped,
			constants.OrderStateDelivered,
		}).
		Count(&count).Error
	return count, err
}

// IncrementUsage 累加促销使用次数
func (r *GormPromotionRepository) IncrementUsage(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Model(&models.Promotion{}).
		Where("id IN ?", ids).
		Update("usage_count", gorm.Expr("usage_count + ?", 1)).Error
}

// Create 创建促销
func (r *GormPromotionRepository) Create(promotion *models.Promotion) error {
	return r.db.Create(promotion).Error
}
