package repository

import (
	"errors"

	"github.com/dujiao-next/checkout/internal/models"

	"gorm.io/gorm"
)

// OrderLineRepository 订单行数据访问接口
type OrderLineRepository interface {
	Create(line *models.OrderLine) error
	GetByID(id uint) (*models.OrderLine, error)
	GetByOrderAndVariant(orderID, variantID uint) (*models.OrderLine, error)
	ListByOrder(orderID uint) ([]models.OrderLine, error)
	Update(line *models.OrderLine) error
	Delete(id uint) error
	WithTx(tx *gorm.DB) OrderLineRepository
}

// GormOrderLineRepository GORM 实现
type GormOrderLineRepository struct {
	db *gorm.DB
}

// NewOrderLineRepository 创建订单行仓库
func NewOrderLineRepository(db *gorm.DB) *GormOrderLineRepository {
	return &GormOrderLineRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderLineRepository) WithTx(tx *gorm.DB) OrderLineRepository {
	if tx == nil {
		return r
	}
	return &GormOrderLineRepository{db: tx}
}

// Create 创建订单行
func (r *GormOrderLineRepository) Create(line *models.OrderLine) error {
	return r.db.Create(line).Error
}

// GetByID 根据 ID 获取订单行
func (r *GormOrderLineRepository) GetByID(id uint) (*models.OrderLine, error) {
	var line models.OrderLine
	if err := r.db.First(&line, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &line, nil
}

// GetByOrderAndVariant 获取订单内某规格的订单行
func (r *GormOrderLineRepository) GetByOrderAndVariant(orderID, variantID uint) (*models.OrderLine, error) {
	var line models.OrderLine
	if err := r.db.Where("order_id = ? AND variant_id = ?", orderID, variantID).First(&line).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &line, nil
}

// ListByOrder 获取订单全部订单行
func (r *GormOrderLineRepository) ListByOrder(orderID uint) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	if err := r.db.Where("order_id = ?", orderID).Order("id ASC").Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

// Update 保存订单行
func (r *GormOrderLineRepository) Update(line *models.OrderLine) error {
	return r.db.Save(line).Error
}

// Delete 删除订单行
func (r *GormOrderLineRepository) Delete(id uint) error {
	return r.db.Delete(&models.OrderLine{}, id).Error
}
