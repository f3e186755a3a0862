package repository

import (
	"errors"

	"github.com/dujiao-next/checkout/internal/constants"
	"github.com/dujiao-next/checkout/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Create(order *models.Order) error
	GetByID(id uint) (*models.Order, error)
	GetByIDForUpdate(id uint) (*models.Order, error)
	GetActiveByCustomer(customerID uint) (*models.Order, error)
	GetActiveByGuestToken(token string) (*models.Order, error)
	ListByCustomer(filter OrderListFilter) ([]models.Order, int64, error)
	UpdateFields(id uint, updates map[string]interface{}) error
	UpdateState(id uint, from, to constants.OrderState, updates map[string]interface{}) (bool, error)
	WithTx(tx *gorm.DB) OrderRepository
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) OrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

func (r *GormOrderRepository) withDetails(query *gorm.DB) *gorm.DB {
	return query.
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Promotions", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Promotions.Promotion")
}

// Create 创建订单
func (r *GormOrderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

// GetByID 根据 ID 获取订单（含订单行与促销）
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	if id == 0 {
		return nil, nil
	}
	var order models.Order
	if err := r.withDetails(r.db).First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByIDForUpdate 加锁获取订单，串行化同一订单上的并发修改
func (r *GormOrderRepository) GetByIDForUpdate(id uint) (*models.Order, error) {
	if id == 0 {
		return nil, nil
	}
	var locked models.Order
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ?", id).
		First(&locked).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.GetByID(id)
}

// GetActiveByCustomer 获取顾客当前购物车
func (r *GormOrderRepository) GetActiveByCustomer(customerID uint) (*models.Order, error) {
	if customerID == 0 {
		return nil, nil
	}
	var order models.Order
	if err := r.withDetails(r.db).
		Where("customer_id = ? AND active = ? AND state = ?", customerID, true, constants.OrderStateCreated).
		Order("id DESC").
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetActiveByGuestToken 根据游客令牌获取购物车
func (r *GormOrderRepository) GetActiveByGuestToken(token string) (*models.Order, error) {
	if token == "" {
		return nil, nil
	}
	var order models.Order
	if err := r.withDetails(r.db).
		Where("guest_token = ? AND active = ? AND state = ?", token, true, constants.OrderStateCreated).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// ListByCustomer 分页获取顾客订单
func (r *GormOrderRepository) ListByCustomer(filter OrderListFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{}).Where("customer_id = ?", filter.CustomerID)
	if filter.State != "" {
		query = query.Where("state = ?", filter.State)
	}
	if !filter.IncludeCarts {
		query = query.Where("active = ?", false)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var orders []models.Order
	query = applyPagination(query.Order("id DESC"), filter.Page, filter.PageSize)
	if err := query.Preload("Lines").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdateFields 更新订单字段
func (r *GormOrderRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.Order{}).Where("id = ?", id).Updates(updates).Error
}

// UpdateState 条件更新状态，仅当当前状态仍为 from 时生效
func (r *GormOrderRepository) UpdateState(id uint, from, to constants.OrderState, updates map[string]interface{}) (bool, error) {
	payload := make(map[string]interface{}, len(updates)+1)
	for k, v := range updates {
		payload[k] = v
	}
	payload["state"] = to
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND state = ?", id, from).
		Updates(payload)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
