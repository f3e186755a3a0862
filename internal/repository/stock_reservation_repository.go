package repository

import (
	"errors"
	"time"

	"github.com/dujiao-next/checkout/internal/models"

	"gorm.io/gorm"
)

// StockReservationRepository 库存预占数据访问接口
type StockReservationRepository interface {
	Create(reservation *models.StockReservation) error
	GetByLineID(lineID uint) (*models.StockReservation, error)
	ListByOrder(orderID uint) ([]models.StockReservation, error)
	UpdateByLine(lineID uint, quantity int, expiresAt time.Time) (int64, error)
	SumActiveQuantity(variantID, excludeOrderID uint, now time.Time) (int, error)
	ExtendByOrder(orderID uint, expiresAt time.Time) (int64, error)
	DeleteByLine(lineID uint) (int64, error)
	DeleteByOrder(orderID uint) (int64, error)
	DeleteExpired(now time.Time) (int64, error)
	WithTx(tx *gorm.DB) StockReservationRepository
}

// GormStockReservationRepository GORM 实现
type GormStockReservationRepository struct {
	db *gorm.DB
}

// NewStockReservationRepository 创建库存预占仓库
func NewStockReservationRepository(db *gorm.DB) *GormStockReservationRepository {
	return &GormStockReservationRepository{db: db}
}

// WithTx 绑定事务
func (r *GormStockReservationRepository) WithTx(tx *gorm.DB) StockReservationRepository {
	if tx == nil {
		return r
	}
	return &GormStockReservationRepository{db: tx}
}

// Create 创建预占
func (r *GormStockReservationRepository) Create(reservation *models.StockReservation) error {
	return r.db.Create(reservation).Error
}

// GetByLineID 获取订单行的预占
func (r *GormStockReservationRepository) GetByLineID(lineID uint) (*models.StockReservation, error) {
	var reservation models.StockReservation
	if err := r.db.Where("order_line_id = ?", lineID).First(&reservation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reservation, nil
}

// ListByOrder 获取订单全部预占
func (r *GormStockReservationRepository) ListByOrder(orderID uint) ([]models.StockReservation, error) {
	var rows []models.StockReservation
	if err := r.db.Where("order_id = ?", orderID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateByLine 更新预占数量并刷新过期时间
func (r *GormStockReservationRepository) UpdateByLine(lineID uint, quantity int, expiresAt time.Time) (int64, error) {
	if lineID == 0 || quantity <= 0 {
		return 0, errors.New("invalid reservation update params")
	}
	result := r.db.Model(&models.StockReservation{}).
		Where("order_line_id = ?", lineID).
		Updates(map[string]interface{}{
			"quantity":   quantity,
			"expires_at": expiresAt,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// SumActiveQuantity 汇总规格的有效预占数量（excludeOrderID 为 0 时不排除）
func (r *GormStockReservationRepository) SumActiveQuantity(variantID, excludeOrderID uint, now time.Time) (int, error) {
	query := r.db.Model(&models.StockReservation{}).
		Where("variant_id = ? AND expires_at > ?", variantID, now)
	if excludeOrderID != 0 {
		query = query.Where("order_id <> ?", excludeOrderID)
	}
	var total int64
	if err := query.Select("COALESCE(SUM(quantity), 0)").Scan(&total).Error; err != nil {
		return 0, err
	}
	return int(total), nil
}

// ExtendByOrder 延长订单全部预占
func (r *GormStockReservationRepository) ExtendByOrder(orderID uint, expiresAt time.Time) (int64, error) {
	result := r.db.Model(&models.StockReservation{}).
		Where("order_id = ?", orderID).
		Update("expires_at", expiresAt)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// DeleteByLine 删除订单行的预占
func (r *GormStockReservationRepository) DeleteByLine(lineID uint) (int64, error) {
	result := r.db.Where("order_line_id = ?", lineID).Delete(&models.StockReservation{})
	return result.RowsAffected, result.Error
}

// DeleteByOrder 删除订单全部预占
func (r *GormStockReservationRepository) DeleteByOrder(orderID uint) (int64, error) {
	result := r.db.Where("order_id = ?", orderID).Delete(&models.StockReservation{})
	return result.RowsAffected, result.Error
}

// DeleteExpired 清理已过期预占
func (r *GormStockReservationRepository) DeleteExpired(now time.Time) (int64, error) {
	result := r.db.Where("expires_at <= ?", now).Delete(&models.StockReservation{})
	return result.RowsAffected, result.Error
}
