package repository

import (
	"errors"

	"github.com/dujiao-next/checkout/internal/models"

	"gorm.io/gorm"
)

// TaxRateRepository 税率数据访问接口
type TaxRateRepository interface {
	GetByCode(code string) (*models.TaxRate, error)
	WithTx(tx *gorm.DB) TaxRateRepository
}

// GormTaxRateRepository GORM 实现
type GormTaxRateRepository struct {
	db *gorm.DB
}

// NewTaxRateRepository 创建税率仓库
func NewTaxRateRepository(db *gorm.DB) *GormTaxRateRepository {
	return &GormTaxRateRepository{db: db}
}

// WithTx 绑定事务
func (r *GormTaxRateRepository) WithTx(tx *gorm.DB) TaxRateRepository {
	if tx == nil {
		return r
	}
	return &GormTaxRateRepository{db: tx}
}

// GetByCode 根据编码获取税率
func (r *GormTaxRateRepository) GetByCode(code string) (*models.TaxRate, error) {
	if code == "" {
		return nil, nil
	}
	var rate models.TaxRate
	if err := r.db.Where("code = ?", code).First(&rate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rate, nil
}
