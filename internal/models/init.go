package models

import (
	"github.com/dujiao-next/checkout/internal/constants"
	"github.com/dujiao-next/checkout/internal/logger"

	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"
)

// DefaultTaxRates 内置税率（无持久化记录时同样生效）
func DefaultTaxRates() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		constants.TaxCodeStandard: decimal.RequireFromString(constants.TaxRateStandardDefault),
		constants.TaxCodeFood:     decimal.RequireFromString(constants.TaxRateFoodDefault),
		constants.TaxCodeBooks:    decimal.RequireFromString(constants.TaxRateBooksDefault),
		constants.TaxCodeZero:     decimal.RequireFromString(constants.TaxRateZeroDefault),
	}
}

// InitDefaultTaxRates 写入缺失的内置税率，已存在的编码保持不变
func InitDefaultTaxRates() error {
	var count int64
	if err := DB.Model(&TaxRate{}).Count(&count).Error; err != nil {
		return err
	}
	defaults := DefaultTaxRates()
	rows := make([]TaxRate, 0, len(defaults))
	for code, rate := range defaults {
		rows = append(rows, TaxRate{Code: code, Rate: rate})
	}
	if err := DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return err
	}
	logger.Infow("default_tax_rates_ensured", "existing", count, "defaults", len(rows))
	return nil
}
