package service

import (
	"context"
	"strings"
	"time"

	"github.com/dujiao-next/checkout/internal/cache"
	"github.com/dujiao-next/checkout/internal/constants"
	"github.com/dujiao-next/checkout/internal/logger"
	"github.com/dujiao-next/checkout/internal/models"
	"github.com/dujiao-next/checkout/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const defaultTaxRateCacheTTL = 10 * time.Minute

// ResolvedTaxRate 解析后的税率
type ResolvedTaxRate struct {
	Code string          `json:"code"`
	Rate decimal.Decimal `json:"rate"`
}

// TaxRateService 税率查询服务（Redis 缓存 + 内置默认值）
type TaxRateService struct {
	taxRateRepo repository.TaxRateRepository
	cacheTTL    time.Duration
	defaults    map[string]decimal.Decimal
}

// NewTaxRateService 创建税率服务
func NewTaxRateService(taxRateRepo repository.TaxRateRepository, cacheTTL time.Duration) *TaxRateService {
	if cacheTTL <= 0 {
		cacheTTL = defaultTaxRateCacheTTL
	}
	return &TaxRateService{
		taxRateRepo: taxRateRepo,
		cacheTTL:    cacheTTL,
		defaults:    models.DefaultTaxRates(),
	}
}

// WithTx 绑定事务
func (s *TaxRateService) WithTx(tx *gorm.DB) *TaxRateService {
	if tx == nil {
		return s
	}
	clone := *s
	clone.taxRateRepo = s.taxRateRepo.WithTx(tx)
	return &clone
}

// Resolve 解析税率编码；未知编码回落到 standard
func (s *TaxRateService) Resolve(ctx context.Context, code string) (ResolvedTaxRate, error) {
	normalized := strings.ToLower(strings.TrimSpace(code))
	if normalized == "" {
		normalized = constants.TaxCodeStandard
	}

	var cached ResolvedTaxRate
	if hit, err := cache.GetJSON(ctx, taxRateCacheKey(normalized), &cached); err == nil && hit {
		return cached, nil
	} else if err != nil {
		logger.Debugw("tax_rate_cache_get_failed", "code", normalized, "error", err)
	}

	resolved, err := s.lookup(normalized)
	if err != nil {
		return ResolvedTaxRate{}, err
	}
	if err := cache.SetJSON(ctx, taxRateCacheKey(normalized), resolved, s.cacheTTL); err != nil {
		logger.Debugw("tax_rate_cache_set_failed", "code", normalized, "error", err)
	}
	return resolved, nil
}

func (s *TaxRateService) lookup(code string) (ResolvedTaxRate, error) {
	if s.taxRateRepo != nil {
		row, err := s.taxRateRepo.GetByCode(code)
		if err != nil {
			return ResolvedTaxRate{}, err
		}
		if row != nil {
			return ResolvedTaxRate{Code: row.Code, Rate: row.Rate}, nil
		}
	}
	if rate, ok := s.defaults[code]; ok {
		return ResolvedTaxRate{Code: code, Rate: rate}, nil
	}
	logger.Debugw("tax_rate_unknown_code_fallback", "code", code)
	return s.lookup(constants.TaxCodeStandard)
}

func taxRateCacheKey(code string) string {
	return "tax_rate:" + code
}
