package service

import (
	"github.com/dujiao-next/checkout/internal/constants"
	"github.com/dujiao-next/checkout/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CalculateDiscount 按折扣方式计算优惠金额，结果不超过基数
func CalculateDiscount(promotion *models.Promotion, base int64) int64 {
	if promotion == nil || base <= 0 || promotion.DiscountValue <= 0 {
		return 0
	}
	var amount int64
	switch promotion.DiscountType {
	case constants.DiscountTypePercentage:
		percent := promotion.DiscountValue
		if percent > 100 {
			percent = 100
		}
		amount = decimal.NewFromInt(base).
			Mul(decimal.NewFromInt(percent)).
			Div(hundred).
			Round(0).
			IntPart()
	case constants.DiscountTypeFixedAmount:
		amount = promotion.DiscountValue
	default:
		return 0
	}
	if amount > base {
		amount = base
	}
	return amount
}

// CanCombine 判断候选促销能否加入已应用集合，集合内任一不可叠加即阻止
func CanCombine(existing []models.Promotion, candidate *models.Promotion) bool {
	if len(existing) == 0 {
		return true
	}
	if candidate == nil || !candidate.CombinesWithOtherPromotions {
		return false
	}
	for _, item := range existing {
		if !item.CombinesWithOtherPromotions {
			return false
		}
	}
	return true
}
