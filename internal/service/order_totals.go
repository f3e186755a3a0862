package service

import (
	"context"
	"errors"

	"github.com/dujiao-next/checkout/internal/constants"
	"github.com/dujiao-next/checkout/internal/models"

	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// LineSums 订单行金额合计
type LineSums struct {
	Gross int64
	Net   int64
	Tax   int64
}

func sumLines(lines []models.OrderLine) LineSums {
	var sums LineSums
	for _, line := range lines {
		sums.Gross += line.LineTotal
		sums.Net += line.LineTotalNet
		sums.Tax += line.TaxAmount
	}
	return sums
}

// RecalculateTotals 重算订单总额；多次调用结果一致
func (s *OrderService) RecalculateTotals(ctx context.Context, orderID uint) (*models.Order, error) {
	var result *models.Order
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		order, err := s.orderRepo.WithTx(tx).GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		result, err = s.recalculateTx(ctx, tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// recalculateTx 两阶段重算：先调和自动促销，再计算并持久化总额
func (s *OrderService) recalculateTx(_ context.Context, tx *gorm.DB, orderID uint) (*models.Order, error) {
	orderRepo := s.orderRepo.WithTx(tx)
	order, err := orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Active && IsModifiableState(order.State) {
		if err := s.syncTaxExemption(tx, order); err != nil {
			return nil, err
		}
		if err := s.ReconcileAutomaticPromotions(tx, order); err != nil {
			return nil, err
		}
		if order, err = orderRepo.GetByID(orderID); err != nil {
			return nil, err
		}
	}
	if err := s.ComputeTotals(tx, order); err != nil {
		return nil, err
	}
	return orderRepo.GetByID(orderID)
}

// syncTaxExemption 顾客免税资格变化后按新资格重算订单行
func (s *OrderService) syncTaxExemption(tx *gorm.DB, order *models.Order) error {
	exempt, err := s.resolveExempt(tx, order)
	if err != nil {
		return err
	}
	if exempt == order.IsTaxExempt {
		return nil
	}
	lineRepo := s.lineRepo.WithTx(tx)
	ledger := s.ledger.WithTx(tx)
	for i := range order.Lines {
		line := &order.Lines[i]
		variant, err := ledger.Variant(line.VariantID)
		if err != nil {
			return err
		}
		if variant == nil {
			continue
		}
		applyLineTax(line, CalculateLineTax(variant.Price, line.Quantity, line.TaxRate, exempt))
		if err := lineRepo.Update(line); err != nil {
			return err
		}
	}
	order.IsTaxExempt = exempt
	return s.orderRepo.WithTx(tx).UpdateFields(order.ID, map[string]interface{}{
		"is_tax_exempt": exempt,
	})
}

// ComputeTotals 汇总订单行与促销，同步免运费促销金额并持久化全部金额字段
func (s *OrderService) ComputeTotals(tx *gorm.DB, order *models.Order) error {
	sums := sumLines(order.Lines)
	orderPromotionRepo := s.orderPromotionRepo.WithTx(tx)

	var itemDiscount, shippingDiscount int64
	rawShipping := order.ShippingCharge
	shippingSynced := false
	for i := range order.Promotions {
		item := &order.Promotions[i]
		if item.Type != constants.OrderPromotionTypeShipping {
			itemDiscount += item.DiscountAmount
			continue
		}
		// 多个免运费促销时仅第一个生效
		target := int64(0)
		if !shippingSynced {
			target = rawShipping
			shippingSynced = true
		}
		if item.DiscountAmount != target && IsModifiableState(order.State) {
			if err := orderPromotionRepo.UpdateDiscount(item.ID, target); err != nil {
				return err
			}
			item.DiscountAmount = target
		}
		shippingDiscount += item.DiscountAmount
	}

	effectiveShipping := maxInt64(0, rawShipping-shippingDiscount)
	total := maxInt64(0, sums.Gross-itemDiscount+effectiveShipping)
	exempt := order.IsTaxExempt
	taxTotal := sums.Tax
	totalNet := maxInt64(0, sums.Net-itemDiscount+effectiveShipping)
	if exempt {
		taxTotal = 0
		totalNet = total
	}

	return s.orderRepo.WithTx(tx).UpdateFields(order.ID, map[string]interface{}{
		"subtotal":      sums.Gross,
		"subtotal_net":  sums.Net,
		"tax_total":     taxTotal,
		"discount":      itemDiscount + shippingDiscount,
		"shipping":      effectiveShipping,
		"total":         total,
		"total_net":     totalNet,
		"is_tax_exempt": exempt,
	})
}

// ValidateStock 逐行复核库存，返回汇总全部短缺行的错误（multierr）
func (s *OrderService) ValidateStock(orderID uint) error {
	order, err := s.GetOrder(orderID)
	if err != nil {
		return err
	}
	var result error
	for _, line := range order.Lines {
		available, err := s.ledger.AvailableStock(line.VariantID, order.ID)
		if err != nil {
			if errors.Is(err, ErrVariantNotFound) {
				result = multierr.Append(result, &InsufficientStockError{
					VariantID: line.VariantID,
					SKU:       line.SKU,
					Requested: line.Quantity,
				})
				continue
			}
			return err
		}
		if line.Quantity > available {
			result = multierr.Append(result, &InsufficientStockError{
				VariantID: line.VariantID,
				SKU:       line.SKU,
				Requested: line.Quantity,
				Available: nonNegative(available),
			})
		}
	}
	return result
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
