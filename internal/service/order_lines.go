package service

import (
	"context"

	"github.com/dujiao-next/checkout/internal/models"

	"gorm.io/gorm"
)

// AddLine 加购；同规格已存在时合并数量
func (s *OrderService) AddLine(ctx context.Context, orderID, variantID uint, quantity int) (*models.Order, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	return s.mutate(ctx, orderID, func(tx *gorm.DB, order *models.Order) error {
		return s.addLineTx(ctx, tx, order, variantID, quantity)
	})
}

// UpdateLineQuantity 修改订单行数量；quantity ≤0 时删除订单行
func (s *OrderService) UpdateLineQuantity(ctx context.Context, orderID, lineID uint, quantity int) (*LineUpdateResult, error) {
	removed := false
	order, err := s.mutate(ctx, orderID, func(tx *gorm.DB, order *models.Order) error {
		line, err := s.findLine(tx, order.ID, lineID)
		if err != nil {
			return err
		}
		if quantity <= 0 {
			removed = true
			return s.removeLineTx(tx, line)
		}
		return s.setLineQuantityTx(tx, order, line, quantity)
	})
	if err != nil {
		return nil, err
	}
	return &LineUpdateResult{Order: order, Removed: removed}, nil
}

// RemoveLine 删除订单行并释放预占
func (s *OrderService) RemoveLine(ctx context.Context, orderID, lineID uint) (*models.Order, error) {
	return s.mutate(ctx, orderID, func(tx *gorm.DB, order *models.Order) error {
		line, err := s.findLine(tx, order.ID, lineID)
		if err != nil {
			return err
		}
		return s.removeLineTx(tx, line)
	})
}

func (s *OrderService) addLineTx(ctx context.Context, tx *gorm.DB, order *models.Order, variantID uint, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	ledger := s.ledger.WithTx(tx)
	lineRepo := s.lineRepo.WithTx(tx)

	variant, available, err := ledger.LockAvailable(variantID, order.ID)
	if err != nil {
		return err
	}
	if !variant.Enabled || (variant.Product != nil && !variant.Product.Enabled) {
		return ErrVariantNotFound
	}
	existing, err := lineRepo.GetByOrderAndVariant(order.ID, variantID)
	if err != nil {
		return err
	}
	inCart := 0
	if existing != nil {
		inCart = existing.Quantity
	}
	merged := inCart + quantity
	if merged > available {
		s.metrics.IncStockRejection("add_line")
		return &InsufficientStockError{
			VariantID: variant.ID,
			SKU:       variant.SKU,
			Requested: merged,
			Available: nonNegative(available),
			InCart:    inCart,
		}
	}
	exempt, err := s.resolveExempt(tx, order)
	if err != nil {
		return err
	}

	if existing != nil {
		existing.Quantity = merged
		applyLineTax(existing, CalculateLineTax(variant.Price, merged, existing.TaxRate, exempt))
		if err := lineRepo.Update(existing); err != nil {
			return err
		}
		return ledger.Upsert(variant.ID, order.ID, existing.ID, merged)
	}

	rate, err := s.taxRateService.WithTx(tx).Resolve(ctx, variant.TaxCode)
	if err != nil {
		return err
	}
	line := &models.OrderLine{
		OrderID:     order.ID,
		VariantID:   variant.ID,
		ProductID:   variant.ProductID,
		VariantName: variant.Name,
		SKU:         variant.SKU,
		Quantity:    quantity,
		TaxCode:     rate.Code,
		TaxRate:     rate.Rate,
	}
	if variant.Product != nil {
		line.ProductName = variant.Product.Name
	}
	applyLineTax(line, CalculateLineTax(variant.Price, quantity, rate.Rate, exempt))
	if err := lineRepo.Create(line); err != nil {
		return err
	}
	_, err = ledger.Reserve(variant.ID, order.ID, line.ID, quantity)
	return err
}

func (s *OrderService) setLineQuantityTx(tx *gorm.DB, order *models.Order, line *models.OrderLine, quantity int) error {
	ledger := s.ledger.WithTx(tx)
	variant, available, err := ledger.LockAvailable(line.VariantID, order.ID)
	if err != nil {
		return err
	}
	if quantity > available {
		s.metrics.IncStockRejection("update_line")
		return &InsufficientStockError{
			VariantID: line.VariantID,
			SKU:       line.SKU,
			Requested: quantity,
			Available: nonNegative(available),
		}
	}
	exempt, err := s.resolveExempt(tx, order)
	if err != nil {
		return err
	}
	line.Quantity = quantity
	applyLineTax(line, CalculateLineTax(variant.Price, quantity, line.TaxRate, exempt))
	if err := s.lineRepo.WithTx(tx).Update(line); err != nil {
		return err
	}
	return ledger.Upsert(line.VariantID, order.ID, line.ID, quantity)
}

func (s *OrderService) removeLineTx(tx *gorm.DB, line *models.OrderLine) error {
	if err := s.ledger.WithTx(tx).Release(line.ID); err != nil {
		return err
	}
	return s.lineRepo.WithTx(tx).Delete(line.ID)
}

func (s *OrderService) findLine(tx *gorm.DB, orderID, lineID uint) (*models.OrderLine, error) {
	line, err := s.lineRepo.WithTx(tx).GetByID(lineID)
	if err != nil {
		return nil, err
	}
	if line == nil || line.OrderID != orderID {
		return nil, ErrLineNotFound
	}
	return line, nil
}

func nonNegative(value int) int {
	if value < 0 {
		return 0
	}
	return value
}
