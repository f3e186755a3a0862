package service

import (
	"context"
	"errors"

	"github.com/dujiao-next/checkout/internal/constants"
	"github.com/dujiao-next/checkout/internal/logger"
	"github.com/dujiao-next/checkout/internal/models"

	"gorm.io/gorm"
)

// ApplyPromotionCode 应用优惠码；重复应用同一优惠码不产生新记录。
// 折扣金额在应用时按当前购物车计算并固定，之后增减订单行不会重算（免运费除外，始终跟随运费）；
// 需要按新购物车计算时先移除再重新应用。
func (s *OrderService) ApplyPromotionCode(ctx context.Context, orderID uint, code string, customerID uint) (*models.Order, error) {
	return s.mutate(ctx, orderID, func(tx *gorm.DB, order *models.Order) error {
		return s.applyPromotionCodeTx(tx, order, code, customerID)
	})
}

// RemovePromotion 移除订单上的促销
func (s *OrderService) RemovePromotion(ctx context.Context, orderID, promotionID uint) (*models.Order, error) {
	return s.mutate(ctx, orderID, func(tx *gorm.DB, order *models.Order) error {
		affected, err := s.orderPromotionRepo.WithTx(tx).Delete(order.ID, promotionID)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrPromotionNotApplied
		}
		return nil
	})
}

// RemoveAllPromotions 移除订单上的全部促销
func (s *OrderService) RemoveAllPromotions(ctx context.Context, orderID uint) (*models.Order, error) {
	return s.mutate(ctx, orderID, func(tx *gorm.DB, order *models.Order) error {
		_, err := s.orderPromotionRepo.WithTx(tx).DeleteByOrder(order.ID)
		return err
	})
}

func (s *OrderService) applyPromotionCodeTx(tx *gorm.DB, order *models.Order, code string, customerID uint) error {
	if customerID == 0 && order.CustomerID != nil {
		customerID = *order.CustomerID
	}
	engine := s.promotionEngine.WithTx(tx)
	// 订单行可能刚变更，按当前订单行计算门槛
	working := withLineSubtotal(order)

	promotion, err := engine.ValidateCode(code, working.Subtotal, PromotionContext{
		CustomerID:           customerID,
		ExistingPromotionIDs: appliedPromotionIDs(order),
	})
	if err != nil {
		return err
	}
	for _, item := range order.Promotions {
		if item.PromotionID == promotion.ID {
			return nil
		}
	}
	application, err := engine.ComputeApplication(promotion, working)
	if err != nil {
		return err
	}
	return s.orderPromotionRepo.WithTx(tx).Upsert(&models.OrderPromotion{
		OrderID:        order.ID,
		PromotionID:    promotion.ID,
		DiscountAmount: application.Amount,
		Type:           application.Type,
	})
}

// ReconcileAutomaticPromotions 按当前订单内容增删自动促销，优惠码促销保持不变
func (s *OrderService) ReconcileAutomaticPromotions(tx *gorm.DB, order *models.Order) error {
	engine := s.promotionEngine.WithTx(tx)
	orderPromotionRepo := s.orderPromotionRepo.WithTx(tx)

	active, err := engine.ListActiveAutomatic()
	if err != nil {
		return err
	}
	activeByID := make(map[uint]*models.Promotion, len(active))
	for i := range active {
		activeByID[active[i].ID] = &active[i]
	}

	working := withLineSubtotal(order)
	var customerID uint
	if order.CustomerID != nil {
		customerID = *order.CustomerID
	}
	currentIDs := appliedPromotionIDs(order)

	drop := func(promotionID uint, reason string) error {
		if _, err := orderPromotionRepo.Delete(order.ID, promotionID); err != nil {
			return err
		}
		currentIDs = removeID(currentIDs, promotionID)
		logger.Debugw("order_automatic_promotion_removed",
			"order_id", order.ID,
			"promotion_id", promotionID,
			"reason", reason,
		)
		return nil
	}

	for _, item := range order.Promotions {
		if item.Promotion == nil || item.Promotion.Method != constants.PromotionMethodAutomatic {
			continue
		}
		promotion, ok := activeByID[item.PromotionID]
		if !ok {
			if err := drop(item.PromotionID, "inactive"); err != nil {
				return err
			}
			continue
		}
		application, err := s.evaluateAutomatic(engine, promotion, working, customerID, currentIDs)
		if err != nil {
			var promoErr *PromotionError
			if errors.As(err, &promoErr) {
				if err := drop(item.PromotionID, string(promoErr.Reason)); err != nil {
					return err
				}
				continue
			}
			return err
		}
		if application.Amount <= 0 {
			if err := drop(item.PromotionID, "zero_discount"); err != nil {
				return err
			}
			continue
		}
		if application.Amount != item.DiscountAmount || application.Type != item.Type {
			if err := orderPromotionRepo.Upsert(&models.OrderPromotion{
				OrderID:        order.ID,
				PromotionID:    item.PromotionID,
				DiscountAmount: application.Amount,
				Type:           application.Type,
			}); err != nil {
				return err
			}
		}
	}

	for i := range active {
		promotion := &active[i]
		if containsID(currentIDs, promotion.ID) {
			continue
		}
		application, err := s.evaluateAutomatic(engine, promotion, working, customerID, currentIDs)
		if err != nil {
			var promoErr *PromotionError
			if errors.As(err, &promoErr) {
				continue
			}
			return err
		}
		if application.Amount <= 0 {
			continue
		}
		if err := orderPromotionRepo.Upsert(&models.OrderPromotion{
			OrderID:        order.ID,
			PromotionID:    promotion.ID,
			DiscountAmount: application.Amount,
			Type:           application.Type,
		}); err != nil {
			return err
		}
		currentIDs = append(currentIDs, promotion.ID)
		logger.Debugw("order_automatic_promotion_added",
			"order_id", order.ID,
			"promotion_id", promotion.ID,
			"discount_amount", application.Amount,
		)
	}
	return nil
}

func (s *OrderService) evaluateAutomatic(engine *PromotionEngine, promotion *models.Promotion, order *models.Order, customerID uint, currentIDs []uint) (PromotionApplication, error) {
	if err := engine.ValidateAutomatic(promotion, order.Subtotal, PromotionContext{
		CustomerID:           customerID,
		ExistingPromotionIDs: currentIDs,
	}); err != nil {
		return PromotionApplication{}, err
	}
	return engine.ComputeApplication(promotion, order)
}

// withLineSubtotal 返回以当前订单行合计为小计的副本
func withLineSubtotal(order *models.Order) *models.Order {
	working := *order
	sums := sumLines(order.Lines)
	working.Subtotal = sums.Gross
	working.SubtotalNet = sums.Net
	working.TaxTotal = sums.Tax
	return &working
}

func appliedPromotionIDs(order *models.Order) []uint {
	ids := make([]uint, 0, len(order.Promotions))
	for _, item := range order.Promotions {
		ids = append(ids, item.PromotionID)
	}
	return ids
}

func containsID(ids []uint, id uint) bool {
	for _, item := range ids {
		if item == id {
			return true
		}
	}
	return false
}

func removeID(ids []uint, id uint) []uint {
	out := ids[:0]
	for _, item := range ids {
		if item != id {
			out = append(out, item)
		}
	}
	return out
}
