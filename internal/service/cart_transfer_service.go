package service

import (
	"context"
	"errors"
	"strings"

	"github.com/dujiao-next/checkout/internal/constants"
	"github.com/dujiao-next/checkout/internal/logger"
	"github.com/dujiao-next/checkout/internal/models"

	"gorm.io/gorm"
)

// errNothingToMerge 游客购物车不存在或已被转移
var errNothingToMerge = errors.New("nothing to merge")

// CartTransferService 登录时将游客购物车转移或合并到顾客购物车
type CartTransferService struct {
	orders *OrderService
}

// NewCartTransferService 创建购物车转移服务
func NewCartTransferService(orders *OrderService) *CartTransferService {
	return &CartTransferService{orders: orders}
}

// TransferGuestCart 顾客无购物车时直接认领游客购物车，否则逐行合并后取消游客购物车。
// 合并失败视为没有可合并的游客购物车，返回顾客当前购物车。
func (s *CartTransferService) TransferGuestCart(ctx context.Context, guestToken string, customerID uint) (*models.Order, error) {
	token := strings.TrimSpace(guestToken)
	if customerID == 0 {
		return nil, ErrCartAccessDenied
	}
	if token == "" {
		return s.orders.GetActiveCart(customerID, "")
	}

	var (
		result     *models.Order
		transition *TransitionResult
	)
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		result, transition, err = s.transferTx(ctx, tx, token, customerID)
		return err
	})
	if err != nil {
		if !errors.Is(err, errNothingToMerge) {
			logger.Warnw("cart_transfer_failed",
				"customer_id", customerID,
				"error", err,
			)
		}
		return s.orders.GetActiveCart(customerID, "")
	}
	s.orders.stateMachine.AfterCommit(transition)
	return result, nil
}

func (s *CartTransferService) transferTx(ctx context.Context, tx *gorm.DB, token string, customerID uint) (*models.Order, *TransitionResult, error) {
	orderRepo := s.orders.orderRepo.WithTx(tx)
	guest, err := orderRepo.GetActiveByGuestToken(token)
	if err != nil {
		return nil, nil, err
	}
	if guest == nil {
		return nil, nil, errNothingToMerge
	}
	guest, err = s.orders.lockModifiable(tx, guest.ID)
	if err != nil {
		return nil, nil, errNothingToMerge
	}

	target, err := orderRepo.GetActiveByCustomer(customerID)
	if err != nil {
		return nil, nil, err
	}
	if target == nil {
		email, _, err := s.orders.customerSnapshot(s.orders.customerRepo.WithTx(tx), customerID)
		if err != nil {
			return nil, nil, err
		}
		if err := orderRepo.UpdateFields(guest.ID, map[string]interface{}{
			"customer_id":    customerID,
			"guest_token":    nil,
			"customer_email": email,
		}); err != nil {
			return nil, nil, err
		}
		logger.Infow("cart_transfer_reowned", "order_id", guest.ID, "customer_id", customerID)
		order, err := s.orders.recalculateTx(ctx, tx, guest.ID)
		return order, nil, err
	}

	target, err = s.orders.lockModifiable(tx, target.ID)
	if err != nil {
		return nil, nil, err
	}
	// 先释放游客预占，合并时不与自身预占冲突
	if _, err := s.orders.ledger.WithTx(tx).ReleaseForOrder(guest.ID); err != nil {
		return nil, nil, err
	}
	for _, line := range guest.Lines {
		if err := s.orders.addLineTx(ctx, tx, target, line.VariantID, line.Quantity); err != nil {
			if errors.Is(err, ErrInsufficientStock) || errors.Is(err, ErrVariantNotFound) {
				logger.Warnw("cart_transfer_line_skipped",
					"guest_order_id", guest.ID,
					"order_id", target.ID,
					"variant_id", line.VariantID,
					"quantity", line.Quantity,
					"error", err,
				)
				continue
			}
			return nil, nil, err
		}
	}

	merged, err := s.orders.recalculateTx(ctx, tx, target.ID)
	if err != nil {
		return nil, nil, err
	}
	for _, item := range guest.Promotions {
		if item.Promotion == nil || item.Promotion.Method != constants.PromotionMethodCode || item.Promotion.Code == nil {
			continue
		}
		// 每个优惠码在保存点内尝试，失败不影响合并结果
		err := tx.Transaction(func(inner *gorm.DB) error {
			return s.orders.applyPromotionCodeTx(inner, merged, *item.Promotion.Code, customerID)
		})
		if err != nil {
			var promoErr *PromotionError
			if !errors.As(err, &promoErr) {
				return nil, nil, err
			}
			logger.Debugw("cart_transfer_promotion_skipped",
				"order_id", target.ID,
				"promotion_id", item.PromotionID,
				"reason", promoErr.Reason,
			)
			continue
		}
		if merged, err = s.orders.orderRepo.WithTx(tx).GetByID(target.ID); err != nil {
			return nil, nil, err
		}
	}
	if merged, err = s.orders.recalculateTx(ctx, tx, target.ID); err != nil {
		return nil, nil, err
	}

	transition, err := s.orders.stateMachine.TransitionTx(tx, guest.ID, constants.OrderStateCancelled)
	if err != nil {
		return nil, nil, err
	}
	if err := orderRepo.UpdateFields(guest.ID, map[string]interface{}{"guest_token": nil}); err != nil {
		return nil, nil, err
	}
	logger.Infow("cart_transfer_merged",
		"guest_order_id", guest.ID,
		"order_id", target.ID,
		"customer_id", customerID,
	)
	return merged, transition, nil
}
