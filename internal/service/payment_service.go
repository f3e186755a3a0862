package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dujiao-next/checkout/internal/constants"
	"github.com/dujiao-next/checkout/internal/logger"
	"github.com/dujiao-next/checkout/internal/models"
	"github.com/dujiao-next/checkout/internal/payment"
	"github.com/dujiao-next/checkout/internal/repository"

	"gorm.io/gorm"
)

// ShippingProvider 配送报价接口
type ShippingProvider interface {
	Price(ctx context.Context, order *models.Order, method string) (int64, error)
}

// PaymentService 支付服务：发起支付、处理结算结果与退款
type PaymentService struct {
	orderRepo    repository.OrderRepository
	paymentRepo  repository.PaymentRepository
	stateMachine *OrderStateMachine
	provider     payment.Provider
	now          func() time.Time
}

// NewPaymentService 创建支付服务
func NewPaymentService(orderRepo repository.OrderRepository, paymentRepo repository.PaymentRepository, stateMachine *OrderStateMachine, provider payment.Provider) *PaymentService {
	return &PaymentService{
		orderRepo:    orderRepo,
		paymentRepo:  paymentRepo,
		stateMachine: stateMachine,
		provider:     provider,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// CreatePayment 下单：订单进入待支付并向支付渠道发起支付；待支付订单可重复发起，仅最新一次尝试有效
func (s *PaymentService) CreatePayment(ctx context.Context, orderID uint) (*models.Payment, error) {
	var (
		record     *models.Payment
		transition *TransitionResult
		order      *models.Order
	)
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		current, err := s.orderRepo.WithTx(tx).GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrOrderNotFound
		}
		switch current.State {
		case constants.OrderStateCreated:
			transition, err = s.stateMachine.TransitionTx(tx, orderID, constants.OrderStatePaymentPending)
			if err != nil {
				return err
			}
			order = transition.Order
		case constants.OrderStatePaymentPending:
			order = current
			// 重新发起时此前未结算的尝试记为失败
			superseded, err := s.paymentRepo.WithTx(tx).MarkPendingByOrder(order.ID, constants.PaymentStatusFailed)
			if err != nil {
				return err
			}
			if superseded > 0 {
				logger.Infow("payment_attempts_superseded", "order_id", order.ID, "count", superseded)
			}
		default:
			return &InvalidTransitionError{From: current.State, To: constants.OrderStatePaymentPending}
		}
		record = &models.Payment{
			OrderID:  order.ID,
			Provider: s.provider.Name(),
			Amount:   order.Total,
			Currency: order.Currency,
			Status:   constants.PaymentStatusPending,
		}
		return s.paymentRepo.WithTx(tx).Create(record)
	})
	if err != nil {
		return nil, err
	}
	s.stateMachine.AfterCommit(transition)

	ref, err := s.provider.Initiate(ctx, payment.Request{
		OrderID:  order.ID,
		OrderNo:  order.OrderNo,
		Amount:   record.Amount,
		Currency: record.Currency,
	})
	if err != nil {
		logger.Warnw("payment_initiate_failed",
			"order_id", order.ID,
			"payment_id", record.ID,
			"provider", record.Provider,
			"error", err,
		)
		record.Status = constants.PaymentStatusFailed
		if updateErr := s.paymentRepo.Update(record); updateErr != nil {
			logger.Errorw("payment_mark_failed_error", "payment_id", record.ID, "error", updateErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrPaymentProviderFailed, err)
	}
	record.TransactionRef = ref
	if err := s.paymentRepo.Update(record); err != nil {
		return nil, err
	}
	return record, nil
}

// HandleSettlement 处理渠道结算结果：completed 推进为已支付，failed 取消订单
func (s *PaymentService) HandleSettlement(ctx context.Context, paymentID uint, status constants.PaymentStatus) (*models.Payment, error) {
	switch status {
	case constants.PaymentStatusCompleted:
		return s.settleCompleted(paymentID)
	case constants.PaymentStatusFailed:
		return s.settleFailed(paymentID)
	case constants.PaymentStatusPending:
		return s.GetPayment(paymentID)
	default:
		return nil, ErrPaymentStatusInvalid
	}
}

func (s *PaymentService) settleCompleted(paymentID uint) (*models.Payment, error) {
	var (
		record     *models.Payment
		transition *TransitionResult
	)
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		paymentRepo := s.paymentRepo.WithTx(tx)
		current, err := paymentRepo.GetByIDForUpdate(paymentID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrPaymentNotFound
		}
		record = current
		if current.Status == constants.PaymentStatusCompleted {
			return nil
		}
		if current.Status != constants.PaymentStatusPending {
			return ErrPaymentStatusInvalid
		}
		transition, err = s.stateMachine.TransitionTx(tx, current.OrderID, constants.OrderStatePaid)
		if err != nil {
			return err
		}
		now := s.now()
		current.Status = constants.PaymentStatusCompleted
		current.SettledAt = &now
		return paymentRepo.Update(current)
	})
	if err != nil {
		if errors.Is(err, ErrStockUnavailableAtPayment) {
			s.markFailedAfterStockCheck(paymentID, err)
		}
		return nil, err
	}
	s.stateMachine.AfterCommit(transition)
	return record, nil
}

// markFailedAfterStockCheck 库存复核失败时支付记为失败，订单保持待支付
func (s *PaymentService) markFailedAfterStockCheck(paymentID uint, cause error) {
	logger.Warnw("payment_settle_stock_unavailable", "payment_id", paymentID, "error", cause)
	record, err := s.paymentRepo.GetByID(paymentID)
	if err != nil || record == nil || record.Status != constants.PaymentStatusPending {
		return
	}
	record.Status = constants.PaymentStatusFailed
	if err := s.paymentRepo.Update(record); err != nil {
		logger.Errorw("payment_mark_failed_error", "payment_id", paymentID, "error", err)
	}
}

func (s *PaymentService) settleFailed(paymentID uint) (*models.Payment, error) {
	var (
		record     *models.Payment
		transition *TransitionResult
	)
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		paymentRepo := s.paymentRepo.WithTx(tx)
		current, err := paymentRepo.GetByIDForUpdate(paymentID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrPaymentNotFound
		}
		record = current
		if current.Status == constants.PaymentStatusFailed {
			return nil
		}
		if current.Status != constants.PaymentStatusPending {
			return ErrPaymentStatusInvalid
		}
		current.Status = constants.PaymentStatusFailed
		if err := paymentRepo.Update(current); err != nil {
			return err
		}
		order, err := s.orderRepo.WithTx(tx).GetByIDForUpdate(current.OrderID)
		if err != nil {
			return err
		}
		if order == nil || order.State != constants.OrderStatePaymentPending {
			return nil
		}
		transition, err = s.stateMachine.TransitionTx(tx, order.ID, constants.OrderStateCancelled)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.stateMachine.AfterCommit(transition)
	return record, nil
}

// SyncStatus 主动向渠道查询结算状态
func (s *PaymentService) SyncStatus(ctx context.Context, paymentID uint) (*models.Payment, error) {
	record, err := s.GetPayment(paymentID)
	if err != nil {
		return nil, err
	}
	if record.Status != constants.PaymentStatusPending || record.TransactionRef == "" {
		return record, nil
	}
	status, err := s.provider.Status(ctx, record.TransactionRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentProviderFailed, err)
	}
	return s.HandleSettlement(ctx, paymentID, status)
}

// Refund 退款；累计退款不得超过支付金额，已支付订单全额退款后取消
func (s *PaymentService) Refund(ctx context.Context, paymentID uint, amount int64) (*models.Payment, error) {
	if amount <= 0 {
		return nil, ErrRefundAmountInvalid
	}
	var (
		record     *models.Payment
		transition *TransitionResult
	)
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		paymentRepo := s.paymentRepo.WithTx(tx)
		current, err := paymentRepo.GetByIDForUpdate(paymentID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrPaymentNotFound
		}
		if current.Status != constants.PaymentStatusCompleted {
			return ErrPaymentStatusInvalid
		}
		if current.RefundedAmount+amount > current.Amount {
			return ErrRefundExceedsPayment
		}
		if err := s.provider.Refund(ctx, current.TransactionRef, amount); err != nil {
			return fmt.Errorf("%w: %v", ErrPaymentProviderFailed, err)
		}
		current.RefundedAmount += amount
		if current.RefundedAmount == current.Amount {
			current.Status = constants.PaymentStatusRefunded
		}
		if err := paymentRepo.Update(current); err != nil {
			return err
		}
		record = current
		if current.Status != constants.PaymentStatusRefunded {
			return nil
		}
		order, err := s.orderRepo.WithTx(tx).GetByIDForUpdate(current.OrderID)
		if err != nil {
			return err
		}
		if order == nil || order.State != constants.OrderStatePaid {
			return nil
		}
		transition, err = s.stateMachine.TransitionTx(tx, order.ID, constants.OrderStateCancelled)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.stateMachine.AfterCommit(transition)
	return record, nil
}

// CancelUnpaid 待支付超时：取消订单并将未结算支付记为失败；订单已离开待支付时返回 false
func (s *PaymentService) CancelUnpaid(orderID uint) (bool, error) {
	var transition *TransitionResult
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		order, err := s.orderRepo.WithTx(tx).GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if order.State != constants.OrderStatePaymentPending {
			return nil
		}
		transition, err = s.stateMachine.TransitionTx(tx, orderID, constants.OrderStateCancelled)
		if err != nil {
			return err
		}
		_, err = s.paymentRepo.WithTx(tx).MarkPendingByOrder(orderID, constants.PaymentStatusFailed)
		return err
	})
	if err != nil {
		return false, err
	}
	if transition == nil {
		return false, nil
	}
	s.stateMachine.AfterCommit(transition)
	return true, nil
}

// GetPayment 获取支付记录
func (s *PaymentService) GetPayment(paymentID uint) (*models.Payment, error) {
	record, err := s.paymentRepo.GetByID(paymentID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrPaymentNotFound
	}
	return record, nil
}

// ListOrderPayments 获取订单支付记录
func (s *PaymentService) ListOrderPayments(orderID uint) ([]models.Payment, error) {
	return s.paymentRepo.ListByOrder(orderID)
}
