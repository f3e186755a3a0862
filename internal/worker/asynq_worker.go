package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dujiao-next/checkout/internal/logger"
	"github.com/dujiao-next/checkout/internal/provider"
	"github.com/dujiao-next/checkout/internal/queue"
	"github.com/dujiao-next/checkout/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOrderPaymentTimeout, c.handleOrderPaymentTimeout)
	mux.HandleFunc(queue.TaskReservationCleanup, c.handleReservationCleanup)
}

func (c *Consumer) handleOrderPaymentTimeout(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_payment_timeout_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderPaymentTimeoutPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_payment_timeout_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_order_payment_timeout_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.PaymentService == nil {
		logger.Warnw("worker_order_payment_timeout_skip_payment_service_nil", "order_id", payload.OrderID)
		return nil
	}
	cancelled, err := c.PaymentService.CancelUnpaid(payload.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			logger.Debugw("worker_order_payment_timeout_skip_order_not_found", "order_id", payload.OrderID)
			return nil
		case errors.Is(err, service.ErrInvalidTransition):
			logger.Debugw("worker_order_payment_timeout_skip_invalid_state", "order_id", payload.OrderID)
			return nil
		default:
			logger.Warnw("worker_order_payment_timeout_failed", "order_id", payload.OrderID, "error", err)
			return err
		}
	}
	if !cancelled {
		logger.Debugw("worker_order_payment_timeout_skip_settled", "order_id", payload.OrderID)
	}
	return nil
}

func (c *Consumer) handleReservationCleanup(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_reservation_cleanup_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.ReservationCleanupPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			logger.Warnw("worker_reservation_cleanup_unmarshal_failed", "error", err)
			return err
		}
	}
	if c.ReservationCleanupService == nil {
		logger.Warnw("worker_reservation_cleanup_skip_service_nil")
		return nil
	}
	result, err := c.ReservationCleanupService.Run(ctx)
	if err != nil {
		logger.Warnw("worker_reservation_cleanup_failed", "trigger", payload.Trigger, "error", err)
		return err
	}
	logger.Debugw("worker_reservation_cleanup_done",
		"trigger", payload.Trigger,
		"skipped", result.Skipped,
		"deleted", result.Deleted,
	)
	return nil
}
