package queue

import (
	"encoding/json"

	"github.com/dujiao-next/checkout/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskOrderPaymentTimeout 待支付超时取消任务
	TaskOrderPaymentTimeout = constants.TaskOrderPaymentTimeout
	// TaskReservationCleanup 过期预占清理任务
	TaskReservationCleanup = constants.TaskReservationCleanup
)

// OrderPaymentTimeoutPayload 待支付超时任务载荷
type OrderPaymentTimeoutPayload struct {
	OrderID uint `json:"order_id"`
}

// ReservationCleanupPayload 预占清理任务载荷
type ReservationCleanupPayload struct {
	Trigger string `json:"trigger"`
}

// NewOrderPaymentTimeoutTask 创建待支付超时任务
func NewOrderPaymentTimeoutTask(payload OrderPaymentTimeoutPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderPaymentTimeout, body), nil
}

// NewReservationCleanupTask 创建预占清理任务
func NewReservationCleanupTask(payload ReservationCleanupPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReservationCleanup, body), nil
}
