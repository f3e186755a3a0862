package service

import (
	"errors"
	"sort"
	"time"

	"github.com/dujiao-next/checkout/internal/constants"
	"github.com/dujiao-next/checkout/internal/logger"
	"github.com/dujiao-next/checkout/internal/metrics"
	"github.com/dujiao-next/checkout/internal/models"
	"github.com/dujiao-next/checkout/internal/queue"
	"github.com/dujiao-next/checkout/internal/repository"

	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// DefaultPaymentExtension 进入待支付后预占延长时长
const DefaultPaymentExtension = 60 * time.Minute

var allowedTransitions = map[constants.OrderState][]constants.OrderState{
	constants.OrderStateCreated:        {constants.OrderStatePaymentPending, constants.OrderStateCancelled},
	constants.OrderStatePaymentPending: {constants.OrderStatePaid, constants.OrderStateCancelled},
	constants.OrderStatePaid:           {constants.OrderStateShipped, constants.OrderStateCancelled},
	constants.OrderStateShipped:        {constants.OrderStateDelivered},
	constants.OrderStateDelivered:      {},
	constants.OrderStateCancelled:      {},
}

// IsModifiableState 仅 created 状态可修改订单行与促销
func IsModifiableState(state constants.OrderState) bool {
	return state == constants.OrderStateCreated
}

// AllowedTransitions 返回状态的合法后继，终态返回空切片
func AllowedTransitions(state constants.OrderState) []constants.OrderState {
	targets := allowedTransitions[state]
	out := make([]constants.OrderState, len(targets))
	copy(out, targets)
	return out
}

// CanTransition 判断状态流转是否合法
func CanTransition(from, to constants.OrderState) bool {
	for _, target := range allowedTransitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// TransitionResult 状态流转结果
type TransitionResult struct {
	Order                *models.Order
	From                 constants.OrderState
	To                   constants.OrderState
	ReleasedReservations int64
}

// OrderStateMachine 订单状态机，负责流转校验与库存、促销用量等副作用
type OrderStateMachine struct {
	orderRepo        repository.OrderRepository
	variantRepo      repository.ProductVariantRepository
	promotionRepo    repository.PromotionRepository
	ledger           *ReservationLedger
	queueClient      *queue.Client
	metrics          *metrics.Collector
	paymentExtension time.Duration
	now              func() time.Time
}

// OrderStateMachineOptions 状态机依赖
type OrderStateMachineOptions struct {
	OrderRepo        repository.OrderRepository
	VariantRepo      repository.ProductVariantRepository
	PromotionRepo    repository.PromotionRepository
	Ledger           *ReservationLedger
	QueueClient      *queue.Client
	Metrics          *metrics.Collector
	PaymentExtension time.Duration
}

// NewOrderStateMachine 创建订单状态机
func NewOrderStateMachine(opts OrderStateMachineOptions) *OrderStateMachine {
	extension := opts.PaymentExtension
	if extension <= 0 {
		extension = DefaultPaymentExtension
	}
	return &OrderStateMachine{
		orderRepo:        opts.OrderRepo,
		variantRepo:      opts.VariantRepo,
		promotionRepo:    opts.PromotionRepo,
		ledger:           opts.Ledger,
		queueClient:      opts.QueueClient,
		metrics:          opts.Metrics,
		paymentExtension: extension,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// WithClock 替换时钟（同时作用于预占账本）
func (m *OrderStateMachine) WithClock(now func() time.Time) *OrderStateMachine {
	if now == nil {
		return m
	}
	clone := *m
	clone.now = now
	clone.ledger = m.ledger.WithClock(now)
	return &clone
}

// Transition 在独立事务内执行状态流转，提交后触发异步副作用
func (m *OrderStateMachine) Transition(orderID uint, target constants.OrderState) (*models.Order, error) {
	var result *TransitionResult
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = m.TransitionTx(tx, orderID, target)
		return err
	})
	if err != nil {
		m.observeFailure(err, target)
		return nil, err
	}
	m.AfterCommit(result)
	return result.Order, nil
}

// TransitionTx 在调用方事务内执行状态流转；校验失败时不产生任何写入
func (m *OrderStateMachine) TransitionTx(tx *gorm.DB, orderID uint, target constants.OrderState) (*TransitionResult, error) {
	orderRepo := m.orderRepo.WithTx(tx)
	ledger := m.ledger.WithTx(tx)

	order, err := orderRepo.GetByIDForUpdate(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	from := order.State
	if !CanTransition(from, target) {
		return nil, &InvalidTransitionError{From: from, To: target}
	}

	now := m.now()
	updates := map[string]interface{}{
		"active":     false,
		"updated_at": now,
	}
	result := &TransitionResult{From: from, To: target}

	switch target {
	case constants.OrderStatePaymentPending:
		if len(order.Lines) == 0 {
			return nil, ErrOrderEmpty
		}
		if order.OrderPlacedAt == nil {
			updates["order_placed_at"] = now
		}
		if err := m.holdForPayment(ledger, order); err != nil {
			return nil, err
		}
	case constants.OrderStatePaid:
		released, err := m.finalizePaid(tx, ledger, order)
		if err != nil {
			return nil, err
		}
		result.ReleasedReservations = released
		updates["paid_at"] = now
	case constants.OrderStateCancelled:
		if from == constants.OrderStatePaid || from == constants.OrderStateShipped {
			if err := m.restoreStock(tx, order); err != nil {
				return nil, err
			}
		}
		released, err := ledger.ReleaseForOrder(order.ID)
		if err != nil {
			return nil, err
		}
		result.ReleasedReservations = released
		updates["cancelled_at"] = now
	}

	ok, err := orderRepo.UpdateState(order.ID, from, target, updates)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrOrderUpdateFailed
	}
	updated, err := orderRepo.GetByID(order.ID)
	if err != nil {
		return nil, err
	}
	result.Order = updated
	return result, nil
}

// holdForPayment 复核库存并恢复已失效的预占，再统一延长到支付期限
func (m *OrderStateMachine) holdForPayment(ledger *ReservationLedger, order *models.Order) error {
	lines := make([]models.OrderLine, len(order.Lines))
	copy(lines, order.Lines)
	sort.Slice(lines, func(i, j int) bool { return lines[i].VariantID < lines[j].VariantID })

	var shortfalls error
	for _, line := range lines {
		_, available, err := ledger.LockAvailable(line.VariantID, order.ID)
		if err != nil {
			if errors.Is(err, ErrVariantNotFound) {
				shortfalls = multierr.Append(shortfalls, &InsufficientStockError{
					VariantID: line.VariantID,
					SKU:       line.SKU,
					Requested: line.Quantity,
				})
				continue
			}
			return err
		}
		if line.Quantity > available {
			shortfalls = multierr.Append(shortfalls, &InsufficientStockError{
				VariantID: line.VariantID,
				SKU:       line.SKU,
				Requested: line.Quantity,
				Available: available,
			})
		}
	}
	if shortfalls != nil {
		m.metrics.IncStockRejection("checkout")
		return shortfalls
	}

	active, err := ledger.ActiveLineIDs(order.ID)
	if err != nil {
		return err
	}
	for _, line := range lines {
		if active[line.ID] {
			continue
		}
		if err := ledger.Upsert(line.VariantID, order.ID, line.ID, line.Quantity); err != nil {
			return err
		}
	}
	_, err = ledger.ExtendForOrder(order.ID, m.paymentExtension)
	return err
}

// finalizePaid 复核库存后扣减实物库存、累加促销用量并释放预占
func (m *OrderStateMachine) finalizePaid(tx *gorm.DB, ledger *ReservationLedger, order *models.Order) (int64, error) {
	lines := make([]models.OrderLine, len(order.Lines))
	copy(lines, order.Lines)
	// 固定加锁顺序
	sort.Slice(lines, func(i, j int) bool { return lines[i].VariantID < lines[j].VariantID })

	variants := make(map[uint]*models.ProductVariant, len(lines))
	var shortfalls []*InsufficientStockError
	for _, line := range lines {
		variant, available, err := ledger.LockAvailable(line.VariantID, order.ID)
		if err != nil {
			if errors.Is(err, ErrVariantNotFound) {
				shortfalls = append(shortfalls, &InsufficientStockError{
					VariantID: line.VariantID,
					SKU:       line.SKU,
					Requested: line.Quantity,
				})
				continue
			}
			return 0, err
		}
		variants[line.VariantID] = variant
		if line.Quantity > available {
			shortfalls = append(shortfalls, &InsufficientStockError{
				VariantID: line.VariantID,
				SKU:       line.SKU,
				Requested: line.Quantity,
				Available: available,
			})
		}
	}
	if len(shortfalls) > 0 {
		m.metrics.IncStockRejection("payment")
		return 0, &StockUnavailableError{Lines: shortfalls}
	}

	if len(order.Promotions) > 0 {
		ids := make([]uint, 0, len(order.Promotions))
		for _, item := range order.Promotions {
			ids = append(ids, item.PromotionID)
		}
		if err := m.promotionRepo.WithTx(tx).IncrementUsage(ids); err != nil {
			return 0, err
		}
	}

	variantRepo := m.variantRepo.WithTx(tx)
	for _, line := range lines {
		if !variants[line.VariantID].TrackInventory {
			continue
		}
		affected, err := variantRepo.DeductStock(line.VariantID, line.Quantity)
		if err != nil {
			return 0, err
		}
		if affected == 0 {
			return 0, &StockUnavailableError{Lines: []*InsufficientStockError{{
				VariantID: line.VariantID,
				SKU:       line.SKU,
				Requested: line.Quantity,
				Available: variants[line.VariantID].Stock,
			}}}
		}
	}

	return ledger.ReleaseForOrder(order.ID)
}

// restoreStock 回补已扣减的库存，仅处理跟踪库存的规格
func (m *OrderStateMachine) restoreStock(tx *gorm.DB, order *models.Order) error {
	variantRepo := m.variantRepo.WithTx(tx)
	for _, line := range order.Lines {
		variant, err := variantRepo.GetByID(line.VariantID)
		if err != nil {
			return err
		}
		if variant == nil {
			logger.Warnw("order_cancel_restore_stock_variant_missing",
				"order_id", order.ID,
				"variant_id", line.VariantID,
				"quantity", line.Quantity,
			)
			continue
		}
		if !variant.TrackInventory {
			continue
		}
		if _, err := variantRepo.RestoreStock(line.VariantID, line.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// AfterCommit 事务提交后的指标与异步任务
func (m *OrderStateMachine) AfterCommit(result *TransitionResult) {
	if result == nil || result.Order == nil {
		return
	}
	m.metrics.ObserveTransition(string(result.From), string(result.To), true)
	m.metrics.AddReservationsReleased(string(result.To), result.ReleasedReservations)
	logger.Infow("order_state_transitioned",
		"order_id", result.Order.ID,
		"order_no", result.Order.OrderNo,
		"from", result.From,
		"to", result.To,
	)
	if result.To != constants.OrderStatePaymentPending {
		return
	}
	payload := queue.OrderPaymentTimeoutPayload{OrderID: result.Order.ID}
	if err := m.queueClient.EnqueueOrderPaymentTimeout(payload, m.paymentExtension); err != nil {
		logger.Warnw("order_enqueue_payment_timeout_failed",
			"order_id", result.Order.ID,
			"delay_seconds", int64(m.paymentExtension/time.Second),
			"error", err,
		)
	}
}

func (m *OrderStateMachine) observeFailure(err error, target constants.OrderState) {
	var transitionErr *InvalidTransitionError
	if errors.As(err, &transitionErr) {
		m.metrics.ObserveTransition(string(transitionErr.From), string(target), false)
		return
	}
	m.metrics.ObserveTransition("", string(target), false)
}
