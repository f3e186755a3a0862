package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/dujiao-next/checkout/internal/constants"
	"github.com/dujiao-next/checkout/internal/logger"
	"github.com/dujiao-next/checkout/internal/metrics"
	"github.com/dujiao-next/checkout/internal/models"
	"github.com/dujiao-next/checkout/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderService 订单（购物车）聚合服务：订单行、促销、运费与总额
type OrderService struct {
	orderRepo          repository.OrderRepository
	lineRepo           repository.OrderLineRepository
	orderPromotionRepo repository.OrderPromotionRepository
	customerRepo       repository.CustomerRepository
	ledger             *ReservationLedger
	stateMachine       *OrderStateMachine
	promotionEngine    *PromotionEngine
	taxRateService     *TaxRateService
	shipping           ShippingProvider
	metrics            *metrics.Collector
	currency           string
}

// OrderServiceOptions 订单服务依赖
type OrderServiceOptions struct {
	OrderRepo          repository.OrderRepository
	LineRepo           repository.OrderLineRepository
	OrderPromotionRepo repository.OrderPromotionRepository
	CustomerRepo       repository.CustomerRepository
	Ledger             *ReservationLedger
	StateMachine       *OrderStateMachine
	PromotionEngine    *PromotionEngine
	TaxRateService     *TaxRateService
	Shipping           ShippingProvider
	Metrics            *metrics.Collector
	Currency           string
}

// NewOrderService 创建订单服务
func NewOrderService(opts OrderServiceOptions) *OrderService {
	currency := strings.ToUpper(strings.TrimSpace(opts.Currency))
	if currency == "" {
		currency = constants.CurrencyDefault
	}
	return &OrderService{
		orderRepo:          opts.OrderRepo,
		lineRepo:           opts.LineRepo,
		orderPromotionRepo: opts.OrderPromotionRepo,
		customerRepo:       opts.CustomerRepo,
		ledger:             opts.Ledger,
		stateMachine:       opts.StateMachine,
		promotionEngine:    opts.PromotionEngine,
		taxRateService:     opts.TaxRateService,
		shipping:           opts.Shipping,
		metrics:            opts.Metrics,
		currency:           currency,
	}
}

// WithClock 替换预占、状态机与促销引擎使用的时钟
func (s *OrderService) WithClock(now func() time.Time) *OrderService {
	if now == nil {
		return s
	}
	clone := *s
	clone.ledger = s.ledger.WithClock(now)
	clone.stateMachine = s.stateMachine.WithClock(now)
	clone.promotionEngine = s.promotionEngine.WithClock(now)
	return &clone
}

// LineUpdateResult 订单行数量更新结果；数量 ≤0 时订单行被删除，Removed 为 true
type LineUpdateResult struct {
	Order   *models.Order
	Removed bool
}

// CreateCart 创建购物车；顾客已有购物车时直接返回，游客生成访问令牌
func (s *OrderService) CreateCart(customerID uint) (*models.Order, error) {
	if customerID != 0 {
		existing, err := s.orderRepo.GetActiveByCustomer(customerID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}
	order := &models.Order{
		OrderNo:  generateOrderNo(),
		State:    constants.OrderStateCreated,
		Active:   true,
		Currency: s.currency,
	}
	if customerID != 0 {
		order.CustomerID = &customerID
		email, exempt, err := s.customerSnapshot(s.customerRepo, customerID)
		if err != nil {
			return nil, err
		}
		order.CustomerEmail = email
		order.IsTaxExempt = exempt
	} else {
		token := uuid.NewString()
		order.GuestToken = &token
	}
	if err := s.orderRepo.Create(order); err != nil {
		return nil, err
	}
	logger.Debugw("order_cart_created",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"customer_id", customerID,
	)
	return s.orderRepo.GetByID(order.ID)
}

// GetActiveCart 获取顾客或游客的当前购物车；顾客没有购物车时自动创建
func (s *OrderService) GetActiveCart(customerID uint, guestToken string) (*models.Order, error) {
	if customerID != 0 {
		return s.CreateCart(customerID)
	}
	token := strings.TrimSpace(guestToken)
	if token == "" {
		return nil, ErrGuestTokenRequired
	}
	order, err := s.orderRepo.GetActiveByGuestToken(token)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// GetOrder 获取订单详情
func (s *OrderService) GetOrder(orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListCustomerOrders 分页获取顾客订单
func (s *OrderService) ListCustomerOrders(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.ListByCustomer(filter)
}

// ListOrderPromotions 获取订单已应用促销
func (s *OrderService) ListOrderPromotions(orderID uint) ([]models.OrderPromotion, error) {
	if _, err := s.GetOrder(orderID); err != nil {
		return nil, err
	}
	return s.orderPromotionRepo.ListByOrder(orderID)
}

// CheckAccess 校验调用方是否有权访问订单
func (s *OrderService) CheckAccess(order *models.Order, customerID uint, guestToken string) error {
	if order == nil {
		return ErrOrderNotFound
	}
	if order.CustomerID != nil {
		if customerID != 0 && *order.CustomerID == customerID {
			return nil
		}
		return ErrCartAccessDenied
	}
	token := strings.TrimSpace(guestToken)
	if order.GuestToken != nil && token != "" && *order.GuestToken == token {
		return nil
	}
	return ErrCartAccessDenied
}

// SetShippingMethod 选择配送方式并记录原始运费
func (s *OrderService) SetShippingMethod(ctx context.Context, orderID uint, method string) (*models.Order, error) {
	method = strings.TrimSpace(method)
	if method == "" || s.shipping == nil {
		return nil, ErrShippingMethodInvalid
	}
	return s.mutate(ctx, orderID, func(tx *gorm.DB, order *models.Order) error {
		price, err := s.shipping.Price(ctx, order, method)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrShippingMethodInvalid, err)
		}
		return s.orderRepo.WithTx(tx).UpdateFields(order.ID, map[string]interface{}{
			"shipping_method": method,
			"shipping_charge": price,
		})
	})
}

// SetShippingAddress 保存收货地址快照
func (s *OrderService) SetShippingAddress(ctx context.Context, orderID uint, address models.JSON) (*models.Order, error) {
	return s.mutate(ctx, orderID, func(tx *gorm.DB, order *models.Order) error {
		return s.orderRepo.WithTx(tx).UpdateFields(order.ID, map[string]interface{}{
			"shipping_address": address,
		})
	})
}

// SetCustomerEmail 保存顾客邮箱快照
func (s *OrderService) SetCustomerEmail(ctx context.Context, orderID uint, email string) (*models.Order, error) {
	parsed, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEmail, err)
	}
	return s.mutate(ctx, orderID, func(tx *gorm.DB, order *models.Order) error {
		return s.orderRepo.WithTx(tx).UpdateFields(order.ID, map[string]interface{}{
			"customer_email": strings.ToLower(parsed.Address),
		})
	})
}

// TransitionState 执行订单状态流转
func (s *OrderService) TransitionState(orderID uint, target constants.OrderState) (*models.Order, error) {
	return s.stateMachine.Transition(orderID, target)
}

// mutate 加锁校验可修改后执行变更，并在同一事务内重算总额
func (s *OrderService) mutate(ctx context.Context, orderID uint, fn func(tx *gorm.DB, order *models.Order) error) (*models.Order, error) {
	var result *models.Order
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		order, err := s.lockModifiable(tx, orderID)
		if err != nil {
			return err
		}
		if err := fn(tx, order); err != nil {
			return err
		}
		result, err = s.recalculateTx(ctx, tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *OrderService) lockModifiable(tx *gorm.DB, orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.WithTx(tx).GetByIDForUpdate(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if !order.Active || !IsModifiableState(order.State) {
		return nil, ErrOrderNotModifiable
	}
	return order, nil
}

func (s *OrderService) customerSnapshot(repo repository.CustomerRepository, customerID uint) (string, bool, error) {
	if customerID == 0 || repo == nil {
		return "", false, nil
	}
	customer, err := repo.GetByID(customerID)
	if err != nil {
		return "", false, err
	}
	if customer == nil {
		return "", false, nil
	}
	return strings.TrimSpace(customer.Email), IsTaxExempt(customer), nil
}

func (s *OrderService) resolveExempt(tx *gorm.DB, order *models.Order) (bool, error) {
	if order == nil || order.CustomerID == nil {
		return false, nil
	}
	_, exempt, err := s.customerSnapshot(s.customerRepo.WithTx(tx), *order.CustomerID)
	return exempt, err
}

func generateOrderNo() string {
	now := time.Now().Format("20060102150405")
	return fmt.Sprintf("CK%s%s", now, randNumeric(6))
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(n.String())
	}
	return b.String()
}
