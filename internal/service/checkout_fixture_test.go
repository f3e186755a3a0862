package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dujiao-next/checkout/internal/constants"
	"github.com/dujiao-next/checkout/internal/models"
	"github.com/dujiao-next/checkout/internal/payment/manual"
	"github.com/dujiao-next/checkout/internal/repository"
	"github.com/dujiao-next/checkout/internal/shipping"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

type checkoutFixture struct {
	db        *gorm.DB
	clock     *testClock
	ledger    *ReservationLedger
	orders    *OrderService
	transfers *CartTransferService
	payments  *PaymentService
	cleanup   *ReservationCleanupService
	provider  *manual.Provider
	ctx       context.Context
}

func setupCheckoutTest(t *testing.T) *checkoutFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:checkout_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	models.DB = db
	if err := models.AutoMigrate(); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	if err := models.InitDefaultTaxRates(); err != nil {
		t.Fatalf("init tax rates failed: %v", err)
	}

	clock := &testClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}

	orderRepo := repository.NewOrderRepository(db)
	variantRepo := repository.NewProductVariantRepository(db)
	promotionRepo := repository.NewPromotionRepository(db)
	customerRepo := repository.NewCustomerRepository(db)

	ledger := NewReservationLedger(repository.NewStockReservationRepository(db), variantRepo, 15*time.Minute).WithClock(clock.Now)
	machine := NewOrderStateMachine(OrderStateMachineOptions{
		OrderRepo:        orderRepo,
		VariantRepo:      variantRepo,
		PromotionRepo:    promotionRepo,
		Ledger:           ledger,
		PaymentExtension: time.Hour,
	}).WithClock(clock.Now)
	engine := NewPromotionEngine(promotionRepo, repository.NewCollectionRepository(db), customerRepo).WithClock(clock.Now)

	orders := NewOrderService(OrderServiceOptions{
		OrderRepo:          orderRepo,
		LineRepo:           repository.NewOrderLineRepository(db),
		OrderPromotionRepo: repository.NewOrderPromotionRepository(db),
		CustomerRepo:       customerRepo,
		Ledger:             ledger,
		StateMachine:       machine,
		PromotionEngine:    engine,
		TaxRateService:     NewTaxRateService(repository.NewTaxRateRepository(db), time.Minute),
		Shipping:           shipping.NewFlatRate(map[string]int64{"standard": 500, "express": 1500}),
	})

	provider := manual.New()
	payments := NewPaymentService(orderRepo, repository.NewPaymentRepository(db), machine, provider)
	payments.now = clock.Now

	return &checkoutFixture{
		db:        db,
		clock:     clock,
		ledger:    ledger,
		orders:    orders,
		transfers: NewCartTransferService(orders),
		payments:  payments,
		cleanup:   NewReservationCleanupService(ledger, nil, time.Second),
		provider:  provider,
		ctx:       context.Background(),
	}
}

type variantSpec struct {
	product string
	sku     string
	price   int64
	stock   int
	taxCode string
	track   bool
}

func (f *checkoutFixture) createVariant(t *testing.T, spec variantSpec) *models.ProductVariant {
	t.Helper()
	product := &models.Product{Name: spec.product, Enabled: true}
	if err := f.db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	taxCode := spec.taxCode
	if taxCode == "" {
		taxCode = constants.TaxCodeStandard
	}
	variant := &models.ProductVariant{
		ProductID:      product.ID,
		Name:           spec.product,
		SKU:            spec.sku,
		Price:          spec.price,
		Stock:          spec.stock,
		TrackInventory: spec.track,
		TaxCode:        taxCode,
		Enabled:        true,
	}
	if err := f.db.Create(variant).Error; err != nil {
		t.Fatalf("create variant failed: %v", err)
	}
	return variant
}

func (f *checkoutFixture) createCustomer(t *testing.T, email string, exempt bool) *models.Customer {
	t.Helper()
	customer := &models.Customer{Email: email, Name: email}
	if exempt {
		customer.B2BStatus = constants.B2BStatusApproved
		customer.VatID = "EL123456789"
	}
	if err := f.db.Create(customer).Error; err != nil {
		t.Fatalf("create customer failed: %v", err)
	}
	return customer
}

func (f *checkoutFixture) createPromotion(t *testing.T, promotion *models.Promotion) *models.Promotion {
	t.Helper()
	if promotion.Code != nil {
		code := NormalizeCode(*promotion.Code)
		promotion.Code = &code
	}
	if promotion.AppliesTo == "" {
		promotion.AppliesTo = constants.AppliesToAll
	}
	if err := f.db.Create(promotion).Error; err != nil {
		t.Fatalf("create promotion failed: %v", err)
	}
	return promotion
}

func (f *checkoutFixture) guestCart(t *testing.T) *models.Order {
	t.Helper()
	cart, err := f.orders.CreateCart(0)
	if err != nil {
		t.Fatalf("create guest cart failed: %v", err)
	}
	if cart.GuestToken == nil || *cart.GuestToken == "" {
		t.Fatalf("guest cart should carry a token")
	}
	return cart
}

func (f *checkoutFixture) addLine(t *testing.T, orderID, variantID uint, quantity int) *models.Order {
	t.Helper()
	order, err := f.orders.AddLine(f.ctx, orderID, variantID, quantity)
	if err != nil {
		t.Fatalf("add line failed: %v", err)
	}
	return order
}

func (f *checkoutFixture) reloadVariant(t *testing.T, id uint) *models.ProductVariant {
	t.Helper()
	var variant models.ProductVariant
	if err := f.db.First(&variant, id).Error; err != nil {
		t.Fatalf("reload variant failed: %v", err)
	}
	return &variant
}

func (f *checkoutFixture) reservationCount(t *testing.T, orderID uint) int64 {
	t.Helper()
	var count int64
	if err := f.db.Model(&models.StockReservation{}).Where("order_id = ?", orderID).Count(&count).Error; err != nil {
		t.Fatalf("count reservations failed: %v", err)
	}
	return count
}

func (f *checkoutFixture) setStock(t *testing.T, variantID uint, stock int) {
	t.Helper()
	if err := f.db.Model(&models.ProductVariant{}).Where("id = ?", variantID).Update("stock", stock).Error; err != nil {
		t.Fatalf("update stock failed: %v", err)
	}
}

// payOrder 发起支付并由渠道确认成功
func (f *checkoutFixture) payOrder(t *testing.T, orderID uint) *models.Payment {
	t.Helper()
	record, err := f.payments.CreatePayment(f.ctx, orderID)
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	if err := f.provider.Confirm(record.TransactionRef, constants.PaymentStatusCompleted); err != nil {
		t.Fatalf("confirm payment failed: %v", err)
	}
	settled, err := f.payments.SyncStatus(f.ctx, record.ID)
	if err != nil {
		t.Fatalf("sync payment failed: %v", err)
	}
	return settled
}

func stringPtr(value string) *string {
	return &value
}

func timePtr(value time.Time) *time.Time {
	return &value
}
