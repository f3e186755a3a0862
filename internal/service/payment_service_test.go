package service

import (
	"errors"
	"testing"
	"time"

	"github.com/dujiao-next/checkout/internal/constants"
	"github.com/dujiao-next/checkout/internal/models"
)

func TestCheckoutAndSettle(t *testing.T) {
	f := setupCheckoutTest(t)
	variant := f.createVariant(t, variantSpec{product: "Beans", sku: "BEAN-1", price: 1240, stock: 10, track: true})
	promotion := f.createPromotion(t, orderPercentCode("WELCOME10", 10, false))
	cart := f.guestCart(t)
	f.addLine(t, cart.ID, variant.ID, 3)
	if _, err := f.orders.ApplyPromotionCode(f.ctx, cart.ID, "WELCOME10", 0); err != nil {
		t.Fatalf("apply code failed: %v", err)
	}

	record, err := f.payments.CreatePayment(f.ctx, cart.ID)
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	if record.Amount != 3348 || record.Status != constants.PaymentStatusPending || record.Provider != constants.PaymentProviderManual {
		t.Fatalf("unexpected payment: %+v", record)
	}
	if len(record.TransactionRef) < 4 || record.TransactionRef[:3] != "MAN" {
		t.Fatalf("unexpected transaction ref %q", record.TransactionRef)
	}
	order, err := f.orders.GetOrder(cart.ID)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if order.State != constants.OrderStatePaymentPending || order.Active || order.OrderPlacedAt == nil {
		t.Fatalf("order should await payment: %+v", order)
	}
	if _, err := f.orders.AddLine(f.ctx, cart.ID, variant.ID, 1); !errors.Is(err, ErrOrderNotModifiable) {
		t.Fatalf("checked out order must reject edits, got %v", err)
	}

	// 渠道尚未确认时同步不改变状态
	pending, err := f.payments.SyncStatus(f.ctx, record.ID)
	if err != nil {
		t.Fatalf("sync pending failed: %v", err)
	}
	if pending.Status != constants.PaymentStatusPending {
		t.Fatalf("payment should still be pending, got %s", pending.Status)
	}

	if err := f.provider.Confirm(record.TransactionRef, constants.PaymentStatusCompleted); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	settled, err := f.payments.SyncStatus(f.ctx, record.ID)
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	if settled.Status != constants.PaymentStatusCompleted || settled.SettledAt == nil {
		t.Fatalf("payment should be completed: %+v", settled)
	}

	paid, err := f.orders.GetOrder(cart.ID)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if paid.State != constants.OrderStatePaid || paid.PaidAt == nil {
		t.Fatalf("order should be paid: %+v", paid)
	}
	if stock := f.reloadVariant(t, variant.ID).Stock; stock != 7 {
		t.Fatalf("stock want 7 got %d", stock)
	}
	if count := f.reservationCount(t, cart.ID); count != 0 {
		t.Fatalf("reservations should be released, got %d", count)
	}
	var reloaded models.Promotion
	if err := f.db.First(&reloaded, promotion.ID).Error; err != nil {
		t.Fatalf("reload promotion failed: %v", err)
	}
	if reloaded.UsageCount != 1 {
		t.Fatalf("usage count want 1 got %d", reloaded.UsageCount)
	}

	// 重复结算保持幂等
	again, err := f.payments.HandleSettlement(f.ctx, record.ID, constants.PaymentStatusCompleted)
	if err != nil || again.Status != constants.PaymentStatusCompleted {
		t.Fatalf("repeated settlement should be a no-op: %+v %v", again, err)
	}
	if stock := f.reloadVariant(t, variant.ID).Stock; stock != 7 {
		t.Fatalf("repeated settlement must not deduct twice, stock %d", stock)
	}
}

func TestCreatePaymentRejectsEmptyCart(t *testing.T) {
	f := setupCheckoutTest(t)
	cart := f.guestCart(t)
	if _, err := f.payments.CreatePayment(f.ctx, cart.ID); !errors.Is(err, ErrOrderEmpty) {
		t.Fatalf("expected ErrOrderEmpty, got %v", err)
	}
	order, err := f.orders.GetOrder(cart.ID)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if order.State != constants.OrderStateCreated || !order.Active {
		t.Fatalf("empty cart must stay open: %+v", order)
	}
}

func TestPaymentPendingExtendsReservations(t *testing.T) {
	f := setupCheckoutTest(t)
	variant := f.createVariant(t, variantSpec{product: "Beans", sku: "BEAN-1", price: 1240, stock: 5, track: true})
	cart := f.guestCart(t)
	f.addLine(t, cart.ID, variant.ID, 3)
	if _, err := f.payments.CreatePayment(f.ctx, cart.ID); err != nil {
		t.Fatalf("create payment failed: %v", err)
	}

	var reservation models.StockReservation
	if err := f.db.Where("order_id = ?", cart.ID).First(&reservation).Error; err != nil {
		t.Fatalf("load reservation failed: %v", err)
	}
	if want := f.clock.Now().Add(time.Hour); !reservation.ExpiresAt.Equal(want) {
		t.Fatalf("reservation expiry want %s got %s", want, reservation.ExpiresAt)
	}

	// 超过购物车预占时长但仍在支付窗口内
	f.clock.Advance(30 * time.Minute)
	other := f.guestCart(t)
	_, err := f.orders.AddLine(f.ctx, other.ID, variant.ID, 3)
	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) || stockErr.Available != 2 {
		t.Fatalf("pending payment should keep its hold, got %v", err)
	}
}

func TestCheckoutRechecksExpiredHolds(t *testing.T) {
	f := setupCheckoutTest(t)
	variant := f.createVariant(t, variantSpec{product: "Beans", sku: "BEAN-1", price: 1240, stock: 3, track: true})
	first := f.guestCart(t)
	f.addLine(t, first.ID, variant.ID, 3)

	// first 的预占过期后库存被另一购物车占用
	f.clock.Advance(20 * time.Minute)
	second := f.guestCart(t)
	f.addLine(t, second.ID, variant.ID, 3)

	_, err := f.payments.CreatePayment(f.ctx, first.ID)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) || stockErr.VariantID != variant.ID || stockErr.Available != 0 || stockErr.Requested != 3 {
		t.Fatalf("unexpected stock error: %+v", stockErr)
	}

	order, err := f.orders.GetOrder(first.ID)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if order.State != constants.OrderStateCreated {
		t.Fatalf("rejected checkout must keep the cart, got %s", order.State)
	}
	payments, err := f.payments.ListOrderPayments(first.ID)
	if err != nil {
		t.Fatalf("list payments failed: %v", err)
	}
	if len(payments) != 0 {
		t.Fatalf("rejected checkout must not create payments, got %d", len(payments))
	}
	available, err := f.ledger.AvailableStock(variant.ID, 0)
	if err != nil {
		t.Fatalf("available stock failed: %v", err)
	}
	if available != 0 {
		t.Fatalf("available want 0 got %d", available)
	}
}

func TestCheckoutRestoresSweptHold(t *testing.T) {
	f := setupCheckoutTest(t)
	variant := f.createVariant(t, variantSpec{product: "Beans", sku: "BEAN-1", price: 1240, stock: 5, track: true})
	cart := f.guestCart(t)
	f.addLine(t, cart.ID, variant.ID, 2)

	f.clock.Advance(20 * time.Minute)
	if _, err := f.cleanup.Run(f.ctx); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if count := f.reservationCount(t, cart.ID); count != 0 {
		t.Fatalf("expired hold should be swept, got %d", count)
	}

	if _, err := f.payments.CreatePayment(f.ctx, cart.ID); err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	var reservation models.StockReservation
	if err := f.db.Where("order_id = ?", cart.ID).First(&reservation).Error; err != nil {
		t.Fatalf("hold should be recreated: %v", err)
	}
	if reservation.Quantity != 2 || !reservation.ExpiresAt.Equal(f.clock.Now().Add(time.Hour)) {
		t.Fatalf("unexpected hold: %+v", reservation)
	}
	available, err := f.ledger.AvailableStock(variant.ID, 0)
	if err != nil {
		t.Fatalf("available stock failed: %v", err)
	}
	if available != 3 {
		t.Fatalf("available want 3 got %d", available)
	}
}

func TestRetryCheckoutSupersedesPendingPayment(t *testing.T) {
	f := setupCheckoutTest(t)
	variant := f.createVariant(t, variantSpec{product: "Beans", sku: "BEAN-1", price: 1240, stock: 10, track: true})
	cart := f.guestCart(t)
	f.addLine(t, cart.ID, variant.ID, 1)

	stale, err := f.payments.CreatePayment(f.ctx, cart.ID)
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	latest, err := f.payments.CreatePayment(f.ctx, cart.ID)
	if err != nil {
		t.Fatalf("retry payment failed: %v", err)
	}
	if latest.ID == stale.ID {
		t.Fatalf("retry should create a new payment")
	}
	reloaded, err := f.payments.GetPayment(stale.ID)
	if err != nil {
		t.Fatalf("get payment failed: %v", err)
	}
	if reloaded.Status != constants.PaymentStatusFailed {
		t.Fatalf("earlier attempt should be failed, got %s", reloaded.Status)
	}

	// 旧尝试的失败回调不影响订单
	if _, err := f.payments.HandleSettlement(f.ctx, stale.ID, constants.PaymentStatusFailed); err != nil {
		t.Fatalf("stale failure failed: %v", err)
	}
	order, err := f.orders.GetOrder(cart.ID)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if order.State != constants.OrderStatePaymentPending {
		t.Fatalf("stale failure must not cancel the order, got %s", order.State)
	}
	if _, err := f.payments.HandleSettlement(f.ctx, stale.ID, constants.PaymentStatusCompleted); !errors.Is(err, ErrPaymentStatusInvalid) {
		t.Fatalf("superseded attempt cannot complete, got %v", err)
	}

	if _, err := f.payments.HandleSettlement(f.ctx, latest.ID, constants.PaymentStatusCompleted); err != nil {
		t.Fatalf("settle latest failed: %v", err)
	}
	paid, err := f.orders.GetOrder(cart.ID)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if paid.State != constants.OrderStatePaid {
		t.Fatalf("latest attempt should pay the order, got %s", paid.State)
	}
}

func TestSettlementFailsWhenStockGone(t *testing.T) {
	f := setupCheckoutTest(t)
	variant := f.createVariant(t, variantSpec{product: "Beans", sku: "BEAN-1", price: 1240, stock: 10, track: true})
	cart := f.guestCart(t)
	f.addLine(t, cart.ID, variant.ID, 3)
	record, err := f.payments.CreatePayment(f.ctx, cart.ID)
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	f.setStock(t, variant.ID, 2)

	_, err = f.payments.HandleSettlement(f.ctx, record.ID, constants.PaymentStatusCompleted)
	if !errors.Is(err, ErrStockUnavailableAtPayment) {
		t.Fatalf("expected ErrStockUnavailableAtPayment, got %v", err)
	}
	var stockErr *StockUnavailableError
	if !errors.As(err, &stockErr) || len(stockErr.Lines) != 1 || stockErr.Lines[0].Available != 2 {
		t.Fatalf("unexpected stock error: %+v", stockErr)
	}

	failed, err := f.payments.GetPayment(record.ID)
	if err != nil {
		t.Fatalf("get payment failed: %v", err)
	}
	if failed.Status != constants.PaymentStatusFailed {
		t.Fatalf("payment should be failed, got %s", failed.Status)
	}
	order, err := f.orders.GetOrder(cart.ID)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if order.State != constants.OrderStatePaymentPending {
		t.Fatalf("order should stay payment_pending, got %s", order.State)
	}
	if stock := f.reloadVariant(t, variant.ID).Stock; stock != 2 {
		t.Fatalf("stock must not change, got %d", stock)
	}
}

func TestFailedSettlementCancelsOrder(t *testing.T) {
	f := setupCheckoutTest(t)
	variant := f.createVariant(t, variantSpec{product: "Beans", sku: "BEAN-1", price: 1240, stock: 10, track: true})
	cart := f.guestCart(t)
	f.addLine(t, cart.ID, variant.ID, 3)
	record, err := f.payments.CreatePayment(f.ctx, cart.ID)
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	if err := f.provider.Confirm(record.TransactionRef, constants.PaymentStatusFailed); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	failed, err := f.payments.SyncStatus(f.ctx, record.ID)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if failed.Status != constants.PaymentStatusFailed {
		t.Fatalf("payment should be failed, got %s", failed.Status)
	}
	order, err := f.orders.GetOrder(cart.ID)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if order.State != constants.OrderStateCancelled || order.CancelledAt == nil {
		t.Fatalf("order should be cancelled: %+v", order)
	}
	if count := f.reservationCount(t, cart.ID); count != 0 {
		t.Fatalf("reservations should be released, got %d", count)
	}
	if stock := f.reloadVariant(t, variant.ID).Stock; stock != 10 {
		t.Fatalf("unpaid cancel must not touch stock, got %d", stock)
	}
	if _, err := f.payments.HandleSettlement(f.ctx, record.ID, "bogus"); !errors.Is(err, ErrPaymentStatusInvalid) {
		t.Fatalf("expected ErrPaymentStatusInvalid, got %v", err)
	}
}

func TestRefunds(t *testing.T) {
	f := setupCheckoutTest(t)
	variant := f.createVariant(t, variantSpec{product: "Beans", sku: "BEAN-1", price: 1240, stock: 10, track: true})
	cart := f.guestCart(t)
	f.addLine(t, cart.ID, variant.ID, 3)
	record := f.payOrder(t, cart.ID)

	if _, err := f.payments.Refund(f.ctx, record.ID, 0); !errors.Is(err, ErrRefundAmountInvalid) {
		t.Fatalf("expected ErrRefundAmountInvalid, got %v", err)
	}
	if _, err := f.payments.Refund(f.ctx, record.ID, 5000); !errors.Is(err, ErrRefundExceedsPayment) {
		t.Fatalf("expected ErrRefundExceedsPayment, got %v", err)
	}

	partial, err := f.payments.Refund(f.ctx, record.ID, 1000)
	if err != nil {
		t.Fatalf("partial refund failed: %v", err)
	}
	if partial.RefundedAmount != 1000 || partial.Status != constants.PaymentStatusCompleted {
		t.Fatalf("unexpected partial refund: %+v", partial)
	}
	order, err := f.orders.GetOrder(cart.ID)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if order.State != constants.OrderStatePaid {
		t.Fatalf("partial refund keeps the order paid, got %s", order.State)
	}
	if _, err := f.payments.Refund(f.ctx, record.ID, 2721); !errors.Is(err, ErrRefundExceedsPayment) {
		t.Fatalf("cumulative refund must not exceed payment, got %v", err)
	}

	full, err := f.payments.Refund(f.ctx, record.ID, 2720)
	if err != nil {
		t.Fatalf("full refund failed: %v", err)
	}
	if full.RefundedAmount != 3720 || full.Status != constants.PaymentStatusRefunded {
		t.Fatalf("unexpected full refund: %+v", full)
	}
	order, err = f.orders.GetOrder(cart.ID)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if order.State != constants.OrderStateCancelled {
		t.Fatalf("full refund should cancel the order, got %s", order.State)
	}
	if stock := f.reloadVariant(t, variant.ID).Stock; stock != 10 {
		t.Fatalf("stock should be restored, got %d", stock)
	}
	if _, err := f.payments.Refund(f.ctx, record.ID, 1); !errors.Is(err, ErrPaymentStatusInvalid) {
		t.Fatalf("refunded payment cannot be refunded again, got %v", err)
	}
}

func TestCancelUnpaid(t *testing.T) {
	f := setupCheckoutTest(t)
	variant := f.createVariant(t, variantSpec{product: "Beans", sku: "BEAN-1", price: 1240, stock: 10, track: true})
	cart := f.guestCart(t)
	f.addLine(t, cart.ID, variant.ID, 2)
	record, err := f.payments.CreatePayment(f.ctx, cart.ID)
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}

	cancelled, err := f.payments.CancelUnpaid(cart.ID)
	if err != nil || !cancelled {
		t.Fatalf("first cancel should succeed: %v %v", cancelled, err)
	}
	cancelled, err = f.payments.CancelUnpaid(cart.ID)
	if err != nil || cancelled {
		t.Fatalf("second cancel should be a no-op: %v %v", cancelled, err)
	}

	failed, err := f.payments.GetPayment(record.ID)
	if err != nil {
		t.Fatalf("get payment failed: %v", err)
	}
	if failed.Status != constants.PaymentStatusFailed {
		t.Fatalf("pending payment should be failed, got %s", failed.Status)
	}
	if count := f.reservationCount(t, cart.ID); count != 0 {
		t.Fatalf("reservations should be released, got %d", count)
	}
	if _, err := f.payments.CancelUnpaid(99999); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestPerCustomerLimitCountsPaidOrders(t *testing.T) {
	f := setupCheckoutTest(t)
	variant := f.createVariant(t, variantSpec{product: "Beans", sku: "BEAN-1", price: 1240, stock: 10, track: true})
	customer := f.createCustomer(t, "repeat@example.com", false)
	promotion := orderPercentCode("ONCE", 10, false)
	promotion.UsageLimitPerCustomer = 1
	f.createPromotion(t, promotion)

	first, err := f.orders.CreateCart(customer.ID)
	if err != nil {
		t.Fatalf("create cart failed: %v", err)
	}
	f.addLine(t, first.ID, variant.ID, 1)
	if _, err := f.orders.ApplyPromotionCode(f.ctx, first.ID, "ONCE", customer.ID); err != nil {
		t.Fatalf("first use should be allowed: %v", err)
	}
	f.payOrder(t, first.ID)

	second, err := f.orders.CreateCart(customer.ID)
	if err != nil {
		t.Fatalf("create cart failed: %v", err)
	}
	if second.ID == first.ID {
		t.Fatalf("paid order must not be reused as cart")
	}
	f.addLine(t, second.ID, variant.ID, 1)
	_, err = f.orders.ApplyPromotionCode(f.ctx, second.ID, "ONCE", customer.ID)
	assertPromotionReason(t, err, PromotionReasonPerCustomerLimitReached)
}
