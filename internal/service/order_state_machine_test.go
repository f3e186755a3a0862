package service

import (
	"errors"
	"testing"

	"github.com/dujiao-next/checkout/internal/constants"
)

func TestCanTransition(t *testing.T) {
	states := []constants.OrderState{
		constants.OrderStateCreated,
		constants.OrderStatePaymentPending,
		constants.OrderStatePaid,
		constants.OrderStateShipped,
		constants.OrderStateDelivered,
		constants.OrderStateCancelled,
	}
	allowed := map[constants.OrderState]map[constants.OrderState]bool{
		constants.OrderStateCreated:        {constants.OrderStatePaymentPending: true, constants.OrderStateCancelled: true},
		constants.OrderStatePaymentPending: {constants.OrderStatePaid: true, constants.OrderStateCancelled: true},
		constants.OrderStatePaid:           {constants.OrderStateShipped: true, constants.OrderStateCancelled: true},
		constants.OrderStateShipped:        {constants.OrderStateDelivered: true},
	}
	for _, from := range states {
		for _, to := range states {
			want := allowed[from][to]
			if got := CanTransition(from, to); got != want {
				t.Fatalf("%s -> %s: want %v got %v", from, to, want, got)
			}
		}
	}
	if len(AllowedTransitions(constants.OrderStateDelivered)) != 0 {
		t.Fatalf("delivered is terminal")
	}
	if len(AllowedTransitions(constants.OrderStateCancelled)) != 0 {
		t.Fatalf("cancelled is terminal")
	}
}

func TestAllowedTransitionsReturnsCopy(t *testing.T) {
	targets := AllowedTransitions(constants.OrderStateCreated)
	targets[0] = constants.OrderStateDelivered
	if CanTransition(constants.OrderStateCreated, constants.OrderStateDelivered) {
		t.Fatalf("mutating the returned slice must not change the table")
	}
}

func TestTransitionRejectsInvalidTarget(t *testing.T) {
	f := setupCheckoutTest(t)
	cart := f.guestCart(t)

	_, err := f.orders.TransitionState(cart.ID, constants.OrderStateShipped)
	var transitionErr *InvalidTransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if transitionErr.From != constants.OrderStateCreated || transitionErr.To != constants.OrderStateShipped {
		t.Fatalf("unexpected transition error: %+v", transitionErr)
	}
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("error should unwrap to ErrInvalidTransition")
	}

	order, err := f.orders.GetOrder(cart.ID)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if order.State != constants.OrderStateCreated || !order.Active {
		t.Fatalf("rejected transition must not modify the order: %+v", order)
	}
}

func TestTransitionToPaymentPendingRequiresLines(t *testing.T) {
	f := setupCheckoutTest(t)
	cart := f.guestCart(t)

	if _, err := f.orders.TransitionState(cart.ID, constants.OrderStatePaymentPending); !errors.Is(err, ErrOrderEmpty) {
		t.Fatalf("expected ErrOrderEmpty, got %v", err)
	}
}

func TestFulfilmentTransitions(t *testing.T) {
	f := setupCheckoutTest(t)
	variant := f.createVariant(t, variantSpec{product: "Kettle", sku: "KETTLE-1", price: 4990, stock: 4, track: true})
	cart := f.guestCart(t)
	f.addLine(t, cart.ID, variant.ID, 1)
	f.payOrder(t, cart.ID)

	shipped, err := f.orders.TransitionState(cart.ID, constants.OrderStateShipped)
	if err != nil {
		t.Fatalf("ship failed: %v", err)
	}
	if shipped.State != constants.OrderStateShipped {
		t.Fatalf("want shipped got %s", shipped.State)
	}
	if _, err := f.orders.TransitionState(cart.ID, constants.OrderStateCancelled); err == nil {
		t.Fatalf("shipped orders cannot be cancelled")
	}
	delivered, err := f.orders.TransitionState(cart.ID, constants.OrderStateDelivered)
	if err != nil {
		t.Fatalf("deliver failed: %v", err)
	}
	if delivered.State != constants.OrderStateDelivered || delivered.Active {
		t.Fatalf("unexpected delivered order: %+v", delivered)
	}
	if stock := f.reloadVariant(t, variant.ID).Stock; stock != 3 {
		t.Fatalf("stock want 3 got %d", stock)
	}
}

func TestCancelPaidOrderRestoresStock(t *testing.T) {
	f := setupCheckoutTest(t)
	tracked := f.createVariant(t, variantSpec{product: "Beans", sku: "BEANS-1", price: 1240, stock: 10, track: true})
	untracked := f.createVariant(t, variantSpec{product: "Ebook", sku: "EBOOK-1", price: 990, taxCode: constants.TaxCodeBooks, track: false})
	cart := f.guestCart(t)
	f.addLine(t, cart.ID, tracked.ID, 4)
	f.addLine(t, cart.ID, untracked.ID, 2)
	f.payOrder(t, cart.ID)

	if stock := f.reloadVariant(t, tracked.ID).Stock; stock != 6 {
		t.Fatalf("paid order should deduct tracked stock, want 6 got %d", stock)
	}
	if stock := f.reloadVariant(t, untracked.ID).Stock; stock != 0 {
		t.Fatalf("untracked stock must stay untouched, got %d", stock)
	}

	cancelled, err := f.orders.TransitionState(cart.ID, constants.OrderStateCancelled)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.CancelledAt == nil {
		t.Fatalf("cancelled_at should be set")
	}
	if stock := f.reloadVariant(t, tracked.ID).Stock; stock != 10 {
		t.Fatalf("cancel should restore stock, want 10 got %d", stock)
	}
	if stock := f.reloadVariant(t, untracked.ID).Stock; stock != 0 {
		t.Fatalf("untracked stock must stay untouched, got %d", stock)
	}
}
