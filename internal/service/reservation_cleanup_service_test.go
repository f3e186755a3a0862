package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dujiao-next/checkout/internal/cache"
)

type stubLock struct {
	acquired   bool
	acquireErr error
	released   int
}

func (l *stubLock) Acquire(context.Context) (bool, error) {
	return l.acquired, l.acquireErr
}

func (l *stubLock) Release(context.Context) error {
	l.released++
	return nil
}

func TestReservationCleanupDeletesExpiredOnly(t *testing.T) {
	f := setupCheckoutTest(t)
	variant := f.createVariant(t, variantSpec{product: "Beans", sku: "BEAN-1", price: 1240, stock: 10, track: true})
	stale := f.guestCart(t)
	f.addLine(t, stale.ID, variant.ID, 2)

	f.clock.Advance(10 * time.Minute)
	fresh := f.guestCart(t)
	f.addLine(t, fresh.ID, variant.ID, 3)

	// stale 预占已过期，fresh 仍有效
	f.clock.Advance(6 * time.Minute)
	available, err := f.ledger.AvailableStock(variant.ID, 0)
	if err != nil {
		t.Fatalf("available stock failed: %v", err)
	}
	if available != 7 {
		t.Fatalf("expired holds must not count, want 7 got %d", available)
	}

	result, err := f.cleanup.Run(context.Background())
	if err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if result.Skipped || result.Deleted != 1 {
		t.Fatalf("unexpected cleanup result: %+v", result)
	}
	if count := f.reservationCount(t, stale.ID); count != 0 {
		t.Fatalf("stale reservation should be deleted, got %d", count)
	}
	if count := f.reservationCount(t, fresh.ID); count != 1 {
		t.Fatalf("fresh reservation must be kept, got %d", count)
	}

	result, err = f.cleanup.Run(context.Background())
	if err != nil || result.Deleted != 0 {
		t.Fatalf("second run should delete nothing: %+v %v", result, err)
	}
}

func TestReservationCleanupSkipsWhenLocked(t *testing.T) {
	f := setupCheckoutTest(t)
	variant := f.createVariant(t, variantSpec{product: "Beans", sku: "BEAN-1", price: 1240, stock: 10, track: true})
	cart := f.guestCart(t)
	f.addLine(t, cart.ID, variant.ID, 1)
	f.clock.Advance(time.Hour)

	held := &stubLock{acquired: false}
	f.cleanup.newLock = func(string, time.Duration) cache.Lock { return held }
	result, err := f.cleanup.Run(context.Background())
	if err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if !result.Skipped {
		t.Fatalf("cleanup should skip while another instance holds the lock")
	}
	if held.released != 0 {
		t.Fatalf("lock not acquired must not be released")
	}
	if count := f.reservationCount(t, cart.ID); count != 1 {
		t.Fatalf("skipped run must not delete, got %d", count)
	}

	broken := &stubLock{acquireErr: errors.New("redis down")}
	f.cleanup.newLock = func(string, time.Duration) cache.Lock { return broken }
	if _, err := f.cleanup.Run(context.Background()); err == nil {
		t.Fatalf("lock errors should be returned")
	}

	owned := &stubLock{acquired: true}
	f.cleanup.newLock = func(string, time.Duration) cache.Lock { return owned }
	result, err = f.cleanup.Run(context.Background())
	if err != nil || result.Deleted != 1 {
		t.Fatalf("cleanup with lock should delete: %+v %v", result, err)
	}
	if owned.released != 1 {
		t.Fatalf("acquired lock should be released once, got %d", owned.released)
	}
}
