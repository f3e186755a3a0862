package shipping

import (
	"context"
	"errors"
	"testing"
)

func TestFlatRatePrice(t *testing.T) {
	provider := NewFlatRate(map[string]int64{"Standard": 490, "express": 990, "": 10, "broken": -1})
	price, err := provider.Price(context.Background(), nil, " STANDARD ")
	if err != nil || price != 490 {
		t.Fatalf("expected 490, got %d err=%v", price, err)
	}
	if _, err := provider.Price(context.Background(), nil, "broken"); !errors.Is(err, ErrMethodUnknown) {
		t.Fatalf("negative price method should be dropped, got %v", err)
	}
	if len(provider.Methods()) != 2 {
		t.Fatalf("expected 2 methods, got %d", len(provider.Methods()))
	}
}
