package service

import (
	"errors"
	"testing"
	"time"

	"github.com/dujiao-next/checkout/internal/constants"
	"github.com/dujiao-next/checkout/internal/models"
)

func assertPromotionReason(t *testing.T, err error, want PromotionReason) {
	t.Helper()
	var promoErr *PromotionError
	if !errors.As(err, &promoErr) {
		t.Fatalf("expected PromotionError(%s), got %v", want, err)
	}
	if promoErr.Reason != want {
		t.Fatalf("reason want %s got %s", want, promoErr.Reason)
	}
	if !errors.Is(err, ErrPromotionInvalid) {
		t.Fatalf("promotion error should unwrap to ErrPromotionInvalid")
	}
}

func orderPercentCode(code string, percent int64, combinable bool) *models.Promotion {
	return &models.Promotion{
		Method:                      constants.PromotionMethodCode,
		Code:                        stringPtr(code),
		Title:                       code,
		PromotionType:               constants.PromotionTypeOrder,
		DiscountType:                constants.DiscountTypePercentage,
		DiscountValue:               percent,
		CombinesWithOtherPromotions: combinable,
		Enabled:                     true,
	}
}

func TestApplyPromotionCode(t *testing.T) {
	f := setupCheckoutTest(t)
	variant := f.createVariant(t, variantSpec{product: "Beans", sku: "BEAN-1", price: 1240, stock: 10, track: true})
	f.createPromotion(t, orderPercentCode("welcome10", 10, false))
	cart := f.guestCart(t)
	f.addLine(t, cart.ID, variant.ID, 3)

	order, err := f.orders.ApplyPromotionCode(f.ctx, cart.ID, "  Welcome10 ", 0)
	if err != nil {
		t.Fatalf("apply code failed: %v", err)
	}
	if len(order.Promotions) != 1 || order.Promotions[0].DiscountAmount != 372 {
		t.Fatalf("unexpected promotions: %+v", order.Promotions)
	}
	if order.Discount != 372 || order.Total != 3348 {
		t.Fatalf("unexpected totals: discount=%d total=%d", order.Discount, order.Total)
	}

	// 重复应用不新增记录
	order, err = f.orders.ApplyPromotionCode(f.ctx, cart.ID, "WELCOME10", 0)
	if err != nil {
		t.Fatalf("reapply code failed: %v", err)
	}
	if len(order.Promotions) != 1 {
		t.Fatalf("reapplying must be idempotent, got %d promotions", len(order.Promotions))
	}

	order, err = f.orders.RemovePromotion(f.ctx, cart.ID, order.Promotions[0].PromotionID)
	if err != nil {
		t.Fatalf("remove promotion failed: %v", err)
	}
	if len(order.Promotions) != 0 || order.Total != 3720 {
		t.Fatalf("removing the promotion should restore totals: %+v", order)
	}
	if _, err := f.orders.RemovePromotion(f.ctx, cart.ID, 12345); !errors.Is(err, ErrPromotionNotApplied) {
		t.Fatalf("expected ErrPromotionNotApplied, got %v", err)
	}
}

func TestCodeDiscountFixedUntilReapplied(t *testing.T) {
	f := setupCheckoutTest(t)
	variant := f.createVariant(t, variantSpec{product: "Beans", sku: "BEAN-1", price: 1000, stock: 10, track: true})
	f.createPromotion(t, orderPercentCode("TENOFF", 10, true))
	cart := f.guestCart(t)
	f.addLine(t, cart.ID, variant.ID, 5)

	order, err := f.orders.ApplyPromotionCode(f.ctx, cart.ID, "TENOFF", 0)
	if err != nil {
		t.Fatalf("apply code failed: %v", err)
	}
	if order.Discount != 500 || order.Total != 4500 {
		t.Fatalf("unexpected totals: discount=%d total=%d", order.Discount, order.Total)
	}

	updated, err := f.orders.UpdateLineQuantity(f.ctx, cart.ID, order.Lines[0].ID, 2)
	if err != nil {
		t.Fatalf("update line failed: %v", err)
	}
	// 优惠码折扣在应用时固定
	if updated.Order.Subtotal != 2000 || updated.Order.Discount != 500 || updated.Order.Total != 1500 {
		t.Fatalf("code discount should stay as applied: subtotal=%d discount=%d total=%d",
			updated.Order.Subtotal, updated.Order.Discount, updated.Order.Total)
	}

	promotionID := updated.Order.Promotions[0].PromotionID
	if _, err := f.orders.RemovePromotion(f.ctx, cart.ID, promotionID); err != nil {
		t.Fatalf("remove promotion failed: %v", err)
	}
	order, err = f.orders.ApplyPromotionCode(f.ctx, cart.ID, "TENOFF", 0)
	if err != nil {
		t.Fatalf("reapply code failed: %v", err)
	}
	if order.Discount != 200 || order.Total != 1800 {
		t.Fatalf("reapplied code should follow the cart: discount=%d total=%d", order.Discount, order.Total)
	}
}

func TestApplyPromotionCodeRejections(t *testing.T) {
	f := setupCheckoutTest(t)
	variant := f.createVariant(t, variantSpec{product: "Beans", sku: "BEAN-1", price: 1240, stock: 10, track: true})
	now := f.clock.Now()

	expired := orderPercentCode("OLD", 10, true)
	expired.EndsAt = timePtr(now.Add(-time.Hour))
	f.createPromotion(t, expired)

	future := orderPercentCode("SOON", 10, true)
	future.StartsAt = timePtr(now.Add(time.Hour))
	f.createPromotion(t, future)

	disabled := orderPercentCode("OFF", 10, true)
	disabled.Enabled = false
	f.createPromotion(t, disabled)

	exhausted := orderPercentCode("GONE", 10, true)
	exhausted.UsageLimit = 1
	exhausted.UsageCount = 1
	f.createPromotion(t, exhausted)

	minimum := orderPercentCode("BIGSPEND", 10, true)
	minimum.MinOrderAmount = 10000
	f.createPromotion(t, minimum)

	groupID := uint(7)
	members := orderPercentCode("MEMBERS", 10, true)
	members.CustomerGroupID = &groupID
	f.createPromotion(t, members)

	productOnly := &models.Promotion{
		Method:        constants.PromotionMethodCode,
		Code:          stringPtr("OTHERPRODUCT"),
		PromotionType: constants.PromotionTypeProduct,
		DiscountType:  constants.DiscountTypeFixedAmount,
		DiscountValue: 100,
		AppliesTo:     constants.AppliesToSpecificProducts,
		Enabled:       true,
	}
	f.createPromotion(t, productOnly)
	if err := f.db.Create(&models.PromotionProduct{PromotionID: productOnly.ID, ProductID: 9999}).Error; err != nil {
		t.Fatalf("create promotion product failed: %v", err)
	}

	cart := f.guestCart(t)
	f.addLine(t, cart.ID, variant.ID, 3)

	cases := []struct {
		code string
		want PromotionReason
	}{
		{code: "", want: PromotionReasonInvalidCode},
		{code: "NOPE", want: PromotionReasonInvalidCode},
		{code: "OLD", want: PromotionReasonExpired},
		{code: "SOON", want: PromotionReasonNotStarted},
		{code: "OFF", want: PromotionReasonNotActive},
		{code: "GONE", want: PromotionReasonLimitReached},
		{code: "BIGSPEND", want: PromotionReasonMinimumNotMet},
		{code: "MEMBERS", want: PromotionReasonCustomerGroupRestricted},
		{code: "OTHERPRODUCT", want: PromotionReasonNoQualifyingProducts},
	}
	for _, tc := range cases {
		_, err := f.orders.ApplyPromotionCode(f.ctx, cart.ID, tc.code, 0)
		assertPromotionReason(t, err, tc.want)
	}

	order, err := f.orders.GetOrder(cart.ID)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if len(order.Promotions) != 0 {
		t.Fatalf("rejected codes must not be recorded: %+v", order.Promotions)
	}
}

func TestCustomerGroupPromotion(t *testing.T) {
	f := setupCheckoutTest(t)
	variant := f.createVariant(t, variantSpec{product: "Beans", sku: "BEAN-1", price: 1240, stock: 10, track: true})
	member := f.createCustomer(t, "member@example.com", false)
	outsider := f.createCustomer(t, "outsider@example.com", false)
	groupID := uint(3)
	if err := f.db.Create(&models.CustomerGroupMember{GroupID: groupID, CustomerID: member.ID}).Error; err != nil {
		t.Fatalf("create group member failed: %v", err)
	}
	promotion := orderPercentCode("VIP", 20, false)
	promotion.CustomerGroupID = &groupID
	f.createPromotion(t, promotion)

	outsiderCart, err := f.orders.CreateCart(outsider.ID)
	if err != nil {
		t.Fatalf("create cart failed: %v", err)
	}
	f.addLine(t, outsiderCart.ID, variant.ID, 1)
	_, err = f.orders.ApplyPromotionCode(f.ctx, outsiderCart.ID, "VIP", outsider.ID)
	assertPromotionReason(t, err, PromotionReasonCustomerGroupRestricted)

	memberCart, err := f.orders.CreateCart(member.ID)
	if err != nil {
		t.Fatalf("create cart failed: %v", err)
	}
	f.addLine(t, memberCart.ID, variant.ID, 1)
	order, err := f.orders.ApplyPromotionCode(f.ctx, memberCart.ID, "VIP", member.ID)
	if err != nil {
		t.Fatalf("member should be allowed: %v", err)
	}
	if order.Discount != 248 {
		t.Fatalf("discount want 248 got %d", order.Discount)
	}
}

func TestPromotionCombinationRules(t *testing.T) {
	f := setupCheckoutTest(t)
	variant := f.createVariant(t, variantSpec{product: "Beans", sku: "BEAN-1", price: 1000, stock: 10, track: true})
	f.createPromotion(t, orderPercentCode("SOLO", 10, false))
	f.createPromotion(t, orderPercentCode("STACK1", 5, true))
	f.createPromotion(t, orderPercentCode("STACK2", 5, true))

	cart := f.guestCart(t)
	f.addLine(t, cart.ID, variant.ID, 4)

	if _, err := f.orders.ApplyPromotionCode(f.ctx, cart.ID, "SOLO", 0); err != nil {
		t.Fatalf("apply SOLO failed: %v", err)
	}
	_, err := f.orders.ApplyPromotionCode(f.ctx, cart.ID, "STACK1", 0)
	assertPromotionReason(t, err, PromotionReasonCannotCombine)

	if _, err := f.orders.RemoveAllPromotions(f.ctx, cart.ID); err != nil {
		t.Fatalf("remove all failed: %v", err)
	}
	if _, err := f.orders.ApplyPromotionCode(f.ctx, cart.ID, "STACK1", 0); err != nil {
		t.Fatalf("apply STACK1 failed: %v", err)
	}
	order, err := f.orders.ApplyPromotionCode(f.ctx, cart.ID, "STACK2", 0)
	if err != nil {
		t.Fatalf("apply STACK2 failed: %v", err)
	}
	if len(order.Promotions) != 2 || order.Discount != 400 || order.Total != 3600 {
		t.Fatalf("stacked promotions unexpected: discount=%d total=%d promotions=%d", order.Discount, order.Total, len(order.Promotions))
	}
	_, err = f.orders.ApplyPromotionCode(f.ctx, cart.ID, "SOLO", 0)
	assertPromotionReason(t, err, PromotionReasonCannotCombine)
}

func TestProductPromotionUsesCollectionScope(t *testing.T) {
	f := setupCheckoutTest(t)
	coffee := f.createVariant(t, variantSpec{product: "Coffee", sku: "COFFEE-1", price: 1000, stock: 10, taxCode: constants.TaxCodeFood, track: true})
	book := f.createVariant(t, variantSpec{product: "Book", sku: "BOOK-1", price: 2000, stock: 10, taxCode: constants.TaxCodeBooks, track: true})

	collection := &models.Collection{Name: "Coffee"}
	if err := f.db.Create(collection).Error; err != nil {
		t.Fatalf("create collection failed: %v", err)
	}
	productID := coffee.ProductID
	if err := f.db.Create(&models.CollectionFilter{
		CollectionID: collection.ID,
		Type:         constants.CollectionFilterProduct,
		ProductID:    &productID,
	}).Error; err != nil {
		t.Fatalf("create collection filter failed: %v", err)
	}
	promotion := &models.Promotion{
		Method:        constants.PromotionMethodCode,
		Code:          stringPtr("COFFEE10"),
		PromotionType: constants.PromotionTypeProduct,
		DiscountType:  constants.DiscountTypePercentage,
		DiscountValue: 10,
		AppliesTo:     constants.AppliesToSpecificCollections,
		Enabled:       true,
	}
	f.createPromotion(t, promotion)
	if err := f.db.Create(&models.PromotionCollection{PromotionID: promotion.ID, CollectionID: collection.ID}).Error; err != nil {
		t.Fatalf("create promotion collection failed: %v", err)
	}

	cart := f.guestCart(t)
	f.addLine(t, cart.ID, coffee.ID, 2)
	f.addLine(t, cart.ID, book.ID, 1)

	order, err := f.orders.ApplyPromotionCode(f.ctx, cart.ID, "COFFEE10", 0)
	if err != nil {
		t.Fatalf("apply product promotion failed: %v", err)
	}
	if len(order.Promotions) != 1 || order.Promotions[0].Type != constants.OrderPromotionTypeProduct {
		t.Fatalf("unexpected promotion record: %+v", order.Promotions)
	}
	if order.Discount != 200 || order.Subtotal != 4000 || order.Total != 3800 {
		t.Fatalf("discount should only cover coffee lines: discount=%d subtotal=%d total=%d", order.Discount, order.Subtotal, order.Total)
	}
}

func TestAutomaticPromotionFollowsCartContents(t *testing.T) {
	f := setupCheckoutTest(t)
	variant := f.createVariant(t, variantSpec{product: "Beans", sku: "BEAN-1", price: 1240, stock: 10, track: true})
	f.createPromotion(t, &models.Promotion{
		Method:         constants.PromotionMethodAutomatic,
		Title:          "Spend 50 save 5%",
		PromotionType:  constants.PromotionTypeOrder,
		DiscountType:   constants.DiscountTypePercentage,
		DiscountValue:  5,
		MinOrderAmount: 5000,
		Enabled:        true,
	})

	cart := f.guestCart(t)
	order := f.addLine(t, cart.ID, variant.ID, 3)
	if len(order.Promotions) != 0 {
		t.Fatalf("below minimum no automatic promotion expected")
	}

	order = f.addLine(t, cart.ID, variant.ID, 2)
	if len(order.Promotions) != 1 || order.Promotions[0].DiscountAmount != 310 {
		t.Fatalf("automatic promotion should apply at 6200: %+v", order.Promotions)
	}
	if order.Total != 5890 {
		t.Fatalf("total want 5890 got %d", order.Total)
	}

	result, err := f.orders.UpdateLineQuantity(f.ctx, cart.ID, order.Lines[0].ID, 3)
	if err != nil {
		t.Fatalf("update line failed: %v", err)
	}
	if len(result.Order.Promotions) != 0 || result.Order.Total != 3720 {
		t.Fatalf("automatic promotion should be dropped below minimum: %+v", result.Order)
	}
}

func TestAutomaticFreeShipping(t *testing.T) {
	f := setupCheckoutTest(t)
	variant := f.createVariant(t, variantSpec{product: "Beans", sku: "BEAN-1", price: 1240, stock: 10, track: true})
	f.createPromotion(t, &models.Promotion{
		Method:                      constants.PromotionMethodAutomatic,
		Title:                       "Free shipping over 50",
		PromotionType:               constants.PromotionTypeFreeShipping,
		DiscountType:                constants.DiscountTypeFixedAmount,
		MinOrderAmount:              5000,
		CombinesWithOtherPromotions: true,
		Enabled:                     true,
	})

	cart := f.guestCart(t)
	f.addLine(t, cart.ID, variant.ID, 5)
	order, err := f.orders.SetShippingMethod(f.ctx, cart.ID, "standard")
	if err != nil {
		t.Fatalf("set shipping failed: %v", err)
	}
	if len(order.Promotions) != 1 || order.Promotions[0].Type != constants.OrderPromotionTypeShipping {
		t.Fatalf("free shipping promotion expected: %+v", order.Promotions)
	}
	if order.ShippingCharge != 500 || order.Shipping != 0 || order.Discount != 500 || order.Total != 6200 {
		t.Fatalf("unexpected totals: charge=%d shipping=%d discount=%d total=%d", order.ShippingCharge, order.Shipping, order.Discount, order.Total)
	}

	// 更换配送方式后免运费金额随之同步
	order, err = f.orders.SetShippingMethod(f.ctx, cart.ID, "express")
	if err != nil {
		t.Fatalf("change shipping failed: %v", err)
	}
	if order.Promotions[0].DiscountAmount != 1500 || order.Shipping != 0 || order.Total != 6200 {
		t.Fatalf("free shipping should follow the new charge: %+v", order)
	}

	result, err := f.orders.UpdateLineQuantity(f.ctx, cart.ID, order.Lines[0].ID, 1)
	if err != nil {
		t.Fatalf("update line failed: %v", err)
	}
	if len(result.Order.Promotions) != 0 || result.Order.Shipping != 1500 || result.Order.Total != 2740 {
		t.Fatalf("free shipping should be dropped below minimum: %+v", result.Order)
	}
}

func TestExpiredAutomaticPromotionIsDropped(t *testing.T) {
	f := setupCheckoutTest(t)
	variant := f.createVariant(t, variantSpec{product: "Beans", sku: "BEAN-1", price: 1000, stock: 10, track: true})
	f.createPromotion(t, &models.Promotion{
		Method:        constants.PromotionMethodAutomatic,
		PromotionType: constants.PromotionTypeOrder,
		DiscountType:  constants.DiscountTypeFixedAmount,
		DiscountValue: 100,
		EndsAt:        timePtr(f.clock.Now().Add(time.Hour)),
		Enabled:       true,
	})
	cart := f.guestCart(t)
	order := f.addLine(t, cart.ID, variant.ID, 1)
	if order.Discount != 100 {
		t.Fatalf("automatic promotion should apply, discount=%d", order.Discount)
	}

	f.clock.Advance(2 * time.Hour)
	order, err := f.orders.RecalculateTotals(f.ctx, cart.ID)
	if err != nil {
		t.Fatalf("recalculate failed: %v", err)
	}
	if len(order.Promotions) != 0 || order.Discount != 0 || order.Total != 1000 {
		t.Fatalf("expired automatic promotion should be removed: %+v", order)
	}
}
