package domain

import "time"

// Pricing is pure and side-effect free: safe to recompute for display as
// often as needed without touching promotion usage counters.

// BestProductPromotion picks the applicable PRODUCT-kind promotion with the
// highest discount percent that is valid at the given instant. Highest
// percent wins is the documented tie-break rule.
func BestProductPromotion(promos []Promotion, now time.Time) *Promotion {
	var best *Promotion
	for i := range promos {
		p := &promos[i]
		if p.Kind != PromotionProduct || !p.IsValid(now) {
			continue
		}
		if best == nil || p.DiscountPercent > best.DiscountPercent {
			best = p
		}
	}
	return best
}

// UnitPrice is the product's price after the best applicable product
// promotion, floored at zero.
func UnitPrice(product Product, promos []Promotion, now time.Time) int64 {
	price := product.Price
	if promo := BestProductPromotion(promos, now); promo != nil {
		price -= promo.DiscountAmount(price)
	}
	if price < 0 {
		price = 0
	}
	return price
}

// CartTotals prices the given active lines. productPromos maps product id to
// its candidate PRODUCT promotions; coupon, when present and valid, is
// applied once against the summed subtotal, never per line.
func CartTotals(
	lines []CartLine,
	products map[string]Product,
	productPromos map[string][]Promotion,
	coupon *Promotion,
	now time.Time,
) Totals {
	var t Totals
	for _, line := range lines {
		if !line.IsActive {
			continue
		}
		product, ok := products[line.ProductID]
		if !ok {
			continue
		}
		unit := UnitPrice(product, productPromos[line.ProductID], now)
		t.Subtotal += unit * int64(line.Quantity)
		t.ItemsCount++
		t.TotalQuantity += line.Quantity
	}

	t.FinalTotal = t.Subtotal
	if coupon != nil && coupon.Kind == PromotionCoupon && coupon.IsValid(now) {
		t.FinalTotal -= coupon.DiscountAmount(t.Subtotal)
	}
	if t.FinalTotal < 0 {
		t.FinalTotal = 0
	}
	t.TotalDiscount = t.Subtotal - t.FinalTotal
	return t
}
