package domain

import "time"

type PromotionKind string

const (
	PromotionProduct PromotionKind = "PRODUCT"
	PromotionCoupon  PromotionKind = "COUPON"
)

func (k PromotionKind) Known() bool {
	return k == PromotionProduct || k == PromotionCoupon
}

// Promotion is a discount rule, either attached to products or redeemable
// through a coupon code. Code is set iff the kind is COUPON. MaxUses nil
// means unlimited.
type Promotion struct {
	ID              string
	Title           string
	Kind            PromotionKind
	DiscountPercent int
	Code            *string
	ProductIDs      []string
	StartDate       time.Time
	EndDate         time.Time
	IsActive        bool
	MaxUses         *int
	UsedCount       int
}

// IsValid reports whether the promotion can be applied at the given instant:
// active, inside the validity window, and not exhausted. The usage check here
// is advisory: redemption re-checks it inside the store transaction.
func (p *Promotion) IsValid(now time.Time) bool {
	if !p.IsActive {
		return false
	}
	if now.Before(p.StartDate) || now.After(p.EndDate) {
		return false
	}
	if p.MaxUses != nil && p.UsedCount >= *p.MaxUses {
		return false
	}
	return true
}

// DiscountAmount returns floor(base * percent / 100). Prices are integers in
// the smallest currency unit; truncation, not rounding, is the contract.
func (p *Promotion) DiscountAmount(base int64) int64 {
	if base <= 0 {
		return 0
	}
	return base * int64(p.DiscountPercent) / 100
}

// Exhausted reports whether the usage cap has been reached.
func (p *Promotion) Exhausted() bool {
	return p.MaxUses != nil && p.UsedCount >= *p.MaxUses
}
