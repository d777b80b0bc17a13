// Package service implements the order lifecycle, pricing and checkout
// use-cases on top of the storage, cache and event ports.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zibanoo/commerce-core/internal/core/domain"
	"github.com/zibanoo/commerce-core/internal/core/ports"
)

const (
	cartTotalsOp       = "cart_totals"
	couponValidationOp = "coupon_validation"
	promoEpochKey      = "promo_epoch"
	paymentDedupeOp    = "payment_confirm"
)

// newOrderNumber returns a 32-char hex token. Random, never sequential, so
// order numbers cannot be enumerated. Collisions are handled by regenerating
// on the unique-constraint error.
func newOrderNumber() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// isDomainError reports whether err is a business outcome rather than a
// transient infrastructure failure. Domain errors are never retried.
func isDomainError(err error) bool {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return true
	}
	for _, sentinel := range []error{
		domain.ErrInvalidTransition,
		domain.ErrInsufficientStock,
		domain.ErrPromotionNotFound,
		domain.ErrPromotionExpired,
		domain.ErrPromotionExhausted,
		domain.ErrOrderNotFound,
		domain.ErrProductNotFound,
		domain.ErrCartLineNotFound,
		domain.ErrEmptyCart,
		domain.ErrPermissionDenied,
		domain.ErrPaymentNotConfirmed,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// promoEpoch returns the current promotion generation token. Cart totals
// cache keys embed it, so bumping the epoch instantly invalidates every
// user's cached totals when a promotion changes.
func promoEpoch(ctx context.Context, cache ports.Cache) string {
	if cache == nil {
		return "0"
	}
	epoch, err := cache.Get(ctx, cache.Key(promoEpochKey))
	if err != nil || epoch == "" {
		return "0"
	}
	return epoch
}

func bumpPromoEpoch(ctx context.Context, cache ports.Cache) {
	if cache == nil {
		return
	}
	// Best effort: a failed bump only extends staleness up to the TTL.
	_ = cache.Set(ctx, cache.Key(promoEpochKey), uuid.NewString(), 0)
}

func cartTotalsKey(ctx context.Context, cache ports.Cache, userID string) string {
	return cache.Key(cartTotalsOp, promoEpoch(ctx, cache), userID)
}

func invalidateCartTotals(ctx context.Context, cache ports.Cache, userID string) {
	if cache == nil {
		return
	}
	_ = cache.Delete(ctx, cartTotalsKey(ctx, cache, userID))
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
