package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/zibanoo/commerce-core/internal/core/domain"
	"github.com/zibanoo/commerce-core/internal/core/ports"
)

const (
	couponCodeMinLen = 6
	couponCodeMaxLen = 30
)

type PromotionService struct {
	store    ports.Store
	cache    ports.Cache
	cacheTTL time.Duration
	now      func() time.Time
}

func NewPromotionService(store ports.Store, cache ports.Cache, cacheTTL time.Duration) *PromotionService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &PromotionService{
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
		now:      nowUTC,
	}
}

// ValidateCode checks a coupon without consuming a use. Inactive or unknown
// codes surface as not-found; exhausted and out-of-window coupons get their
// own distinct errors.
func (s *PromotionService) ValidateCode(ctx context.Context, code string) (*ports.CouponValidation, error) {
	if code == "" {
		ve := domain.NewValidationError()
		ve.Add("code", "code is required")
		return nil, ve
	}

	if v, ok := s.cachedValidation(ctx, code); ok {
		return v, nil
	}

	promo, err := s.store.GetCouponByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if promo.Exhausted() {
		return nil, domain.ErrPromotionExhausted
	}
	if !promo.IsValid(now) {
		return nil, domain.ErrPromotionExpired
	}

	v := &ports.CouponValidation{
		Valid:           true,
		Kind:            promo.Kind,
		DiscountPercent: promo.DiscountPercent,
		Message:         "coupon code is valid",
	}
	s.storeValidation(ctx, code, v)
	return v, nil
}

func (s *PromotionService) CreatePromotion(ctx context.Context, input ports.CreatePromotionInput) (*domain.Promotion, error) {
	now := s.now()
	ve := domain.NewValidationError()

	if input.Title == "" {
		ve.Add("title", "title is required")
	}
	if !input.Kind.Known() {
		ve.Add("discount_type", fmt.Sprintf("unknown promotion kind %q", input.Kind))
	}
	if input.DiscountPercent < 0 || input.DiscountPercent > 100 {
		ve.Add("discount_percent", "discount percentage must be between 0 and 100")
	}
	if !input.EndDate.After(now) {
		ve.Add("end_date", "end date must be in the future")
	}
	if !input.EndDate.After(input.StartDate) {
		ve.Add("start_date", "start date must precede end date")
	}
	if input.MaxUses != nil && *input.MaxUses <= 0 {
		ve.Add("max_uses", "max uses must be greater than zero")
	}

	switch input.Kind {
	case domain.PromotionCoupon:
		validateCouponCode(ve, input.Code)
	case domain.PromotionProduct:
		if input.Code != "" {
			ve.Add("code", "product promotions cannot carry a coupon code")
		}
		if len(input.ProductIDs) == 0 {
			ve.Add("products", "product promotion needs at least one product")
		}
	}
	if err := ve.ErrOrNil(); err != nil {
		return nil, err
	}

	promo := &domain.Promotion{
		ID:              uuid.NewString(),
		Title:           input.Title,
		Kind:            input.Kind,
		DiscountPercent: input.DiscountPercent,
		ProductIDs:      input.ProductIDs,
		StartDate:       input.StartDate.UTC(),
		EndDate:         input.EndDate.UTC(),
		IsActive:        input.IsActive,
		MaxUses:         input.MaxUses,
	}
	if input.Kind == domain.PromotionCoupon {
		code := input.Code
		promo.Code = &code
	}

	err := s.store.Transact(ctx, func(ctx context.Context) error {
		return s.store.CreatePromotion(ctx, promo)
	})
	if err != nil {
		return nil, fmt.Errorf("create promotion: %w", err)
	}

	// New pricing rules make every cached cart total stale.
	bumpPromoEpoch(ctx, s.cache)
	slog.InfoContext(ctx, "promotion created",
		"promotion_id", promo.ID, "kind", promo.Kind, "percent", promo.DiscountPercent)
	return promo, nil
}

func (s *PromotionService) ListPromotions(ctx context.Context, filter ports.PromotionFilter) ([]domain.Promotion, error) {
	return s.store.ListPromotions(ctx, filter)
}

func validateCouponCode(ve *domain.ValidationError, code string) {
	if code == "" {
		ve.Add("code", "coupon promotions require a code")
		return
	}
	if len(code) < couponCodeMinLen || len(code) > couponCodeMaxLen {
		ve.Add("code", fmt.Sprintf("code must be between %d and %d characters", couponCodeMinLen, couponCodeMaxLen))
		return
	}
	for _, r := range code {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			ve.Add("code", "code can only contain letters and digits")
			return
		}
	}
}

func (s *PromotionService) cachedValidation(ctx context.Context, code string) (*ports.CouponValidation, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, s.cache.Key(couponValidationOp, code))
	if err != nil || raw == "" {
		return nil, false
	}
	var v ports.CouponValidation
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, false
	}
	return &v, true
}

func (s *PromotionService) storeValidation(ctx context.Context, code string, v *ports.CouponValidation) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = s.cache.Set(ctx, s.cache.Key(couponValidationOp, code), string(data), s.cacheTTL)
}
