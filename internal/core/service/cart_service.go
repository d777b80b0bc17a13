package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/zibanoo/commerce-core/internal/core/domain"
	"github.com/zibanoo/commerce-core/internal/core/ports"
)

type CartService struct {
	store    ports.Store
	cache    ports.Cache
	cacheTTL time.Duration
	now      func() time.Time
}

func NewCartService(store ports.Store, cache ports.Cache, cacheTTL time.Duration) *CartService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &CartService{
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
		now:      nowUTC,
	}
}

// ListCart returns the active lines priced for display. Totals come from
// the cache when fresh; the cache is advisory only and pricing itself never
// mutates anything, so recomputing on a miss is always safe.
func (s *CartService) ListCart(ctx context.Context, userID string) (*ports.CartView, error) {
	now := s.now()

	lines, err := s.store.ActiveCartLines(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if len(lines) == 0 {
		return &ports.CartView{Lines: []ports.CartLineView{}}, nil
	}

	products := make(map[string]domain.Product, len(lines))
	productIDs := make([]string, 0, len(lines))
	for _, line := range lines {
		p, err := s.store.GetProduct(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("load product %s: %w", line.ProductID, err)
		}
		products[p.ID] = *p
		productIDs = append(productIDs, p.ID)
	}

	promos, err := s.store.ProductPromotions(ctx, productIDs, now)
	if err != nil {
		return nil, fmt.Errorf("load promotions: %w", err)
	}

	view := &ports.CartView{}
	for _, line := range lines {
		p := products[line.ProductID]
		unit := domain.UnitPrice(p, promos[line.ProductID], now)
		view.Lines = append(view.Lines, ports.CartLineView{
			Line:         line,
			ProductTitle: p.Title,
			UnitPrice:    unit,
			Subtotal:     unit * int64(line.Quantity),
		})
	}

	if totals, ok := s.cachedTotals(ctx, userID); ok {
		view.Totals = totals
		return view, nil
	}

	coupon, err := s.lineCoupon(ctx, lines)
	if err != nil {
		return nil, err
	}
	view.Totals = domain.CartTotals(lines, products, promos, coupon, now)
	s.storeTotals(ctx, userID, view.Totals)
	return view, nil
}

func (s *CartService) AddLine(ctx context.Context, input ports.AddCartLineInput) (*domain.CartLine, error) {
	ve := domain.NewValidationError()
	if input.Quantity < 1 {
		ve.Add("quantity", "quantity must be at least 1")
	}
	if input.ProductID == "" {
		ve.Add("product_id", "product_id is required")
	}
	if err := ve.ErrOrNil(); err != nil {
		return nil, err
	}

	p, err := s.store.GetProduct(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		ve.Add("product_id", "product is not available")
	} else if input.Quantity > p.Stock {
		ve.Add("quantity", fmt.Sprintf("quantity %d exceeds available stock %d", input.Quantity, p.Stock))
	}
	if err := ve.ErrOrNil(); err != nil {
		return nil, err
	}

	now := s.now()
	line := &domain.CartLine{
		ID:        uuid.NewString(),
		UserID:    input.UserID,
		ProductID: input.ProductID,
		Quantity:  input.Quantity,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if input.CouponCode != "" {
		// GetCouponByCode only matches active COUPON-kind promotions, so a
		// product promotion's id can never end up here.
		promo, err := s.store.GetCouponByCode(ctx, input.CouponCode)
		if err != nil {
			return nil, err
		}
		line.CouponID = &promo.ID
	}

	if err := s.store.AddCartLine(ctx, line); err != nil {
		return nil, fmt.Errorf("add cart line: %w", err)
	}

	invalidateCartTotals(ctx, s.cache, input.UserID)
	slog.InfoContext(ctx, "cart line added",
		"user_id", input.UserID, "product_id", input.ProductID, "quantity", input.Quantity)
	return line, nil
}

func (s *CartService) RemoveLine(ctx context.Context, lineID, userID string) error {
	if err := s.store.DeactivateCartLine(ctx, lineID, userID); err != nil {
		return err
	}
	invalidateCartTotals(ctx, s.cache, userID)
	return nil
}

func (s *CartService) lineCoupon(ctx context.Context, lines []domain.CartLine) (*domain.Promotion, error) {
	for _, line := range lines {
		if line.CouponID == nil {
			continue
		}
		promo, err := s.store.GetPromotion(ctx, *line.CouponID)
		if err != nil {
			return nil, fmt.Errorf("load coupon %s: %w", *line.CouponID, err)
		}
		return promo, nil
	}
	return nil, nil
}

func (s *CartService) cachedTotals(ctx context.Context, userID string) (domain.Totals, bool) {
	if s.cache == nil {
		return domain.Totals{}, false
	}
	raw, err := s.cache.Get(ctx, cartTotalsKey(ctx, s.cache, userID))
	if err != nil || raw == "" {
		return domain.Totals{}, false
	}
	var totals domain.Totals
	if err := json.Unmarshal([]byte(raw), &totals); err != nil {
		return domain.Totals{}, false
	}
	return totals, true
}

func (s *CartService) storeTotals(ctx context.Context, userID string, totals domain.Totals) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(totals)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cartTotalsKey(ctx, s.cache, userID), string(data), s.cacheTTL); err != nil {
		slog.WarnContext(ctx, "cart totals cache write failed", "user_id", userID, "error", err)
	}
}
