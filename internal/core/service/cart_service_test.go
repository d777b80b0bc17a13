package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zibanoo/commerce-core/internal/core/domain"
	"github.com/zibanoo/commerce-core/internal/core/ports"
)

func newCartSvc(store *memStore, cache ports.Cache) *CartService {
	svc := NewCartService(store, cache, time.Minute)
	svc.now = fixedNow
	return svc
}

func TestAddLine_Validation(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "p1", 500, 3)
	svc := newCartSvc(store, nil)
	ctx := context.Background()

	var ve *domain.ValidationError

	_, err := svc.AddLine(ctx, ports.AddCartLineInput{UserID: "u1"})
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "product_id")
	assert.Contains(t, ve.Fields, "quantity")

	_, err = svc.AddLine(ctx, ports.AddCartLineInput{UserID: "u1", ProductID: "p1", Quantity: 5})
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "quantity")

	_, err = svc.AddLine(ctx, ports.AddCartLineInput{UserID: "u1", ProductID: "nope", Quantity: 1})
	require.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestAddLine_WithCoupon(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "p1", 500, 3)
	code := "SAVE10X"
	store.promos["cp1"] = domain.Promotion{
		ID: "cp1", Kind: domain.PromotionCoupon, Code: &code, DiscountPercent: 10,
		IsActive: true, StartDate: fixedNow().Add(-time.Hour), EndDate: fixedNow().Add(time.Hour),
	}

	svc := newCartSvc(store, nil)
	line, err := svc.AddLine(context.Background(), ports.AddCartLineInput{
		UserID: "u1", ProductID: "p1", Quantity: 1, CouponCode: code,
	})
	require.NoError(t, err)
	require.NotNil(t, line.CouponID)
	assert.Equal(t, "cp1", *line.CouponID)

	_, err = svc.AddLine(context.Background(), ports.AddCartLineInput{
		UserID: "u1", ProductID: "p1", Quantity: 1, CouponCode: "UNKNOWN1",
	})
	require.ErrorIs(t, err, domain.ErrPromotionNotFound)
}

func TestListCart_PricesAndTotals(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "p1", 1000, 10)
	store.promos["pp1"] = domain.Promotion{
		ID: "pp1", Kind: domain.PromotionProduct, DiscountPercent: 25, ProductIDs: []string{"p1"},
		IsActive: true, StartDate: fixedNow().Add(-time.Hour), EndDate: fixedNow().Add(time.Hour),
	}
	store.cartLines["cl1"] = domain.CartLine{ID: "cl1", UserID: "u1", ProductID: "p1", Quantity: 2, IsActive: true}

	svc := newCartSvc(store, nil)
	view, err := svc.ListCart(context.Background(), "u1")
	require.NoError(t, err)

	require.Len(t, view.Lines, 1)
	assert.Equal(t, int64(750), view.Lines[0].UnitPrice)
	assert.Equal(t, int64(1500), view.Lines[0].Subtotal)
	assert.Equal(t, int64(1500), view.Totals.Subtotal)
	assert.Equal(t, int64(1500), view.Totals.FinalTotal)
	assert.Equal(t, 2, view.Totals.TotalQuantity)
}

func TestListCart_Empty(t *testing.T) {
	svc := newCartSvc(newMemStore(), nil)
	view, err := svc.ListCart(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
	assert.Equal(t, domain.Totals{}, view.Totals)
}

func TestListCart_CachesTotals(t *testing.T) {
	store := newMemStore()
	cache := newMemCache()
	seedProduct(store, "p1", 1000, 10)
	store.cartLines["cl1"] = domain.CartLine{ID: "cl1", UserID: "u1", ProductID: "p1", Quantity: 1, IsActive: true}

	svc := newCartSvc(store, cache)
	ctx := context.Background()

	view, err := svc.ListCart(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(1000), view.Totals.FinalTotal)

	// A price change is masked by the cached totals until invalidation.
	p := store.products["p1"]
	p.Price = 2000
	store.products["p1"] = p

	view, err = svc.ListCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), view.Totals.FinalTotal, "totals served from cache")
	assert.Equal(t, int64(2000), view.Lines[0].UnitPrice, "line prices are always fresh")

	invalidateCartTotals(ctx, cache, "u1")
	view, err = svc.ListCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), view.Totals.FinalTotal)
}

func TestListCart_PromoEpochInvalidatesTotals(t *testing.T) {
	store := newMemStore()
	cache := newMemCache()
	seedProduct(store, "p1", 1000, 10)
	store.cartLines["cl1"] = domain.CartLine{ID: "cl1", UserID: "u1", ProductID: "p1", Quantity: 1, IsActive: true}

	cartSvc := newCartSvc(store, cache)
	ctx := context.Background()

	view, err := cartSvc.ListCart(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(1000), view.Totals.FinalTotal)

	// A new promotion bumps the epoch; every cached total misses from then on.
	promoSvc := NewPromotionService(store, cache, time.Minute)
	promoSvc.now = fixedNow
	_, err = promoSvc.CreatePromotion(ctx, ports.CreatePromotionInput{
		Title:           "quarter off",
		Kind:            domain.PromotionProduct,
		DiscountPercent: 25,
		ProductIDs:      []string{"p1"},
		StartDate:       fixedNow().Add(-time.Hour),
		EndDate:         fixedNow().Add(time.Hour),
		IsActive:        true,
	})
	require.NoError(t, err)

	view, err = cartSvc.ListCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(750), view.Totals.FinalTotal, "stale totals dropped after promotion change")
}

func TestRemoveLine(t *testing.T) {
	store := newMemStore()
	store.cartLines["cl1"] = domain.CartLine{ID: "cl1", UserID: "u1", ProductID: "p1", Quantity: 1, IsActive: true}
	svc := newCartSvc(store, nil)
	ctx := context.Background()

	require.ErrorIs(t, svc.RemoveLine(ctx, "cl1", "u2"), domain.ErrCartLineNotFound)
	require.NoError(t, svc.RemoveLine(ctx, "cl1", "u1"))
	assert.False(t, store.cartLines["cl1"].IsActive)
	require.ErrorIs(t, svc.RemoveLine(ctx, "cl1", "u1"), domain.ErrCartLineNotFound)
}
