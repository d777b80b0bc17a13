package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zibanoo/commerce-core/internal/core/domain"
)

func newOrderSvc(store *memStore) *OrderService {
	svc := NewOrderService(store, nil, nil, nil)
	svc.now = fixedNow
	return svc
}

func TestCreateOrder_SnapshotsCart(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "p1", 500, 10)
	seedProduct(store, "p2", 300, 10)
	store.cartLines["cl1"] = domain.CartLine{ID: "cl1", UserID: "u1", ProductID: "p1", Quantity: 2, IsActive: true}
	store.cartLines["cl2"] = domain.CartLine{ID: "cl2", UserID: "u1", ProductID: "p2", Quantity: 1, IsActive: true}
	// Another user's line must not leak into the order.
	store.cartLines["cl3"] = domain.CartLine{ID: "cl3", UserID: "u2", ProductID: "p1", Quantity: 9, IsActive: true}

	svc := newOrderSvc(store)
	order, err := svc.CreateOrder(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, order.Status)
	assert.Len(t, order.Number, 32, "order number is a 32-char hex token")
	assert.Len(t, order.Lines, 2)
	assert.Equal(t, int64(1300), order.Subtotal)
	assert.Equal(t, int64(1300), order.Total)

	// Snapshot keeps the priced lines even if the catalog changes later.
	p := store.products["p1"]
	p.Price = 9999
	store.products["p1"] = p
	stored, err := store.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	for _, line := range stored.Lines {
		if line.ProductID == "p1" {
			assert.Equal(t, int64(500), line.UnitPrice)
		}
	}
}

func TestCreateOrder_AppliesProductPromoAndCoupon(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "p1", 1000, 10)
	store.promos["pp1"] = domain.Promotion{
		ID: "pp1", Kind: domain.PromotionProduct, DiscountPercent: 20, ProductIDs: []string{"p1"},
		IsActive: true, StartDate: fixedNow().Add(-time.Hour), EndDate: fixedNow().Add(time.Hour),
	}
	code := "SAVE10X"
	store.promos["cp1"] = domain.Promotion{
		ID: "cp1", Kind: domain.PromotionCoupon, Code: &code, DiscountPercent: 10,
		IsActive: true, StartDate: fixedNow().Add(-time.Hour), EndDate: fixedNow().Add(time.Hour),
	}
	couponID := "cp1"
	store.cartLines["cl1"] = domain.CartLine{
		ID: "cl1", UserID: "u1", ProductID: "p1", Quantity: 1, CouponID: &couponID, IsActive: true,
	}

	svc := newOrderSvc(store)
	order, err := svc.CreateOrder(context.Background(), "u1")
	require.NoError(t, err)

	// 1000 -> 800 after the product promotion, then 10% coupon off the sum.
	assert.Equal(t, int64(800), order.Subtotal)
	assert.Equal(t, int64(80), order.Discount)
	assert.Equal(t, int64(720), order.Total)
	require.NotNil(t, order.CouponID)
	assert.Equal(t, "cp1", *order.CouponID)
	assert.Equal(t, int64(800), order.Lines[0].UnitPrice)
}

func TestCreateOrder_EmptyCart(t *testing.T) {
	svc := newOrderSvc(newMemStore())
	_, err := svc.CreateOrder(context.Background(), "u1")
	require.ErrorIs(t, err, domain.ErrEmptyCart)
}

func TestCreateOrder_RejectsOverStock(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "p1", 500, 1)
	store.cartLines["cl1"] = domain.CartLine{ID: "cl1", UserID: "u1", ProductID: "p1", Quantity: 3, IsActive: true}

	svc := newOrderSvc(store)
	_, err := svc.CreateOrder(context.Background(), "u1")
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "quantity")
}

func TestCreateOrder_RejectsInactiveProduct(t *testing.T) {
	store := newMemStore()
	store.products["p1"] = domain.Product{ID: "p1", Title: "gone", Price: 100, Stock: 5, Active: false}
	store.cartLines["cl1"] = domain.CartLine{ID: "cl1", UserID: "u1", ProductID: "p1", Quantity: 1, IsActive: true}

	svc := newOrderSvc(store)
	_, err := svc.CreateOrder(context.Background(), "u1")
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "product")
}

func TestGetOrder_HidesOtherUsers(t *testing.T) {
	store := newMemStore()
	order := seedPendingOrder(store, "u1")
	svc := newOrderSvc(store)

	_, err := svc.GetOrder(context.Background(), order.ID, "u2", false)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)

	details, err := svc.GetOrder(context.Background(), order.ID, "u2", true)
	require.NoError(t, err, "admins can read any order")
	assert.Equal(t, order.ID, details.Order.ID)
}

func TestTransitions_HappyPath(t *testing.T) {
	store := newMemStore()
	order := seedPendingOrder(store, "u1")
	o := store.orders[order.ID]
	o.Status = domain.StatusPaid
	store.orders[order.ID] = o

	svc := newOrderSvc(store)
	ctx := context.Background()

	got, err := svc.Process(ctx, order.ID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, got.Status)

	got, err = svc.Ship(ctx, order.ID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusShipped, got.Status)

	got, err = svc.Deliver(ctx, order.ID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, got.Status)

	logs, err := store.StatusLogsByOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	// Newest first.
	assert.Equal(t, domain.StatusDelivered, logs[0].NewStatus)
	assert.Equal(t, domain.StatusShipped, logs[0].OldStatus)
	assert.Equal(t, "admin-1", logs[0].Actor)
	assert.Equal(t, domain.StatusPaid, logs[2].OldStatus)
}

func TestCancel_OwnerOnly(t *testing.T) {
	store := newMemStore()
	order := seedPendingOrder(store, "u1")
	svc := newOrderSvc(store)
	ctx := context.Background()

	_, err := svc.Cancel(ctx, order.ID, "u2", false)
	require.ErrorIs(t, err, domain.ErrOrderNotFound, "strangers see not-found, not forbidden")

	got, err := svc.Cancel(ctx, order.ID, "u1", false)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)
}

func TestCancel_AdminOnForeignOrder(t *testing.T) {
	store := newMemStore()
	order := seedPendingOrder(store, "u1")
	svc := newOrderSvc(store)

	got, err := svc.Cancel(context.Background(), order.ID, "admin-1", true)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)

	logs, _ := store.StatusLogsByOrder(context.Background(), order.ID)
	require.Len(t, logs, 1)
	assert.Equal(t, "admin-1", logs[0].Actor)
}

func TestCancel_TerminalOrderFails(t *testing.T) {
	store := newMemStore()
	order := seedPendingOrder(store, "u1")
	svc := newOrderSvc(store)
	ctx := context.Background()

	_, err := svc.Cancel(ctx, order.ID, "u1", false)
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, order.ID, "u1", false)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	logs, _ := store.StatusLogsByOrder(ctx, order.ID)
	assert.Len(t, logs, 1, "rejected transition writes no audit entry")
}

func TestCancel_PaidOrderKeepsStock(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "p1", 500, 10)
	order := seedPendingOrder(store, "u1", domain.OrderLine{
		ID: "ol1", ProductID: "p1", UnitPrice: 500, Quantity: 2,
	})

	checkout := newCheckout(store)
	_, err := checkout.ConfirmPayment(context.Background(), confirmation(order.ID, order.Total))
	require.NoError(t, err)
	require.Equal(t, 8, store.products["p1"].Stock)

	svc := newOrderSvc(store)
	got, err := svc.Cancel(context.Background(), order.ID, "u1", false)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)

	// Returns are handled out of band; cancellation never restores stock.
	assert.Equal(t, 8, store.products["p1"].Stock)
}

func TestTransition_PublishesEvent(t *testing.T) {
	store := newMemStore()
	order := seedPendingOrder(store, "u1")
	pub := &memPublisher{}
	svc := NewOrderService(store, nil, pub, nil)
	svc.now = fixedNow

	_, err := svc.Cancel(context.Background(), order.ID, "u1", false)
	require.NoError(t, err)

	events := pub.published()
	require.Len(t, events, 1)
	assert.Equal(t, order.ID, events[0].OrderID)
	assert.Equal(t, domain.StatusPending, events[0].OldStatus)
	assert.Equal(t, domain.StatusCancelled, events[0].NewStatus)
	assert.NotEmpty(t, events[0].EventID)
}
