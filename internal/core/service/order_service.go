package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/zibanoo/commerce-core/internal/core/domain"
	"github.com/zibanoo/commerce-core/internal/core/ports"
	"github.com/zibanoo/commerce-core/internal/pkg/metrics"
	"github.com/zibanoo/commerce-core/internal/pkg/telemetry"
)

// orderNumberAttempts bounds regeneration on an order-number collision.
// With 128 random bits a second collision is not a realistic loop.
const orderNumberAttempts = 5

type OrderService struct {
	store   ports.Store
	cache   ports.Cache
	events  ports.EventPublisher
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewOrderService(store ports.Store, cache ports.Cache, events ports.EventPublisher, m *metrics.Metrics) *OrderService {
	return &OrderService{
		store:   store,
		cache:   cache,
		events:  events,
		metrics: m,
		now:     nowUTC,
	}
}

// CreateOrder snapshots the user's active cart lines into a new PENDING
// order. The snapshot copies product titles and effective unit prices, so
// later catalog changes never corrupt the placed order.
func (s *OrderService) CreateOrder(ctx context.Context, userID string) (*domain.Order, error) {
	now := s.now()

	lines, err := s.store.ActiveCartLines(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if len(lines) == 0 {
		return nil, domain.ErrEmptyCart
	}

	products := make(map[string]domain.Product, len(lines))
	productIDs := make([]string, 0, len(lines))
	ve := domain.NewValidationError()
	for _, line := range lines {
		p, err := s.store.GetProduct(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("load product %s: %w", line.ProductID, err)
		}
		if !p.Active {
			ve.Add("product", fmt.Sprintf("product %s is no longer available", p.ID))
			continue
		}
		if line.Quantity > p.Stock {
			ve.Add("quantity", fmt.Sprintf("quantity %d exceeds stock %d for product %s", line.Quantity, p.Stock, p.ID))
			continue
		}
		products[p.ID] = *p
		productIDs = append(productIDs, p.ID)
	}
	if err := ve.ErrOrNil(); err != nil {
		return nil, err
	}

	promos, err := s.store.ProductPromotions(ctx, productIDs, now)
	if err != nil {
		return nil, fmt.Errorf("load promotions: %w", err)
	}

	coupon, err := s.cartCoupon(ctx, lines)
	if err != nil {
		return nil, err
	}

	totals := domain.CartTotals(lines, products, promos, coupon, now)

	order := &domain.Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    domain.StatusPending,
		Subtotal:  totals.Subtotal,
		Discount:  totals.TotalDiscount,
		Total:     totals.FinalTotal,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if coupon != nil {
		order.CouponID = &coupon.ID
	}
	for _, line := range lines {
		p := products[line.ProductID]
		order.Lines = append(order.Lines, domain.OrderLine{
			ID:         uuid.NewString(),
			OrderID:    order.ID,
			CartLineID: line.ID,
			ProductID:  line.ProductID,
			Title:      p.Title,
			UnitPrice:  domain.UnitPrice(p, promos[line.ProductID], now),
			Quantity:   line.Quantity,
		})
	}

	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		order.Number = newOrderNumber()
		err = s.store.Transact(ctx, func(ctx context.Context) error {
			return s.store.CreateOrder(ctx, order)
		})
		if !errors.Is(err, domain.ErrOrderNumberTaken) {
			break
		}
		slog.WarnContext(ctx, "order number collision, regenerating", "attempt", attempt+1)
	}
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	slog.InfoContext(ctx, "order created",
		"order_id", order.ID, "order_number", order.Number, "user_id", userID, "total", order.Total)
	return order, nil
}

// cartCoupon resolves the coupon attached to the cart, if any. The first
// line carrying a coupon wins; the coupon applies to the cart as a whole.
func (s *OrderService) cartCoupon(ctx context.Context, lines []domain.CartLine) (*domain.Promotion, error) {
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

func (s *OrderService) GetOrder(ctx context.Context, orderID, userID string, admin bool) (*ports.OrderDetails, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !admin && o.UserID != userID {
		// Hide other users' orders rather than acknowledging them.
		return nil, domain.ErrOrderNotFound
	}
	logs, err := s.store.StatusLogsByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &ports.OrderDetails{Order: o, StatusLogs: logs}, nil
}

func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.store.ListOrders(ctx, userID)
}

// Cancel is legal from every non-terminal state. Cancelling a PAID or later
// order does not restore stock; returns are a manual, out-of-band process.
func (s *OrderService) Cancel(ctx context.Context, orderID, actor string, admin bool) (*domain.Order, error) {
	owner := actor
	if admin {
		owner = ""
	}
	return s.transition(ctx, orderID, owner, domain.StatusCancelled, actor)
}

func (s *OrderService) Process(ctx context.Context, orderID, actor string) (*domain.Order, error) {
	return s.transition(ctx, orderID, "", domain.StatusProcessing, actor)
}

func (s *OrderService) Ship(ctx context.Context, orderID, actor string) (*domain.Order, error) {
	return s.transition(ctx, orderID, "", domain.StatusShipped, actor)
}

func (s *OrderService) Deliver(ctx context.Context, orderID, actor string) (*domain.Order, error) {
	return s.transition(ctx, orderID, "", domain.StatusDelivered, actor)
}

// transition performs one state-machine edge: status update and exactly one
// audit entry, atomically. owner, when non-empty, restricts the operation to
// the order's owner.
func (s *OrderService) transition(ctx context.Context, orderID, owner string, to domain.OrderStatus, actor string) (*domain.Order, error) {
	var (
		updated *domain.Order
		old     domain.OrderStatus
	)
	err := s.store.Transact(ctx, func(ctx context.Context) error {
		o, err := s.store.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if owner != "" && o.UserID != owner {
			return domain.ErrOrderNotFound
		}
		old = o.Status
		if err := o.Transition(to); err != nil {
			return err
		}
		if err := s.store.UpdateOrderStatus(ctx, o.ID, to); err != nil {
			return err
		}
		ti := telemetry.ExtractTraceInfo(ctx)
		if err := s.store.AppendStatusLog(ctx, &domain.StatusLogEntry{
			OrderID:   o.ID,
			OldStatus: old,
			NewStatus: to,
			Actor:     actor,
			TraceID:   ti.TraceID,
			SpanID:    ti.SpanID,
			CreatedAt: s.now(),
		}); err != nil {
			return err
		}
		o.UpdatedAt = s.now()
		updated = o
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			s.metrics.TransitionRejected()
		}
		return nil, err
	}

	s.metrics.TransitionAccepted(string(old), string(to))
	s.publishStatusChange(ctx, updated, old, to, actor)
	slog.InfoContext(ctx, "order status changed",
		"order_id", updated.ID, "old_status", old, "new_status", to, "actor", actor)
	return updated, nil
}

func (s *OrderService) publishStatusChange(ctx context.Context, o *domain.Order, old, new domain.OrderStatus, actor string) {
	if s.events == nil {
		return
	}
	ev := ports.StatusChangeEvent{
		EventID:     uuid.NewString(),
		OrderID:     o.ID,
		OrderNumber: o.Number,
		OldStatus:   old,
		NewStatus:   new,
		Actor:       actor,
		At:          s.now(),
	}
	if err := s.events.PublishStatusChange(ctx, ev); err != nil {
		// Events are a downstream convenience; the transition itself has
		// already committed.
		slog.WarnContext(ctx, "status event publish failed", "order_id", o.ID, "error", err)
	}
}
