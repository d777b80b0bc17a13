package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/zibanoo/commerce-core/internal/core/domain"
	"github.com/zibanoo/commerce-core/internal/core/ports"
	"github.com/zibanoo/commerce-core/internal/pkg/metrics"
	"github.com/zibanoo/commerce-core/internal/pkg/telemetry"
)

const (
	confirmAttempts  = 3
	confirmBackoff   = 50 * time.Millisecond
	paymentDedupeTTL = 24 * time.Hour
)

// CheckoutService reacts to payment gateway confirmations. The whole of
// ConfirmPayment (status transition, stock decrement, cart deactivation and
// coupon redemption) commits as one store transaction or not at all.
type CheckoutService struct {
	store   ports.Store
	cache   ports.Cache
	events  ports.EventPublisher
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewCheckoutService(store ports.Store, cache ports.Cache, events ports.EventPublisher, m *metrics.Metrics) *CheckoutService {
	return &CheckoutService{
		store:   store,
		cache:   cache,
		events:  events,
		metrics: m,
		now:     nowUTC,
	}
}

func (s *CheckoutService) ConfirmPayment(ctx context.Context, conf ports.PaymentConfirmation) (*domain.Order, error) {
	if conf.OrderID == "" {
		ve := domain.NewValidationError()
		ve.Add("order_id", "order_id is required")
		return nil, ve
	}
	if !conf.BankType.Known() {
		ve := domain.NewValidationError()
		ve.Add("bank_type", fmt.Sprintf("unknown bank type %q", conf.BankType))
		return nil, ve
	}
	if !conf.Success {
		s.metrics.Checkout("declined")
		return nil, domain.ErrPaymentNotConfirmed
	}

	// Gateways redeliver webhooks; a repeated delivery for an order we have
	// already paid must not re-run any side effect.
	if s.seenDelivery(ctx, conf) {
		slog.InfoContext(ctx, "duplicate payment confirmation", "order_id", conf.OrderID)
	}

	var (
		order        *domain.Order
		transitioned bool
		err          error
	)
	for attempt := 1; ; attempt++ {
		order, transitioned, err = s.confirmOnce(ctx, conf)
		if err == nil || isDomainError(err) || attempt >= confirmAttempts {
			break
		}
		// Transient store failure (lock contention, busy database): the
		// transaction rolled back cleanly, so retrying is safe.
		slog.WarnContext(ctx, "payment confirmation retry",
			"order_id", conf.OrderID, "attempt", attempt, "error", err)
		sleep := confirmBackoff*time.Duration(attempt) + time.Duration(rand.Int63n(int64(confirmBackoff)))
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		s.metrics.Checkout(checkoutResult(err))
		return nil, err
	}
	if !transitioned {
		// Duplicate confirmation of an already-PAID order: return current
		// state, emit nothing.
		return order, nil
	}

	s.metrics.Checkout("paid")
	invalidateCartTotals(ctx, s.cache, order.UserID)
	s.publishPaid(ctx, order)
	slog.InfoContext(ctx, "payment confirmed",
		"order_id", order.ID, "order_number", order.Number, "amount", conf.Amount)
	return order, nil
}

// confirmOnce runs one attempt of the atomic confirmation unit. The second
// return value reports whether this attempt performed the transition, as
// opposed to finding the order already PAID.
func (s *CheckoutService) confirmOnce(ctx context.Context, conf ports.PaymentConfirmation) (*domain.Order, bool, error) {
	var (
		order        *domain.Order
		transitioned bool
	)
	err := s.store.Transact(ctx, func(ctx context.Context) error {
		o, err := s.store.GetOrder(ctx, conf.OrderID)
		if err != nil {
			return err
		}

		// Idempotence: an order that is already PAID is returned as-is,
		// with no further stock, cart or promotion effects.
		if o.Status == domain.StatusPaid {
			order = o
			return nil
		}

		old := o.Status
		if err := o.Transition(domain.StatusPaid); err != nil {
			return err
		}

		if conf.Amount != o.Total {
			// The gateway settled a different amount than we quoted. Not a
			// failure per the bank contract, but worth an operator's eye.
			slog.WarnContext(ctx, "confirmed amount differs from order total",
				"order_id", o.ID, "order_total", o.Total, "confirmed", conf.Amount)
		}

		if err := s.applyInventory(ctx, o); err != nil {
			return err
		}

		cartLineIDs := make([]string, 0, len(o.Lines))
		for _, line := range o.Lines {
			if line.CartLineID != "" {
				cartLineIDs = append(cartLineIDs, line.CartLineID)
			}
		}
		if err := s.store.DeactivateCartLines(ctx, cartLineIDs); err != nil {
			return fmt.Errorf("deactivate cart lines: %w", err)
		}

		if o.CouponID != nil {
			if err := s.redeemCoupon(ctx, *o.CouponID); err != nil {
				return err
			}
		}

		if err := s.store.UpdateOrderStatus(ctx, o.ID, domain.StatusPaid); err != nil {
			return err
		}
		if err := s.store.SetOrderPayment(ctx, o.ID, conf.BankType, conf.TrackingCode); err != nil {
			return err
		}

		ti := telemetry.ExtractTraceInfo(ctx)
		if err := s.store.AppendStatusLog(ctx, &domain.StatusLogEntry{
			OrderID:   o.ID,
			OldStatus: old,
			NewStatus: domain.StatusPaid,
			TraceID:   ti.TraceID,
			SpanID:    ti.SpanID,
			CreatedAt: s.now(),
		}); err != nil {
			return err
		}

		bank := conf.BankType
		tracking := conf.TrackingCode
		o.BankType = &bank
		o.TrackingCode = &tracking
		o.UpdatedAt = s.now()
		order = o
		transitioned = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return order, transitioned, nil
}

// applyInventory verifies and decrements stock for every order line.
// Products are visited in ascending id order so concurrent confirmations
// against a row-locking backend acquire locks in a stable order.
func (s *CheckoutService) applyInventory(ctx context.Context, o *domain.Order) error {
	lines := make([]domain.OrderLine, len(o.Lines))
	copy(lines, o.Lines)
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

	// Quantities per product: the same product may appear on several lines.
	needed := make(map[string]int, len(lines))
	for _, line := range lines {
		needed[line.ProductID] += line.Quantity
	}

	seen := make(map[string]bool, len(lines))
	for _, line := range lines {
		if seen[line.ProductID] {
			continue
		}
		seen[line.ProductID] = true

		p, err := s.store.GetProduct(ctx, line.ProductID)
		if err != nil {
			return fmt.Errorf("load product %s: %w", line.ProductID, err)
		}
		qty := needed[p.ID]
		if p.Stock < qty {
			return fmt.Errorf("%w: product %s has %d, order needs %d",
				domain.ErrInsufficientStock, p.ID, p.Stock, qty)
		}
		newStock := p.Stock - qty
		active := p.Active && newStock > 0
		if err := s.store.UpdateProductStock(ctx, p.ID, newStock, active); err != nil {
			return fmt.Errorf("update stock for %s: %w", p.ID, err)
		}
	}
	return nil
}

// redeemCoupon consumes one use of the coupon. Validity is re-checked here,
// inside the transaction: the pre-checkout check was advisory only.
func (s *CheckoutService) redeemCoupon(ctx context.Context, couponID string) error {
	promo, err := s.store.GetPromotion(ctx, couponID)
	if err != nil {
		return fmt.Errorf("load coupon: %w", err)
	}
	if promo.Exhausted() {
		return domain.ErrPromotionExhausted
	}
	if !promo.IsValid(s.now()) {
		return domain.ErrPromotionExpired
	}
	// The statement re-checks the cap once more, atomically.
	return s.store.IncrementPromotionUse(ctx, couponID)
}

// seenDelivery records the gateway delivery for observability. Correctness
// does not depend on it: the in-transaction PAID check is what makes
// confirmation idempotent.
func (s *CheckoutService) seenDelivery(ctx context.Context, conf ports.PaymentConfirmation) bool {
	if s.cache == nil || conf.TrackingCode == "" {
		return false
	}
	key := s.cache.Key(paymentDedupeOp, conf.OrderID, conf.TrackingCode)
	fresh, err := s.cache.SetNX(ctx, key, paymentDedupeTTL)
	if err != nil {
		return false
	}
	return !fresh
}

func (s *CheckoutService) publishPaid(ctx context.Context, o *domain.Order) {
	if s.events == nil {
		return
	}
	ev := ports.StatusChangeEvent{
		EventID:     uuid.NewString(),
		OrderID:     o.ID,
		OrderNumber: o.Number,
		OldStatus:   domain.StatusPending,
		NewStatus:   domain.StatusPaid,
		At:          s.now(),
	}
	if err := s.events.PublishStatusChange(ctx, ev); err != nil {
		slog.WarnContext(ctx, "status event publish failed", "order_id", o.ID, "error", err)
	}
}

func checkoutResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrPromotionExhausted):
		return "coupon_exhausted"
	case errors.Is(err, domain.ErrPromotionExpired):
		return "coupon_expired"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_state"
	case isDomainError(err):
		return "rejected"
	default:
		return "error"
	}
}
