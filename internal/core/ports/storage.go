package ports

import (
	"context"
	"time"

	"github.com/zibanoo/commerce-core/internal/core/domain"
)

// ProductRepository is the catalog surface the core consumes.
type ProductRepository interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)

	// UpdateProductStock sets the stock and active flag. Callable only
	// inside a transaction started with Transact.
	UpdateProductStock(ctx context.Context, id string, stock int, active bool) error
}

// PromotionFilter narrows admin promotion listings.
type PromotionFilter struct {
	IsActive   *bool
	Kind       *domain.PromotionKind
	StartAfter *time.Time
	EndBefore  *time.Time
}

type PromotionRepository interface {
	GetPromotion(ctx context.Context, id string) (*domain.Promotion, error)

	// GetCouponByCode looks up a COUPON-kind promotion by its unique code.
	// Returns domain.ErrPromotionNotFound when absent.
	GetCouponByCode(ctx context.Context, code string) (*domain.Promotion, error)

	// ProductPromotions returns, per product id, the PRODUCT-kind promotions
	// whose validity window contains now. Final validity (active flag, usage
	// cap) is still checked by the pricing code.
	ProductPromotions(ctx context.Context, productIDs []string, now time.Time) (map[string][]domain.Promotion, error)

	CreatePromotion(ctx context.Context, p *domain.Promotion) error
	ListPromotions(ctx context.Context, filter PromotionFilter) ([]domain.Promotion, error)

	// IncrementPromotionUse consumes one use under the current transaction.
	// The usage cap is re-checked inside the statement; when it is already
	// reached the call fails with domain.ErrPromotionExhausted and no
	// increment happens.
	IncrementPromotionUse(ctx context.Context, id string) error
}

type CartRepository interface {
	ActiveCartLines(ctx context.Context, userID string) ([]domain.CartLine, error)
	GetCartLine(ctx context.Context, id, userID string) (*domain.CartLine, error)
	AddCartLine(ctx context.Context, line *domain.CartLine) error
	DeactivateCartLine(ctx context.Context, id, userID string) error

	// DeactivateCartLines soft-deletes the given lines regardless of owner;
	// used by checkout against the snapshot's source line ids.
	DeactivateCartLines(ctx context.Context, ids []string) error
}

type OrderRepository interface {
	// CreateOrder persists the order and its lines. A duplicate order number
	// fails with domain.ErrOrderNumberTaken so the caller can regenerate.
	CreateOrder(ctx context.Context, o *domain.Order) error

	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrders(ctx context.Context, userID string) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error
	SetOrderPayment(ctx context.Context, id string, bank domain.BankType, trackingCode string) error
}

type StatusLogRepository interface {
	// AppendStatusLog writes one immutable audit row. Prior rows are never
	// mutated or removed.
	AppendStatusLog(ctx context.Context, entry *domain.StatusLogEntry) error

	// StatusLogsByOrder returns the audit trail newest-first.
	StatusLogsByOrder(ctx context.Context, orderID string) ([]domain.StatusLogEntry, error)
}

// Store is the persistent system of record. Transact runs fn inside a single
// write transaction: every repository call made with the ctx passed to fn
// joins that transaction, and an error from fn rolls the whole unit back.
type Store interface {
	Transact(ctx context.Context, fn func(ctx context.Context) error) error

	ProductRepository
	PromotionRepository
	CartRepository
	OrderRepository
	StatusLogRepository
}
