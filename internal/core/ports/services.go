package ports

import (
	"context"
	"time"

	"github.com/zibanoo/commerce-core/internal/core/domain"
)

// PaymentConfirmation is the asynchronous event delivered by the payment
// gateway adapter. The core never initiates outbound payment calls; it only
// reacts to these.
type PaymentConfirmation struct {
	OrderID      string
	BankType     domain.BankType
	TrackingCode string
	Amount       int64
	Success      bool
}

// CouponValidation is the outcome of checking a coupon code without
// consuming a use.
type CouponValidation struct {
	Valid           bool
	Kind            domain.PromotionKind
	DiscountPercent int
	Message         string
}

// OrderDetails is an order plus its audit trail.
type OrderDetails struct {
	Order      *domain.Order
	StatusLogs []domain.StatusLogEntry
}

// CartLineView is a cart line priced for display.
type CartLineView struct {
	Line         domain.CartLine
	ProductTitle string
	UnitPrice    int64
	Subtotal     int64
}

// CartView is the active cart with its totals.
type CartView struct {
	Lines  []CartLineView
	Totals domain.Totals
}

type AddCartLineInput struct {
	UserID     string
	ProductID  string
	Quantity   int
	CouponCode string
}

type CreatePromotionInput struct {
	Title           string
	Kind            domain.PromotionKind
	DiscountPercent int
	Code            string
	ProductIDs      []string
	StartDate       time.Time
	EndDate         time.Time
	IsActive        bool
	MaxUses         *int
}

type OrderService interface {
	CreateOrder(ctx context.Context, userID string) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID, userID string, admin bool) (*OrderDetails, error)
	ListOrders(ctx context.Context, userID string) ([]domain.Order, error)

	Cancel(ctx context.Context, orderID, actor string, admin bool) (*domain.Order, error)
	Process(ctx context.Context, orderID, actor string) (*domain.Order, error)
	Ship(ctx context.Context, orderID, actor string) (*domain.Order, error)
	Deliver(ctx context.Context, orderID, actor string) (*domain.Order, error)
}

type CheckoutService interface {
	// ConfirmPayment applies the payment as one atomic unit: transition to
	// PAID, stock decrement, cart deactivation and coupon redemption all
	// commit together or not at all. Already-PAID orders are returned as-is.
	ConfirmPayment(ctx context.Context, conf PaymentConfirmation) (*domain.Order, error)
}

type PromotionService interface {
	ValidateCode(ctx context.Context, code string) (*CouponValidation, error)
	CreatePromotion(ctx context.Context, input CreatePromotionInput) (*domain.Promotion, error)
	ListPromotions(ctx context.Context, filter PromotionFilter) ([]domain.Promotion, error)
}

type CartService interface {
	ListCart(ctx context.Context, userID string) (*CartView, error)
	AddLine(ctx context.Context, input AddCartLineInput) (*domain.CartLine, error)
	RemoveLine(ctx context.Context, lineID, userID string) error
}
