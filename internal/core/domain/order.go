package domain

import (
	"fmt"
	"time"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusPaid       OrderStatus = "PAID"
	StatusProcessing OrderStatus = "PROCESSING"
	StatusShipped    OrderStatus = "SHIPPED"
	StatusDelivered  OrderStatus = "DELIVERED"
	StatusCancelled  OrderStatus = "CANCELLED"
)

// transitions is the authoritative edge set of the order lifecycle.
// DELIVERED and CANCELLED are terminal.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusPaid, StatusCancelled},
	StatusPaid:       {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusCancelled},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// Known reports whether s is one of the defined statuses.
func (s OrderStatus) Known() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo reports whether the edge s -> to is legal.
// Same-state requests are not legal: the edge set contains no self loops.
func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Terminal reports whether s has no outgoing transitions.
func (s OrderStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

type BankType string

const (
	BankZarinpal BankType = "ZARINPAL"
	BankIDPay    BankType = "IDPAY"
)

func (b BankType) Known() bool {
	return b == BankZarinpal || b == BankIDPay
}

// Order is an immutable snapshot of cart lines plus lifecycle status.
// Lines are copied at creation; later stock or price changes never
// touch a placed order.
type Order struct {
	ID       string
	UserID   string
	Number   string
	Status   OrderStatus
	CouponID *string

	BankType     *BankType
	TrackingCode *string

	Lines []OrderLine

	Subtotal int64
	Discount int64
	Total    int64

	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderLine is one snapshotted cart line. CartLineID points back at the
// source line so checkout can deactivate exactly the lines it consumed.
type OrderLine struct {
	ID         string
	OrderID    string
	CartLineID string
	ProductID  string
	Title      string
	UnitPrice  int64
	Quantity   int
}

// Transition moves the order to the requested status, or fails with
// ErrInvalidTransition. It touches nothing but the status field; audit
// logging and side effects belong to the caller.
func (o *Order) Transition(to OrderStatus) error {
	if !to.Known() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if !o.Status.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}
	o.Status = to
	return nil
}
