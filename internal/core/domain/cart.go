package domain

import "time"

// CartLine is one product/quantity entry in a user's active cart.
// Lines are soft-deleted: checkout and removal flip IsActive instead of
// deleting rows, so placed orders keep a resolvable reference.
type CartLine struct {
	ID        string
	UserID    string
	ProductID string
	Quantity  int
	CouponID  *string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Totals is the cart-level price breakdown served to clients and snapshotted
// onto orders at checkout.
type Totals struct {
	Subtotal      int64 `json:"subtotal"`
	TotalDiscount int64 `json:"total_discount"`
	FinalTotal    int64 `json:"final_total"`
	ItemsCount    int   `json:"items_count"`
	TotalQuantity int   `json:"total_quantity"`
}
