package domain

import "time"

// Product is the slice of the catalog the core needs: price, stock and the
// active flag. Only checkout mutates it, to decrement stock and deactivate
// the product when stock hits zero.
type Product struct {
	ID        string
	Title     string
	Price     int64
	Stock     int
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
