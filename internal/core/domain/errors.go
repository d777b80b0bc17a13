package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrPromotionNotFound   = errors.New("promotion not found")
	ErrPromotionExpired    = errors.New("promotion expired")
	ErrPromotionExhausted  = errors.New("promotion usage limit reached")
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderNumberTaken    = errors.New("order number already taken")
	ErrProductNotFound     = errors.New("product not found")
	ErrCartLineNotFound    = errors.New("cart line not found")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrPaymentNotConfirmed = errors.New("payment not confirmed by gateway")
)

// ValidationError carries field-level detail for malformed client input.
// It is surfaced as a 400 with one message per offending field.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = message
}

func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("validation failed")
	for _, k := range keys {
		fmt.Fprintf(&b, "; %s: %s", k, e.Fields[k])
	}
	return b.String()
}

// ErrOrNil returns the error when it carries at least one field, nil otherwise,
// so builders can return `ve.ErrOrNil()` directly.
func (e *ValidationError) ErrOrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}
