package domain

import "time"

// StatusLogEntry is one immutable row in the order status audit log.
// Exactly one entry is written per accepted transition; rejected
// transitions leave no trace here.
type StatusLogEntry struct {
	ID        int64
	OrderID   string
	OldStatus OrderStatus
	NewStatus OrderStatus

	// Actor is the user who triggered the transition. Empty for
	// system-triggered transitions such as gateway confirmations.
	Actor string

	// TraceID/SpanID come from the OTel span active when the entry was
	// written, so a log row can be joined with the distributed trace.
	TraceID string
	SpanID  string

	CreatedAt time.Time
}
