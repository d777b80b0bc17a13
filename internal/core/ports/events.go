package ports

import (
	"context"
	"time"

	"github.com/zibanoo/commerce-core/internal/core/domain"
)

// StatusChangeEvent is published after every accepted order transition so
// downstream consumers (notifications, analytics) can react without polling.
type StatusChangeEvent struct {
	EventID     string             `json:"event_id"`
	OrderID     string             `json:"order_id"`
	OrderNumber string             `json:"order_number"`
	OldStatus   domain.OrderStatus `json:"old_status"`
	NewStatus   domain.OrderStatus `json:"new_status"`
	Actor       string             `json:"actor,omitempty"`
	At          time.Time          `json:"at"`
}

// EventPublisher delivers status events to interested consumers. A nil
// publisher is allowed and means publication is disabled.
type EventPublisher interface {
	PublishStatusChange(ctx context.Context, ev StatusChangeEvent) error
}
