package sqlite

import (
	"context"
	"fmt"

	"github.com/zibanoo/commerce-core/internal/core/domain"
)

// AppendStatusLog writes one immutable audit row. The table is append-only;
// nothing in this package updates or deletes existing rows.
func (s *Store) AppendStatusLog(ctx context.Context, entry *domain.StatusLogEntry) error {
	const q = `
		INSERT INTO order_status_logs
			(order_id, old_status, new_status, actor, trace_id, span_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.q(ctx).ExecContext(ctx, q,
		entry.OrderID, entry.OldStatus, entry.NewStatus,
		nullableString(entry.Actor), entry.TraceID, entry.SpanID,
		formatTime(entry.CreatedAt))
	if err != nil {
		return fmt.Errorf("sqlite: append status log for %q: %w", entry.OrderID, err)
	}
	return nil
}

func (s *Store) StatusLogsByOrder(ctx context.Context, orderID string) ([]domain.StatusLogEntry, error) {
	const q = `
		SELECT id, order_id, old_status, new_status, COALESCE(actor, ''), trace_id, span_id, created_at
		FROM   order_status_logs
		WHERE  order_id = ?
		ORDER  BY created_at DESC, id DESC`

	rows, err := s.q(ctx).QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: status logs for %q: %w", orderID, err)
	}
	defer rows.Close()

	var out []domain.StatusLogEntry
	for rows.Next() {
		var (
			entry     domain.StatusLogEntry
			createdAt string
		)
		if err := rows.Scan(&entry.ID, &entry.OrderID, &entry.OldStatus, &entry.NewStatus,
			&entry.Actor, &entry.TraceID, &entry.SpanID, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan status log: %w", err)
		}
		if entry.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// nullableString maps "" to NULL so system-triggered transitions store a
// NULL actor instead of an empty string.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
