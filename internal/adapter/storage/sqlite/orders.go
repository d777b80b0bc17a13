package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zibanoo/commerce-core/internal/core/domain"
)

const orderColumns = `id, user_id, order_number, status, coupon_id, bank_type, tracking_code,
	subtotal, discount, total, is_active, created_at, updated_at`

func (s *Store) CreateOrder(ctx context.Context, o *domain.Order) error {
	const q = `
		INSERT INTO orders (` + orderColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var coupon any
	if o.CouponID != nil {
		coupon = *o.CouponID
	}
	var bank, tracking any
	if o.BankType != nil {
		bank = string(*o.BankType)
	}
	if o.TrackingCode != nil {
		tracking = *o.TrackingCode
	}

	_, err := s.q(ctx).ExecContext(ctx, q,
		o.ID, o.UserID, o.Number, o.Status, coupon, bank, tracking,
		o.Subtotal, o.Discount, o.Total, o.IsActive,
		formatTime(o.CreatedAt), formatTime(o.UpdatedAt))
	if err != nil {
		if strings.Contains(err.Error(), "orders.order_number") {
			return domain.ErrOrderNumberTaken
		}
		return fmt.Errorf("sqlite: create order %q: %w", o.ID, err)
	}

	for _, line := range o.Lines {
		_, err := s.q(ctx).ExecContext(ctx, `
			INSERT INTO order_lines (id, order_id, cart_line_id, product_id, title, unit_price, quantity)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			line.ID, o.ID, line.CartLineID, line.ProductID, line.Title, line.UnitPrice, line.Quantity)
		if err != nil {
			return fmt.Errorf("sqlite: create order line: %w", err)
		}
	}
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)

	o, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	if o.Lines, err = s.orderLines(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Store) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	const q = `
		SELECT ` + orderColumns + `
		FROM   orders
		WHERE  user_id = ?
		ORDER  BY created_at DESC`

	rows, err := s.q(ctx).QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list orders for %q: %w", userID, err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrderRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if out[i].Lines, err = s.orderLines(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	const q = `UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`

	res, err := s.q(ctx).ExecContext(ctx, q, status, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("sqlite: update order status %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
	}
	return nil
}

func (s *Store) SetOrderPayment(ctx context.Context, id string, bank domain.BankType, trackingCode string) error {
	const q = `UPDATE orders SET bank_type = ?, tracking_code = ?, updated_at = ? WHERE id = ?`

	res, err := s.q(ctx).ExecContext(ctx, q, string(bank), trackingCode, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("sqlite: set order payment %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
	}
	return nil
}

func (s *Store) orderLines(ctx context.Context, orderID string) ([]domain.OrderLine, error) {
	const q = `
		SELECT id, order_id, cart_line_id, product_id, title, unit_price, quantity
		FROM   order_lines
		WHERE  order_id = ?`

	rows, err := s.q(ctx).QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: order lines for %q: %w", orderID, err)
	}
	defer rows.Close()

	var out []domain.OrderLine
	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.ID, &line.OrderID, &line.CartLineID,
			&line.ProductID, &line.Title, &line.UnitPrice, &line.Quantity); err != nil {
			return nil, fmt.Errorf("sqlite: scan order line: %w", err)
		}
		out = append(out, line)
	}
	return out, rows.Err()
}

func scanOrder(row *sql.Row) (*domain.Order, error) {
	o, err := scanOrderFrom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	return o, err
}

func scanOrderRow(rows *sql.Rows) (*domain.Order, error) {
	return scanOrderFrom(rows)
}

func scanOrderFrom(r rowScanner) (*domain.Order, error) {
	var (
		o                    domain.Order
		coupon               sql.NullString
		bank                 sql.NullString
		tracking             sql.NullString
		createdAt, updatedAt string
	)
	err := r.Scan(&o.ID, &o.UserID, &o.Number, &o.Status, &coupon, &bank, &tracking,
		&o.Subtotal, &o.Discount, &o.Total, &o.IsActive, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("sqlite: scan order: %w", err)
	}
	if coupon.Valid {
		o.CouponID = &coupon.String
	}
	if bank.Valid {
		b := domain.BankType(bank.String)
		o.BankType = &b
	}
	if tracking.Valid {
		o.TrackingCode = &tracking.String
	}
	if o.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if o.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}
