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

const cartLineColumns = `id, user_id, product_id, quantity, coupon_id, is_active, created_at, updated_at`

func (s *Store) ActiveCartLines(ctx context.Context, userID string) ([]domain.CartLine, error) {
	const q = `
		SELECT ` + cartLineColumns + `
		FROM   cart_lines
		WHERE  user_id = ? AND is_active = 1
		ORDER  BY created_at DESC`

	rows, err := s.q(ctx).QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: active cart lines for %q: %w", userID, err)
	}
	defer rows.Close()

	var out []domain.CartLine
	for rows.Next() {
		line, err := scanCartLine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *line)
	}
	return out, rows.Err()
}

func (s *Store) GetCartLine(ctx context.Context, id, userID string) (*domain.CartLine, error) {
	const q = `SELECT ` + cartLineColumns + ` FROM cart_lines WHERE id = ? AND user_id = ?`

	rows, err := s.q(ctx).QueryContext(ctx, q, id, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: get cart line %q: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, domain.ErrCartLineNotFound
	}
	return scanCartLine(rows)
}

func (s *Store) AddCartLine(ctx context.Context, line *domain.CartLine) error {
	const q = `
		INSERT INTO cart_lines (` + cartLineColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	var coupon any
	if line.CouponID != nil {
		coupon = *line.CouponID
	}
	_, err := s.q(ctx).ExecContext(ctx, q,
		line.ID, line.UserID, line.ProductID, line.Quantity, coupon,
		line.IsActive, formatTime(line.CreatedAt), formatTime(line.UpdatedAt))
	if err != nil {
		return fmt.Errorf("sqlite: add cart line: %w", err)
	}
	return nil
}

func (s *Store) DeactivateCartLine(ctx context.Context, id, userID string) error {
	const q = `
		UPDATE cart_lines
		SET    is_active = 0, updated_at = ?
		WHERE  id = ? AND user_id = ? AND is_active = 1`

	res, err := s.q(ctx).ExecContext(ctx, q, formatTime(time.Now()), id, userID)
	if err != nil {
		return fmt.Errorf("sqlite: deactivate cart line %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrCartLineNotFound
	}
	return nil
}

func (s *Store) DeactivateCartLines(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(ids)+1)
	args = append(args, formatTime(time.Now()))
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := s.q(ctx).ExecContext(ctx,
		`UPDATE cart_lines SET is_active = 0, updated_at = ? WHERE id IN (`+placeholders+`)`,
		args...)
	if err != nil {
		return fmt.Errorf("sqlite: deactivate cart lines: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCartLine(r rowScanner) (*domain.CartLine, error) {
	var (
		line                 domain.CartLine
		coupon               sql.NullString
		createdAt, updatedAt string
	)
	err := r.Scan(&line.ID, &line.UserID, &line.ProductID, &line.Quantity,
		&coupon, &line.IsActive, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCartLineNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: scan cart line: %w", err)
	}
	if coupon.Valid {
		line.CouponID = &coupon.String
	}
	if line.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if line.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &line, nil
}
