package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/zibanoo/commerce-core/internal/core/domain"
)

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	const q = `
		SELECT id, title, price, stock, active, created_at, updated_at
		FROM   products
		WHERE  id = ?`

	row := s.q(ctx).QueryRowContext(ctx, q, id)

	var (
		p                    domain.Product
		createdAt, updatedAt string
	)
	err := row.Scan(&p.ID, &p.Title, &p.Price, &p.Stock, &p.Active, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get product %q: %w", id, err)
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) UpdateProductStock(ctx context.Context, id string, stock int, active bool) error {
	const q = `
		UPDATE products
		SET    stock = ?, active = ?, updated_at = ?
		WHERE  id = ?`

	res, err := s.q(ctx).ExecContext(ctx, q, stock, active, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("sqlite: update stock for %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrProductNotFound, id)
	}
	return nil
}

// CreateProduct seeds catalog rows; used by fixtures and admin tooling.
func (s *Store) CreateProduct(ctx context.Context, p *domain.Product) error {
	const q = `
		INSERT INTO products (id, title, price, stock, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	now := formatTime(time.Now())
	createdAt, updatedAt := now, now
	if !p.CreatedAt.IsZero() {
		createdAt = formatTime(p.CreatedAt)
	}
	if !p.UpdatedAt.IsZero() {
		updatedAt = formatTime(p.UpdatedAt)
	}
	_, err := s.q(ctx).ExecContext(ctx, q, p.ID, p.Title, p.Price, p.Stock, p.Active, createdAt, updatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: create product %q: %w", p.ID, err)
	}
	return nil
}
