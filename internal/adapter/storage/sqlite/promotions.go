package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zibanoo/commerce-core/internal/core/domain"
	"github.com/zibanoo/commerce-core/internal/core/ports"
)

const promotionColumns = `id, title, kind, discount_percent, code, start_date, end_date, is_active, max_uses, used_count`

func (s *Store) GetPromotion(ctx context.Context, id string) (*domain.Promotion, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+promotionColumns+` FROM promotions WHERE id = ?`, id)
	return scanPromotion(row)
}

func (s *Store) GetCouponByCode(ctx context.Context, code string) (*domain.Promotion, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+promotionColumns+` FROM promotions WHERE code = ? AND kind = ? AND is_active = 1`,
		code, domain.PromotionCoupon)
	return scanPromotion(row)
}

func (s *Store) ProductPromotions(ctx context.Context, productIDs []string, now time.Time) (map[string][]domain.Promotion, error) {
	out := make(map[string][]domain.Promotion)
	if len(productIDs) == 0 {
		return out, nil
	}

	placeholders := strings.Repeat("?,", len(productIDs))
	placeholders = placeholders[:len(placeholders)-1]

	q := `
		SELECT pp.product_id, p.` + strings.ReplaceAll(promotionColumns, ", ", ", p.") + `
		FROM   promotions p
		JOIN   promotion_products pp ON pp.promotion_id = p.id
		WHERE  p.kind = ?
		  AND  p.is_active = 1
		  AND  p.start_date <= ?
		  AND  p.end_date >= ?
		  AND  pp.product_id IN (` + placeholders + `)`

	args := make([]any, 0, len(productIDs)+3)
	args = append(args, domain.PromotionProduct, formatTime(now), formatTime(now))
	for _, id := range productIDs {
		args = append(args, id)
	}

	rows, err := s.q(ctx).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: product promotions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			productID          string
			p                  domain.Promotion
			code               sql.NullString
			maxUses            sql.NullInt64
			startDate, endDate string
		)
		if err := rows.Scan(&productID, &p.ID, &p.Title, &p.Kind, &p.DiscountPercent,
			&code, &startDate, &endDate, &p.IsActive, &maxUses, &p.UsedCount); err != nil {
			return nil, fmt.Errorf("sqlite: scan promotion: %w", err)
		}
		if err := finishPromotion(&p, code, maxUses, startDate, endDate); err != nil {
			return nil, err
		}
		out[productID] = append(out[productID], p)
	}
	return out, rows.Err()
}

func (s *Store) CreatePromotion(ctx context.Context, p *domain.Promotion) error {
	const q = `
		INSERT INTO promotions
			(id, title, kind, discount_percent, code, start_date, end_date, is_active, max_uses, used_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var code any
	if p.Code != nil {
		code = *p.Code
	}
	var maxUses any
	if p.MaxUses != nil {
		maxUses = *p.MaxUses
	}
	_, err := s.q(ctx).ExecContext(ctx, q,
		p.ID, p.Title, p.Kind, p.DiscountPercent, code,
		formatTime(p.StartDate), formatTime(p.EndDate), p.IsActive, maxUses, p.UsedCount)
	if err != nil {
		return fmt.Errorf("sqlite: create promotion %q: %w", p.ID, err)
	}

	for _, productID := range p.ProductIDs {
		_, err := s.q(ctx).ExecContext(ctx,
			`INSERT INTO promotion_products (promotion_id, product_id) VALUES (?, ?)`,
			p.ID, productID)
		if err != nil {
			return fmt.Errorf("sqlite: attach promotion %q to product %q: %w", p.ID, productID, err)
		}
	}
	return nil
}

func (s *Store) ListPromotions(ctx context.Context, filter ports.PromotionFilter) ([]domain.Promotion, error) {
	q := `SELECT ` + promotionColumns + ` FROM promotions`
	var (
		conds []string
		args  []any
	)
	if filter.IsActive != nil {
		conds = append(conds, "is_active = ?")
		args = append(args, *filter.IsActive)
	}
	if filter.Kind != nil {
		conds = append(conds, "kind = ?")
		args = append(args, *filter.Kind)
	}
	if filter.StartAfter != nil {
		conds = append(conds, "start_date >= ?")
		args = append(args, formatTime(*filter.StartAfter))
	}
	if filter.EndBefore != nil {
		conds = append(conds, "end_date <= ?")
		args = append(args, formatTime(*filter.EndBefore))
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY start_date DESC"

	rows, err := s.q(ctx).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list promotions: %w", err)
	}
	defer rows.Close()

	var out []domain.Promotion
	for rows.Next() {
		var (
			p                  domain.Promotion
			code               sql.NullString
			maxUses            sql.NullInt64
			startDate, endDate string
		)
		if err := rows.Scan(&p.ID, &p.Title, &p.Kind, &p.DiscountPercent,
			&code, &startDate, &endDate, &p.IsActive, &maxUses, &p.UsedCount); err != nil {
			return nil, fmt.Errorf("sqlite: scan promotion: %w", err)
		}
		if err := finishPromotion(&p, code, maxUses, startDate, endDate); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// IncrementPromotionUse consumes one use. The WHERE clause re-checks the cap
// atomically, closing the race between the advisory validity check and the
// actual redemption.
func (s *Store) IncrementPromotionUse(ctx context.Context, id string) error {
	const q = `
		UPDATE promotions
		SET    used_count = used_count + 1
		WHERE  id = ? AND (max_uses IS NULL OR used_count < max_uses)`

	res, err := s.q(ctx).ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("sqlite: redeem promotion %q: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		return nil
	}

	// No row changed: either the promotion is gone or the cap is reached.
	if _, err := s.GetPromotion(ctx, id); err != nil {
		return err
	}
	return domain.ErrPromotionExhausted
}

func scanPromotion(row *sql.Row) (*domain.Promotion, error) {
	var (
		p                  domain.Promotion
		code               sql.NullString
		maxUses            sql.NullInt64
		startDate, endDate string
	)
	err := row.Scan(&p.ID, &p.Title, &p.Kind, &p.DiscountPercent,
		&code, &startDate, &endDate, &p.IsActive, &maxUses, &p.UsedCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPromotionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: scan promotion: %w", err)
	}
	if err := finishPromotion(&p, code, maxUses, startDate, endDate); err != nil {
		return nil, err
	}
	return &p, nil
}

func finishPromotion(p *domain.Promotion, code sql.NullString, maxUses sql.NullInt64, startDate, endDate string) error {
	if code.Valid {
		p.Code = &code.String
	}
	if maxUses.Valid {
		v := int(maxUses.Int64)
		p.MaxUses = &v
	}
	var err error
	if p.StartDate, err = parseTime(startDate); err != nil {
		return err
	}
	if p.EndDate, err = parseTime(endDate); err != nil {
		return err
	}
	return nil
}
