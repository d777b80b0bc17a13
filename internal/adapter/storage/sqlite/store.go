// Package sqlite implements ports.Store on SQLite.
//
// WAL mode keeps readers and writers from blocking each other; writes go
// through a single connection, and transactions are opened with the
// immediate lock so concurrent checkouts serialize at BEGIN instead of
// failing mid-transaction.
//
// The pure-Go modernc.org/sqlite driver avoids CGO, which keeps builds and
// Alpine images simple.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
    id          TEXT PRIMARY KEY,
    title       TEXT    NOT NULL,
    price       INTEGER NOT NULL CHECK (price >= 0),
    stock       INTEGER NOT NULL CHECK (stock >= 0),
    active      INTEGER NOT NULL DEFAULT 1,
    created_at  TEXT    NOT NULL,
    updated_at  TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS promotions (
    id               TEXT PRIMARY KEY,
    title            TEXT    NOT NULL,
    kind             TEXT    NOT NULL,
    discount_percent INTEGER NOT NULL CHECK (discount_percent BETWEEN 0 AND 100),
    code             TEXT    UNIQUE,
    start_date       TEXT    NOT NULL,
    end_date         TEXT    NOT NULL,
    is_active        INTEGER NOT NULL DEFAULT 1,
    max_uses         INTEGER,
    used_count       INTEGER NOT NULL DEFAULT 0 CHECK (used_count >= 0)
);

CREATE TABLE IF NOT EXISTS promotion_products (
    promotion_id TEXT NOT NULL REFERENCES promotions(id),
    product_id   TEXT NOT NULL REFERENCES products(id),
    PRIMARY KEY (promotion_id, product_id)
);

CREATE TABLE IF NOT EXISTS cart_lines (
    id          TEXT PRIMARY KEY,
    user_id     TEXT    NOT NULL,
    product_id  TEXT    NOT NULL REFERENCES products(id),
    quantity    INTEGER NOT NULL CHECK (quantity >= 1),
    coupon_id   TEXT    REFERENCES promotions(id),
    is_active   INTEGER NOT NULL DEFAULT 1,
    created_at  TEXT    NOT NULL,
    updated_at  TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cart_lines_user ON cart_lines(user_id, is_active);

CREATE TABLE IF NOT EXISTS orders (
    id            TEXT PRIMARY KEY,
    user_id       TEXT    NOT NULL,
    order_number  TEXT    NOT NULL UNIQUE,
    status        TEXT    NOT NULL,
    coupon_id     TEXT    REFERENCES promotions(id),
    bank_type     TEXT,
    tracking_code TEXT,
    subtotal      INTEGER NOT NULL,
    discount      INTEGER NOT NULL,
    total         INTEGER NOT NULL,
    is_active     INTEGER NOT NULL DEFAULT 1,
    created_at    TEXT    NOT NULL,
    updated_at    TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_user   ON orders(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status, is_active);

CREATE TABLE IF NOT EXISTS order_lines (
    id           TEXT PRIMARY KEY,
    order_id     TEXT    NOT NULL REFERENCES orders(id),
    cart_line_id TEXT    NOT NULL DEFAULT '',
    product_id   TEXT    NOT NULL,
    title        TEXT    NOT NULL,
    unit_price   INTEGER NOT NULL,
    quantity     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_order_lines_order ON order_lines(order_id);

-- Append-only audit trail of status transitions. Rows are never updated
-- or deleted; trace_id/span_id join a row with the distributed trace.
CREATE TABLE IF NOT EXISTS order_status_logs (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id    TEXT NOT NULL REFERENCES orders(id),
    old_status  TEXT NOT NULL,
    new_status  TEXT NOT NULL,
    actor       TEXT,
    trace_id    TEXT NOT NULL DEFAULT '',
    span_id     TEXT NOT NULL DEFAULT '',
    created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_status_logs_order ON order_status_logs(order_id, created_at);
`

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)&_txlock=immediate",
		path,
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	// SQLite performs best with a single writer connection; the pool would
	// otherwise hand out connections that fight over the write lock.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type txKey struct{}

// Transact runs fn inside one write transaction. Repository calls made with
// the ctx passed to fn join the transaction; nested Transact calls reuse the
// transaction already in flight.
func (s *Store) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// q returns the transaction bound to ctx, or the plain connection.
func (s *Store) q(ctx context.Context) dbtx {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return s.db
}
