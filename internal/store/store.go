// Package store persists matrices, products, option groups and quotes in SQLite and
// projects them into the shapes the pricing packages consume.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a record does not exist or belongs to another store.
var ErrNotFound = errors.New("not found")

// Store wraps the pricing database. A Store handed out by InTx is bound to that
// transaction.
type Store struct {
	db *sql.DB
	tx *sql.Tx
}

// New returns a Store backed by db.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Product is a storefront product that can carry a matrix and option groups.
type Product struct {
	ID      string
	StoreID string
	Title   string
}

// UpsertProduct creates the product or updates its title. A product owned by a
// different store is reported as ErrNotFound.
func (s *Store) UpsertProduct(ctx context.Context, p Product) error {
	result, err := s.conn().ExecContext(ctx, `
		INSERT INTO products (id, store_id, title)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			updated_at = CURRENT_TIMESTAMP
		WHERE products.store_id = excluded.store_id
	`, p.ID, p.StoreID, p.Title)
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("product %s: %w", p.ID, ErrNotFound)
	}
	return nil
}

func (s *Store) productExists(ctx context.Context, q querier, productID, storeID string) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM products WHERE id = ? AND store_id = ?)
	`, productID, storeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check product existence: %w", err)
	}
	return exists, nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// InTx runs fn with a Store bound to a single transaction. Everything fn writes
// through that Store commits together or not at all.
func (s *Store) InTx(ctx context.Context, fn func(st *Store) error) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return fn(&Store{db: s.db, tx: tx})
	})
}

func (s *Store) conn() querier {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// inTx joins the bound transaction when there is one.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
