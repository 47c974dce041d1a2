package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Simplici0/matrixprice/internal/pricing"
)

// Quote is a priced request snapshot. The breakdown is stored as computed and is
// never recalculated on read.
type Quote struct {
	ID             string
	StoreID        string
	ProductID      string
	CreatedAt      time.Time
	Width          float64
	Height         float64
	Quantity       int64
	UnitPriceCents int64
	TotalCents     int64
	Breakdown      pricing.Result
}

// SaveQuote stores q and returns its generated ID.
func (s *Store) SaveQuote(ctx context.Context, q Quote) (string, error) {
	breakdown, err := json.Marshal(q.Breakdown)
	if err != nil {
		return "", fmt.Errorf("encode quote breakdown: %w", err)
	}

	id := uuid.NewString()
	if _, err := s.conn().ExecContext(ctx, `
		INSERT INTO quotes (id, store_id, product_id, width, height, quantity, unit_price_cents, total_cents, breakdown_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, q.StoreID, q.ProductID, q.Width, q.Height, q.Quantity, q.UnitPriceCents, q.TotalCents, string(breakdown)); err != nil {
		return "", fmt.Errorf("insert quote: %w", err)
	}
	return id, nil
}

// ListQuotes returns the store's quotes newest first, optionally limited to one product.
func (s *Store) ListQuotes(ctx context.Context, storeID, productID string) ([]Quote, error) {
	rows, err := s.conn().QueryContext(ctx, `
		SELECT id, store_id, product_id, created_at, width, height, quantity, unit_price_cents, total_cents, breakdown_json
		FROM quotes
		WHERE store_id = ? AND (? = '' OR product_id = ?)
		ORDER BY datetime(created_at) DESC, rowid DESC
	`, storeID, productID, productID)
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()

	quotes := make([]Quote, 0)
	for rows.Next() {
		var q Quote
		var breakdown string
		if err := rows.Scan(&q.ID, &q.StoreID, &q.ProductID, &q.CreatedAt, &q.Width, &q.Height,
			&q.Quantity, &q.UnitPriceCents, &q.TotalCents, &breakdown); err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		if err := json.Unmarshal([]byte(breakdown), &q.Breakdown); err != nil {
			return nil, fmt.Errorf("decode quote %s breakdown: %w", q.ID, err)
		}
		quotes = append(quotes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotes: %w", err)
	}
	return quotes, nil
}
