package catalog

import (
	"context"
	"fmt"
	"time"
)

// AppendPriceHistory records the price for a day. The first write of a day
// wins; later writes for the same day report false and change nothing.
func (s *Store) AppendPriceHistory(ctx context.Context, point PriceHistoryPoint) (bool, error) {
	if point.Date == "" {
		point.Date = time.Now().UTC().Format(HistoryDateLayout)
	}
	res, err := s.execWithRetry(ctx,
		`INSERT INTO price_history (product_id, day, price, recorded_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (product_id, day) DO NOTHING`,
		point.ProductID, point.Date, point.Price, formatTime(time.Now()))
	if err != nil {
		return false, fmt.Errorf("append price history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("append price history: %w", err)
	}
	return n > 0, nil
}

// PriceHistory returns the most recent points for a product, oldest first.
func (s *Store) PriceHistory(ctx context.Context, productID int64, limit int) ([]PriceHistoryPoint, error) {
	if limit <= 0 {
		limit = 365
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT product_id, day, price FROM (
		   SELECT product_id, day, price FROM price_history WHERE product_id = ? ORDER BY day DESC LIMIT ?
		 ) ORDER BY day`, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("load price history: %w", err)
	}
	defer rows.Close()

	var points []PriceHistoryPoint
	for rows.Next() {
		var point PriceHistoryPoint
		if err := rows.Scan(&point.ProductID, &point.Date, &point.Price); err != nil {
			return nil, fmt.Errorf("scan price history: %w", err)
		}
		points = append(points, point)
	}
	return points, rows.Err()
}
