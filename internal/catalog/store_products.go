package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// AddProduct inserts a product and returns it with its assigned id.
func (s *Store) AddProduct(ctx context.Context, product Product) (*Product, error) {
	product.Title = strings.TrimSpace(product.Title)
	product.Artist = strings.TrimSpace(product.Artist)
	product.Barcode = strings.TrimSpace(product.Barcode)
	product.CatalogID = strings.TrimSpace(product.CatalogID)
	if !product.Identifier().Usable() {
		return nil, errors.New("product needs a barcode, catalog id, or title and artist")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}

	res, err := s.execWithRetry(ctx,
		`INSERT INTO products (catalog_id, barcode, title, artist, format_tags, last_synced_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		nullableString(product.CatalogID),
		nullableString(product.Barcode),
		nullableString(product.Title),
		nullableString(product.Artist),
		encodeTags(product.FormatTags),
		nullableTime(product.LastSyncedAt),
		formatTime(product.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("product id: %w", err)
	}
	product.ID = id
	return &product, nil
}

// Product loads one product by id.
func (s *Store) Product(ctx context.Context, id int64) (*Product, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), "SELECT "+productColumns+" FROM products WHERE id = ?", id)
	product, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrProductNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load product %d: %w", id, err)
	}
	return product, nil
}

// ProductIDs lists every product id in ascending order.
func (s *Store) ProductIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), "SELECT id FROM products ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list product ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan product id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ProductsAfter returns up to limit products with id greater than afterID.
// Callers page through the catalog by passing the last id they saw.
func (s *Store) ProductsAfter(ctx context.Context, afterID int64, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT "+productColumns+" FROM products WHERE id > ? ORDER BY id LIMIT ?", afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("page products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0, limit)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *product)
	}
	return products, rows.Err()
}

// DeleteProducts removes products; their offers and history cascade.
func (s *Store) DeleteProducts(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.execWithRetry(ctx,
		"DELETE FROM products WHERE id IN ("+makePlaceholders(len(ids))+")", int64Args(ids)...)
	if err != nil {
		return 0, fmt.Errorf("delete products: %w", err)
	}
	return res.RowsAffected()
}
