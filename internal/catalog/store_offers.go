package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ReplaceOffers swaps the full offer set of a product in one transaction and
// stamps the product's last sync time. An empty slice clears the set.
func (s *Store) ReplaceOffers(ctx context.Context, productID int64, offers []Offer, syncedAt time.Time) error {
	ctx = ensureContext(ctx)
	if syncedAt.IsZero() {
		syncedAt = time.Now().UTC()
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "UPDATE products SET last_synced_at = ? WHERE id = ?", formatTime(syncedAt), productID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("%w: %d", ErrProductNotFound, productID)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM offers WHERE product_id = ?", productID); err != nil {
			return err
		}
		if len(offers) == 0 {
			return nil
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO offers (product_id, vendor_name, channel_id, title, base_price, shipping_fee, shipping_policy,
			 url, in_stock, affiliate_code, affiliate_param_key, last_checked, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, offer := range offers {
			checked := offer.LastChecked
			if checked.IsZero() {
				checked = syncedAt
			}
			created := offer.CreatedAt
			if created.IsZero() {
				created = syncedAt
			}
			if _, err := stmt.ExecContext(ctx,
				productID,
				offer.VendorName,
				string(offer.ChannelID),
				nullableString(offer.Title),
				offer.BasePrice,
				offer.ShippingFee,
				nullableString(offer.ShippingPolicy),
				offer.URL,
				boolToInt(offer.InStock),
				nullableString(offer.AffiliateCode),
				nullableString(offer.AffiliateParamKey),
				formatTime(checked),
				formatTime(created),
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace offers for product %d: %w", productID, err)
	}
	return nil
}

// OffersForProduct returns the stored offers of one product ordered by id.
func (s *Store) OffersForProduct(ctx context.Context, productID int64) ([]Offer, error) {
	grouped, err := s.OffersForProducts(ctx, []int64{productID})
	if err != nil {
		return nil, err
	}
	return grouped[productID], nil
}

// OffersForProducts loads the offers of several products at once, keyed by product id.
func (s *Store) OffersForProducts(ctx context.Context, productIDs []int64) (map[int64][]Offer, error) {
	grouped := make(map[int64][]Offer, len(productIDs))
	if len(productIDs) == 0 {
		return grouped, nil
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT "+offerColumns+" FROM offers WHERE product_id IN ("+makePlaceholders(len(productIDs))+") ORDER BY product_id, id",
		int64Args(productIDs)...)
	if err != nil {
		return nil, fmt.Errorf("load offers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		grouped[offer.ProductID] = append(grouped[offer.ProductID], offer)
	}
	return grouped, rows.Err()
}

// DeleteOffers removes individual offers by id.
func (s *Store) DeleteOffers(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.execWithRetry(ctx,
		"DELETE FROM offers WHERE id IN ("+makePlaceholders(len(ids))+")", int64Args(ids)...)
	if err != nil {
		return 0, fmt.Errorf("delete offers: %w", err)
	}
	return res.RowsAffected()
}
