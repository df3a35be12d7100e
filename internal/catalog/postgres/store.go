// Package postgres implements the catalog repository on PostgreSQL for
// deployments where several readers share one catalog.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vinylscout/internal/catalog"
)

//go:embed schema.sql
var schemaSQL string

const (
	productColumns = "id, COALESCE(catalog_id, ''), COALESCE(barcode, ''), COALESCE(title, ''), COALESCE(artist, ''), format_tags, last_synced_at, created_at"
	offerColumns   = "id, product_id, vendor_name, channel_id, title, base_price, shipping_fee, shipping_policy, url, in_stock, affiliate_code, affiliate_param_key, last_checked, created_at"
	runColumns     = "id, kind, status, started_at, finished_at, processed, with_offers, cleared, skipped, deleted, detail"
)

// Store is a pgx pool backed catalog repository.
type Store struct {
	pool       *pgxpool.Pool
	writeBatch int
}

var _ catalog.Repository = (*Store)(nil)

// Options tunes the pool and batched writes.
type Options struct {
	MaxConns   int
	WriteBatch int
}

// Open connects to the database and ensures the schema exists.
func Open(ctx context.Context, dsn string, opts Options) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if opts.MaxConns <= 0 {
		opts.MaxConns = 4
	}
	cfg.MaxConns = int32(opts.MaxConns)
	if opts.WriteBatch <= 0 {
		opts.WriteBatch = 200
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure postgres schema: %w", err)
	}
	return &Store{pool: pool, writeBatch: opts.WriteBatch}, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Store) AddProduct(ctx context.Context, product catalog.Product) (*catalog.Product, error) {
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
	tags := product.FormatTags
	if tags == nil {
		tags = []string{}
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO products (catalog_id, barcode, title, artist, format_tags, last_synced_at, created_at)
		 VALUES (NULLIF($1, ''), NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7) RETURNING id`,
		product.CatalogID, product.Barcode, product.Title, product.Artist, tags, product.LastSyncedAt, product.CreatedAt,
	).Scan(&product.ID)
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}
	return &product, nil
}

func (s *Store) Product(ctx context.Context, id int64) (*catalog.Product, error) {
	product, err := scanProduct(s.pool.QueryRow(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", catalog.ErrProductNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load product %d: %w", id, err)
	}
	return &product, nil
}

func (s *Store) ProductIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.pool.Query(ctx, "SELECT id FROM products ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list product ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("list product ids: %w", err)
	}
	return ids, nil
}

func (s *Store) ProductsAfter(ctx context.Context, afterID int64, limit int) ([]catalog.Product, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		"SELECT "+productColumns+" FROM products WHERE id > $1 ORDER BY id LIMIT $2", afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("page products: %w", err)
	}
	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Product, error) {
		return scanProduct(row)
	})
	if err != nil {
		return nil, fmt.Errorf("page products: %w", err)
	}
	return products, nil
}

func (s *Store) DeleteProducts(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, "DELETE FROM products WHERE id = ANY($1)", ids)
	if err != nil {
		return 0, fmt.Errorf("delete products: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ReplaceOffers deletes and re-inserts the offer set in one transaction; the
// inserts are queued as pgx batches of the configured size.
func (s *Store) ReplaceOffers(ctx context.Context, productID int64, offers []catalog.Offer, syncedAt time.Time) error {
	if syncedAt.IsZero() {
		syncedAt = time.Now().UTC()
	}
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, "UPDATE products SET last_synced_at = $1 WHERE id = $2", syncedAt, productID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %d", catalog.ErrProductNotFound, productID)
		}
		if _, err := tx.Exec(ctx, "DELETE FROM offers WHERE product_id = $1", productID); err != nil {
			return err
		}
		for i := 0; i < len(offers); i += s.writeBatch {
			j := min(i+s.writeBatch, len(offers))
			b := &pgx.Batch{}
			for _, offer := range offers[i:j] {
				checked := offer.LastChecked
				if checked.IsZero() {
					checked = syncedAt
				}
				created := offer.CreatedAt
				if created.IsZero() {
					created = syncedAt
				}
				b.Queue(
					`INSERT INTO offers (product_id, vendor_name, channel_id, title, base_price, shipping_fee, shipping_policy,
					 url, in_stock, affiliate_code, affiliate_param_key, last_checked, created_at)
					 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
					productID, offer.VendorName, string(offer.ChannelID), offer.Title, offer.BasePrice, offer.ShippingFee,
					offer.ShippingPolicy, offer.URL, offer.InStock, offer.AffiliateCode, offer.AffiliateParamKey, checked, created,
				)
			}
			if err := tx.SendBatch(ctx, b).Close(); err != nil {
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

func (s *Store) OffersForProduct(ctx context.Context, productID int64) ([]catalog.Offer, error) {
	grouped, err := s.OffersForProducts(ctx, []int64{productID})
	if err != nil {
		return nil, err
	}
	return grouped[productID], nil
}

func (s *Store) OffersForProducts(ctx context.Context, productIDs []int64) (map[int64][]catalog.Offer, error) {
	grouped := make(map[int64][]catalog.Offer, len(productIDs))
	if len(productIDs) == 0 {
		return grouped, nil
	}
	rows, err := s.pool.Query(ctx,
		"SELECT "+offerColumns+" FROM offers WHERE product_id = ANY($1) ORDER BY product_id, id", productIDs)
	if err != nil {
		return nil, fmt.Errorf("load offers: %w", err)
	}
	offers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Offer, error) {
		var (
			offer   catalog.Offer
			channel string
		)
		err := row.Scan(&offer.ID, &offer.ProductID, &offer.VendorName, &channel, &offer.Title, &offer.BasePrice,
			&offer.ShippingFee, &offer.ShippingPolicy, &offer.URL, &offer.InStock, &offer.AffiliateCode,
			&offer.AffiliateParamKey, &offer.LastChecked, &offer.CreatedAt)
		offer.ChannelID = catalog.Channel(channel)
		return offer, err
	})
	if err != nil {
		return nil, fmt.Errorf("load offers: %w", err)
	}
	for _, offer := range offers {
		grouped[offer.ProductID] = append(grouped[offer.ProductID], offer)
	}
	return grouped, nil
}

func (s *Store) DeleteOffers(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, "DELETE FROM offers WHERE id = ANY($1)", ids)
	if err != nil {
		return 0, fmt.Errorf("delete offers: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) AppendPriceHistory(ctx context.Context, point catalog.PriceHistoryPoint) (bool, error) {
	if point.Date == "" {
		point.Date = time.Now().UTC().Format(catalog.HistoryDateLayout)
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO price_history (product_id, day, price) VALUES ($1, $2::date, $3)
		 ON CONFLICT (product_id, day) DO NOTHING`, point.ProductID, point.Date, point.Price)
	if err != nil {
		return false, fmt.Errorf("append price history: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) PriceHistory(ctx context.Context, productID int64, limit int) ([]catalog.PriceHistoryPoint, error) {
	if limit <= 0 {
		limit = 365
	}
	rows, err := s.pool.Query(ctx,
		`SELECT product_id, to_char(day, 'YYYY-MM-DD'), price FROM (
		   SELECT product_id, day, price FROM price_history WHERE product_id = $1 ORDER BY day DESC LIMIT $2
		 ) recent ORDER BY day`, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("load price history: %w", err)
	}
	points, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.PriceHistoryPoint, error) {
		var point catalog.PriceHistoryPoint
		err := row.Scan(&point.ProductID, &point.Date, &point.Price)
		return point, err
	})
	if err != nil {
		return nil, fmt.Errorf("load price history: %w", err)
	}
	return points, nil
}

func (s *Store) StartRun(ctx context.Context, run catalog.SyncRun) error {
	if run.ID == "" {
		return errors.New("run id is required")
	}
	if run.Status == "" {
		run.Status = catalog.RunRunning
	}
	_, err := s.pool.Exec(ctx,
		"INSERT INTO sync_runs ("+runColumns+") VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)",
		run.ID, string(run.Kind), string(run.Status), run.StartedAt, run.FinishedAt,
		run.Processed, run.WithOffers, run.Cleared, run.Skipped, run.Deleted, run.Detail)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	return nil
}

func (s *Store) FinishRun(ctx context.Context, run catalog.SyncRun) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sync_runs SET status = $1, finished_at = $2, processed = $3, with_offers = $4, cleared = $5,
		 skipped = $6, deleted = $7, detail = $8 WHERE id = $9`,
		string(run.Status), run.FinishedAt, run.Processed, run.WithOffers, run.Cleared,
		run.Skipped, run.Deleted, run.Detail, run.ID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("finish run: unknown run %s", run.ID)
	}
	return nil
}

func (s *Store) ListRuns(ctx context.Context, limit int) ([]catalog.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, "SELECT "+runColumns+" FROM sync_runs ORDER BY started_at DESC LIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	runs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.SyncRun, error) {
		var (
			run          catalog.SyncRun
			kind, status string
		)
		err := row.Scan(&run.ID, &kind, &status, &run.StartedAt, &run.FinishedAt, &run.Processed,
			&run.WithOffers, &run.Cleared, &run.Skipped, &run.Deleted, &run.Detail)
		run.Kind = catalog.RunKind(kind)
		run.Status = catalog.RunStatus(status)
		return run, err
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

func scanProduct(row pgx.Row) (catalog.Product, error) {
	var product catalog.Product
	err := row.Scan(&product.ID, &product.CatalogID, &product.Barcode, &product.Title, &product.Artist,
		&product.FormatTags, &product.LastSyncedAt, &product.CreatedAt)
	return product, err
}
