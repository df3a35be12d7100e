package catalog

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

const (
	productColumns = "id, catalog_id, barcode, title, artist, format_tags, last_synced_at, created_at"
	offerColumns   = "id, product_id, vendor_name, channel_id, title, base_price, shipping_fee, shipping_policy, url, in_stock, affiliate_code, affiliate_param_key, last_checked, created_at"
	runColumns     = "id, kind, status, started_at, finished_at, processed, with_offers, cleared, skipped, deleted, detail"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(scanner rowScanner) (*Product, error) {
	var (
		product    Product
		catalogID  sql.NullString
		barcode    sql.NullString
		title      sql.NullString
		artist     sql.NullString
		formatTags sql.NullString
		syncedRaw  sql.NullString
		createdRaw string
	)
	if err := scanner.Scan(&product.ID, &catalogID, &barcode, &title, &artist, &formatTags, &syncedRaw, &createdRaw); err != nil {
		return nil, err
	}
	product.CatalogID = catalogID.String
	product.Barcode = barcode.String
	product.Title = title.String
	product.Artist = artist.String
	product.FormatTags = decodeTags(formatTags.String)
	if created, err := parseTimeString(createdRaw); err == nil {
		product.CreatedAt = created
	}
	if syncedRaw.Valid {
		if synced, err := parseTimeString(syncedRaw.String); err == nil {
			product.LastSyncedAt = &synced
		}
	}
	return &product, nil
}

func scanOffer(scanner rowScanner) (Offer, error) {
	var (
		offer          Offer
		channel        string
		title          sql.NullString
		policy         sql.NullString
		inStock        int
		affiliateCode  sql.NullString
		affiliateParam sql.NullString
		checkedRaw     string
		createdRaw     string
	)
	if err := scanner.Scan(
		&offer.ID,
		&offer.ProductID,
		&offer.VendorName,
		&channel,
		&title,
		&offer.BasePrice,
		&offer.ShippingFee,
		&policy,
		&offer.URL,
		&inStock,
		&affiliateCode,
		&affiliateParam,
		&checkedRaw,
		&createdRaw,
	); err != nil {
		return Offer{}, err
	}
	offer.ChannelID = Channel(channel)
	offer.Title = title.String
	offer.ShippingPolicy = policy.String
	offer.InStock = inStock != 0
	offer.AffiliateCode = affiliateCode.String
	offer.AffiliateParamKey = affiliateParam.String
	if checked, err := parseTimeString(checkedRaw); err == nil {
		offer.LastChecked = checked
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		offer.CreatedAt = created
	}
	return offer, nil
}

func scanRun(scanner rowScanner) (SyncRun, error) {
	var (
		run         SyncRun
		kind        string
		status      string
		startedRaw  string
		finishedRaw sql.NullString
		detail      sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&kind,
		&status,
		&startedRaw,
		&finishedRaw,
		&run.Processed,
		&run.WithOffers,
		&run.Cleared,
		&run.Skipped,
		&run.Deleted,
		&detail,
	); err != nil {
		return SyncRun{}, err
	}
	run.Kind = RunKind(kind)
	run.Status = RunStatus(status)
	run.Detail = detail.String
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return run, nil
}

func encodeTags(tags []string) string {
	if len(tags) == 0 {
		return "[]"
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func decodeTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil
	}
	return tags
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatTime(*value)
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
