// Package matching decides whether a scraped candidate is really the LP the
// catalog asked for.
//
// Validate applies five rules in order and reports the first that fails:
// price band, format allowlist, format blocklist, title similarity and artist
// inclusion. The last two only apply to keyword searches; barcode searches
// are trusted. The engine is pure and safe for concurrent use.
package matching
