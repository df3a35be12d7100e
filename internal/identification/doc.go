// Package identification resolves catalog identifiers into the best available
// vendor query key before aggregation.
//
// Products that carry only a Discogs release id are enriched with the release's
// barcode, title and artist. Releases whose formats contain none of the target
// formats are rejected with ErrNotApplicable so no vendor is queried for them.
// Lookup failures degrade to the unenriched identifier.
package identification
