// Package discogs is a minimal client for the Discogs release endpoint used to
// enrich catalog records with a barcode, title, artist and format list.
package discogs
