// Package catalog holds the record catalog: products, their current vendor
// offers, the daily lowest-price history and the log of sync and sweep runs.
//
// The Store type persists everything in SQLite. Offer sets are only ever
// replaced wholesale inside one transaction, and deleting a product cascades to
// its offers and history so no orphan rows survive. The postgres subpackage
// implements the same Repository contract for shared deployments.
package catalog
