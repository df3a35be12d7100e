// Package pricesync walks the catalog one product at a time and refreshes
// each product's offer set.
//
// A run resolves identifiers that lack a barcode, fans the identifier out to
// every vendor through the aggregator, and replaces the product's offers in a
// single store transaction. Products are processed strictly sequentially with
// a fixed pause between them so no vendor sees more than one request per
// product interval. The only failure that stops a run is a vendor refusing
// automated traffic: the run ends with services.ErrRateLimited and the product
// being processed is left untouched.
package pricesync
