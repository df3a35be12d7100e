// Package fetch retrieves vendor pages and API responses with one shared
// policy: a per-attempt deadline, bounded retries with exponential backoff for
// connection failures and 5xx responses, browser-like request headers, block
// detection, and decoding of the body to UTF-8.
//
// Timeouts and blocks are never retried. A blocked response means the vendor
// has started refusing automated traffic and the caller is expected to stop
// the whole run rather than press on.
package fetch
