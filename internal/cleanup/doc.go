// Package cleanup implements the integrity sweep over the persisted catalog.
//
// The sweep pages through products by id, deletes products that can never
// match a record listing, and deletes offers that no longer pass the price
// band or format rules, duplicate another offer of the same product, or point
// at a page the vendor has removed. All state for one sweep lives in a
// sweepState value threaded through the batch loop, so two sweeps never share
// anything and a second sweep over unchanged data deletes nothing.
package cleanup
