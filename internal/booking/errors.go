// Package booking implements the reservation engine: the per-request
// state machine that consults the idempotency ledger, performs the
// atomic seat claim against the inventory and records the outcome.
// This file defines the sentinel error values shared by the engine and
// its Inventory/Ledger implementations.  Higher layers compare them
// with errors.Is to pick response codes.
package booking

import "errors"

// ErrEventNotFound is returned by an Inventory when the event
// identifier does not match any provisioned event.
var ErrEventNotFound = errors.New("event not found")

// ErrKeyConflict is returned by a Ledger when an idempotency key is
// reused with a different request fingerprint.  This signals client
// misuse and must never be folded into a seat conflict.
var ErrKeyConflict = errors.New("idempotency key reused with different request")

// ErrKeyNotFound is returned by Ledger lookups when no record exists
// for the given key.
var ErrKeyNotFound = errors.New("idempotency key not found")

// ErrNotInFlight is returned by Ledger.Complete when the key has no
// in-flight record, e.g. when it was already completed or reclaimed.
var ErrNotInFlight = errors.New("idempotency key not in flight")
