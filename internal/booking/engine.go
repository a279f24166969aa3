package booking

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"github.com/iliyamo/event-seat-booking/internal/model"
)

// Engine orchestrates a booking request end to end.  It exclusively
// owns write access to both the inventory and the ledger; handlers
// never mutate either directly.  The engine performs no retries of its
// own operations: storage faults surface as StatusUnavailable and the
// decision to retry belongs to the client.
type Engine struct {
	inv Inventory
	led Ledger
}

// NewEngine constructs an Engine.  Both dependencies must be non-nil.
func NewEngine(inv Inventory, led Ledger) *Engine {
	if inv == nil || led == nil {
		panic("nil dependency passed to NewEngine")
	}
	return &Engine{inv: inv, led: led}
}

// Book runs the per-request state machine.  The second return value
// reports whether the outcome was replayed from the ledger; replayed
// outcomes are returned verbatim and never touch the inventory.
//
// Every fresh request ends with exactly one Complete call on the
// ledger, and that write happens before the outcome is returned, so a
// crash after responding never loses the authoritative result.
func (e *Engine) Book(ctx context.Context, eventID string, req model.BookingRequest) (*Outcome, bool) {
	// Received: structural validation, terminal without ledger access.
	if reason := validate(eventID, req); reason != "" {
		return &Outcome{Status: StatusInvalid, Reason: reason}, false
	}

	rec := &Record{
		Key:         req.IdempotencyKey,
		Fingerprint: Fingerprint(eventID, req.UserID, req.Seats),
		EventID:     eventID,
		UserID:      req.UserID,
		Seats:       req.Seats,
	}

	// LedgerChecked.
	lookup, err := e.led.GetOrReserve(ctx, rec)
	if err != nil {
		if errors.Is(err, ErrKeyConflict) {
			return &Outcome{Status: StatusKeyConflict, Reason: "idempotency key reused with different request"}, false
		}
		log.Printf("booking: ledger reserve failed: %v", err)
		return &Outcome{Status: StatusUnavailable, Reason: "ledger unavailable"}, false
	}
	switch lookup.State {
	case LookupReplay:
		return lookup.Outcome, true
	case LookupInFlight:
		return &Outcome{Status: StatusTransientBusy, Reason: "request with this key is in flight"}, false
	}

	// Claiming: the key is now in flight and owned by this request.
	out := e.claim(ctx, eventID, req)
	if out.Status == StatusUnavailable {
		// Leave the key in flight; the reclaim timeout makes it
		// retryable once the fault clears.
		return out, false
	}
	if err := e.led.Complete(ctx, req.IdempotencyKey, out); err != nil {
		log.Printf("booking: ledger complete failed for key %s: %v", req.IdempotencyKey, err)
		return &Outcome{Status: StatusUnavailable, Reason: "ledger unavailable"}, false
	}
	return out, false
}

// claim attempts the atomic seat transition and translates the
// inventory's answer into a terminal outcome.
func (e *Engine) claim(ctx context.Context, eventID string, req model.BookingRequest) *Outcome {
	res, err := e.inv.Claim(ctx, eventID, req.UserID, req.Seats)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			return &Outcome{Status: StatusInvalid, Reason: "event not found"}
		}
		log.Printf("booking: claim failed for event %s: %v", eventID, err)
		return &Outcome{Status: StatusUnavailable, Reason: "inventory unavailable"}
	}
	switch {
	case res.Claimed:
		return &Outcome{Status: StatusBooked, BookingID: uuid.NewString(), Seats: req.Seats}
	case len(res.Unknown) > 0:
		return &Outcome{Status: StatusInvalid, Reason: "unknown seats", Unavailable: res.Unknown}
	default:
		return &Outcome{Status: StatusSeatConflict, Reason: "seats unavailable", Unavailable: res.Unavailable}
	}
}

// validate enforces the Received-state preconditions.  It returns an
// empty string when the request is well formed.
func validate(eventID string, req model.BookingRequest) string {
	if eventID == "" {
		return "event id is required"
	}
	if req.UserID == "" {
		return "user_id is required"
	}
	if req.IdempotencyKey == "" {
		return "idempotency_key is required"
	}
	if len(req.Seats) == 0 {
		return "seats must not be empty"
	}
	seen := make(map[string]struct{}, len(req.Seats))
	for _, s := range req.Seats {
		if s == "" {
			return "seat ids must not be empty"
		}
		if _, dup := seen[s]; dup {
			return "duplicate seat ids"
		}
		seen[s] = struct{}{}
	}
	return ""
}

// Lookup returns the terminal outcome recorded under an idempotency
// key.  It returns ErrKeyNotFound when the key is unknown or still in
// flight.
func (e *Engine) Lookup(ctx context.Context, key string) (*Outcome, error) {
	return e.led.Get(ctx, key)
}

// ListUserBookings returns the completed ledger records of one user,
// newest first.
func (e *Engine) ListUserBookings(ctx context.Context, userID string) ([]Record, error) {
	return e.led.ListByUser(ctx, userID)
}

// AvailableSeats reports the seats of an event currently claimable.
func (e *Engine) AvailableSeats(ctx context.Context, eventID string) ([]string, error) {
	return e.inv.AvailableSeats(ctx, eventID)
}
