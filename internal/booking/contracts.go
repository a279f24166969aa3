package booking

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Status is the terminal classification of a booking attempt.  The
// gateway maps these onto HTTP status codes and never inspects
// anything else.
type Status string

const (
	StatusBooked        Status = "BOOKED"
	StatusSeatConflict  Status = "SEAT_CONFLICT"
	StatusKeyConflict   Status = "KEY_CONFLICT"
	StatusInvalid       Status = "INVALID"
	StatusTransientBusy Status = "TRANSIENT_BUSY"
	StatusUnavailable   Status = "UNAVAILABLE"
)

// Outcome is the result of a booking attempt.  For replayed requests
// the stored Outcome is returned verbatim so that a retry observes a
// byte-identical response body.
type Outcome struct {
	Status      Status   `json:"status"`
	BookingID   string   `json:"booking_id,omitempty"`
	Seats       []string `json:"seats,omitempty"`
	Unavailable []string `json:"unavailable,omitempty"`
	Reason      string   `json:"reason,omitempty"`
}

// ClaimResult reports the result of an atomic claim attempt.  Exactly
// one of the three shapes occurs: Claimed true with no seat lists,
// Unknown non-empty (seats outside the event's map, nothing changed),
// or Unavailable non-empty (at least one seat not AVAILABLE, nothing
// changed).
type ClaimResult struct {
	Claimed     bool
	Unavailable []string
	Unknown     []string
}

// Inventory is the seat store the engine claims against.  Claim must
// be all-or-nothing: it books every requested seat for userID in one
// indivisible step, or changes nothing.  Two concurrent claims that
// overlap on any seat must never both succeed.
type Inventory interface {
	Claim(ctx context.Context, eventID, userID string, seatIDs []string) (*ClaimResult, error)
	AvailableSeats(ctx context.Context, eventID string) ([]string, error)
}

// Record is one idempotency ledger entry.  Fingerprint summarizes the
// semantically relevant request fields; EventID, UserID and Seats are
// stored alongside it so completed bookings can be listed per user.
type Record struct {
	Key         string
	Fingerprint string
	EventID     string
	UserID      string
	Seats       []string
	Outcome     *Outcome
	UpdatedAt   time.Time
}

// LookupState classifies what the ledger knows about a key at
// reservation time.
type LookupState int

const (
	// LookupFresh means the key was unseen (or its stale in-flight
	// record was reclaimed) and is now marked in-flight for this
	// request.  The caller owns the claim and must call Complete
	// exactly once.
	LookupFresh LookupState = iota
	// LookupReplay means a terminal outcome is already recorded for
	// this key and fingerprint; Outcome carries it.
	LookupReplay
	// LookupInFlight means another request with the same key is
	// currently being processed.  The caller must not proceed.
	LookupInFlight
)

// Lookup is the result of Ledger.GetOrReserve.
type Lookup struct {
	State   LookupState
	Outcome *Outcome
}

// Ledger records booking outcomes keyed by idempotency key and detects
// replays.  GetOrReserve returns ErrKeyConflict when the key exists
// with a different fingerprint.  Complete transitions an in-flight
// record to its terminal outcome; once written the record is immutable
// until TTL eviction.
type Ledger interface {
	GetOrReserve(ctx context.Context, rec *Record) (*Lookup, error)
	Complete(ctx context.Context, key string, out *Outcome) error
	Get(ctx context.Context, key string) (*Outcome, error)
	ListByUser(ctx context.Context, userID string) ([]Record, error)
}

// Fingerprint derives the request fingerprint used for idempotency-key
// reuse detection.  The seat order is preserved deliberately: a retry
// must resend the exact same request, and a reordered seat list counts
// as a different logical request.
func Fingerprint(eventID, userID string, seatIDs []string) string {
	h := sha256.New()
	h.Write([]byte(eventID))
	h.Write([]byte{0})
	h.Write([]byte(userID))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(seatIDs, "\x1f")))
	return hex.EncodeToString(h.Sum(nil))
}
