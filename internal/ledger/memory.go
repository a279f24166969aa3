// Package ledger provides the in-process idempotency ledger.  Records
// are created in flight on first sight of a key, transition to a
// terminal outcome exactly once, and are then immutable until TTL
// eviction.  Stale in-flight records are reclaimed after a timeout so
// a crashed request never leaves its key permanently stuck.
package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/event-seat-booking/internal/booking"
)

type entryState int

const (
	stateInFlight entryState = iota
	stateCompleted
)

type entry struct {
	fingerprint string
	eventID     string
	userID      string
	seats       []string
	state       entryState
	outcome     *booking.Outcome
	updatedAt   time.Time
}

// Store is an in-memory booking.Ledger.  A single mutex guards the map;
// ledger operations are cheap pointer work, so contention here is
// negligible next to the seat claim itself.
type Store struct {
	mu              sync.Mutex
	entries         map[string]*entry
	inFlightTimeout time.Duration
	ttl             time.Duration
	now             func() time.Time
}

// NewStore constructs a ledger.  inFlightTimeout bounds how long a key
// may stay in flight before a concurrent duplicate is allowed to
// reclaim it; ttl bounds how long completed records are kept for
// replay detection.
func NewStore(inFlightTimeout, ttl time.Duration) *Store {
	return &Store{
		entries:         make(map[string]*entry),
		inFlightTimeout: inFlightTimeout,
		ttl:             ttl,
		now:             time.Now,
	}
}

// GetOrReserve implements booking.Ledger.
func (s *Store) GetOrReserve(ctx context.Context, rec *booking.Record) (*booking.Lookup, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.entries[rec.Key]
	if ok && e.state == stateCompleted && s.ttl > 0 && now.Sub(e.updatedAt) > s.ttl {
		// Evicted record: the key is treated as unseen again.
		delete(s.entries, rec.Key)
		ok = false
	}
	if !ok {
		s.entries[rec.Key] = &entry{
			fingerprint: rec.Fingerprint,
			eventID:     rec.EventID,
			userID:      rec.UserID,
			seats:       append([]string(nil), rec.Seats...),
			state:       stateInFlight,
			updatedAt:   now,
		}
		return &booking.Lookup{State: booking.LookupFresh}, nil
	}
	if e.fingerprint != rec.Fingerprint {
		return nil, booking.ErrKeyConflict
	}
	if e.state == stateCompleted {
		return &booking.Lookup{State: booking.LookupReplay, Outcome: e.outcome}, nil
	}
	if s.inFlightTimeout > 0 && now.Sub(e.updatedAt) > s.inFlightTimeout {
		// The original owner crashed or stalled; hand the key to this
		// request.
		e.updatedAt = now
		return &booking.Lookup{State: booking.LookupFresh}, nil
	}
	return &booking.Lookup{State: booking.LookupInFlight}, nil
}

// Complete implements booking.Ledger.  Completed records are never
// overwritten.
func (s *Store) Complete(ctx context.Context, key string, out *booking.Outcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || e.state != stateInFlight {
		return booking.ErrNotInFlight
	}
	e.state = stateCompleted
	e.outcome = out
	e.updatedAt = s.now()
	return nil
}

// Get implements booking.Ledger.
func (s *Store) Get(ctx context.Context, key string) (*booking.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || e.state != stateCompleted {
		return nil, booking.ErrKeyNotFound
	}
	return e.outcome, nil
}

// ListByUser implements booking.Ledger.  Only completed records are
// returned, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]booking.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []booking.Record
	for key, e := range s.entries {
		if e.userID != userID || e.state != stateCompleted {
			continue
		}
		out = append(out, booking.Record{
			Key:         key,
			Fingerprint: e.fingerprint,
			EventID:     e.eventID,
			UserID:      e.userID,
			Seats:       append([]string(nil), e.seats...),
			Outcome:     e.outcome,
			UpdatedAt:   e.updatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// Evict removes completed records older than the TTL and returns how
// many were removed.  Run it periodically from a janitor goroutine.
func (s *Store) Evict() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.ttl)
	n := 0
	for key, e := range s.entries {
		if e.state == stateCompleted && e.updatedAt.Before(cutoff) {
			delete(s.entries, key)
			n++
		}
	}
	return n
}
