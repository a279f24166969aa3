// Package inventory provides the in-process seat inventory.  It is the
// single-instance authority described by the deployment model: all
// check-and-set happens under a per-event mutex, so claims on one
// event never block another event's traffic.  The MySQL-backed
// repository offers the same contract for durable deployments.
package inventory

import (
	"context"
	"sync"

	"github.com/iliyamo/event-seat-booking/internal/booking"
	"github.com/iliyamo/event-seat-booking/internal/model"
)

// seatRec is the mutable per-seat state guarded by its event's mutex.
type seatRec struct {
	state   model.SeatState
	holder  string
	version uint64
}

// eventSeats groups one event's seats behind a dedicated mutex.
type eventSeats struct {
	mu    sync.Mutex
	seats map[string]*seatRec
	order []string // seat ids in provisioning order, for stable listings
}

// Store is a sharded in-memory seat inventory.  The registry lock only
// guards event lookup/creation; every claim serializes on the owning
// event's mutex alone.
type Store struct {
	mu     sync.RWMutex
	events map[string]*eventSeats
}

// NewStore returns an empty in-memory inventory.
func NewStore() *Store {
	return &Store{events: make(map[string]*eventSeats)}
}

// CreateEvent provisions an event with the given seat map.  Seat
// membership is immutable afterwards.  Re-provisioning an existing
// event is a no-op so startup seeding can run repeatedly.
func (s *Store) CreateEvent(eventID string, seatIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[eventID]; ok {
		return
	}
	ev := &eventSeats{seats: make(map[string]*seatRec, len(seatIDs))}
	for _, id := range seatIDs {
		if _, dup := ev.seats[id]; dup {
			continue
		}
		ev.seats[id] = &seatRec{state: model.SeatAvailable}
		ev.order = append(ev.order, id)
	}
	s.events[eventID] = ev
}

func (s *Store) event(eventID string) *eventSeats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.events[eventID]
}

// Claim atomically books every requested seat for userID, or changes
// nothing.  All checks and transitions happen under the event mutex,
// so overlapping concurrent claims observe a total order and at most
// one of them wins any given seat.
func (s *Store) Claim(ctx context.Context, eventID, userID string, seatIDs []string) (*booking.ClaimResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ev := s.event(eventID)
	if ev == nil {
		return nil, booking.ErrEventNotFound
	}

	ev.mu.Lock()
	defer ev.mu.Unlock()

	var unknown, unavailable []string
	for _, id := range seatIDs {
		rec, ok := ev.seats[id]
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		if rec.state != model.SeatAvailable {
			unavailable = append(unavailable, id)
		}
	}
	if len(unknown) > 0 {
		return &booking.ClaimResult{Unknown: unknown}, nil
	}
	if len(unavailable) > 0 {
		return &booking.ClaimResult{Unavailable: unavailable}, nil
	}
	for _, id := range seatIDs {
		rec := ev.seats[id]
		rec.state = model.SeatBooked
		rec.holder = userID
		rec.version++
	}
	return &booking.ClaimResult{Claimed: true}, nil
}

// AvailableSeats lists the event's claimable seats in provisioning
// order.
func (s *Store) AvailableSeats(ctx context.Context, eventID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ev := s.event(eventID)
	if ev == nil {
		return nil, booking.ErrEventNotFound
	}
	ev.mu.Lock()
	defer ev.mu.Unlock()
	out := make([]string, 0, len(ev.order))
	for _, id := range ev.order {
		if ev.seats[id].state == model.SeatAvailable {
			out = append(out, id)
		}
	}
	return out, nil
}

// Seat returns a snapshot of one seat's state.  The second return
// value is false when the event or seat does not exist.
func (s *Store) Seat(eventID, seatID string) (model.Seat, bool) {
	ev := s.event(eventID)
	if ev == nil {
		return model.Seat{}, false
	}
	ev.mu.Lock()
	defer ev.mu.Unlock()
	rec, ok := ev.seats[seatID]
	if !ok {
		return model.Seat{}, false
	}
	return model.Seat{
		ID:      seatID,
		EventID: eventID,
		State:   rec.state,
		Holder:  rec.holder,
		Version: rec.version,
	}, true
}
