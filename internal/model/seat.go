package model

import "time"

// SeatState enumerates the lifecycle of a seat.  The booking core only
// performs the AVAILABLE → BOOKED transition; HELD exists in the schema
// for a future hold-then-confirm flow and is treated as unavailable by
// the claim path.
type SeatState string

const (
	SeatAvailable SeatState = "AVAILABLE"
	SeatHeld      SeatState = "HELD"
	SeatBooked    SeatState = "BOOKED"
)

// Seat is a single bookable seat belonging to exactly one event.  At
// most one non-empty holder exists at any instant; Version increases on
// every successful claim and backs optimistic concurrency in the
// durable store.
//
// Fields:
//  ID        – seat identifier, unique within the event (seats.id).
//  EventID   – owning event (seats.event_id).
//  State     – AVAILABLE, HELD or BOOKED.
//  Holder    – user holding the seat; empty while AVAILABLE.
//  Version   – bumped on every successful claim.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Seat struct {
	ID        string    // seats.id
	EventID   string    // seats.event_id
	State     SeatState // seats.state
	Holder    string    // seats.holder (empty when available)
	Version   uint64    // seats.version
	CreatedAt time.Time // seats.created_at
	UpdatedAt time.Time // seats.updated_at
}
