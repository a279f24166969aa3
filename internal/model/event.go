package model

import "time"

// Event describes a bookable event and the seat map attached to it.
// Seat membership is immutable once the event has been provisioned;
// the booking core never resizes a seat map under load.
//
// Fields:
//  ID        – opaque event identifier (events.id).
//  Name      – human readable label, informational only.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Event struct {
	ID        string    // events.id
	Name      string    // events.name
	CreatedAt time.Time // events.created_at
	UpdatedAt time.Time // events.updated_at
}
