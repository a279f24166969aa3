// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingRecordedEvent is published after a fresh booking reaches its
// terminal Booked outcome.  It contains enough information for
// downstream consumers to log, notify, or trigger analytics without
// querying the primary store.
type BookingRecordedEvent struct {
	BookingID  string   `json:"booking_id"`
	EventID    string   `json:"event_id"`
	UserID     string   `json:"user_id"`
	Seats      []string `json:"seats"`
	RecordedAt string   `json:"recorded_at"`
}
