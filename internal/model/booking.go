package model

// BookingRequest is the body of POST /v1/events/:id/book.  Seats is the
// ordered list of requested seat identifiers; the order is part of the
// request's identity for idempotency purposes, so a retry must send the
// seats in the same order.  IdempotencyKey is client generated and
// unique per logical attempt.
type BookingRequest struct {
	UserID         string   `json:"user_id"`
	Seats          []string `json:"seats"`
	IdempotencyKey string   `json:"idempotency_key"`
}
