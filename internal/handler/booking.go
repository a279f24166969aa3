package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seat-booking/internal/booking"
	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/monitoring"
	"github.com/iliyamo/event-seat-booking/internal/queue"
	queue_publisher "github.com/iliyamo/event-seat-booking/internal/service"
)

// BookingHandler is the request gateway.  It binds and validates
// transport-level input, delegates to the reservation engine and maps
// engine outcomes onto HTTP status codes.  It performs no business
// logic of its own and never touches the inventory or ledger directly.
type BookingHandler struct {
	Engine *booking.Engine

	// Publish sends the audit event after a fresh successful booking.
	// Swappable so tests do not dial the broker.
	Publish func(ctx context.Context, ev queue.BookingRecordedEvent) error
}

// NewBookingHandler constructs a BookingHandler.  The engine must be
// non-nil.
func NewBookingHandler(engine *booking.Engine) *BookingHandler {
	if engine == nil {
		panic("nil engine passed to NewBookingHandler")
	}
	return &BookingHandler{Engine: engine, Publish: queue_publisher.PublishBookingRecorded}
}

// statusCode maps a terminal engine outcome onto its HTTP status.
// Booking is synchronous, so a successful claim is 200 rather than
// 202.  TransientBusy shares 409 with the conflict family: the load
// profile treats 409 as "retry later", and 503 stays reserved for
// storage faults.
func statusCode(s booking.Status) int {
	switch s {
	case booking.StatusBooked:
		return http.StatusOK
	case booking.StatusSeatConflict, booking.StatusKeyConflict, booking.StatusTransientBusy:
		return http.StatusConflict
	case booking.StatusInvalid:
		return http.StatusBadRequest
	case booking.StatusUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// Book handles POST /v1/events/:id/book.  The outcome struct is
// serialized directly for every status, which is what makes replayed
// responses byte-identical to the original ones.
func (h *BookingHandler) Book(c echo.Context) error {
	eventID := c.Param("id")
	var req model.BookingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	start := time.Now()
	out, replayed := h.Engine.Book(c.Request().Context(), eventID, req)
	monitoring.TrackBooking(eventID, string(out.Status), replayed, time.Since(start))

	if out.Status == booking.StatusBooked && !replayed {
		monitoring.TrackSeatsBooked(eventID, len(out.Seats))
		ev := queue.BookingRecordedEvent{
			BookingID:  out.BookingID,
			EventID:    eventID,
			UserID:     req.UserID,
			Seats:      out.Seats,
			RecordedAt: time.Now().UTC().Format(time.RFC3339),
		}
		// Audit publishing stays off the request path; the broker being
		// down must not affect booking latency or outcome.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = h.Publish(ctx, ev)
		}()
	}

	return c.JSON(statusCode(out.Status), out)
}

// GetAvailableSeats handles GET /v1/events/:id/seats.  It lists the
// seats of an event that are currently claimable.
func (h *BookingHandler) GetAvailableSeats(c echo.Context) error {
	eventID := c.Param("id")
	seats, err := h.Engine.AvailableSeats(c.Request().Context(), eventID)
	if err != nil {
		if errors.Is(err, booking.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load seats"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"event_id": eventID,
		"seats":    seats,
	})
}

// GetBooking handles GET /v1/bookings/:key.  It returns the terminal
// outcome recorded under an idempotency key; keys that are unknown or
// still in flight yield 404.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	key := c.Param("key")
	out, err := h.Engine.Lookup(c.Request().Context(), key)
	if err != nil {
		if errors.Is(err, booking.ErrKeyNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load booking"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": out})
}

// bookingItem is the per-record shape returned by ListMyBookings.
type bookingItem struct {
	IdempotencyKey string         `json:"idempotency_key"`
	EventID        string         `json:"event_id"`
	Seats          []string       `json:"seats"`
	Status         booking.Status `json:"status"`
	BookingID      string         `json:"booking_id,omitempty"`
	UpdatedAt      string         `json:"updated_at"`
}

// ListMyBookings handles GET /v1/my-bookings.  It returns the completed
// booking attempts of the authenticated user, newest first.  JWT
// middleware has already placed the user id in the context.
func (h *BookingHandler) ListMyBookings(c echo.Context) error {
	userID, _ := c.Get("user_id").(string)
	if userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	records, err := h.Engine.ListUserBookings(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
	}
	items := make([]bookingItem, 0, len(records))
	for _, rec := range records {
		item := bookingItem{
			IdempotencyKey: rec.Key,
			EventID:        rec.EventID,
			Seats:          rec.Seats,
			UpdatedAt:      rec.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if rec.Outcome != nil {
			item.Status = rec.Outcome.Status
			item.BookingID = rec.Outcome.BookingID
		}
		items = append(items, item)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
