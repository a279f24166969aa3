// Package monitoring exposes prometheus metrics for the booking flow.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bookingRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_requests_total",
			Help: "Booking attempts by event and terminal status",
		},
		[]string{"event_id", "status"},
	)

	bookingReplays = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_replays_total",
			Help: "Booking requests answered from the idempotency ledger",
		},
		[]string{"event_id"},
	)

	bookingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "booking_request_duration_seconds",
			Help:    "End-to-end booking request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"event_id"},
	)

	seatsBooked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seats_booked_total",
			Help: "Seats successfully claimed",
		},
		[]string{"event_id"},
	)
)

// TrackBooking records one booking attempt.
func TrackBooking(eventID, status string, replayed bool, d time.Duration) {
	bookingRequests.WithLabelValues(eventID, status).Inc()
	bookingDuration.WithLabelValues(eventID).Observe(d.Seconds())
	if replayed {
		bookingReplays.WithLabelValues(eventID).Inc()
	}
}

// TrackSeatsBooked records how many seats a successful claim took.
func TrackSeatsBooked(eventID string, n int) {
	seatsBooked.WithLabelValues(eventID).Add(float64(n))
}
