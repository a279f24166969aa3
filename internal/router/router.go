package router // route registration for the booking API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/event-seat-booking/internal/handler"
	"github.com/iliyamo/event-seat-booking/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance: the health check used by load balancers
// and the prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterBooking registers the booking endpoints.  The rate limiter is
// applied only to the booking POST: that is the endpoint the load
// profile hammers, and read endpoints should stay reachable even when
// a client exhausts its bucket.  /v1/my-bookings is the only route
// behind JWT auth; everything else matches the contract exercised by
// the load script and carries its own idempotency protection instead.
func RegisterBooking(e *echo.Echo, h *handler.BookingHandler, rateLimit echo.MiddlewareFunc, jwtSecret string) {
	g := e.Group("/v1")
	if rateLimit != nil {
		g.POST("/events/:id/book", h.Book, rateLimit)
	} else {
		g.POST("/events/:id/book", h.Book)
	}
	g.GET("/events/:id/seats", h.GetAvailableSeats)
	g.GET("/bookings/:key", h.GetBooking)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/my-bookings", h.ListMyBookings)
}
