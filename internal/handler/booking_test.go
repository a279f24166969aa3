package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-seat-booking/internal/booking"
	"github.com/iliyamo/event-seat-booking/internal/handler"
	"github.com/iliyamo/event-seat-booking/internal/inventory"
	"github.com/iliyamo/event-seat-booking/internal/ledger"
	"github.com/iliyamo/event-seat-booking/internal/queue"
	"github.com/iliyamo/event-seat-booking/internal/router"
)

const (
	testEvent  = "concert-42"
	testSecret = "test-secret"
)

// newTestServer wires the full HTTP surface over the in-memory stores.
// Audit publishing is captured on a channel instead of dialing the
// broker.
func newTestServer(t *testing.T) (*echo.Echo, chan queue.BookingRecordedEvent) {
	t.Helper()
	inv := inventory.NewStore()
	inv.CreateEvent(testEvent, []string{"S1", "S2", "S3"})
	led := ledger.NewStore(30*time.Second, 24*time.Hour)

	h := handler.NewBookingHandler(booking.NewEngine(inv, led))
	published := make(chan queue.BookingRecordedEvent, 8)
	h.Publish = func(_ context.Context, ev queue.BookingRecordedEvent) error {
		published <- ev
		return nil
	}

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterBooking(e, h, nil, testSecret)
	return e, published
}

func doJSON(e *echo.Echo, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func bookBody(user, key string, seats ...string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"user_id":         user,
		"seats":           seats,
		"idempotency_key": key,
	})
	return string(b)
}

func TestBookEndpointSuccess(t *testing.T) {
	e, published := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/v1/events/"+testEvent+"/book", bookBody("alice", "k1", "S1", "S2"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out booking.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, booking.StatusBooked, out.Status)
	assert.NotEmpty(t, out.BookingID)
	assert.Equal(t, []string{"S1", "S2"}, out.Seats)

	select {
	case ev := <-published:
		assert.Equal(t, out.BookingID, ev.BookingID)
		assert.Equal(t, testEvent, ev.EventID)
		assert.Equal(t, "alice", ev.UserID)
		assert.Equal(t, []string{"S1", "S2"}, ev.Seats)
	case <-time.After(time.Second):
		t.Fatal("expected an audit event for the fresh booking")
	}
}

func TestBookEndpointReplayIsByteIdentical(t *testing.T) {
	e, published := newTestServer(t)
	body := bookBody("alice", "k1", "S1")

	first := doJSON(e, http.MethodPost, "/v1/events/"+testEvent+"/book", body, nil)
	require.Equal(t, http.StatusOK, first.Code)
	<-published

	second := doJSON(e, http.MethodPost, "/v1/events/"+testEvent+"/book", body, nil)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())

	// Replays must not publish a second audit event.
	select {
	case <-published:
		t.Fatal("replay published an audit event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBookEndpointStatusMapping(t *testing.T) {
	e, published := newTestServer(t)

	// Occupy S1 up front.
	rec := doJSON(e, http.MethodPost, "/v1/events/"+testEvent+"/book", bookBody("alice", "k0", "S1"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	<-published

	cases := map[string]struct {
		body string
		want int
	}{
		"seat conflict":  {bookBody("bob", "k1", "S1"), http.StatusConflict},
		"key reuse":      {bookBody("alice", "k0", "S2"), http.StatusConflict},
		"empty seats":    {bookBody("bob", "k2"), http.StatusBadRequest},
		"missing user":   {bookBody("", "k3", "S2"), http.StatusBadRequest},
		"unknown seat":   {bookBody("bob", "k4", "S9"), http.StatusBadRequest},
		"malformed json": {`{"user_id": "bob",`, http.StatusBadRequest},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := doJSON(e, http.MethodPost, "/v1/events/"+testEvent+"/book", tc.body, nil)
			assert.Equal(t, tc.want, rec.Code)
		})
	}

	rec = doJSON(e, http.MethodPost, "/v1/events/no-such-event/book", bookBody("bob", "k5", "S1"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSeatsEndpoint(t *testing.T) {
	e, published := newTestServer(t)

	rec := doJSON(e, http.MethodGet, "/v1/events/"+testEvent+"/seats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		EventID string   `json:"event_id"`
		Seats   []string `json:"seats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, testEvent, resp.EventID)
	assert.Equal(t, []string{"S1", "S2", "S3"}, resp.Seats)

	doJSON(e, http.MethodPost, "/v1/events/"+testEvent+"/book", bookBody("alice", "k1", "S2"), nil)
	<-published
	rec = doJSON(e, http.MethodGet, "/v1/events/"+testEvent+"/seats", "", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"S1", "S3"}, resp.Seats)

	rec = doJSON(e, http.MethodGet, "/v1/events/no-such-event/seats", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetBookingEndpoint(t *testing.T) {
	e, published := newTestServer(t)

	rec := doJSON(e, http.MethodGet, "/v1/bookings/unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	doJSON(e, http.MethodPost, "/v1/events/"+testEvent+"/book", bookBody("alice", "k1", "S1"), nil)
	<-published

	rec = doJSON(e, http.MethodGet, "/v1/bookings/k1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Item booking.Outcome `json:"item"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, booking.StatusBooked, resp.Item.Status)
	assert.Equal(t, []string{"S1"}, resp.Item.Seats)
}

func signToken(t *testing.T, secret, sub string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	raw, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return raw
}

func TestMyBookingsEndpoint(t *testing.T) {
	e, published := newTestServer(t)

	rec := doJSON(e, http.MethodGet, "/v1/my-bookings", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(e, http.MethodGet, "/v1/my-bookings", "", map[string]string{
		"Authorization": "Bearer " + signToken(t, "wrong-secret", "alice"),
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	for i := 1; i <= 2; i++ {
		doJSON(e, http.MethodPost, "/v1/events/"+testEvent+"/book",
			bookBody("alice", fmt.Sprintf("k%d", i), fmt.Sprintf("S%d", i)), nil)
		<-published
	}

	rec = doJSON(e, http.MethodGet, "/v1/my-bookings", "", map[string]string{
		"Authorization": "Bearer " + signToken(t, testSecret, "alice"),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Items []struct {
			IdempotencyKey string         `json:"idempotency_key"`
			EventID        string         `json:"event_id"`
			Seats          []string       `json:"seats"`
			Status         booking.Status `json:"status"`
			BookingID      string         `json:"booking_id"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 2)
	for _, item := range resp.Items {
		assert.Equal(t, testEvent, item.EventID)
		assert.Equal(t, booking.StatusBooked, item.Status)
		assert.NotEmpty(t, item.BookingID)
	}

	rec = doJSON(e, http.MethodGet, "/v1/my-bookings", "", map[string]string{
		"Authorization": "Bearer " + signToken(t, testSecret, "bob"),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Items)
}

func TestHealthEndpoint(t *testing.T) {
	e, _ := newTestServer(t)
	rec := doJSON(e, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
