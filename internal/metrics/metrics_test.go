package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveBookingCountsSeatsOnlyWhenConfirmed(t *testing.T) {
	before := testutil.ToFloat64(bookedSeats)
	beforeLost := testutil.ToFloat64(bookings.WithLabelValues(OutcomeSeatsUnavailable))

	ObserveBooking(OutcomeConfirmed, 3, 10*time.Millisecond)
	ObserveBooking(OutcomeSeatsUnavailable, 2, time.Millisecond)

	assert.Equal(t, before+3, testutil.ToFloat64(bookedSeats))
	assert.Equal(t, beforeLost+1, testutil.ToFloat64(bookings.WithLabelValues(OutcomeSeatsUnavailable)))
}

func TestSessionEventIgnoresNonPositive(t *testing.T) {
	before := testutil.ToFloat64(sessions.WithLabelValues("swept"))
	SessionEvent("swept", 0)
	SessionEvent("swept", 4)
	assert.Equal(t, before+4, testutil.ToFloat64(sessions.WithLabelValues("swept")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	HTTPRequest("GET", "/healthz", "200")
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cinema_http_requests_total")
}
