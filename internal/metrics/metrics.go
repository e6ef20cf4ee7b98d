// Package metrics exposes Prometheus collectors for bookings, sessions and
// HTTP traffic.  Collectors are registered once on the default registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Booking outcomes, used as the "outcome" label.
const (
	OutcomeConfirmed        = "confirmed"
	OutcomeSeatsUnavailable = "seats_unavailable"
	OutcomeShowingGone      = "showing_gone"
	OutcomeInvalid          = "invalid"
	OutcomeError            = "error"
)

var (
	bookings = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cinema",
		Name:      "bookings_total",
		Help:      "Booking attempts by outcome.",
	}, []string{"outcome"})

	bookedSeats = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cinema",
		Name:      "booked_seats_total",
		Help:      "Seats reserved by confirmed bookings.",
	})

	bookingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cinema",
		Name:      "booking_duration_seconds",
		Help:      "Time spent in the booking transaction.",
		Buckets:   prometheus.DefBuckets,
	})

	sessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cinema",
		Name:      "session_events_total",
		Help:      "Session lifecycle events (issued, revoked, swept).",
	}, []string{"event"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cinema",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status code.",
	}, []string{"method", "route", "status"})
)

// ObserveBooking records one booking attempt.
func ObserveBooking(outcome string, seats int, took time.Duration) {
	bookings.WithLabelValues(outcome).Inc()
	if outcome == OutcomeConfirmed {
		bookedSeats.Add(float64(seats))
	}
	bookingDuration.Observe(took.Seconds())
}

// SessionEvent adds n to the counter for event.
func SessionEvent(event string, n int64) {
	if n <= 0 {
		return
	}
	sessions.WithLabelValues(event).Add(float64(n))
}

// HTTPRequest counts one served request.
func HTTPRequest(method, route, status string) {
	httpRequests.WithLabelValues(method, route, status).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }
