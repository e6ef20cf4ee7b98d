// Package queue carries booking events over RabbitMQ.
package queue

// BookingConfirmedQueue is the durable queue booking events are routed to.
const BookingConfirmedQueue = "booking.confirmed"

// BookingConfirmedEvent is published after a booking commits.  It carries
// enough for downstream consumers to log or notify without querying the
// primary database.
type BookingConfirmedEvent struct {
	BookingID   uint64   `json:"booking_id"`
	AccountID   *uint64  `json:"account_id,omitempty"`
	ShowingID   uint64   `json:"showing_id"`
	MovieName   string   `json:"movie_name"`
	StartsAt    string   `json:"starts_at"`
	Email       string   `json:"email"`
	SeatIDs     []uint64 `json:"seat_ids"`
	PMRSeats    int      `json:"pmr_seats"`
	TotalPrice  string   `json:"total_price"`
	ConfirmedAt string   `json:"confirmed_at"`
}
