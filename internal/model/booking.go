package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AgePriceRule maps an inclusive age range to a multiplier applied to the
// showing's base price.
type AgePriceRule struct {
	ID     uint64          `json:"id"`
	Label  string          `json:"label"`
	AgeMin uint32          `json:"agemin"`
	AgeMax uint32          `json:"agemax"`
	Factor decimal.Decimal `json:"factor"`
}

// Matches reports whether age falls inside the rule's range.
func (r AgePriceRule) Matches(age uint32) bool {
	return r.AgeMin <= age && age <= r.AgeMax
}

// Booking groups the spectators and seats purchased together for one
// showing.  AccountID is nil for anonymous bookings.
type Booking struct {
	ID         uint64
	AccountID  *uint64
	ShowingID  uint64
	Email      string
	FirstName  string
	LastName   string
	TotalPrice decimal.Decimal
	CreatedAt  time.Time
}

// Customer is one spectator inside a booking.  PMR is derived from the seat
// the spectator was assigned, never from client input.
type Customer struct {
	ID        uint64
	BookingID uint64
	FirstName string
	LastName  string
	Age       uint32
	PMR       bool
}

// SeatReservation marks a seat as taken for a showing.  At most one row may
// exist per (ShowingID, SeatID).
type SeatReservation struct {
	ID         uint64
	ShowingID  uint64
	SeatID     uint64
	CustomerID uint64
	BookingID  uint64
	CreatedAt  time.Time
}

// BookingDetail is a booking with its spectators and their seats, as shown
// to the account that made it.
type BookingDetail struct {
	Booking
	MovieName  string
	ShowingAt  time.Time
	Spectators []BookedSpectator
}

// BookedSpectator pairs a customer with the seat reserved for them.
type BookedSpectator struct {
	Customer
	Seat Seat
}
