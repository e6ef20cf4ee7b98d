package model

import "time"

// Movie is the film being screened.  Duration is stored in minutes.
type Movie struct {
	ID              uint64
	Name            string
	DurationMinutes uint32
}

// Showing is a scheduled screening of a movie in a room.  Date carries the
// calendar day only; StartTime is the number of seconds since midnight.
// PriceCents is the base price in minor currency units.
type Showing struct {
	ID         uint64    // showing.id
	MovieID    uint64    // showing.movie_id
	RoomID     uint64    // showing.room_id
	Date       time.Time // showing.date
	StartTime  uint32    // showing.starttime
	PriceCents int64     // showing.price
}

// StartsAt combines Date and StartTime in loc.
func (s Showing) StartsAt(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := s.Date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc).Add(time.Duration(s.StartTime) * time.Second)
}

// EndsAt is the start plus the movie duration.
func (s Showing) EndsAt(loc *time.Location, durationMinutes uint32) time.Time {
	return s.StartsAt(loc).Add(time.Duration(durationMinutes) * time.Minute)
}

// ShowingDetail is a showing joined with the parts of its movie the booking
// flow needs.
type ShowingDetail struct {
	Showing
	MovieName       string
	DurationMinutes uint32
}
