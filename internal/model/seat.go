package model

// Seat types.  PMR seats are accessible to mobility-impaired spectators.
const (
	SeatStandard = "standard"
	SeatPMR      = "pmr"
)

// Seat describes a physical seat in a room.  Seats are static per room and
// uniquely identified by (room, row, column).
type Seat struct {
	ID     uint64 // seat.id
	RoomID uint64 // seat.room_id
	Row    uint32 // seat.row_num
	Column uint32 // seat.col_num
	Type   string // seat.type
}

// IsPMR reports whether the seat is a PMR seat.
func (s Seat) IsPMR() bool { return s.Type == SeatPMR }

// SeatState is one cell of a showing's seat map.
type SeatState struct {
	Seat
	Occupied bool
}
