package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/database"
	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// SeatRepo reads room seats and writes seat reservations.  The
// (showing_id, seat_id) unique key on seat_reservation is the source of
// truth for occupancy; every read here is a point-in-time view.
type SeatRepo struct{ DB *sql.DB }

func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{DB: db} }

// SeatMap lists every seat of the room with its occupancy for the showing,
// ordered by row then column.
func (r *SeatRepo) SeatMap(ctx context.Context, roomID, showingID uint64) ([]model.SeatState, error) {
	const q = `SELECT se.id, se.room_id, se.row_num, se.col_num, se.type,
	                  CASE WHEN sr.id IS NULL THEN 0 ELSE 1 END
	           FROM seat se
	           LEFT JOIN seat_reservation sr ON sr.seat_id = se.id AND sr.showing_id = ?
	           WHERE se.room_id = ?
	           ORDER BY se.row_num, se.col_num`
	rows, err := r.DB.QueryContext(ctx, q, showingID, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.SeatState, 0)
	for rows.Next() {
		var (
			st       model.SeatState
			occupied int
		)
		if err := rows.Scan(&st.ID, &st.RoomID, &st.Row, &st.Column, &st.Type, &occupied); err != nil {
			return nil, err
		}
		st.Occupied = occupied == 1
		out = append(out, st)
	}
	return out, rows.Err()
}

// InRoomWith returns the subset of seatIDs that belong to roomID, keyed by
// id.  Callers compare lengths to detect foreign seats.
func (r *SeatRepo) InRoomWith(ctx context.Context, q database.Querier, roomID uint64, seatIDs []uint64) (map[uint64]model.Seat, error) {
	out := make(map[uint64]model.Seat, len(seatIDs))
	if len(seatIDs) == 0 {
		return out, nil
	}
	args := make([]any, 0, len(seatIDs)+1)
	args = append(args, roomID)
	for _, id := range seatIDs {
		args = append(args, id)
	}
	sel := `SELECT id, room_id, row_num, col_num, type FROM seat
	        WHERE room_id = ? AND id IN (` + placeholders(len(seatIDs)) + `)`
	rows, err := q.QueryContext(ctx, sel, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.RoomID, &s.Row, &s.Column, &s.Type); err != nil {
			return nil, err
		}
		out[s.ID] = s
	}
	return out, rows.Err()
}

// ReservedWith returns which of seatIDs already hold a reservation for the
// showing, in ascending id order.
func (r *SeatRepo) ReservedWith(ctx context.Context, q database.Querier, showingID uint64, seatIDs []uint64) ([]uint64, error) {
	if len(seatIDs) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(seatIDs)+1)
	args = append(args, showingID)
	for _, id := range seatIDs {
		args = append(args, id)
	}
	sel := `SELECT seat_id FROM seat_reservation
	        WHERE showing_id = ? AND seat_id IN (` + placeholders(len(seatIDs)) + `)
	        ORDER BY seat_id`
	rows, err := q.QueryContext(ctx, sel, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var taken []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		taken = append(taken, id)
	}
	return taken, rows.Err()
}

// ReserveTx inserts one seat_reservation row inside the booking
// transaction.  A unique key collision yields ErrSeatTaken and a lost
// lock conflict yields ErrSeatContended.
func (r *SeatRepo) ReserveTx(ctx context.Context, tx *sql.Tx, res *model.SeatReservation) error {
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	result, err := tx.ExecContext(ctx,
		"INSERT INTO seat_reservation (showing_id, seat_id, customer_id, booking_id, created_at) VALUES (?,?,?,?,?)",
		res.ShowingID, res.SeatID, res.CustomerID, res.BookingID, res.CreatedAt)
	if err != nil {
		switch {
		case isDuplicate(err):
			return ErrSeatTaken
		case isLockConflict(err):
			return ErrSeatContended
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}
