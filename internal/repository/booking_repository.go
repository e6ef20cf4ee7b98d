package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// BookingRepo writes bookings and their customers inside the caller's
// transaction and reads them back for the owning account.  Bookings are
// immutable once committed.
type BookingRepo struct{ DB *sql.DB }

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{DB: db} }

// CreateTx inserts the booking row and populates its ID.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	const q = `INSERT INTO booking (account_id, showing_id, email, first_name, last_name, total_price, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, b.AccountID, b.ShowingID, b.Email, b.FirstName, b.LastName, b.TotalPrice, b.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// CreateCustomerTx inserts one spectator row.
func (r *BookingRepo) CreateCustomerTx(ctx context.Context, tx *sql.Tx, c *model.Customer) error {
	pmr := 0
	if c.PMR {
		pmr = 1
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO customer (booking_id, first_name, last_name, age, pmr) VALUES (?,?,?,?,?)",
		c.BookingID, c.FirstName, c.LastName, c.Age, pmr)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

const bookingDetailSelect = `SELECT b.id, b.account_id, b.showing_id, b.email, b.first_name, b.last_name,
                                    b.total_price, b.created_at, m.name, s.date, s.starttime
                             FROM booking b
                             JOIN showing s ON s.id = b.showing_id
                             JOIN movie m ON m.id = s.movie_id`

// ListForAccount returns the account's bookings, newest first, each with
// its spectators and seats.  Showing times are expressed in loc.
func (r *BookingRepo) ListForAccount(ctx context.Context, accountID uint64, loc *time.Location) ([]model.BookingDetail, error) {
	rows, err := r.DB.QueryContext(ctx,
		bookingDetailSelect+` WHERE b.account_id = ? ORDER BY b.created_at DESC, b.id DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := make([]model.BookingDetail, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		d, err := scanBookingDetail(rows, loc)
		if err != nil {
			return nil, err
		}
		index[d.ID] = len(details)
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return details, nil
	}

	ids := make([]any, 0, len(details))
	for _, d := range details {
		ids = append(ids, d.ID)
	}
	spectators, err := r.spectators(ctx, `c.booking_id IN (`+placeholders(len(ids))+`)`, ids...)
	if err != nil {
		return nil, err
	}
	for _, sp := range spectators {
		if i, ok := index[sp.BookingID]; ok {
			details[i].Spectators = append(details[i].Spectators, sp)
		}
	}
	return details, nil
}

// GetForAccount returns one booking when it belongs to accountID, else
// ErrNotFound.
func (r *BookingRepo) GetForAccount(ctx context.Context, bookingID, accountID uint64, loc *time.Location) (*model.BookingDetail, error) {
	row := r.DB.QueryRowContext(ctx, bookingDetailSelect+` WHERE b.id = ? AND b.account_id = ?`, bookingID, accountID)
	d, err := scanBookingDetail(row, loc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	d.Spectators, err = r.spectators(ctx, "c.booking_id = ?", bookingID)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

type rowScanner interface{ Scan(dest ...any) error }

func scanBookingDetail(row rowScanner, loc *time.Location) (model.BookingDetail, error) {
	var (
		d         model.BookingDetail
		accountID sql.NullInt64
		date      time.Time
		start     uint32
	)
	if err := row.Scan(&d.ID, &accountID, &d.ShowingID, &d.Email, &d.FirstName, &d.LastName,
		&d.TotalPrice, &d.CreatedAt, &d.MovieName, &date, &start); err != nil {
		return d, err
	}
	if accountID.Valid {
		id := uint64(accountID.Int64)
		d.AccountID = &id
	}
	d.ShowingAt = model.Showing{Date: date, StartTime: start}.StartsAt(loc)
	d.Spectators = make([]model.BookedSpectator, 0)
	return d, nil
}

func (r *BookingRepo) spectators(ctx context.Context, where string, args ...any) ([]model.BookedSpectator, error) {
	q := `SELECT c.id, c.booking_id, c.first_name, c.last_name, c.age, c.pmr,
	             se.id, se.room_id, se.row_num, se.col_num, se.type
	      FROM customer c
	      JOIN seat_reservation sr ON sr.customer_id = c.id
	      JOIN seat se ON se.id = sr.seat_id
	      WHERE ` + where + `
	      ORDER BY c.booking_id, c.id`
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.BookedSpectator, 0)
	for rows.Next() {
		var (
			sp  model.BookedSpectator
			pmr int
		)
		if err := rows.Scan(&sp.ID, &sp.BookingID, &sp.FirstName, &sp.LastName, &sp.Age, &pmr,
			&sp.Seat.ID, &sp.Seat.RoomID, &sp.Seat.Row, &sp.Seat.Column, &sp.Seat.Type); err != nil {
			return nil, err
		}
		sp.PMR = pmr == 1
		out = append(out, sp)
	}
	return out, rows.Err()
}
