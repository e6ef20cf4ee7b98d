package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/cinema-ticketing/internal/database"
	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// ShowingRepo reads showings together with the movie data needed to
// compute their end time.  Showings are immutable here; creating them is
// an administrative concern handled outside this service.
type ShowingRepo struct{ DB *sql.DB }

func NewShowingRepo(db *sql.DB) *ShowingRepo { return &ShowingRepo{DB: db} }

// GetDetail loads a showing and its movie duration.
func (r *ShowingRepo) GetDetail(ctx context.Context, id uint64) (*model.ShowingDetail, error) {
	return r.GetDetailWith(ctx, r.DB, id)
}

// GetDetailWith is GetDetail against an arbitrary querier, typically the
// booking transaction.
func (r *ShowingRepo) GetDetailWith(ctx context.Context, q database.Querier, id uint64) (*model.ShowingDetail, error) {
	const sel = `SELECT s.id, s.movie_id, s.room_id, s.date, s.starttime, s.price, m.name, m.duration
	             FROM showing s
	             JOIN movie m ON m.id = s.movie_id
	             WHERE s.id = ?`
	var d model.ShowingDetail
	err := q.QueryRowContext(ctx, sel, id).Scan(
		&d.ID, &d.MovieID, &d.RoomID, &d.Date, &d.StartTime, &d.PriceCents,
		&d.MovieName, &d.DurationMinutes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}
