package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// SeatAvailability reports seat occupancy for a showing.  Results are
// point-in-time; the booking transaction re-checks and the storage unique
// key has the final word.
type SeatAvailability struct {
	db      *sql.DB
	seats   *repository.SeatRepo
	gate    *ShowingGate
	timeout time.Duration
}

func NewSeatAvailability(db *sql.DB, seats *repository.SeatRepo, gate *ShowingGate, timeout time.Duration) *SeatAvailability {
	return &SeatAvailability{db: db, seats: seats, gate: gate, timeout: timeout}
}

// SeatsForShowing returns every seat of the showing's room ordered by row
// then column, each flagged occupied when reserved for this showing.
func (a *SeatAvailability) SeatsForShowing(ctx context.Context, showingID uint64) ([]model.SeatState, error) {
	ctx, cancel := bounded(ctx, a.timeout)
	defer cancel()
	show, err := a.gate.Load(ctx, a.db, showingID)
	if err != nil {
		return nil, err
	}
	states, err := a.seats.SeatMap(ctx, show.RoomID, showingID)
	if err != nil {
		return nil, storageFailure(ctx, "seats.map", err)
	}
	return states, nil
}

// CheckAvailability reports whether every seat in seatIDs belongs to the
// showing's room and is currently free.  Duplicates are ignored.
func (a *SeatAvailability) CheckAvailability(ctx context.Context, seatIDs []uint64, showingID uint64) (bool, error) {
	ids, err := uniqueSeatIDs(seatIDs, true)
	if err != nil {
		return false, err
	}
	ctx, cancel := bounded(ctx, a.timeout)
	defer cancel()
	show, err := a.gate.Load(ctx, a.db, showingID)
	if err != nil {
		return false, err
	}
	inRoom, err := a.seats.InRoomWith(ctx, a.db, show.RoomID, ids)
	if err != nil {
		return false, storageFailure(ctx, "seats.in_room", err)
	}
	if len(inRoom) != len(ids) {
		return false, nil
	}
	taken, err := a.seats.ReservedWith(ctx, a.db, showingID, ids)
	if err != nil {
		return false, storageFailure(ctx, "seats.reserved", err)
	}
	return len(taken) == 0, nil
}

// uniqueSeatIDs validates a seat id list.  With dedupe false a repeated id
// is a validation error.
func uniqueSeatIDs(seatIDs []uint64, dedupe bool) ([]uint64, error) {
	if len(seatIDs) == 0 {
		return nil, invalid("at least one seat is required")
	}
	seen := make(map[uint64]struct{}, len(seatIDs))
	out := make([]uint64, 0, len(seatIDs))
	for _, id := range seatIDs {
		if id == 0 {
			return nil, invalid("seat id must be positive")
		}
		if _, dup := seen[id]; dup {
			if dedupe {
				continue
			}
			return nil, invalid("seat %d requested more than once", id)
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}
