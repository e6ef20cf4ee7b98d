package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/database"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// ShowingGate decides whether a showing can still be booked.  Showing
// dates and start times are interpreted in loc.
type ShowingGate struct {
	showings *repository.ShowingRepo
	loc      *time.Location
	Now      Clock
}

func NewShowingGate(showings *repository.ShowingRepo, loc *time.Location) *ShowingGate {
	if loc == nil {
		loc = time.UTC
	}
	return &ShowingGate{showings: showings, loc: loc, Now: SystemClock}
}

// Location is the zone showing times are expressed in.
func (g *ShowingGate) Location() *time.Location { return g.loc }

// IsExpired reports whether the showing ended before now.  The end is the
// start plus the movie duration.
func (g *ShowingGate) IsExpired(s model.Showing, durationMinutes uint32) bool {
	return s.EndsAt(g.loc, durationMinutes).Before(g.Now())
}

// Load reads a showing through q and rejects it when absent or expired.
// Both outcomes are "not found" to end users.
func (g *ShowingGate) Load(ctx context.Context, q database.Querier, showingID uint64) (*model.ShowingDetail, error) {
	if showingID == 0 {
		return nil, ErrShowingNotFound
	}
	d, err := g.showings.GetDetailWith(ctx, q, showingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrShowingNotFound
		}
		return nil, storageFailure(ctx, "showing.load", err)
	}
	if g.IsExpired(d.Showing, d.DurationMinutes) {
		return nil, ErrShowingExpired
	}
	return d, nil
}
