package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/testutil"
)

func TestIsExpiredUsesEndTimeInLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	gate := NewShowingGate(nil, loc)
	show := model.Showing{
		Date:      time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		StartTime: 20 * 3600, // 20:00 local is 18:00 UTC
	}
	end := time.Date(2026, 6, 1, 19, 30, 0, 0, time.UTC) // plus 90 minutes

	gate.Now = func() time.Time { return end.Add(-time.Minute) }
	assert.False(t, gate.IsExpired(show, 90))
	gate.Now = func() time.Time { return end }
	assert.False(t, gate.IsExpired(show, 90), "ending exactly now is not yet past")
	gate.Now = func() time.Time { return end.Add(time.Second) }
	assert.True(t, gate.IsExpired(show, 90))
}

func TestShowingGateLoad(t *testing.T) {
	db := testutil.NewDB(t)
	roomID, _ := testutil.SeedRoom(t, db, 1, 1)
	movieID := testutil.SeedMovie(t, db, "Short", 60)
	past := testutil.SeedShowing(t, db, movieID, roomID, time.Now().Add(-3*time.Hour), 900)
	playing := testutil.SeedShowing(t, db, movieID, roomID, time.Now().Add(-30*time.Minute), 900)

	gate := NewShowingGate(repository.NewShowingRepo(db), time.UTC)
	ctx := context.Background()

	_, err := gate.Load(ctx, db, past)
	assert.ErrorIs(t, err, ErrShowingExpired)

	d, err := gate.Load(ctx, db, playing)
	require.NoError(t, err, "a showing still running is not expired")
	assert.EqualValues(t, 60, d.DurationMinutes)

	_, err = gate.Load(ctx, db, 9999)
	assert.ErrorIs(t, err, ErrShowingNotFound)
	_, err = gate.Load(ctx, db, 0)
	assert.ErrorIs(t, err, ErrShowingNotFound)
}
