package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticketing/internal/database"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/testutil"
)

func TestIsDuplicate(t *testing.T) {
	assert.True(t, isDuplicate(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.False(t, isDuplicate(&mysql.MySQLError{Number: 1452}))
	assert.True(t, isDuplicate(errors.New("UNIQUE constraint failed: seat_reservation.showing_id")))
	assert.False(t, isDuplicate(errors.New("connection refused")))
	assert.False(t, isDuplicate(nil))
}

func TestIsLockConflict(t *testing.T) {
	assert.True(t, isLockConflict(&mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}))
	assert.True(t, isLockConflict(&mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"}))
	assert.False(t, isLockConflict(&mysql.MySQLError{Number: 1062}))
	assert.True(t, isLockConflict(errors.New("Deadlock found when trying to get lock; try restarting transaction")))
	assert.False(t, isLockConflict(errors.New("connection refused")))
	assert.False(t, isLockConflict(nil))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?,?,?", placeholders(3))
}

func TestAccountRepoCreateAndLookup(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewAccountRepo(db)
	ctx := context.Background()

	id, err := repo.Create(ctx, &model.Account{
		Email: "  Ada@Example.com ", Username: "ada", PasswordHash: "h", FirstName: "Ada", LastName: "L",
	})
	require.NoError(t, err)
	assert.NotZero(t, id)

	a, err := repo.GetByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", a.Email)
	assert.Nil(t, a.PasswordModifiedAt)

	_, err = repo.Create(ctx, &model.Account{Email: "ada@example.com", Username: "other", PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrEmailExists)
	_, err = repo.Create(ctx, &model.Account{Email: "new@example.com", Username: "ada", PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrUsernameExists)

	taken, err := repo.UsernameExists(ctx, "ada")
	require.NoError(t, err)
	assert.True(t, taken)

	_, err = repo.GetByID(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionRepoLifecycle(t *testing.T) {
	db := testutil.NewDB(t)
	accountID := testutil.SeedAccount(t, db, "bob", "bob@example.com")
	repo := NewSessionRepo(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	exp := now.Add(time.Hour)
	ip := "10.0.0.1"
	s := &model.Session{AccountID: accountID, TokenHash: "hash-1", CreatedAt: now, ExpiresAt: &exp, IPAddress: &ip}
	require.NoError(t, repo.Insert(ctx, s))

	info, err := repo.FindUsable(ctx, "hash-1", now)
	require.NoError(t, err)
	assert.Equal(t, "bob", info.Username)
	require.NotNil(t, info.IPAddress)
	assert.Equal(t, ip, *info.IPAddress)
	assert.Nil(t, info.UserAgent)

	_, err = repo.FindUsable(ctx, "hash-1", exp)
	assert.ErrorIs(t, err, ErrNotFound, "expired at the boundary")

	n, err := repo.DeactivateExpired(ctx, exp.Add(time.Second))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	n, err = repo.DeactivateExpired(ctx, exp.Add(time.Second))
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	require.NoError(t, repo.Deactivate(ctx, "hash-1"))
	require.NoError(t, repo.Deactivate(ctx, "unknown"))
}

func TestSessionRepoListActiveNewestFirst(t *testing.T) {
	db := testutil.NewDB(t)
	accountID := testutil.SeedAccount(t, db, "cy", "cy@example.com")
	repo := NewSessionRepo(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, h := range []string{"a", "b", "c"} {
		created := now.Add(time.Duration(i) * time.Minute)
		exp := created.Add(time.Hour)
		require.NoError(t, repo.Insert(ctx, &model.Session{AccountID: accountID, TokenHash: h, CreatedAt: created, ExpiresAt: &exp}))
	}
	require.NoError(t, repo.Deactivate(ctx, "b"))

	list, err := repo.ListActive(ctx, accountID, now.Add(5*time.Minute))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c", list[0].TokenHash)
	assert.Equal(t, "a", list[1].TokenHash)

	n, err := repo.DeactivateAllForAccount(ctx, accountID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestShowingRepoGetDetail(t *testing.T) {
	db := testutil.NewDB(t)
	start := time.Date(2026, 5, 10, 20, 30, 0, 0, time.UTC)
	f := testutil.SeedFixture(t, db, start)

	d, err := NewShowingRepo(db).GetDetail(context.Background(), f.ShowingID)
	require.NoError(t, err)
	assert.Equal(t, f.RoomID, d.RoomID)
	assert.EqualValues(t, 20*3600+30*60, d.StartTime)
	assert.EqualValues(t, 120, d.DurationMinutes)
	assert.EqualValues(t, 1000, d.PriceCents)
	assert.True(t, d.StartsAt(time.UTC).Equal(start))

	_, err = NewShowingRepo(db).GetDetail(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSeatRepoReserveRejectsDuplicate(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.SeedFixture(t, db, time.Now().Add(24*time.Hour))
	repo := NewSeatRepo(db)
	ctx := context.Background()

	reserve := func(customerID uint64) error {
		return database.WithTx(ctx, db, func(tx *sql.Tx) error {
			return repo.ReserveTx(ctx, tx, &model.SeatReservation{
				ShowingID: f.ShowingID, SeatID: f.SeatIDs[0], CustomerID: customerID, BookingID: 1,
			})
		})
	}
	require.NoError(t, reserve(1))
	assert.ErrorIs(t, reserve(2), ErrSeatTaken)
	assert.Equal(t, 1, testutil.Count(t, db, "seat_reservation"))

	taken, err := repo.ReservedWith(ctx, db, f.ShowingID, []uint64{f.SeatIDs[1], f.SeatIDs[0]})
	require.NoError(t, err)
	assert.Equal(t, []uint64{f.SeatIDs[0]}, taken)

	seatMap, err := repo.SeatMap(ctx, f.RoomID, f.ShowingID)
	require.NoError(t, err)
	require.Len(t, seatMap, 12)
	assert.True(t, seatMap[0].Occupied)
	assert.True(t, seatMap[0].IsPMR())
	assert.False(t, seatMap[1].Occupied)
	assert.EqualValues(t, 1, seatMap[3].Row)
	assert.EqualValues(t, 4, seatMap[3].Column)
	assert.EqualValues(t, 2, seatMap[4].Row)
}

func TestSeatRepoReserveReportsLockConflict(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.SeedFixture(t, db, time.Now().Add(24*time.Hour))
	repo := NewSeatRepo(db)
	ctx := context.Background()

	testutil.Exec(t, db, `CREATE TRIGGER reservation_deadlock BEFORE INSERT ON seat_reservation
		BEGIN SELECT RAISE(ABORT, 'Deadlock found when trying to get lock; try restarting transaction'); END`)

	err := database.WithTx(ctx, db, func(tx *sql.Tx) error {
		return repo.ReserveTx(ctx, tx, &model.SeatReservation{
			ShowingID: f.ShowingID, SeatID: f.SeatIDs[0], CustomerID: 1, BookingID: 1,
		})
	})
	assert.ErrorIs(t, err, ErrSeatContended)
	assert.Equal(t, 0, testutil.Count(t, db, "seat_reservation"))
}

func TestSeatRepoInRoomFiltersForeignSeats(t *testing.T) {
	db := testutil.NewDB(t)
	roomA, seatsA := testutil.SeedRoom(t, db, 1, 2)
	_, seatsB := testutil.SeedRoom(t, db, 1, 2)

	got, err := NewSeatRepo(db).InRoomWith(context.Background(), db, roomA, []uint64{seatsA[0], seatsB[0]})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Contains(t, got, seatsA[0])
}

func TestPriceRuleRepoOrdersByAgeMin(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.Exec(t, db, "INSERT INTO age_price_rule (label, agemin, agemax, factor) VALUES ('Senior', 65, 120, '0.8')")
	testutil.Exec(t, db, "INSERT INTO age_price_rule (label, agemin, agemax, factor) VALUES ('Child', 0, 11, '0.5')")

	rules, err := NewPriceRuleRepo(db).All(context.Background())
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "Child", rules[0].Label)
	assert.True(t, rules[1].Factor.Equal(decimal.RequireFromString("0.8")))
}

func TestBookingRepoListAndGetForAccount(t *testing.T) {
	db := testutil.NewDB(t)
	start := time.Date(2026, 7, 1, 18, 0, 0, 0, time.UTC)
	f := testutil.SeedFixture(t, db, start)
	accountID := testutil.SeedAccount(t, db, "dee", "dee@example.com")
	repo := NewBookingRepo(db)
	seats := NewSeatRepo(db)
	ctx := context.Background()

	var bookingID uint64
	err := database.WithTx(ctx, db, func(tx *sql.Tx) error {
		b := &model.Booking{AccountID: &accountID, ShowingID: f.ShowingID, Email: "dee@example.com",
			FirstName: "Dee", LastName: "D", TotalPrice: decimal.RequireFromString("15.00")}
		if err := repo.CreateTx(ctx, tx, b); err != nil {
			return err
		}
		bookingID = b.ID
		for i, age := range []uint32{8, 30} {
			c := &model.Customer{BookingID: b.ID, FirstName: "S", LastName: "D", Age: age, PMR: i == 0}
			if err := repo.CreateCustomerTx(ctx, tx, c); err != nil {
				return err
			}
			if err := seats.ReserveTx(ctx, tx, &model.SeatReservation{
				ShowingID: f.ShowingID, SeatID: f.SeatIDs[i], CustomerID: c.ID, BookingID: b.ID,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	list, err := repo.ListForAccount(ctx, accountID, time.UTC)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "The Long Take", list[0].MovieName)
	assert.True(t, list[0].ShowingAt.Equal(start))
	require.Len(t, list[0].Spectators, 2)
	assert.True(t, list[0].Spectators[0].PMR)
	assert.Equal(t, f.SeatIDs[0], list[0].Spectators[0].Seat.ID)
	assert.Equal(t, "15.00", list[0].TotalPrice.StringFixed(2))

	got, err := repo.GetForAccount(ctx, bookingID, accountID, time.UTC)
	require.NoError(t, err)
	assert.Len(t, got.Spectators, 2)

	_, err = repo.GetForAccount(ctx, bookingID, accountID+1, time.UTC)
	assert.ErrorIs(t, err, ErrNotFound)

	empty, err := repo.ListForAccount(ctx, accountID+1, time.UTC)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
