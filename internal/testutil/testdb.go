// Package testutil provides an in-memory sqlite database with the same
// tables and unique keys as the MySQL schema, plus seed helpers shared by
// repository, service and handler tests.
package testutil

import (
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

var sqliteSchema = []string{
	`CREATE TABLE account (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		password_modified_at DATETIME NULL,
		profile_modified_at DATETIME NULL
	)`,
	`CREATE TABLE account_session (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id INTEGER NOT NULL,
		token_hash TEXT NOT NULL UNIQUE,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		ip_address TEXT NULL,
		user_agent TEXT NULL
	)`,
	`CREATE TABLE movie (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		duration INTEGER NOT NULL
	)`,
	`CREATE TABLE room (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE seat (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		room_id INTEGER NOT NULL,
		row_num INTEGER NOT NULL,
		col_num INTEGER NOT NULL,
		type TEXT NOT NULL DEFAULT 'standard',
		UNIQUE (room_id, row_num, col_num)
	)`,
	`CREATE TABLE showing (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		movie_id INTEGER NOT NULL,
		room_id INTEGER NOT NULL,
		date DATE NOT NULL,
		starttime INTEGER NOT NULL,
		price INTEGER NOT NULL
	)`,
	`CREATE TABLE age_price_rule (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		label TEXT NOT NULL,
		agemin INTEGER NOT NULL,
		agemax INTEGER NOT NULL,
		factor TEXT NOT NULL
	)`,
	`CREATE TABLE booking (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id INTEGER NULL,
		showing_id INTEGER NOT NULL,
		email TEXT NOT NULL,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		total_price TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE customer (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		booking_id INTEGER NOT NULL,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		age INTEGER NOT NULL,
		pmr INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE seat_reservation (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		showing_id INTEGER NOT NULL,
		seat_id INTEGER NOT NULL,
		customer_id INTEGER NOT NULL UNIQUE,
		booking_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE (showing_id, seat_id)
	)`,
}

var dbSeq atomic.Int64

// NewDB opens a private in-memory database with the schema applied.  The
// pool is limited to one connection so every statement sees the same
// memory database; code under test must not use the pool while holding a
// transaction.
func NewDB(t testing.TB) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=private", dbSeq.Add(1))
	db, err := sql.Open("sqlite3", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	for _, stmt := range sqliteSchema {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// Exec runs a statement and returns the last insert id.
func Exec(t testing.TB, db *sql.DB, q string, args ...any) uint64 {
	t.Helper()
	res, err := db.Exec(q, args...)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return uint64(id)
}

// Count returns the number of rows in table.
func Count(t testing.TB, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

// Pos is a (row, column) seat position.
type Pos struct{ Row, Col int }

// SeedRoom creates a room with rows*cols seats.  Positions listed in pmr
// get the "pmr" seat type.  Seat ids are returned in row-major order.
func SeedRoom(t testing.TB, db *sql.DB, rows, cols int, pmr ...Pos) (uint64, []uint64) {
	t.Helper()
	roomID := Exec(t, db, "INSERT INTO room (name) VALUES (?)", fmt.Sprintf("Room %d", dbSeq.Add(1)))
	isPMR := make(map[Pos]bool, len(pmr))
	for _, p := range pmr {
		isPMR[p] = true
	}
	ids := make([]uint64, 0, rows*cols)
	for r := 1; r <= rows; r++ {
		for c := 1; c <= cols; c++ {
			typ := "standard"
			if isPMR[Pos{r, c}] {
				typ = "pmr"
			}
			ids = append(ids, Exec(t, db,
				"INSERT INTO seat (room_id, row_num, col_num, type) VALUES (?,?,?,?)", roomID, r, c, typ))
		}
	}
	return roomID, ids
}

// SeedMovie inserts a movie with a duration in minutes.
func SeedMovie(t testing.TB, db *sql.DB, name string, durationMinutes int) uint64 {
	t.Helper()
	return Exec(t, db, "INSERT INTO movie (name, duration) VALUES (?,?)", name, durationMinutes)
}

// SeedShowing schedules a showing starting at start (interpreted in UTC).
func SeedShowing(t testing.TB, db *sql.DB, movieID, roomID uint64, start time.Time, priceCents int64) uint64 {
	t.Helper()
	start = start.UTC().Truncate(time.Second)
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	secs := int(start.Sub(day) / time.Second)
	return Exec(t, db, "INSERT INTO showing (movie_id, room_id, date, starttime, price) VALUES (?,?,?,?,?)",
		movieID, roomID, day, secs, priceCents)
}

// SeedStandardRules inserts Child 0-11 x0.5, Adult 12-64 x1.0 and
// Senior 65-120 x0.8.
func SeedStandardRules(t testing.TB, db *sql.DB) {
	t.Helper()
	Exec(t, db, "INSERT INTO age_price_rule (label, agemin, agemax, factor) VALUES ('Child', 0, 11, '0.5')")
	Exec(t, db, "INSERT INTO age_price_rule (label, agemin, agemax, factor) VALUES ('Adult', 12, 64, '1.0')")
	Exec(t, db, "INSERT INTO age_price_rule (label, agemin, agemax, factor) VALUES ('Senior', 65, 120, '0.8')")
}

// SeedAccount inserts an account with a placeholder password hash.
func SeedAccount(t testing.TB, db *sql.DB, username, email string) uint64 {
	t.Helper()
	return Exec(t, db,
		"INSERT INTO account (email, username, password_hash, first_name, last_name, created_at) VALUES (?,?,?,?,?,?)",
		email, username, "x", "Test", "User", time.Now().UTC().Truncate(time.Second))
}

// Fixture is a ready-to-book showing: a 3x4 room whose seat at row 1
// column 1 is PMR, a two hour movie and the standard age rules.
type Fixture struct {
	RoomID    uint64
	SeatIDs   []uint64
	MovieID   uint64
	ShowingID uint64
}

// SeedFixture builds a Fixture with a showing starting at start and a
// base price of 1000 cents.
func SeedFixture(t testing.TB, db *sql.DB, start time.Time) Fixture {
	t.Helper()
	var f Fixture
	f.RoomID, f.SeatIDs = SeedRoom(t, db, 3, 4, Pos{1, 1})
	f.MovieID = SeedMovie(t, db, "The Long Take", 120)
	f.ShowingID = SeedShowing(t, db, f.MovieID, f.RoomID, start, 1000)
	SeedStandardRules(t, db)
	return f
}
