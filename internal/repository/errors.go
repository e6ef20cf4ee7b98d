// Package repository holds the database/sql data access for the booking
// and session subsystem.  Repositories return raw driver errors or one of
// the sentinels below; translation into the caller-facing taxonomy happens
// in the service package.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a single-row lookup yields no rows.
var ErrNotFound = errors.New("not found")

// ErrSeatTaken is returned when inserting a seat reservation collides with
// the (showing_id, seat_id) unique key, i.e. a concurrent booking won.
var ErrSeatTaken = errors.New("seat already reserved for showing")

// ErrSeatContended is returned when a seat reservation insert loses a
// lock conflict with a concurrent booking (MySQL deadlock 1213 or lock
// wait timeout 1205).  The transaction is dead and must be rolled back.
var ErrSeatContended = errors.New("seat reservation lost a lock conflict")

// ErrEmailExists and ErrUsernameExists signal account unique key
// violations.
var (
	ErrEmailExists    = errors.New("email already exists")
	ErrUsernameExists = errors.New("username already exists")
)

// isDuplicate reports whether err is a unique key violation.  MySQL
// reports error 1062; the sqlite driver used in tests reports a
// "UNIQUE constraint failed" message.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "duplicate entry") ||
		strings.Contains(msg, "1062")
}

// isLockConflict reports whether err is a deadlock or lock wait timeout.
// Both mean another transaction holds the row being written.
func isLockConflict(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1213 || me.Number == 1205
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadlock found") ||
		strings.Contains(msg, "lock wait timeout exceeded")
}

// placeholders returns "?,?,...,?" with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
