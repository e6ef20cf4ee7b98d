// Package service implements the booking and session core: the session
// store, pricing engine, seat availability, showing expiry gate and the
// booking orchestrator.  Every exported operation returns either a value
// or an *Error from the closed set below; raw storage errors never leave
// this package.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/logger"
)

// Kind classifies a failure for callers.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindSeatsUnavailable
	KindShowingExpired
	KindShowingNotFound
	KindBookingNotFound
	KindUnavailable
	KindNoRules
	KindNoSession
	KindInvalidCredentials
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindSeatsUnavailable:
		return "seats_unavailable"
	case KindShowingExpired:
		return "showing_expired"
	case KindShowingNotFound:
		return "showing_not_found"
	case KindBookingNotFound:
		return "booking_not_found"
	case KindUnavailable:
		return "unavailable"
	case KindNoRules:
		return "no_rules"
	case KindNoSession:
		return "no_session"
	case KindInvalidCredentials:
		return "invalid_credentials"
	default:
		return "unknown"
	}
}

// Error is the only error type returned by this package.  SeatIDs is set
// for KindSeatsUnavailable and names the conflicting seats.
type Error struct {
	Kind    Kind
	Message string
	SeatIDs []uint64
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Message
}

// Is matches sentinels by kind.  A sentinel with a message only matches
// errors carrying the same message, so ErrEmailTaken is a validation
// error but not every validation error is ErrEmailTaken.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrSeatsUnavailable   = &Error{Kind: KindSeatsUnavailable}
	ErrShowingExpired     = &Error{Kind: KindShowingExpired}
	ErrShowingNotFound    = &Error{Kind: KindShowingNotFound}
	ErrBookingNotFound    = &Error{Kind: KindBookingNotFound}
	ErrUnavailable        = &Error{Kind: KindUnavailable, Message: "service temporarily unavailable"}
	ErrNoRules            = &Error{Kind: KindNoRules, Message: "no age price rules configured"}
	ErrNoSession          = &Error{Kind: KindNoSession, Message: "no session"}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Message: "invalid credentials"}
	ErrEmailTaken         = &Error{Kind: KindValidation, Message: "email already registered"}
	ErrUsernameTaken      = &Error{Kind: KindValidation, Message: "username already taken"}
)

// KindOf returns the kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func invalid(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func seatsUnavailable(ids []uint64) *Error {
	return &Error{Kind: KindSeatsUnavailable, Message: "seats no longer available", SeatIDs: ids}
}

// storageFailure logs the raw storage error and returns ErrUnavailable.
// It is the single translation point from storage failures to callers.
func storageFailure(ctx context.Context, op string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	logger.FromContext(ctx).Error("storage failure", "op", op, "err", err)
	return ErrUnavailable
}

// Clock returns the current time.  Tests replace it to move time forward.
type Clock func() time.Time

// SystemClock is UTC now truncated to whole seconds, the resolution of the
// DATETIME columns it is compared against.
func SystemClock() time.Time { return time.Now().UTC().Truncate(time.Second) }

// bounded applies the per-call storage timeout.
func bounded(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
