package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesByKind(t *testing.T) {
	err := invalid("seat %d twice", 3)
	assert.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrEmailTaken)
	assert.ErrorIs(t, ErrEmailTaken, ErrValidation)
	assert.NotErrorIs(t, err, ErrSeatsUnavailable)

	wrapped := fmt.Errorf("outer: %w", seatsUnavailable([]uint64{4}))
	assert.ErrorIs(t, wrapped, ErrSeatsUnavailable)
	assert.Equal(t, KindSeatsUnavailable, KindOf(wrapped))
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
}

func TestStorageFailureHidesRawErrors(t *testing.T) {
	err := storageFailure(context.Background(), "op", errors.New("dial tcp: connection refused"))
	assert.Same(t, ErrUnavailable, err)
	assert.NotContains(t, err.Error(), "dial")

	assert.Same(t, ErrShowingExpired, storageFailure(context.Background(), "op", ErrShowingExpired))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "seats_unavailable", KindSeatsUnavailable.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
