package utils

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewSessionTokenIsURLSafeAndRandom(t *testing.T) {
	a, err := NewSessionToken()
	require.NoError(t, err)
	b, err := NewSessionToken()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	raw, err := base64.RawURLEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, SessionTokenBytes)
	assert.False(t, strings.ContainsAny(a, "+/="))
}

func TestHashTokenIsStableHex(t *testing.T) {
	h := HashToken("abc")
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashToken("abc"))
	assert.NotEqual(t, h, HashToken("abd"))
}

func TestReceiptRoundTrip(t *testing.T) {
	tok, exp, err := NewReceipt("secret", ReceiptClaims{BookingID: 7, ShowingID: 3, SeatIDs: []uint64{1, 2}, Total: "15.00"}, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	c, err := ParseReceipt("secret", tok)
	require.NoError(t, err)
	assert.EqualValues(t, 7, c.BookingID)
	assert.Equal(t, "7", c.Subject)
	assert.Equal(t, []uint64{1, 2}, c.SeatIDs)
	assert.Equal(t, "15.00", c.Total)

	_, err = ParseReceipt("other", tok)
	assert.ErrorIs(t, err, ErrInvalidReceipt)
}

func TestReceiptExpired(t *testing.T) {
	tok, _, err := NewReceipt("secret", ReceiptClaims{BookingID: 1}, -time.Minute)
	require.NoError(t, err)
	_, err = ParseReceipt("secret", tok)
	assert.ErrorIs(t, err, ErrInvalidReceipt)
}

func TestPasswordHelpers(t *testing.T) {
	assert.ErrorIs(t, CheckPassword("short"), ErrWeakPassword)
	assert.ErrorIs(t, CheckPassword(strings.Repeat("a", 73)), ErrWeakPassword)
	assert.NoError(t, CheckPassword("long enough"))

	h, err := HashPassword("long enough", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(h, "long enough"))
	assert.False(t, VerifyPassword(h, "wrong one"))
}
