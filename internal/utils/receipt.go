package utils

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidReceipt covers every reason a receipt fails verification.
var ErrInvalidReceipt = errors.New("invalid receipt")

// ReceiptClaims is the signed proof of a confirmed booking handed to the
// booker.  It lets an anonymous booker show their purchase without an
// account.
type ReceiptClaims struct {
	BookingID uint64   `json:"bid"`
	ShowingID uint64   `json:"sid"`
	SeatIDs   []uint64 `json:"seats"`
	Total     string   `json:"total"`
	jwt.RegisteredClaims
}

// NewReceipt signs claims with HS256.  Subject and issued/expiry times are
// filled in from the booking id and ttl.
func NewReceipt(secret string, c ReceiptClaims, ttl time.Duration) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	c.Subject = strconv.FormatUint(c.BookingID, 10)
	c.IssuedAt = jwt.NewNumericDate(now)
	c.ExpiresAt = jwt.NewNumericDate(exp)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ParseReceipt verifies the signature, algorithm and expiry of a receipt.
func ParseReceipt(secret, token string) (*ReceiptClaims, error) {
	var c ReceiptClaims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, ErrInvalidReceipt
	}
	return &c, nil
}
