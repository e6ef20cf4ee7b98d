package service

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/testutil"
	"github.com/iliyamo/cinema-ticketing/internal/utils"
)

func newStoreAt(t *testing.T, now *time.Time) (*SessionStore, uint64) {
	t.Helper()
	db := testutil.NewDB(t)
	accountID := testutil.SeedAccount(t, db, "sam", "sam@example.com")
	store := NewSessionStore(repository.NewSessionRepo(db), time.Hour, time.Second)
	store.Now = func() time.Time { return *now }
	return store, accountID
}

func TestSessionLifecycle(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	store, accountID := newStoreAt(t, &now)
	ctx := context.Background()

	token, err := store.Issue(ctx, accountID, "203.0.113.7", "test-agent")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(token), 43)

	info, err := store.Validate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, accountID, info.AccountID)
	assert.Equal(t, "sam", info.Username)
	assert.Equal(t, utils.HashToken(token), info.TokenHash)
	require.NotNil(t, info.ExpiresAt)
	assert.True(t, info.ExpiresAt.Equal(now.Add(time.Hour)))

	require.NoError(t, store.Revoke(ctx, token))
	_, err = store.Validate(ctx, token)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionExpiresWithoutRevoke(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	store, accountID := newStoreAt(t, &now)
	ctx := context.Background()

	token, err := store.Issue(ctx, accountID, "", "")
	require.NoError(t, err)

	now = now.Add(59 * time.Minute)
	_, err = store.Validate(ctx, token)
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = store.Validate(ctx, token)
	assert.ErrorIs(t, err, ErrNoSession, "lifetime elapsed")
}

func TestSweepExpiredFlipsOnlyPastExpiry(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	store, accountID := newStoreAt(t, &now)
	ctx := context.Background()

	old, err := store.Issue(ctx, accountID, "", "")
	require.NoError(t, err)
	now = now.Add(30 * time.Minute)
	fresh, err := store.Issue(ctx, accountID, "", "")
	require.NoError(t, err)

	now = now.Add(31 * time.Minute)
	n, err := store.SweepExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = store.SweepExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n, "sweep is idempotent")

	_, err = store.Validate(ctx, old)
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = store.Validate(ctx, fresh)
	assert.NoError(t, err)
}

func TestRevokeIsIdempotent(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	store, accountID := newStoreAt(t, &now)
	ctx := context.Background()

	token, err := store.Issue(ctx, accountID, "", "")
	require.NoError(t, err)
	assert.NoError(t, store.Revoke(ctx, token))
	assert.NoError(t, store.Revoke(ctx, token))
	assert.NoError(t, store.Revoke(ctx, "never-issued"))
	assert.NoError(t, store.Revoke(ctx, ""))
}

func TestValidateHidesReasons(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	store, _ := newStoreAt(t, &now)
	_, err := store.Validate(context.Background(), "")
	assert.Same(t, ErrNoSession, err)
	_, err = store.Validate(context.Background(), "unknown-token")
	assert.Same(t, ErrNoSession, err)
}

func TestListActiveAndRevokeAll(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	store, accountID := newStoreAt(t, &now)
	ctx := context.Background()

	first, err := store.Issue(ctx, accountID, "198.51.100.1", "")
	require.NoError(t, err)
	now = now.Add(time.Minute)
	_, err = store.Issue(ctx, accountID, "198.51.100.2", "")
	require.NoError(t, err)

	list, err := store.ListActive(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "198.51.100.2", *list[0].IPAddress)
	assert.Empty(t, list[0].TokenHash)

	n, err := store.RevokeAll(ctx, accountID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	_, err = store.Validate(ctx, first)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionStoreStorageFailureIsUnavailable(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	db := testutil.NewDB(t)
	store := NewSessionStore(repository.NewSessionRepo(db), time.Hour, time.Second)
	store.Now = func() time.Time { return now }
	require.NoError(t, db.Close())

	_, err := store.Issue(context.Background(), 1, "", "")
	assert.Same(t, ErrUnavailable, err)
	_, err = store.Validate(context.Background(), "tok")
	assert.Same(t, ErrUnavailable, err)
	assert.Same(t, ErrUnavailable, store.Revoke(context.Background(), "tok"))
}

func TestOptionalCutsOnCharacterBoundary(t *testing.T) {
	got := optional(strings.Repeat("a", 511)+"é", 512)
	require.NotNil(t, got)
	assert.True(t, utf8.ValidString(*got))
	assert.Equal(t, 512, utf8.RuneCountInString(*got))

	got = optional(strings.Repeat("é", 600), 512)
	require.NotNil(t, got)
	assert.True(t, utf8.ValidString(*got))
	assert.Equal(t, 512, utf8.RuneCountInString(*got))

	got = optional("  ok\xff  ", 10)
	require.NotNil(t, got)
	assert.Equal(t, "ok�", *got)

	assert.Nil(t, optional("   ", 10))
}

func TestIssueStoresMultibyteUserAgent(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	store, accountID := newStoreAt(t, &now)
	ua := strings.Repeat("ü", 700)

	_, err := store.Issue(context.Background(), accountID, "198.51.100.7", ua)
	require.NoError(t, err)

	list, err := store.ListActive(context.Background(), accountID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].UserAgent)
	assert.True(t, utf8.ValidString(*list[0].UserAgent))
	assert.Equal(t, strings.Repeat("ü", 512), *list[0].UserAgent)
}
