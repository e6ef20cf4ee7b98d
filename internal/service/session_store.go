package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/iliyamo/cinema-ticketing/internal/metrics"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/utils"
)

// SessionStore issues and validates opaque bearer tokens.  Validity is
// always read from storage; nothing about a session is cached in process.
type SessionStore struct {
	repo     *repository.SessionRepo
	lifetime time.Duration
	timeout  time.Duration
	Now      Clock
}

// NewSessionStore builds a store whose tokens live for lifetime from
// issuance.  A non-positive lifetime issues tokens without expiry.
func NewSessionStore(repo *repository.SessionRepo, lifetime, timeout time.Duration) *SessionStore {
	return &SessionStore{repo: repo, lifetime: lifetime, timeout: timeout, Now: SystemClock}
}

// Issue creates an active session for accountID and returns the raw token.
// clientIP and userAgent are optional.
func (s *SessionStore) Issue(ctx context.Context, accountID uint64, clientIP, userAgent string) (string, error) {
	raw, err := utils.NewSessionToken()
	if err != nil {
		return "", storageFailure(ctx, "session.issue.token", err)
	}
	now := s.Now()
	sess := &model.Session{
		AccountID: accountID,
		TokenHash: utils.HashToken(raw),
		CreatedAt: now,
		IPAddress: optional(clientIP, 45),
		UserAgent: optional(userAgent, 512),
	}
	if s.lifetime > 0 {
		exp := now.Add(s.lifetime)
		sess.ExpiresAt = &exp
	}

	ctx, cancel := bounded(ctx, s.timeout)
	defer cancel()
	if err := s.repo.Insert(ctx, sess); err != nil {
		return "", storageFailure(ctx, "session.issue", err)
	}
	metrics.SessionEvent("issued", 1)
	return raw, nil
}

// Validate returns the session and account identity bound to token.
// Unknown, revoked and expired tokens are all ErrNoSession.
func (s *SessionStore) Validate(ctx context.Context, token string) (*model.SessionInfo, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNoSession
	}
	ctx, cancel := bounded(ctx, s.timeout)
	defer cancel()
	info, err := s.repo.FindUsable(ctx, utils.HashToken(token), s.Now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoSession
		}
		return nil, storageFailure(ctx, "session.validate", err)
	}
	return info, nil
}

// Revoke deactivates token.  Revoking an unknown or already revoked token
// succeeds.
func (s *SessionStore) Revoke(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	ctx, cancel := bounded(ctx, s.timeout)
	defer cancel()
	if err := s.repo.Deactivate(ctx, utils.HashToken(token)); err != nil {
		return storageFailure(ctx, "session.revoke", err)
	}
	metrics.SessionEvent("revoked", 1)
	return nil
}

// RevokeAll deactivates every session of an account and reports how many
// were active.
func (s *SessionStore) RevokeAll(ctx context.Context, accountID uint64) (int64, error) {
	ctx, cancel := bounded(ctx, s.timeout)
	defer cancel()
	n, err := s.repo.DeactivateAllForAccount(ctx, accountID)
	if err != nil {
		return 0, storageFailure(ctx, "session.revoke_all", err)
	}
	metrics.SessionEvent("revoked", n)
	return n, nil
}

// ListActive returns the account's usable sessions, newest first.  Token
// hashes are cleared from the result.
func (s *SessionStore) ListActive(ctx context.Context, accountID uint64) ([]model.Session, error) {
	ctx, cancel := bounded(ctx, s.timeout)
	defer cancel()
	list, err := s.repo.ListActive(ctx, accountID, s.Now())
	if err != nil {
		return nil, storageFailure(ctx, "session.list", err)
	}
	for i := range list {
		list[i].TokenHash = ""
	}
	return list, nil
}

// SweepExpired flips every session past its expiry to inactive.  It is
// idempotent and safe to run alongside request traffic.
func (s *SessionStore) SweepExpired(ctx context.Context) (int64, error) {
	ctx, cancel := bounded(ctx, s.timeout)
	defer cancel()
	n, err := s.repo.DeactivateExpired(ctx, s.Now())
	if err != nil {
		return 0, storageFailure(ctx, "session.sweep", err)
	}
	metrics.SessionEvent("swept", n)
	return n, nil
}

// optional trims v and caps it at limit characters, the unit MySQL sizes
// VARCHAR columns in.  Invalid UTF-8 is replaced so the column accepts it.
func optional(v string, limit int) *string {
	v = strings.TrimSpace(strings.ToValidUTF8(v, "\uFFFD"))
	if v == "" {
		return nil
	}
	if utf8.RuneCountInString(v) > limit {
		n := 0
		for i := range v {
			if n == limit {
				v = v[:i]
				break
			}
			n++
		}
	}
	return &v
}
