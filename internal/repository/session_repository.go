package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// SessionRepo persists session tokens (only the 'token_hash' column holds
// token material).  Rows are soft-revoked through is_active and never
// deleted.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Insert writes an active session row and fills in its ID.
func (r *SessionRepo) Insert(ctx context.Context, s *model.Session) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO account_session (account_id, token_hash, created_at, expires_at, is_active, ip_address, user_agent)
		 VALUES (?,?,?,?,1,?,?)`,
		s.AccountID, s.TokenHash, s.CreatedAt, s.ExpiresAt, s.IPAddress, s.UserAgent)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	s.Active = true
	return nil
}

// FindUsable returns the session and its account identity when the token
// hash exists, is active and has not expired at now.  Any other case is
// ErrNotFound.
func (r *SessionRepo) FindUsable(ctx context.Context, tokenHash string, now time.Time) (*model.SessionInfo, error) {
	const q = `SELECT s.id, s.account_id, s.token_hash, s.created_at, s.expires_at, s.ip_address, s.user_agent,
	                  a.username, a.email
	           FROM account_session s
	           JOIN account a ON a.id = s.account_id
	           WHERE s.token_hash = ? AND s.is_active = 1 AND (s.expires_at IS NULL OR s.expires_at > ?)
	           LIMIT 1`
	var (
		info      model.SessionInfo
		expiresAt sql.NullTime
		ip, ua    sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, q, tokenHash, now).Scan(
		&info.ID, &info.AccountID, &info.TokenHash, &info.CreatedAt, &expiresAt, &ip, &ua,
		&info.Username, &info.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	info.Active = true
	fillSessionNullables(&info.Session, expiresAt, ip, ua)
	return &info, nil
}

// Deactivate marks a token inactive.  Unknown or already revoked tokens
// are not an error.
func (r *SessionRepo) Deactivate(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE account_session SET is_active=0 WHERE token_hash=? AND is_active=1",
		tokenHash)
	return err
}

// DeactivateAllForAccount revokes every active session of an account.
func (r *SessionRepo) DeactivateAllForAccount(ctx context.Context, accountID uint64) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE account_session SET is_active=0 WHERE account_id=? AND is_active=1",
		accountID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeactivateExpired flips is_active off for rows whose expiry is before now.
func (r *SessionRepo) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE account_session SET is_active=0 WHERE is_active=1 AND expires_at IS NOT NULL AND expires_at < ?",
		now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListActive returns the usable sessions of an account, newest first.
func (r *SessionRepo) ListActive(ctx context.Context, accountID uint64, now time.Time) ([]model.Session, error) {
	const q = `SELECT id, account_id, token_hash, created_at, expires_at, ip_address, user_agent
	           FROM account_session
	           WHERE account_id = ? AND is_active = 1 AND (expires_at IS NULL OR expires_at > ?)
	           ORDER BY created_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, q, accountID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Session, 0)
	for rows.Next() {
		var (
			s         model.Session
			expiresAt sql.NullTime
			ip, ua    sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.AccountID, &s.TokenHash, &s.CreatedAt, &expiresAt, &ip, &ua); err != nil {
			return nil, err
		}
		s.Active = true
		fillSessionNullables(&s, expiresAt, ip, ua)
		out = append(out, s)
	}
	return out, rows.Err()
}

func fillSessionNullables(s *model.Session, expiresAt sql.NullTime, ip, ua sql.NullString) {
	if expiresAt.Valid {
		t := expiresAt.Time
		s.ExpiresAt = &t
	}
	if ip.Valid {
		v := ip.String
		s.IPAddress = &v
	}
	if ua.Valid {
		v := ua.String
		s.UserAgent = &v
	}
}
