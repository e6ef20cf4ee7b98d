package model

import "time"

// Session models an entry in the `account_session` table.  The raw bearer
// token is handed to the client once; only its SHA-256 hash is stored.
// Sessions are soft-revoked by clearing Active and are never deleted.
type Session struct {
	ID        uint64     // account_session.id
	AccountID uint64     // account_session.account_id
	TokenHash string     // account_session.token_hash
	CreatedAt time.Time  // account_session.created_at
	ExpiresAt *time.Time // account_session.expires_at (nullable = no expiry)
	Active    bool       // account_session.is_active
	IPAddress *string    // account_session.ip_address (nullable)
	UserAgent *string    // account_session.user_agent (nullable)
}

// Usable reports whether the session may still authenticate requests.
func (s Session) Usable(now time.Time) bool {
	return s.Active && (s.ExpiresAt == nil || s.ExpiresAt.After(now))
}

// SessionInfo is what a successful validation yields: the session row plus
// the identity of the bound account.
type SessionInfo struct {
	Session
	Username string
	Email    string
}
