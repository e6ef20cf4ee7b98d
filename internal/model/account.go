package model

import "time"

// Account represents a row in the `account` table.  Email and username are
// both unique.  Accounts are never deleted; profile and password changes
// stamp their own modification times.
type Account struct {
	ID                 uint64     // account.id
	Email              string     // account.email
	Username           string     // account.username
	PasswordHash       string     // account.password_hash (bcrypt)
	FirstName          string     // account.first_name
	LastName           string     // account.last_name
	CreatedAt          time.Time  // account.created_at
	PasswordModifiedAt *time.Time // account.password_modified_at (nullable)
	ProfileModifiedAt  *time.Time // account.profile_modified_at (nullable)
}
