package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// AccountRepo reads and writes the account table.
type AccountRepo struct{ DB *sql.DB }

func NewAccountRepo(db *sql.DB) *AccountRepo { return &AccountRepo{DB: db} }

const accountColumns = "id,email,username,password_hash,first_name,last_name,created_at,password_modified_at,profile_modified_at"

// Create inserts an account and returns its ID.  Email is normalized to
// lower case.  Unique key collisions map to ErrEmailExists or
// ErrUsernameExists.
func (r *AccountRepo) Create(ctx context.Context, a *model.Account) (uint64, error) {
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO account (email, username, password_hash, first_name, last_name, created_at) VALUES (?,?,?,?,?,?)",
		a.Email, a.Username, a.PasswordHash, a.FirstName, a.LastName, a.CreatedAt)
	if err != nil {
		if isDuplicate(err) {
			if strings.Contains(strings.ToLower(err.Error()), "username") {
				return 0, ErrUsernameExists
			}
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	a.ID = uint64(id)
	return a.ID, nil
}

// GetByEmail fetches an account by normalized email.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.getOne(ctx, "SELECT "+accountColumns+" FROM account WHERE email=? LIMIT 1", email)
}

// GetByUsername fetches an account by exact username.
func (r *AccountRepo) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	return r.getOne(ctx, "SELECT "+accountColumns+" FROM account WHERE username=? LIMIT 1", strings.TrimSpace(username))
}

// GetByID fetches an account by id.
func (r *AccountRepo) GetByID(ctx context.Context, id uint64) (*model.Account, error) {
	return r.getOne(ctx, "SELECT "+accountColumns+" FROM account WHERE id=? LIMIT 1", id)
}

// EmailExists and UsernameExists back the pre-insert uniqueness checks.
func (r *AccountRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "SELECT COUNT(*) FROM account WHERE email=?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *AccountRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "SELECT COUNT(*) FROM account WHERE username=?", strings.TrimSpace(username))
}

func (r *AccountRepo) exists(ctx context.Context, q string, arg any) (bool, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, q, arg).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *AccountRepo) getOne(ctx context.Context, q string, arg any) (*model.Account, error) {
	var (
		a           model.Account
		pwModified  sql.NullTime
		prfModified sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, q, arg).Scan(
		&a.ID, &a.Email, &a.Username, &a.PasswordHash, &a.FirstName, &a.LastName,
		&a.CreatedAt, &pwModified, &prfModified)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if pwModified.Valid {
		t := pwModified.Time
		a.PasswordModifiedAt = &t
	}
	if prfModified.Valid {
		t := prfModified.Time
		a.ProfileModifiedAt = &t
	}
	return &a, nil
}
