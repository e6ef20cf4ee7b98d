package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/utils"
)

// RegisterInput is the data needed to open an account.
type RegisterInput struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// AccountService registers accounts and checks credentials.
type AccountService struct {
	repo       *repository.AccountRepo
	bcryptCost int
	timeout    time.Duration
	Now        Clock
}

func NewAccountService(repo *repository.AccountRepo, bcryptCost int, timeout time.Duration) *AccountService {
	return &AccountService{repo: repo, bcryptCost: bcryptCost, timeout: timeout, Now: SystemClock}
}

// Register validates in, rejects a taken email or username and stores the
// account with a bcrypt password hash.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*model.Account, error) {
	acc := &model.Account{
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Username:  strings.TrimSpace(in.Username),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
	}
	if acc.Email == "" || acc.Username == "" {
		return nil, invalid("email and username are required")
	}
	if _, err := mail.ParseAddress(acc.Email); err != nil {
		return nil, invalid("email is not valid")
	}
	if len(acc.Username) < 3 || len(acc.Username) > 64 || strings.ContainsAny(acc.Username, " @") {
		return nil, invalid("username must be 3-64 characters without spaces or @")
	}
	if err := utils.CheckPassword(in.Password); err != nil {
		return nil, invalid("%s", err.Error())
	}

	ctx, cancel := bounded(ctx, s.timeout)
	defer cancel()
	if taken, err := s.repo.EmailExists(ctx, acc.Email); err != nil {
		return nil, storageFailure(ctx, "account.email_exists", err)
	} else if taken {
		return nil, ErrEmailTaken
	}
	if taken, err := s.repo.UsernameExists(ctx, acc.Username); err != nil {
		return nil, storageFailure(ctx, "account.username_exists", err)
	} else if taken {
		return nil, ErrUsernameTaken
	}

	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, storageFailure(ctx, "account.hash", err)
	}
	acc.PasswordHash = hash
	acc.CreatedAt = s.Now()
	if _, err := s.repo.Create(ctx, acc); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return nil, ErrEmailTaken
		case errors.Is(err, repository.ErrUsernameExists):
			return nil, ErrUsernameTaken
		}
		return nil, storageFailure(ctx, "account.create", err)
	}
	acc.PasswordHash = ""
	return acc, nil
}

// Authenticate checks a username or email and password pair.  Unknown
// logins and wrong passwords are indistinguishable.
func (s *AccountService) Authenticate(ctx context.Context, login, password string) (*model.Account, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	ctx, cancel := bounded(ctx, s.timeout)
	defer cancel()

	var (
		acc *model.Account
		err error
	)
	if strings.Contains(login, "@") {
		acc, err = s.repo.GetByEmail(ctx, login)
	} else {
		acc, err = s.repo.GetByUsername(ctx, login)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, storageFailure(ctx, "account.lookup", err)
	}
	if !utils.VerifyPassword(acc.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	acc.PasswordHash = ""
	return acc, nil
}

// Get returns an account without its password hash.
func (s *AccountService) Get(ctx context.Context, id uint64) (*model.Account, error) {
	ctx, cancel := bounded(ctx, s.timeout)
	defer cancel()
	acc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoSession
		}
		return nil, storageFailure(ctx, "account.get", err)
	}
	acc.PasswordHash = ""
	return acc, nil
}
