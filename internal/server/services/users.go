// Package services holds the credential store business logic: accounts,
// token issue, credential records and vault exports.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/pmvault/internal/common"
	"github.com/dmitrijs2005/pmvault/internal/cryptox"
	"github.com/dmitrijs2005/pmvault/internal/dbx"
	"github.com/dmitrijs2005/pmvault/internal/server/auth"
	"github.com/dmitrijs2005/pmvault/internal/server/config"
	"github.com/dmitrijs2005/pmvault/internal/server/models"
	"github.com/dmitrijs2005/pmvault/internal/server/repositories/repomanager"
)

const (
	MinUsernameLen = 3
	MaxUsernameLen = 64
	MinPasswordLen = 8
)

// Token is a signed access token and its expiry.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	jwtSecret   []byte
	maxTokenTTL time.Duration
	now         func() time.Time
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		jwtSecret:   []byte(cfg.SecretKey),
		maxTokenTTL: cfg.MaxTokenTTL,
		now:         time.Now,
	}
}

func validateAccount(username, password string) error {
	if n := utf8.RuneCountInString(username); n < MinUsernameLen || n > MaxUsernameLen {
		return fmt.Errorf("%w: username must be %d to %d characters", common.ErrorValidation, MinUsernameLen, MaxUsernameLen)
	}
	if utf8.RuneCountInString(password) < MinPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrorValidation, MinPasswordLen)
	}
	return nil
}

// Signup creates the account and its verification record in one
// transaction. A taken username yields common.ErrorAlreadyExists.
func (s *UserService) Signup(ctx context.Context, username, password string, verification *models.Credential) (*models.User, error) {
	if err := validateAccount(username, password); err != nil {
		return nil, err
	}
	if verification == nil || !verification.Complete() || !verification.IsVerification() {
		return nil, fmt.Errorf("%w: a complete verification record is required", common.ErrorValidation)
	}

	salt, hash := cryptox.HashPassword([]byte(password))
	user := &models.User{
		UserName:     username,
		PasswordSalt: salt,
		PasswordHash: hash,
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repomanager.Users(tx).Create(ctx, user)
		if err != nil {
			return err
		}
		user = created

		v := *verification
		v.UserID = user.ID
		if _, err := s.repomanager.Credentials(tx).Create(ctx, &v); err != nil {
			return fmt.Errorf("error creating verification record: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return user, nil
}

// dummyPassword keeps the cost of a login for an unknown user close to that
// of a known one.
var dummyPassword = sync.OnceValues(func() ([]byte, []byte) {
	return cryptox.HashPassword([]byte("pmvault-dummy"))
})

// Login checks the account password and issues a token valid for
// ttlMinutes, clamped to [1 minute, MaxTokenTTL].
func (s *UserService) Login(ctx context.Context, username, password string, ttlMinutes int) (*Token, error) {
	user, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			salt, hash := dummyPassword()
			cryptox.VerifyPassword([]byte(password), salt, hash)
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	if !cryptox.VerifyPassword([]byte(password), user.PasswordSalt, user.PasswordHash) {
		return nil, common.ErrorUnauthorized
	}

	exp := s.now().Add(s.clampTTL(ttlMinutes))
	token, err := auth.GenerateToken(user.ID, user.UserName, s.jwtSecret, exp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	return &Token{AccessToken: token, ExpiresAt: exp}, nil
}

func (s *UserService) clampTTL(ttlMinutes int) time.Duration {
	ttl := time.Duration(ttlMinutes) * time.Minute
	if ttl < time.Minute {
		ttl = time.Minute
	}
	if ttl > s.maxTokenTTL {
		ttl = s.maxTokenTTL
	}
	return ttl
}

// ReadUser returns the account behind an authenticated user id.
func (s *UserService) ReadUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return user, nil
}
