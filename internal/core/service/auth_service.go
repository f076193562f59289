package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// AuthService implements registration and login.
type AuthService struct {
	store  ports.CredentialStore
	hasher ports.PasswordHasher
	codec  ports.TokenCodec
	log    zerolog.Logger

	now   func() time.Time
	newID func() string

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(store ports.CredentialStore, hasher ports.PasswordHasher, codec ports.TokenCodec, log zerolog.Logger) *AuthService {
	return &AuthService{
		store:  store,
		hasher: hasher,
		codec:  codec,
		log:    log,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Register creates an account with the default role set and returns its
// public projection. Uniqueness of the username is left to the store.
func (s *AuthService) Register(ctx context.Context, username, password string) (domain.PublicAccount, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.PublicAccount{}, domain.ErrInvalidInput
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, domain.ErrPasswordTooLong) {
			return domain.PublicAccount{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
		}
		return domain.PublicAccount{}, fmt.Errorf("register: hash password: %w", err)
	}

	now := s.now().UTC()
	account := &domain.Account{
		ID:           s.newID(),
		Username:     username,
		PasswordHash: hash,
		Roles:        domain.DefaultRoles(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.Save(ctx, account); err != nil {
		if errors.Is(err, domain.ErrDuplicateUsername) {
			s.log.Info().Str("username", username).Msg("registration rejected: username taken")
			return domain.PublicAccount{}, domain.ErrDuplicateUsername
		}
		s.log.Error().Err(err).Str("username", username).Msg("registration failed")
		return domain.PublicAccount{}, fmt.Errorf("register: %w", err)
	}

	s.log.Info().Str("username", username).Str("account_id", account.ID).Msg("account registered")

	pub := account.Public()
	pub.Roles = nil
	return pub, nil
}

// Login checks the credentials and issues a token for the account. Unknown
// usernames and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, domain.PublicAccount, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", domain.PublicAccount{}, domain.ErrInvalidCredentials
	}

	account, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			// Burn the same hashing work as a real mismatch.
			s.hasher.Verify(password, s.decoyHash())
			return "", domain.PublicAccount{}, domain.ErrInvalidCredentials
		}
		return "", domain.PublicAccount{}, fmt.Errorf("login: %w", err)
	}

	if !s.hasher.Verify(password, account.PasswordHash) {
		s.log.Info().Str("username", username).Msg("login rejected")
		return "", domain.PublicAccount{}, domain.ErrInvalidCredentials
	}

	token, err := s.codec.Encode(account.Username, domain.NormalizeRoles(account.Roles))
	if err != nil {
		return "", domain.PublicAccount{}, fmt.Errorf("login: issue token: %w", err)
	}

	s.log.Info().Str("username", username).Msg("login succeeded")
	return token, account.Public(), nil
}

// decoyHash is a hash of a fixed string made with the configured algorithm,
// verified against when the username is unknown.
func (s *AuthService) decoyHash() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("decoy-password-for-unknown-accounts")
		if err != nil {
			s.log.Warn().Err(err).Msg("could not build decoy hash")
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}
