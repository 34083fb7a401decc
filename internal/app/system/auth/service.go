// Package auth is the credential store: password checks, bearer token
// issue and verification, and the HTTP plumbing that carries a token
// from the Authorization header into the request context.
//
// Tokens are stateless. Nothing is written on issue or verify.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/trackhub/internal/app/store/repo"
	"github.com/dalemusser/trackhub/internal/app/system/apperr"
	"github.com/dalemusser/trackhub/internal/app/system/timeouts"
	"github.com/dalemusser/trackhub/internal/domain/models"
	"go.uber.org/zap"
)

// Config configures a Service.
type Config struct {
	Secret     string
	Issuer     string
	TTL        time.Duration
	BcryptCost int              // 0 means bcrypt.DefaultCost
	Now        func() time.Time // nil means time.Now
}

// Service authenticates users and issues/verifies credentials.
type Service struct {
	users     repo.Users
	tok       *signer
	cost      int
	dummyHash string
	log       *zap.Logger
}

// NewService builds a Service. The secret must be non-empty.
func NewService(users repo.Users, cfg Config, logger *zap.Logger) (*Service, error) {
	if cfg.Secret == "" {
		return nil, errNoSecret
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	// Compared against when the email is unknown so the failure path costs
	// the same as a wrong password.
	dummy, err := HashPassword("not-a-real-password", cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	return &Service{
		users:     users,
		tok:       &signer{secret: []byte(cfg.Secret), issuer: cfg.Issuer, ttl: cfg.TTL, now: cfg.Now},
		cost:      cfg.BcryptCost,
		dummyHash: dummy,
		log:       logger,
	}, nil
}

// Authenticate checks email/password. Unknown email, wrong password and a
// deactivated account all fail with apperr.ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), s.log, "authenticate")
	defer cancel()

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			CheckPassword(s.dummyHash, password)
			return models.User{}, apperr.ErrInvalidCredentials
		}
		return models.User{}, timeouts.Classify(err)
	}
	if !CheckPassword(u.PasswordHash, password) || !u.IsActive {
		return models.User{}, apperr.ErrInvalidCredentials
	}
	return u, nil
}

// Issue signs a credential for id and returns it with its expiry.
func (s *Service) Issue(id Identity) (Credential, time.Time, error) {
	return s.tok.issue(id)
}

// Verify checks a credential's signature, issuer and expiry.
func (s *Service) Verify(cred Credential) (Identity, error) {
	if cred == "" {
		return Identity{}, apperr.ErrNoCredential
	}
	id, err := s.tok.verify(cred)
	if err != nil {
		s.log.Debug("credential rejected", zap.Error(err))
		return Identity{}, apperr.ErrInvalidCredential
	}
	return id, nil
}

// Hash hashes a password at the service's configured cost.
func (s *Service) Hash(password string) (string, error) {
	h, err := HashPassword(password, s.cost)
	if errors.Is(err, ErrPasswordTooShort) {
		return "", apperr.Invalidf("Password must be at least %d characters.", MinPasswordLength)
	}
	return h, err
}
