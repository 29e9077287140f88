// Package service holds the server-side use cases behind the gRPC API:
// account registration and sign-in, and owner-scoped record storage.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pkgcrypto "github.com/and161185/sehatin/internal/crypto"
	"github.com/and161185/sehatin/internal/errs"
	"github.com/and161185/sehatin/internal/idgen"
	"github.com/and161185/sehatin/internal/limiter"
	"github.com/and161185/sehatin/internal/model"
	"github.com/and161185/sehatin/internal/repository"
)

// AccountService defines registration, sign-in and profile operations.
type AccountService interface {
	// SignUp creates an account with a hashed password and returns a fresh session.
	SignUp(ctx context.Context, email, password string, p model.ProfileDefaults) (model.Session, error)
	// SignInWithIP applies rate limiting and authenticates the account.
	SignInWithIP(ctx context.Context, email, password, ip string) (model.Session, error)
	// UpdateProfile edits the profile of userID.
	UpdateProfile(ctx context.Context, userID string, upd model.ProfileUpdate) (model.User, error)
}

type AccountServiceImpl struct {
	users  repository.UserRepository
	hasher *pkgcrypto.Hasher
	tokens *Tokens
	lim    limiter.Limiter
	ids    idgen.Generator
}

// NewAccountService constructs AccountService with required dependencies.
func NewAccountService(users repository.UserRepository, hasher *pkgcrypto.Hasher, tokens *Tokens, lim limiter.Limiter) *AccountServiceImpl {
	return &AccountServiceImpl{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		lim:    lim,
		ids:    idgen.Prefixed{Prefix: "user_", Gen: idgen.NewV7()},
	}
}

func (s *AccountServiceImpl) session(u model.User) (model.Session, error) {
	tok, _, err := s.tokens.Issue(u.ID)
	if err != nil {
		return model.Session{}, fmt.Errorf("issue token: %w", err)
	}
	return model.Session{AccessToken: tok, User: u}, nil
}

// SignUp registers email. Returns errs.ErrDuplicateUser when taken.
func (s *AccountServiceImpl) SignUp(ctx context.Context, email, password string, p model.ProfileDefaults) (model.Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return model.Session{}, fmt.Errorf("%w: empty email/password", errs.ErrInvalidInput)
	}
	id, err := s.ids.NewID()
	if err != nil {
		return model.Session{}, err
	}
	hash, salt, err := s.hasher.Hash(password)
	if err != nil {
		return model.Session{}, err
	}
	a := &model.Account{User: model.NewUser(id, email, p), PwdHash: hash, SaltAuth: salt}
	if err := s.users.Create(ctx, a); err != nil {
		return model.Session{}, err
	}
	return s.session(a.User)
}

// SignInWithIP authenticates with rate limiting by (email, ip).
func (s *AccountServiceImpl) SignInWithIP(ctx context.Context, email, password, ip string) (model.Session, error) {
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, email, ipHash)
	if err != nil {
		return model.Session{}, err
	}
	if !allowed {
		return model.Session{}, errs.ErrRateLimited
	}

	a, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		s.hasher.Burn(password)
	case err != nil:
		return model.Session{}, err
	}
	if err != nil || !s.hasher.Verify(password, a.SaltAuth, a.PwdHash) {
		if blocked, _, ferr := s.lim.Failure(ctx, email, ipHash); ferr == nil && blocked {
			return model.Session{}, errs.ErrRateLimited
		}
		// unknown email and wrong password look the same
		return model.Session{}, errs.ErrInvalidCredentials
	}

	// best-effort reset
	_ = s.lim.Success(ctx, email, ipHash)

	return s.session(a.User)
}

// UpdateProfile validates upd and stores it. Email and id never change.
func (s *AccountServiceImpl) UpdateProfile(ctx context.Context, userID string, upd model.ProfileUpdate) (model.User, error) {
	switch {
	case upd.Name != nil && strings.TrimSpace(*upd.Name) == "":
		return model.User{}, fmt.Errorf("%w: empty name", errs.ErrInvalidInput)
	case upd.Age != nil && *upd.Age <= 0:
		return model.User{}, fmt.Errorf("%w: age must be positive", errs.ErrInvalidInput)
	case upd.Gender != nil && !upd.Gender.Valid():
		return model.User{}, fmt.Errorf("%w: unknown gender", errs.ErrInvalidInput)
	}
	a, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.User{}, err
	}
	u := upd.Apply(a.User)
	if err := s.users.UpdateProfile(ctx, u); err != nil {
		return model.User{}, err
	}
	return u, nil
}
