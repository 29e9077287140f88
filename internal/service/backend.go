// Package service contains the client-side façade: the session manager and
// the record query service. Both delegate persistence to a Backend.
package service

import (
	"context"

	"github.com/and161185/sehatin/internal/model"
)

// AuthBackend creates and authenticates accounts.
type AuthBackend interface {
	// SignUp registers email and returns a fresh session for the new user.
	// Returns errs.ErrDuplicateUser when the email is taken.
	SignUp(ctx context.Context, email, password string, p model.ProfileDefaults) (model.Session, error)
	// SignIn returns a fresh session for the matching account.
	// Returns errs.ErrInvalidCredentials when nothing matches.
	SignIn(ctx context.Context, email, password string) (model.Session, error)
	// UpdateProfile applies upd to the session's user and returns the stored user.
	UpdateProfile(ctx context.Context, s model.Session, upd model.ProfileUpdate) (model.User, error)
}

// DataBackend stores append-only table records. The session may be nil;
// backends that need an identity return errs.ErrNoSession.
type DataBackend interface {
	Append(ctx context.Context, s *model.Session, table string, rec model.Record) error
	Select(ctx context.Context, s *model.Session, table string, f model.Filter) ([]model.Record, error)
}

// Backend is implemented by the local mock and by the remote gRPC client.
type Backend interface {
	AuthBackend
	DataBackend
}
