// Package local is the offline backend: accounts and tables live in the
// key-value store next to the session, passwords in plaintext. It exists for
// tests and single-device demos and is not an authentication system.
package local

import (
	"context"
	"fmt"
	"sync"

	"github.com/and161185/sehatin/internal/errs"
	"github.com/and161185/sehatin/internal/idgen"
	"github.com/and161185/sehatin/internal/kvstore"
	"github.com/and161185/sehatin/internal/model"
	"github.com/and161185/sehatin/internal/service"
)

// Id prefixes of locally minted values.
const (
	UserIDPrefix = "user_"
	TokenPrefix  = "mock_token_"
)

var _ service.Backend = (*Backend)(nil)

// Backend implements service.Backend over a kvstore.Store.
type Backend struct {
	store  *kvstore.Store
	users  idgen.Generator
	tokens idgen.Generator

	// mu serialises read-modify-write of the user list and of each table.
	mu sync.Mutex
}

// Option customises Backend.
type Option func(*Backend)

// WithGenerators overrides user id and token generation.
func WithGenerators(users, tokens idgen.Generator) Option {
	return func(b *Backend) {
		b.users = users
		b.tokens = tokens
	}
}

// New constructs a local Backend over store.
func New(store *kvstore.Store, opts ...Option) *Backend {
	gen := idgen.NewV7()
	b := &Backend{
		store:  store,
		users:  idgen.Prefixed{Prefix: UserIDPrefix, Gen: gen},
		tokens: idgen.Prefixed{Prefix: TokenPrefix, Gen: gen},
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

func (b *Backend) loadUsers(ctx context.Context) []model.Credential {
	var users []model.Credential
	b.store.Get(ctx, kvstore.KeyUsers, &users)
	return users
}

func (b *Backend) newSession(u model.User) (model.Session, error) {
	tok, err := b.tokens.NewID()
	if err != nil {
		return model.Session{}, fmt.Errorf("access token: %w", err)
	}
	return model.Session{AccessToken: tok, User: u}, nil
}

// SignUp appends a credential record for a new email.
func (b *Backend) SignUp(ctx context.Context, email, password string, p model.ProfileDefaults) (model.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	users := b.loadUsers(ctx)
	for _, c := range users {
		if c.Email == email {
			return model.Session{}, errs.ErrDuplicateUser
		}
	}
	id, err := b.users.NewID()
	if err != nil {
		return model.Session{}, fmt.Errorf("user id: %w", err)
	}
	u := model.NewUser(id, email, p)
	users = append(users, model.Credential{User: u, Password: password})
	b.store.Set(ctx, kvstore.KeyUsers, users)

	return b.newSession(u)
}

// SignIn looks for an exact email and password match.
func (b *Backend) SignIn(ctx context.Context, email, password string) (model.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, c := range b.loadUsers(ctx) {
		if c.Email == email && c.Password == password {
			return b.newSession(c.User)
		}
	}
	return model.Session{}, errs.ErrInvalidCredentials
}

// UpdateProfile rewrites the stored profile of s.User.ID. The password is kept.
func (b *Backend) UpdateProfile(ctx context.Context, s model.Session, upd model.ProfileUpdate) (model.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	users := b.loadUsers(ctx)
	for i := range users {
		if users[i].ID != s.User.ID {
			continue
		}
		users[i].User = upd.Apply(users[i].User)
		b.store.Set(ctx, kvstore.KeyUsers, users)
		return users[i].User, nil
	}
	return model.User{}, errs.ErrNotFound
}

func tableKey(table string) (string, error) {
	if table == "" || table == kvstore.KeyUsers || table == kvstore.KeySession {
		return "", fmt.Errorf("%w: %q", errs.ErrUnknownTable, table)
	}
	return table, nil
}

// Append adds rec to the end of table. The session is not consulted.
func (b *Backend) Append(ctx context.Context, _ *model.Session, table string, rec model.Record) error {
	key, err := tableKey(table)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	var rows []model.Record
	b.store.Get(ctx, key, &rows)
	rows = append(rows, rec)
	b.store.Set(ctx, key, rows)
	return nil
}

// Select filters and orders the stored rows of table. A missing table is empty.
func (b *Backend) Select(ctx context.Context, _ *model.Session, table string, f model.Filter) ([]model.Record, error) {
	key, err := tableKey(table)
	if err != nil {
		return nil, err
	}
	var rows []model.Record
	b.store.Get(ctx, key, &rows)
	return f.Apply(rows), nil
}
