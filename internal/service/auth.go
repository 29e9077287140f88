package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/and161185/sehatin/internal/authbus"
	"github.com/and161185/sehatin/internal/errs"
	"github.com/and161185/sehatin/internal/kvstore"
	"github.com/and161185/sehatin/internal/model"
)

// AuthService manages the single current session of this client.
type AuthService interface {
	// SignUp creates an account, makes it the current session and emits SIGNED_IN.
	SignUp(ctx context.Context, email, password string, p model.ProfileDefaults) (model.User, model.Session, error)
	// SignIn replaces the current session and emits SIGNED_IN.
	SignIn(ctx context.Context, email, password string) (model.Session, error)
	// GetSession returns the persisted session or nil.
	GetSession(ctx context.Context) *model.Session
	// SignOut drops the current session and emits SIGNED_OUT. Idempotent.
	SignOut(ctx context.Context)
	// UpdateProfile edits the signed-in user and emits USER_UPDATED.
	UpdateProfile(ctx context.Context, upd model.ProfileUpdate) (model.Session, error)
	// OnAuthStateChange subscribes l to auth events.
	OnAuthStateChange(l authbus.Listener) *authbus.Subscription
}

type AuthServiceImpl struct {
	backend AuthBackend
	store   *kvstore.Store
	bus     *authbus.Bus
	log     *zap.Logger

	// mu serialises session writes. Events are emitted after unlock so a
	// listener may call back into the service.
	mu sync.Mutex
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(backend AuthBackend, store *kvstore.Store, bus *authbus.Bus, log *zap.Logger) *AuthServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthServiceImpl{backend: backend, store: store, bus: bus, log: log}
}

func checkCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return fmt.Errorf("%w: empty email/password", errs.ErrInvalidInput)
	}
	return nil
}

// SignUp registers a new user. A failed sign-up leaves the prior session untouched.
func (s *AuthServiceImpl) SignUp(ctx context.Context, email, password string, p model.ProfileDefaults) (model.User, model.Session, error) {
	if err := checkCredentials(email, password); err != nil {
		return model.User{}, model.Session{}, err
	}

	s.mu.Lock()
	sess, err := s.backend.SignUp(ctx, email, password, p)
	if err == nil {
		s.store.Set(ctx, kvstore.KeySession, sess)
	}
	s.mu.Unlock()
	if err != nil {
		return model.User{}, model.Session{}, err
	}

	s.log.Info("signed up", zap.String("user_id", sess.User.ID))
	s.bus.Notify(model.EventSignedIn, &sess)
	return sess.User, sess, nil
}

// SignIn authenticates with an exact, case-sensitive email/password match.
func (s *AuthServiceImpl) SignIn(ctx context.Context, email, password string) (model.Session, error) {
	if err := checkCredentials(email, password); err != nil {
		return model.Session{}, errs.ErrInvalidCredentials
	}

	s.mu.Lock()
	sess, err := s.backend.SignIn(ctx, email, password)
	if err == nil {
		s.store.Set(ctx, kvstore.KeySession, sess)
	}
	s.mu.Unlock()
	if err != nil {
		return model.Session{}, err
	}

	s.log.Info("signed in", zap.String("user_id", sess.User.ID))
	s.bus.Notify(model.EventSignedIn, &sess)
	return sess, nil
}

// GetSession never fails: a missing or unreadable session is nil.
func (s *AuthServiceImpl) GetSession(ctx context.Context) *model.Session {
	var sess model.Session
	if !s.store.Get(ctx, kvstore.KeySession, &sess) || sess.AccessToken == "" {
		return nil
	}
	return &sess
}

// SignOut removes the session and notifies subscribers with a nil session.
func (s *AuthServiceImpl) SignOut(ctx context.Context) {
	s.mu.Lock()
	s.store.Remove(ctx, kvstore.KeySession)
	s.mu.Unlock()

	s.log.Info("signed out")
	s.bus.Notify(model.EventSignedOut, nil)
}

// UpdateProfile validates upd, stores it in the backend and rewrites the session.
func (s *AuthServiceImpl) UpdateProfile(ctx context.Context, upd model.ProfileUpdate) (model.Session, error) {
	if err := validateUpdate(upd); err != nil {
		return model.Session{}, err
	}

	s.mu.Lock()
	cur := s.GetSession(ctx)
	if cur == nil {
		s.mu.Unlock()
		return model.Session{}, errs.ErrNoSession
	}
	u, err := s.backend.UpdateProfile(ctx, *cur, upd)
	if err != nil {
		s.mu.Unlock()
		return model.Session{}, err
	}
	sess := model.Session{AccessToken: cur.AccessToken, User: u}
	s.store.Set(ctx, kvstore.KeySession, sess)
	s.mu.Unlock()

	s.bus.Notify(model.EventUserUpdated, &sess)
	return sess, nil
}

func validateUpdate(upd model.ProfileUpdate) error {
	switch {
	case upd.Name != nil && strings.TrimSpace(*upd.Name) == "":
		return fmt.Errorf("%w: empty name", errs.ErrInvalidInput)
	case upd.Age != nil && *upd.Age <= 0:
		return fmt.Errorf("%w: age must be positive", errs.ErrInvalidInput)
	case upd.Gender != nil && !upd.Gender.Valid():
		return fmt.Errorf("%w: unknown gender %q", errs.ErrInvalidInput, *upd.Gender)
	}
	return nil
}

// OnAuthStateChange registers l on the bus.
func (s *AuthServiceImpl) OnAuthStateChange(l authbus.Listener) *authbus.Subscription {
	return s.bus.Subscribe(l)
}
