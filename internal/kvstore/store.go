// Package kvstore is the persistent store adapter: JSON values under a fixed
// key prefix on top of a byte-level Backend.
//
// The adapter is best-effort. Read failures and corrupt values are reported as
// "absent", write failures are logged and dropped. Callers never see storage
// errors.
package kvstore

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/and161185/sehatin/internal/errs"
)

// DefaultPrefix namespaces every key written by the app.
const DefaultPrefix = "sehatin_mock_"

// Well-known keys (without prefix). Tables live under their own name.
const (
	KeySession = "session"
	KeyUsers   = "users"
)

// Store reads and writes JSON values under a key prefix.
type Store struct {
	backend Backend
	prefix  string
	log     *zap.Logger
}

// Option customises a Store.
type Option func(*Store)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(p string) Option { return func(s *Store) { s.prefix = p } }

// New constructs a Store over backend.
func New(backend Backend, log *zap.Logger, opts ...Option) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{backend: backend, prefix: DefaultPrefix, log: log}
	for _, o := range opts {
		o(s)
	}
	return s
}

// FullKey returns the backend key for key.
func (s *Store) FullKey(key string) string { return s.prefix + key }

// Get decodes the value under key into dst and reports whether it was found.
// Missing keys, backend errors and undecodable values all yield false.
func (s *Store) Get(ctx context.Context, key string, dst any) bool {
	full := s.FullKey(key)
	raw, err := s.backend.Get(ctx, full)
	if err != nil {
		s.log.Error("kv read failed", zap.String("key", full), zap.Error(fmt.Errorf("%w: %w", errs.ErrStorage, err)))
		return false
	}
	if raw == nil {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.log.Error("kv value corrupt", zap.String("key", full), zap.Error(err))
		return false
	}
	return true
}

// Set encodes value as JSON and stores it under key.
func (s *Store) Set(ctx context.Context, key string, value any) {
	full := s.FullKey(key)
	raw, err := json.Marshal(value)
	if err != nil {
		s.log.Error("kv encode failed", zap.String("key", full), zap.Error(err))
		return
	}
	if err := s.backend.Set(ctx, full, raw); err != nil {
		s.log.Error("kv write failed", zap.String("key", full), zap.Error(fmt.Errorf("%w: %w", errs.ErrStorage, err)))
	}
}

// Remove deletes key. Removing an absent key is not an error.
func (s *Store) Remove(ctx context.Context, key string) {
	full := s.FullKey(key)
	if err := s.backend.Delete(ctx, full); err != nil {
		s.log.Error("kv remove failed", zap.String("key", full), zap.Error(fmt.Errorf("%w: %w", errs.ErrStorage, err)))
	}
}
