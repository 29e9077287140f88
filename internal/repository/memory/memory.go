// Package memory provides in-process repositories for development servers
// started without Postgres, and for tests.
package memory

import (
	"context"
	"sync"

	"github.com/and161185/sehatin/internal/errs"
	"github.com/and161185/sehatin/internal/model"
	"github.com/and161185/sehatin/internal/repository"
)

var (
	_ repository.UserRepository   = (*Users)(nil)
	_ repository.RecordRepository = (*Records)(nil)
)

// Users is a map-backed UserRepository.
type Users struct {
	mu      sync.RWMutex
	byID    map[string]*model.Account
	byEmail map[string]string
}

// NewUsers returns an empty repository.
func NewUsers() *Users {
	return &Users{byID: map[string]*model.Account{}, byEmail: map[string]string{}}
}

// Create stores a copy of a.
func (r *Users) Create(_ context.Context, a *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byEmail[a.Email]; taken {
		return errs.ErrDuplicateUser
	}
	cp := *a
	r.byID[a.ID] = &cp
	r.byEmail[a.Email] = a.ID
	return nil
}

func (r *Users) get(id string) (*model.Account, error) {
	a, ok := r.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// GetByID returns a copy of the account.
func (r *Users) GetByID(_ context.Context, id string) (*model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(id)
}

// GetByEmail returns a copy of the account.
func (r *Users) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return r.get(id)
}

// UpdateProfile overwrites name, age and gender.
func (r *Users) UpdateProfile(_ context.Context, u model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[u.ID]
	if !ok {
		return errs.ErrNotFound
	}
	a.Name, a.Age, a.Gender = u.Name, u.Age, u.Gender
	return nil
}

type row struct {
	owner string
	table string
	rec   model.Record
}

// Records is a slice-backed RecordRepository preserving insertion order.
type Records struct {
	mu   sync.RWMutex
	rows []row
	ids  map[string]struct{}
}

// NewRecords returns an empty repository.
func NewRecords() *Records {
	return &Records{ids: map[string]struct{}{}}
}

// Append stores a copy of rec.
func (r *Records) Append(_ context.Context, ownerID, table string, rec model.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.ids[rec.ID()]; dup {
		return errs.ErrInvalidRecord
	}
	r.ids[rec.ID()] = struct{}{}
	r.rows = append(r.rows, row{owner: ownerID, table: table, rec: rec.Clone()})
	return nil
}

// Select returns copies of ownerID's rows of table matching f.
func (r *Records) Select(_ context.Context, ownerID, table string, f model.Filter) ([]model.Record, error) {
	r.mu.RLock()
	var scoped []model.Record
	for _, x := range r.rows {
		if x.owner == ownerID && x.table == table {
			scoped = append(scoped, x.rec.Clone())
		}
	}
	r.mu.RUnlock()
	return f.Apply(scoped), nil
}
