// Package repository defines server-side storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/sehatin/internal/model"
)

// UserRepository provides access to server accounts.
type UserRepository interface {
	// Create inserts a new account. Returns errs.ErrDuplicateUser when the email is taken.
	Create(ctx context.Context, a *model.Account) error
	// GetByEmail loads an account by its exact email.
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	// GetByID loads an account by ID.
	GetByID(ctx context.Context, id string) (*model.Account, error)
	// UpdateProfile stores name, age and gender of u.ID.
	UpdateProfile(ctx context.Context, u model.User) error
}
