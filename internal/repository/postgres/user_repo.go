package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/sehatin/internal/errs"
	"github.com/and161185/sehatin/internal/model"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

// usersPKey is the primary key constraint of the users table; every other
// unique violation there is the email.
const usersPKey = "users_pkey"

// Create inserts a new account row.
func (r *UserRepo) Create(ctx context.Context, a *model.Account) error {
	const q = `
INSERT INTO users (id, email, name, age, gender, pwd_hash, salt_auth)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Pool.Exec(ctx, q, a.ID, a.Email, a.Name, a.Age, string(a.Gender), a.PwdHash, a.SaltAuth)
	if c, ok := uniqueViolation(err); ok {
		if c == usersPKey {
			return fmt.Errorf("user id collision: %w", err)
		}
		return errs.ErrDuplicateUser
	}
	return err
}

const selectAccount = `
SELECT id, email, name, age, gender, pwd_hash, salt_auth, created_at
FROM users `

func scanAccount(row pgx.Row) (*model.Account, error) {
	var (
		a      model.Account
		gender string
	)
	if err := row.Scan(&a.ID, &a.Email, &a.Name, &a.Age, &gender, &a.PwdHash, &a.SaltAuth, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	a.Gender = model.Gender(gender)
	return &a, nil
}

// GetByID selects an account by ID.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.Account, error) {
	return scanAccount(r.db.Pool.QueryRow(ctx, selectAccount+`WHERE id=$1`, id))
}

// GetByEmail selects an account by exact email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	return scanAccount(r.db.Pool.QueryRow(ctx, selectAccount+`WHERE email=$1`, email))
}

// UpdateProfile rewrites the editable profile columns.
func (r *UserRepo) UpdateProfile(ctx context.Context, u model.User) error {
	const q = `
UPDATE users
SET name = $2, age = $3, gender = $4, updated_at = now()
WHERE id = $1`
	tag, err := r.db.Pool.Exec(ctx, q, u.ID, u.Name, u.Age, string(u.Gender))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
