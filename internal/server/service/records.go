package service

import (
	"context"
	"fmt"

	"github.com/and161185/sehatin/internal/errs"
	"github.com/and161185/sehatin/internal/model"
	"github.com/and161185/sehatin/internal/repository"
	"github.com/and161185/sehatin/internal/schema"
)

// RecordStore defines owner-scoped table operations.
type RecordStore interface {
	// Insert stores rec in table for userID. rec.user_id must equal userID.
	Insert(ctx context.Context, userID, table string, rec model.Record) error
	// Select returns userID's matching records of table.
	Select(ctx context.Context, userID, table string, f model.Filter) ([]model.Record, error)
}

type RecordStoreImpl struct {
	repo     repository.RecordRepository
	registry *schema.Registry
}

// NewRecordStore constructs RecordStore. A nil registry means schema.Default().
func NewRecordStore(repo repository.RecordRepository, registry *schema.Registry) *RecordStoreImpl {
	if registry == nil {
		registry = schema.Default()
	}
	return &RecordStoreImpl{repo: repo, registry: registry}
}

// Insert validates rec against the registry and the caller's identity.
func (s *RecordStoreImpl) Insert(ctx context.Context, userID, table string, rec model.Record) error {
	if err := s.registry.Validate(table, rec); err != nil {
		return err
	}
	if rec.ID() == "" {
		return fmt.Errorf("%w: missing id", errs.ErrInvalidRecord)
	}
	if _, ok := rec[model.ColumnTimestamp].(string); !ok {
		return fmt.Errorf("%w: missing timestamp", errs.ErrInvalidRecord)
	}
	if owner, _ := rec[model.ColumnUserID].(string); owner != userID {
		return fmt.Errorf("%w: record belongs to %q", errs.ErrForbidden, owner)
	}
	return s.repo.Append(ctx, userID, table, rec)
}

// Select only ever sees the caller's rows.
func (s *RecordStoreImpl) Select(ctx context.Context, userID, table string, f model.Filter) ([]model.Record, error) {
	if _, ok := s.registry.Lookup(table); !ok {
		return nil, fmt.Errorf("%w: %q", errs.ErrUnknownTable, table)
	}
	rows, err := s.repo.Select(ctx, userID, table, f)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []model.Record{}
	}
	return rows, nil
}
