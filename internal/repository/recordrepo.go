package repository

import (
	"context"

	"github.com/and161185/sehatin/internal/model"
)

// RecordRepository stores append-only table records scoped to an owner.
type RecordRepository interface {
	// Append adds rec to table on behalf of ownerID.
	Append(ctx context.Context, ownerID, table string, rec model.Record) error
	// Select returns ownerID's records of table matching f, ordered per f.
	Select(ctx context.Context, ownerID, table string, f model.Filter) ([]model.Record, error)
}
