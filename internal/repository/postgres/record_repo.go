package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/and161185/sehatin/internal/errs"
	"github.com/and161185/sehatin/internal/model"
)

// RecordRepo implements RecordRepository over a JSONB column.
type RecordRepo struct{ db *DB }

// NewRecordRepo constructs a record repository.
func NewRecordRepo(db *DB) *RecordRepo { return &RecordRepo{db: db} }

// Append inserts rec. A reused record id is reported as errs.ErrInvalidRecord.
func (r *RecordRepo) Append(ctx context.Context, ownerID, table string, rec model.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrInvalidRecord, err)
	}
	const q = `
INSERT INTO records (id, table_name, owner_id, data)
VALUES ($1, $2, $3, $4)`
	_, err = r.db.Pool.Exec(ctx, q, rec.ID(), table, ownerID, data)
	if _, ok := uniqueViolation(err); ok {
		return fmt.Errorf("%w: duplicate id %q", errs.ErrInvalidRecord, rec.ID())
	}
	return err
}

// Select returns ownerID's rows of table in insertion order, narrowed by the
// equality filter in SQL, then filtered and ordered by f.Apply so results
// match the local backend exactly.
func (r *RecordRepo) Select(ctx context.Context, ownerID, table string, f model.Filter) ([]model.Record, error) {
	q := `
SELECT data
FROM records
WHERE table_name=$1 AND owner_id=$2`
	args := []any{table, ownerID}
	// a nil value also matches rows lacking the column, which jsonb equality cannot express
	if f.EqualsColumn != "" && f.EqualsValue != nil {
		eq, err := json.Marshal(f.EqualsValue)
		if err != nil {
			return nil, fmt.Errorf("filter value: %w", err)
		}
		q += ` AND data -> $3 = $4::jsonb`
		args = append(args, f.EqualsColumn, string(eq))
	}
	q += `
ORDER BY seq ASC`

	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Record
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var rec model.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return f.Apply(out), nil
}
