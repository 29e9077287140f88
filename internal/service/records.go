package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/sehatin/internal/errs"
	"github.com/and161185/sehatin/internal/idgen"
	"github.com/and161185/sehatin/internal/model"
	"github.com/and161185/sehatin/internal/schema"
)

// TimestampLayout is RFC 3339 in UTC with fixed-width nanoseconds, so
// timestamps compare chronologically as strings.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z"

// RecordIDPrefix starts every generated record id.
const RecordIDPrefix = "id_"

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string { return t.UTC().Format(TimestampLayout) }

// SessionSource yields the current session, if any.
type SessionSource interface {
	GetSession(ctx context.Context) *model.Session
}

// RecordService is the append-only query façade over named tables.
type RecordService interface {
	// Insert validates row, injects id and timestamp, appends it and returns the stored record.
	Insert(ctx context.Context, table string, row model.Record) (model.Record, error)
	// SelectFiltered returns matching records ordered per f. Never fails; errors yield an empty result.
	SelectFiltered(ctx context.Context, table string, f model.Filter) []model.Record
}

type RecordServiceImpl struct {
	data     DataBackend
	sessions SessionSource
	registry *schema.Registry
	ids      idgen.Generator
	now      func() time.Time
	log      *zap.Logger
}

// RecordOption customises RecordServiceImpl.
type RecordOption func(*RecordServiceImpl)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) RecordOption {
	return func(s *RecordServiceImpl) { s.now = now }
}

// WithIDs overrides the record id generator.
func WithIDs(g idgen.Generator) RecordOption {
	return func(s *RecordServiceImpl) { s.ids = g }
}

// NewRecordService constructs RecordService. A nil registry means schema.Default().
func NewRecordService(data DataBackend, sessions SessionSource, registry *schema.Registry, log *zap.Logger, opts ...RecordOption) *RecordServiceImpl {
	if registry == nil {
		registry = schema.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &RecordServiceImpl{
		data:     data,
		sessions: sessions,
		registry: registry,
		ids:      idgen.Prefixed{Prefix: RecordIDPrefix, Gen: idgen.NewV7()},
		now:      time.Now,
		log:      log,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Insert returns schema and auth errors. Storage failures are logged and the
// record is still returned, matching the best-effort store.
func (s *RecordServiceImpl) Insert(ctx context.Context, table string, row model.Record) (model.Record, error) {
	if err := s.registry.Validate(table, row); err != nil {
		return nil, err
	}
	id, err := s.ids.NewID()
	if err != nil {
		return nil, fmt.Errorf("record id: %w", err)
	}
	rec := row.Clone()
	rec[model.ColumnID] = id
	rec[model.ColumnTimestamp] = FormatTimestamp(s.now())

	if err := s.data.Append(ctx, s.sessions.GetSession(ctx), table, rec); err != nil {
		if errors.Is(err, errs.ErrStorage) {
			s.log.Error("record append failed", zap.String("table", table), zap.Error(err))
			return rec, nil
		}
		return nil, err
	}
	return rec, nil
}

// SelectFiltered reads table through the backend. Unknown tables are empty.
func (s *RecordServiceImpl) SelectFiltered(ctx context.Context, table string, f model.Filter) []model.Record {
	if _, ok := s.registry.Lookup(table); !ok {
		s.log.Warn("select from unknown table", zap.String("table", table))
		return []model.Record{}
	}
	rows, err := s.data.Select(ctx, s.sessions.GetSession(ctx), table, f)
	if err != nil {
		s.log.Error("record select failed", zap.String("table", table), zap.Error(err))
		return []model.Record{}
	}
	if rows == nil {
		return []model.Record{}
	}
	return rows
}
