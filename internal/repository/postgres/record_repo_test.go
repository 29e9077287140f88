package postgres

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/sehatin/internal/errs"
	"github.com/and161185/sehatin/internal/model"
)

func TestRecordRepo_Append(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewRecordRepo(db)
	ctx := context.Background()
	rec := model.Record{"id": "id_1", "user_id": "u1", "message": "hi"}

	mock.ExpectExec(`INSERT INTO records \(id, table_name, owner_id, data\) VALUES \(\$1, \$2, \$3, \$4\)`).
		WithArgs("id_1", "chat_history", "u1", []byte(`{"id":"id_1","message":"hi","user_id":"u1"}`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Append(ctx, "u1", "chat_history", rec))

	mock.ExpectExec(`INSERT INTO records`).
		WithArgs("id_1", "chat_history", "u1", pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	require.ErrorIs(t, r.Append(ctx, "u1", "chat_history", rec), errs.ErrInvalidRecord)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepo_Select_FilteredAndOrdered(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewRecordRepo(db)
	ctx := context.Background()

	rows := pgxmock.NewRows([]string{"data"}).
		AddRow([]byte(`{"id":"id_1","user_id":"u1","timestamp":"2024-01-02T00:00:00.000000000Z"}`)).
		AddRow([]byte(`{"id":"id_2","user_id":"u1","timestamp":"2024-01-01T00:00:00.000000000Z"}`))
	mock.ExpectQuery(`SELECT data FROM records WHERE table_name=\$1 AND owner_id=\$2 AND data -> \$3 = \$4::jsonb ORDER BY seq ASC`).
		WithArgs("chat_history", "u1", "user_id", `"u1"`).
		WillReturnRows(rows)

	got, err := r.Select(ctx, "u1", "chat_history", model.Filter{
		EqualsColumn: "user_id", EqualsValue: "u1", OrderColumn: "timestamp", Ascending: true,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "id_2", got[0].ID())
	require.Equal(t, "id_1", got[1].ID())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepo_Select_NoEqualityAndEmpty(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewRecordRepo(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT data FROM records WHERE table_name=\$1 AND owner_id=\$2 ORDER BY seq ASC`).
		WithArgs("health_logs", "u1").
		WillReturnRows(pgxmock.NewRows([]string{"data"}))

	got, err := r.Select(ctx, "u1", "health_logs", model.Filter{})
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestRecordRepo_Select_CorruptRow(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewRecordRepo(db)

	mock.ExpectQuery(`SELECT data FROM records`).
		WithArgs("health_logs", "u1").
		WillReturnRows(pgxmock.NewRows([]string{"data"}).AddRow([]byte(`not json`)))

	_, err := r.Select(context.Background(), "u1", "health_logs", model.Filter{})
	require.Error(t, err)
}
