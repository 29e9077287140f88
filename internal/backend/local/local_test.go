package local

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/sehatin/internal/errs"
	"github.com/and161185/sehatin/internal/kvstore"
	"github.com/and161185/sehatin/internal/model"
)

func newBackend(t *testing.T) (*Backend, *kvstore.MemoryBackend, *kvstore.Store) {
	t.Helper()
	mem := kvstore.NewMemoryBackend()
	store := kvstore.New(mem, zaptest.NewLogger(t))
	return New(store), mem, store
}

func TestSignUp_StorageLayout(t *testing.T) {
	t.Parallel()
	b, mem, _ := newBackend(t)
	ctx := context.Background()

	sess, err := b.SignUp(ctx, "a@x.com", "pw1", model.ProfileDefaults{Name: "A"})
	require.NoError(t, err)
	require.Regexp(t, `^user_[0-9a-f-]{36}$`, sess.User.ID)
	require.Regexp(t, `^mock_token_[0-9a-f-]{36}$`, sess.AccessToken)

	raw, err := mem.Get(ctx, "sehatin_mock_users")
	require.NoError(t, err)
	var stored []map[string]any
	require.NoError(t, json.Unmarshal(raw, &stored))
	require.Len(t, stored, 1)
	require.Equal(t, map[string]any{
		"id": sess.User.ID, "email": "a@x.com", "name": "A", "age": float64(25), "gender": "Other", "password": "pw1",
	}, stored[0])
}

func TestSignUp_Duplicate(t *testing.T) {
	t.Parallel()
	b, _, _ := newBackend(t)
	ctx := context.Background()

	_, err := b.SignUp(ctx, "a@x.com", "pw1", model.ProfileDefaults{})
	require.NoError(t, err)
	_, err = b.SignUp(ctx, "a@x.com", "pw2", model.ProfileDefaults{})
	require.ErrorIs(t, err, errs.ErrDuplicateUser)

	// email match is exact
	_, err = b.SignUp(ctx, "A@x.com", "pw2", model.ProfileDefaults{})
	require.NoError(t, err)
}

func TestSignIn(t *testing.T) {
	t.Parallel()
	b, _, _ := newBackend(t)
	ctx := context.Background()

	up, err := b.SignUp(ctx, "a@x.com", "pw1", model.ProfileDefaults{})
	require.NoError(t, err)

	in, err := b.SignIn(ctx, "a@x.com", "pw1")
	require.NoError(t, err)
	require.Equal(t, up.User, in.User)
	require.NotEqual(t, up.AccessToken, in.AccessToken)

	_, err = b.SignIn(ctx, "a@x.com", "pw2")
	require.ErrorIs(t, err, errs.ErrInvalidCredentials)
}

func TestUpdateProfile(t *testing.T) {
	t.Parallel()
	b, _, _ := newBackend(t)
	ctx := context.Background()

	sess, err := b.SignUp(ctx, "a@x.com", "pw1", model.ProfileDefaults{})
	require.NoError(t, err)

	age := 40
	u, err := b.UpdateProfile(ctx, sess, model.ProfileUpdate{Age: &age})
	require.NoError(t, err)
	require.Equal(t, 40, u.Age)

	// password survives the rewrite
	in, err := b.SignIn(ctx, "a@x.com", "pw1")
	require.NoError(t, err)
	require.Equal(t, 40, in.User.Age)

	_, err = b.UpdateProfile(ctx, model.Session{User: model.User{ID: "user_gone"}}, model.ProfileUpdate{Age: &age})
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestAppendSelect(t *testing.T) {
	t.Parallel()
	b, mem, _ := newBackend(t)
	ctx := context.Background()

	rows := []model.Record{
		{"id": "id_1", "user_id": "u1", "score": 3, "timestamp": "2024-01-02T00:00:00.000000000Z"},
		{"id": "id_2", "user_id": "u2", "score": 1, "timestamp": "2024-01-01T00:00:00.000000000Z"},
		{"id": "id_3", "user_id": "u1", "score": 2, "timestamp": "2024-01-01T00:00:00.000000000Z"},
	}
	for _, r := range rows {
		require.NoError(t, b.Append(ctx, nil, "health_logs", r))
	}

	raw, err := mem.Get(ctx, "sehatin_mock_health_logs")
	require.NoError(t, err)
	require.NotNil(t, raw)

	got, err := b.Select(ctx, nil, "health_logs", model.Filter{EqualsColumn: "user_id", EqualsValue: "u1", OrderColumn: "timestamp", Ascending: true})
	require.NoError(t, err)
	require.Equal(t, []string{"id_3", "id_1"}, []string{got[0].ID(), got[1].ID()})

	// numbers come back as float64 but still match integer filters
	got, err = b.Select(ctx, nil, "health_logs", model.Filter{EqualsColumn: "score", EqualsValue: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "id_2", got[0].ID())

	got, err = b.Select(ctx, nil, "chat_history", model.Filter{})
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestReservedKeysAreNotTables(t *testing.T) {
	t.Parallel()
	b, _, _ := newBackend(t)
	ctx := context.Background()

	for _, name := range []string{"", kvstore.KeyUsers, kvstore.KeySession} {
		require.ErrorIs(t, b.Append(ctx, nil, name, model.Record{}), errs.ErrUnknownTable)
		_, err := b.Select(ctx, nil, name, model.Filter{})
		require.ErrorIs(t, err, errs.ErrUnknownTable)
	}
}

func TestSQLiteStoreSurvivesRestart(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "local.db")

	open := func() (*Backend, func()) {
		sb, err := kvstore.OpenSQLite(ctx, dsn)
		require.NoError(t, err)
		return New(kvstore.New(sb, zaptest.NewLogger(t))), func() { require.NoError(t, sb.Close()) }
	}

	b, closeFn := open()
	up, err := b.SignUp(ctx, "a@x.com", "pw1", model.ProfileDefaults{})
	require.NoError(t, err)
	require.NoError(t, b.Append(ctx, nil, "chat_history", model.Record{"id": "id_1", "user_id": up.User.ID, "message": "hi"}))
	closeFn()

	b, closeFn = open()
	defer closeFn()
	in, err := b.SignIn(ctx, "a@x.com", "pw1")
	require.NoError(t, err)
	require.Equal(t, up.User.ID, in.User.ID)

	got, err := b.Select(ctx, nil, "chat_history", model.Filter{EqualsColumn: "user_id", EqualsValue: up.User.ID})
	require.NoError(t, err)
	require.Len(t, got, 1)
}
