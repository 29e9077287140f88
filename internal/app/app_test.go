package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/sehatin/internal/backend/remote"
	"github.com/and161185/sehatin/internal/model"
	"github.com/and161185/sehatin/internal/schema"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, Config{Backend: BackendLocal}.Validate())
	require.Error(t, Config{Backend: "cloud"}.Validate())
	require.Error(t, Config{Backend: BackendRemote}.Validate(), "remote without address")
	require.NoError(t, Config{Backend: BackendRemote, Remote: remote.Config{Addr: "localhost:8443"}}.Validate())
}

func TestNew_RejectsBadConfig(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{Backend: BackendRemote}, zaptest.NewLogger(t))
	require.Error(t, err)
}

func TestNew_LocalMemory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	a, err := New(ctx, Config{Backend: BackendLocal, DataPath: MemoryPath}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close()) })

	var seen []model.AuthEvent
	a.Auth.OnAuthStateChange(func(e model.AuthEvent, _ *model.Session) { seen = append(seen, e) })

	u, _, err := a.Auth.SignUp(ctx, "a@x.com", "pw", model.ProfileDefaults{})
	require.NoError(t, err)

	rec, err := a.Records.Insert(ctx, schema.ChatHistory, model.Record{
		"user_id": u.ID, "message": "hi", "sender": schema.SenderUser,
	})
	require.NoError(t, err)

	rows := a.Records.SelectFiltered(ctx, schema.ChatHistory, model.Filter{
		EqualsColumn: model.ColumnUserID, EqualsValue: u.ID, OrderColumn: model.ColumnTimestamp, Ascending: true,
	})
	require.Len(t, rows, 1)
	require.Equal(t, rec.ID(), rows[0].ID())
	require.Equal(t, []model.AuthEvent{model.EventSignedIn}, seen)
}

func TestNew_SQLiteKeepsSessionAcrossRestart(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cfg := Config{Backend: BackendLocal, DataPath: filepath.Join(t.TempDir(), "client.db")}

	a, err := New(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	_, sess, err := a.Auth.SignUp(ctx, "a@x.com", "pw", model.ProfileDefaults{Name: "A"})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	b, err := New(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, b.Close()) })

	got := b.Auth.GetSession(ctx)
	require.NotNil(t, got)
	require.Equal(t, sess, *got)

	_, err = b.Auth.SignIn(ctx, "a@x.com", "pw")
	require.NoError(t, err)
}

func TestNew_RemoteWithoutSessionDegrades(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// the client connects lazily, so nothing listens here
	a, err := New(ctx, Config{
		Backend: BackendRemote,
		Remote:  remote.Config{Addr: "127.0.0.1:1", Plaintext: true, Timeout: time.Second},
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close()) })

	require.Nil(t, a.Auth.GetSession(ctx))
	require.Empty(t, a.Records.SelectFiltered(ctx, schema.HealthLogs, model.Filter{}))
}

func TestFromEnv(t *testing.T) {
	t.Setenv("SEHATIN_BACKEND", BackendRemote)
	t.Setenv("SEHATIN_ADDR", "api.example:443")
	t.Setenv("SEHATIN_TIMEOUT", "3s")
	t.Setenv("SEHATIN_PLAINTEXT", "not-a-bool")

	c := FromEnv(Config{DataPath: "x.db"})
	require.Equal(t, BackendRemote, c.Backend)
	require.Equal(t, "x.db", c.DataPath)
	require.Equal(t, "api.example:443", c.Remote.Addr)
	require.Equal(t, 3*time.Second, c.Remote.Timeout)
	require.False(t, c.Remote.Plaintext)
	require.NotEmpty(t, c.Prefix)

	explicit := FromEnv(Config{Backend: BackendLocal})
	require.Equal(t, BackendLocal, explicit.Backend)
}
