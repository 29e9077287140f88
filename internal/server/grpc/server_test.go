package grpcserver

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/sehatin/internal/convert"
	pkgcrypto "github.com/and161185/sehatin/internal/crypto"
	"github.com/and161185/sehatin/internal/errs"
	"github.com/and161185/sehatin/internal/limiter"
	"github.com/and161185/sehatin/internal/model"
	"github.com/and161185/sehatin/internal/repository/memory"
	"github.com/and161185/sehatin/internal/schema"
	"github.com/and161185/sehatin/internal/server/service"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	tokens, err := service.NewTokens([]byte("secret"), time.Minute)
	require.NoError(t, err)
	accounts := service.NewAccountService(
		memory.NewUsers(),
		pkgcrypto.NewHasher(pkgcrypto.Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}),
		tokens,
		limiter.NewMemory(limiter.DefaultPolicy),
	)
	return New(accounts, service.NewRecordStore(memory.NewRecords(), nil))
}

func code(err error) codes.Code { return status.Code(err) }

func TestServer_SignUpSignIn(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	ctx := context.Background()

	resp, err := s.SignUp(ctx, convert.SignUpToStruct(convert.SignUpRequest{Email: "a@x.com", Password: "pw"}))
	require.NoError(t, err)
	sess, err := convert.SessionFromStruct(resp)
	require.NoError(t, err)
	require.Equal(t, "a", sess.User.Name)

	_, err = s.SignUp(ctx, convert.SignUpToStruct(convert.SignUpRequest{Email: "a@x.com", Password: "pw"}))
	require.Equal(t, codes.AlreadyExists, code(err))

	_, err = s.SignUp(ctx, convert.SignUpToStruct(convert.SignUpRequest{Email: "", Password: "pw"}))
	require.Equal(t, codes.InvalidArgument, code(err))

	resp, err = s.SignIn(ctx, convert.CredentialsToStruct("a@x.com", "pw"))
	require.NoError(t, err)
	in, err := convert.SessionFromStruct(resp)
	require.NoError(t, err)
	require.Equal(t, sess.User.ID, in.User.ID)

	_, err = s.SignIn(ctx, convert.CredentialsToStruct("a@x.com", "nope"))
	require.Equal(t, codes.Unauthenticated, code(err))

	bad, _ := structpb.NewStruct(map[string]any{"email": 1})
	_, err = s.SignIn(ctx, bad)
	require.Equal(t, codes.InvalidArgument, code(err))
}

func TestServer_SignInLockoutSurvivesReconnect(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	_, err := s.SignUp(context.Background(), convert.SignUpToStruct(convert.SignUpRequest{Email: "a@x.com", Password: "pw"}))
	require.NoError(t, err)

	var got []codes.Code
	for i := 0; i < 12; i++ {
		ctx := peer.NewContext(context.Background(), &peer.Peer{
			Addr: &net.TCPAddr{IP: net.ParseIP("10.0.0.1"), Port: 40000 + i},
		})
		_, err := s.SignIn(ctx, convert.CredentialsToStruct("a@x.com", "nope"))
		got = append(got, code(err))
	}
	require.Equal(t, codes.Unauthenticated, got[0])
	require.Contains(t, got[:6], codes.ResourceExhausted, "codes: %v", got)
	require.Equal(t, codes.ResourceExhausted, got[len(got)-1], "codes: %v", got)

	other := peer.NewContext(context.Background(), &peer.Peer{
		Addr: &net.TCPAddr{IP: net.ParseIP("10.0.0.2"), Port: 40000},
	})
	_, err = s.SignIn(other, convert.CredentialsToStruct("a@x.com", "pw"))
	require.NoError(t, err)
}

func TestServer_ProtectedNeedUser(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.UpdateProfile(ctx, &structpb.Struct{})
	require.Equal(t, codes.Unauthenticated, code(err))
	_, err = s.Insert(ctx, &structpb.Struct{})
	require.Equal(t, codes.Unauthenticated, code(err))
	_, err = s.Select(ctx, &structpb.Struct{})
	require.Equal(t, codes.Unauthenticated, code(err))
}

func TestServer_InsertSelectScoped(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	ctx := WithUserID(context.Background(), "user_1")

	rec := model.Record{
		"id": "id_1", "timestamp": "2024-01-01T00:00:00.000000000Z",
		"user_id": "user_1", "message": "hi", "sender": "user",
	}
	req, err := convert.InsertToStruct(schema.ChatHistory, rec)
	require.NoError(t, err)
	_, err = s.Insert(ctx, req)
	require.NoError(t, err)

	foreign := rec.Clone()
	foreign["id"], foreign["user_id"] = "id_2", "user_2"
	req, err = convert.InsertToStruct(schema.ChatHistory, foreign)
	require.NoError(t, err)
	_, err = s.Insert(ctx, req)
	require.Equal(t, codes.PermissionDenied, code(err))

	bad := rec.Clone()
	bad["id"], bad["sender"] = "id_3", "robot"
	req, err = convert.InsertToStruct(schema.ChatHistory, bad)
	require.NoError(t, err)
	_, err = s.Insert(ctx, req)
	require.Equal(t, codes.InvalidArgument, code(err))

	sel, err := convert.SelectToStruct(schema.ChatHistory, model.Filter{EqualsColumn: "user_id", EqualsValue: "user_1", OrderColumn: "timestamp", Ascending: true})
	require.NoError(t, err)
	resp, err := s.Select(ctx, sel)
	require.NoError(t, err)
	rows, err := convert.RecordsFromStruct(resp)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "hi", rows[0]["message"])

	sel, err = convert.SelectToStruct("nope", model.Filter{})
	require.NoError(t, err)
	_, err = s.Select(ctx, sel)
	require.Equal(t, codes.NotFound, code(err))
}

func TestToStatus(t *testing.T) {
	t.Parallel()

	cases := map[error]codes.Code{
		errs.ErrDuplicateUser:      codes.AlreadyExists,
		errs.ErrInvalidCredentials: codes.Unauthenticated,
		errs.ErrRateLimited:        codes.ResourceExhausted,
		errs.ErrForbidden:          codes.PermissionDenied,
		errs.ErrInvalidRecord:      codes.InvalidArgument,
		errs.ErrNotFound:           codes.NotFound,
		context.DeadlineExceeded:   codes.DeadlineExceeded,
		errors.New("db down"):      codes.Internal,
	}
	for err, want := range cases {
		require.Equal(t, want, code(toStatus("op", err)), err.Error())
	}
}
