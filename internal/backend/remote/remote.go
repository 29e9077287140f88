// Package remote implements service.Backend over the sehatin.v1.Sehatin gRPC API.
package remote

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/sehatin/internal/convert"
	"github.com/and161185/sehatin/internal/errs"
	"github.com/and161185/sehatin/internal/model"
	"github.com/and161185/sehatin/internal/rpc"
	"github.com/and161185/sehatin/internal/service"
)

var _ service.Backend = (*Backend)(nil)

// Config selects the server and transport security.
type Config struct {
	Addr      string
	CAFile    string        // PEM bundle; empty means system roots
	SkipTLS   bool          // skip certificate verification (dev)
	Plaintext bool          // no TLS at all (local dev servers only)
	Timeout   time.Duration // per call; zero means none
}

// Validate reports configuration that cannot work.
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("remote: empty server address")
	}
	if c.Plaintext && (c.CAFile != "" || c.SkipTLS) {
		return errors.New("remote: plaintext excludes TLS options")
	}
	return nil
}

// Backend calls the gRPC server. It holds no session state of its own.
type Backend struct {
	client  *rpc.Client
	conn    *grpc.ClientConn
	timeout time.Duration
}

func loadTLS(cfg Config) (credentials.TransportCredentials, error) {
	switch {
	case cfg.Plaintext:
		return insecure.NewCredentials(), nil
	case cfg.SkipTLS:
		return credentials.NewTLS(&tls.Config{InsecureSkipVerify: true}), nil
	case cfg.CAFile == "":
		return credentials.NewClientTLSFromCert(nil, ""), nil
	}
	pem, err := os.ReadFile(cfg.CAFile)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("bad CA cert")
	}
	return credentials.NewTLS(&tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}), nil
}

// Dial validates cfg and creates a lazily connecting client.
func Dial(cfg Config) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	creds, err := loadTLS(cfg)
	if err != nil {
		return nil, fmt.Errorf("remote tls: %w", err)
	}
	cc, err := grpc.NewClient(cfg.Addr, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("remote dial: %w", err)
	}
	b := NewWithConn(cc, cfg.Timeout)
	b.conn = cc
	return b, nil
}

// NewWithConn wraps an existing connection. Close does not close cc.
func NewWithConn(cc grpc.ClientConnInterface, timeout time.Duration) *Backend {
	return &Backend{client: rpc.NewClient(cc), timeout: timeout}
}

// Close releases the connection opened by Dial.
func (b *Backend) Close() error {
	if b.conn == nil {
		return nil
	}
	return b.conn.Close()
}

func (b *Backend) call(ctx context.Context, token, method string, req *structpb.Struct) (*structpb.Struct, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	if token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
	}
	resp, err := b.client.Call(ctx, method, req)
	if err != nil {
		return nil, fromStatus(method, err)
	}
	return resp, nil
}

// fromStatus maps gRPC codes back onto the sentinels the server started from.
func fromStatus(method string, err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	var sentinel error
	switch st.Code() {
	case codes.AlreadyExists:
		sentinel = errs.ErrDuplicateUser
	case codes.Unauthenticated:
		sentinel = errs.ErrUnauthorized
		if method == rpc.MethodSignIn {
			sentinel = errs.ErrInvalidCredentials
		}
	case codes.ResourceExhausted:
		sentinel = errs.ErrRateLimited
	case codes.PermissionDenied:
		sentinel = errs.ErrForbidden
	case codes.InvalidArgument:
		sentinel = errs.ErrInvalidInput
		if method == rpc.MethodInsert {
			sentinel = errs.ErrInvalidRecord
		}
	case codes.NotFound:
		sentinel = errs.ErrNotFound
		if method == rpc.MethodInsert || method == rpc.MethodSelect {
			sentinel = errs.ErrUnknownTable
		}
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	default:
		return fmt.Errorf("remote %s: %w", method, err)
	}
	return fmt.Errorf("%w: %s", sentinel, st.Message())
}

// SignUp registers a new account on the server.
func (b *Backend) SignUp(ctx context.Context, email, password string, p model.ProfileDefaults) (model.Session, error) {
	req := convert.SignUpToStruct(convert.SignUpRequest{Email: email, Password: password, Profile: p})
	resp, err := b.call(ctx, "", rpc.MethodSignUp, req)
	if err != nil {
		return model.Session{}, err
	}
	return convert.SessionFromStruct(resp)
}

// SignIn exchanges credentials for a session.
func (b *Backend) SignIn(ctx context.Context, email, password string) (model.Session, error) {
	resp, err := b.call(ctx, "", rpc.MethodSignIn, convert.CredentialsToStruct(email, password))
	if err != nil {
		return model.Session{}, err
	}
	return convert.SessionFromStruct(resp)
}

// UpdateProfile edits the profile of the session's user.
func (b *Backend) UpdateProfile(ctx context.Context, s model.Session, upd model.ProfileUpdate) (model.User, error) {
	resp, err := b.call(ctx, s.AccessToken, rpc.MethodUpdateProfile, convert.ProfileUpdateToStruct(upd))
	if err != nil {
		return model.User{}, err
	}
	return convert.UserResponseFromStruct(resp)
}

// Append sends rec to the server. Requires a session.
func (b *Backend) Append(ctx context.Context, s *model.Session, table string, rec model.Record) error {
	if s == nil {
		return errs.ErrNoSession
	}
	req, err := convert.InsertToStruct(table, rec)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrInvalidRecord, err)
	}
	_, err = b.call(ctx, s.AccessToken, rpc.MethodInsert, req)
	return err
}

// Select queries the server. Requires a session.
func (b *Backend) Select(ctx context.Context, s *model.Session, table string, f model.Filter) ([]model.Record, error) {
	if s == nil {
		return nil, errs.ErrNoSession
	}
	req, err := convert.SelectToStruct(table, f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrInvalidInput, err)
	}
	resp, err := b.call(ctx, s.AccessToken, rpc.MethodSelect, req)
	if err != nil {
		return nil, err
	}
	return convert.RecordsFromStruct(resp)
}
