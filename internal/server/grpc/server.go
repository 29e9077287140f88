// Package grpcserver exposes the Sehatin gRPC API handlers.
package grpcserver

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/sehatin/internal/convert"
	"github.com/and161185/sehatin/internal/errs"
	"github.com/and161185/sehatin/internal/rpc"
	"github.com/and161185/sehatin/internal/server/service"
)

var _ rpc.Handler = (*Server)(nil)

// PublicMethods need no access token.
var PublicMethods = []string{
	rpc.FullMethod(rpc.MethodSignUp),
	rpc.FullMethod(rpc.MethodSignIn),
}

// Server wires services into gRPC handlers.
type Server struct {
	accounts service.AccountService
	records  service.RecordStore
}

// New constructs a gRPC server with injected services.
func New(accounts service.AccountService, records service.RecordStore) *Server {
	return &Server{accounts: accounts, records: records}
}

// Register attaches s to g.
func (s *Server) Register(g grpc.ServiceRegistrar) { rpc.RegisterHandler(g, s) }

// toStatus maps domain sentinels onto gRPC codes.
func toStatus(op string, err error) error {
	switch {
	case errors.Is(err, errs.ErrDuplicateUser):
		return status.Error(codes.AlreadyExists, "user already exists")
	case errors.Is(err, errs.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, "invalid credentials")
	case errors.Is(err, errs.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, errs.ErrRateLimited):
		return status.Error(codes.ResourceExhausted, "rate limited")
	case errors.Is(err, errs.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, errs.ErrNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, errs.ErrUnknownTable):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, errs.ErrInvalidInput),
		errors.Is(err, errs.ErrInvalidRecord),
		errors.Is(err, convert.ErrMalformed):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	default:
		return status.Errorf(codes.Internal, "%s: %v", op, err)
	}
}

func (s *Server) userID(ctx context.Context) (string, error) {
	uid, ok := UserIDFromCtx(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "no auth")
	}
	return uid, nil
}

// --- Auth ---

// SignUp creates a new account and returns its first session.
func (s *Server) SignUp(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := convert.SignUpFromStruct(req)
	if err != nil {
		return nil, toStatus("sign up", err)
	}
	sess, err := s.accounts.SignUp(ctx, r.Email, r.Password, r.Profile)
	if err != nil {
		return nil, toStatus("sign up", err)
	}
	return convert.SessionToStruct(sess), nil
}

// SignIn authenticates and returns a fresh session.
func (s *Server) SignIn(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	email, password, err := convert.CredentialsFromStruct(req)
	if err != nil {
		return nil, toStatus("sign in", err)
	}
	sess, err := s.accounts.SignInWithIP(ctx, email, password, clientIP(ctx))
	if err != nil {
		return nil, toStatus("sign in", err)
	}
	return convert.SessionToStruct(sess), nil
}

// UpdateProfile edits the caller's profile.
func (s *Server) UpdateProfile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	uid, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}
	upd, err := convert.ProfileUpdateFromStruct(req)
	if err != nil {
		return nil, toStatus("update profile", err)
	}
	u, err := s.accounts.UpdateProfile(ctx, uid, upd)
	if err != nil {
		return nil, toStatus("update profile", err)
	}
	return convert.UserResponseToStruct(u), nil
}

// --- Records ---

// Insert appends a record on behalf of the caller.
func (s *Server) Insert(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	uid, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}
	table, rec, err := convert.InsertFromStruct(req)
	if err != nil {
		return nil, toStatus("insert", err)
	}
	if err := s.records.Insert(ctx, uid, table, rec); err != nil {
		return nil, toStatus("insert", err)
	}
	return &structpb.Struct{}, nil
}

// Select returns the caller's matching records.
func (s *Server) Select(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	uid, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}
	table, f, err := convert.SelectFromStruct(req)
	if err != nil {
		return nil, toStatus("select", err)
	}
	rows, err := s.records.Select(ctx, uid, table, f)
	if err != nil {
		return nil, toStatus("select", err)
	}
	out, err := convert.RecordsToStruct(rows)
	if err != nil {
		return nil, toStatus("select", err)
	}
	return out, nil
}
