package grpcserver

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/metadata"
)

type callerKey struct{}

// WithUserID marks ctx as authenticated for the account id.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, callerKey{}, id)
}

// UserIDFromCtx returns the authenticated account id, if any.
func UserIDFromCtx(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(callerKey{}).(string)
	return id, ok && id != ""
}

const authHeader = "authorization"

var errNoBearer = errors.New("missing bearer token")

// bearerToken returns the token of the first "authorization: Bearer <token>" entry.
func bearerToken(ctx context.Context) (string, error) {
	for _, v := range metadata.ValueFromIncomingContext(ctx, authHeader) {
		scheme, tok, ok := strings.Cut(strings.TrimSpace(v), " ")
		if !ok || !strings.EqualFold(scheme, "bearer") {
			continue
		}
		if tok = strings.TrimSpace(tok); tok != "" {
			return tok, nil
		}
	}
	return "", errNoBearer
}
