package grpcserver

import (
	"context"
	"net"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// LoggingUnary logs one line per call: method, code, latency, peer and caller.
func LoggingUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		code := status.Code(err)

		// metadata only, never payloads: requests carry passwords and health notes
		fields := callFields(ctx, info.FullMethod)
		fields = append(fields, zap.Stringer("code", code), zap.Duration("dur", time.Since(start)))

		switch code {
		case codes.OK:
			log.Info("rpc", fields...)
		case codes.Internal, codes.Unknown:
			log.Error("rpc failed", append(fields, zap.Error(err))...)
		default:
			log.Info("rpc rejected", append(fields, zap.String("reason", status.Convert(err).Message()))...)
		}
		return resp, err
	}
}

func callFields(ctx context.Context, method string) []zap.Field {
	fields := []zap.Field{zap.String("method", method), zap.String("peer", remoteAddr(ctx))}
	if uid, ok := UserIDFromCtx(ctx); ok {
		fields = append(fields, zap.String("user_id", uid))
	}
	return fields
}

// RecoverUnary returns a unary server interceptor that recovers from panics.
func RecoverUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("handler panic", append(callFields(ctx, info.FullMethod),
					zap.Any("reason", r),
					zap.ByteString("stack", debug.Stack()),
				)...)
				err = status.Error(codes.Internal, "internal")
			}
		}()
		return next(ctx, req)
	}
}

// SubjectParser verifies an access token and returns its user id.
type SubjectParser interface {
	Subject(token string) (string, error)
}

// AuthUnary requires a valid bearer token on every method not listed in public
// and stores its subject with WithUserID.
func AuthUnary(tokens SubjectParser, public ...string) grpc.UnaryServerInterceptor {
	open := make(map[string]struct{}, len(public))
	for _, m := range public {
		open[m] = struct{}{}
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		if _, ok := open[info.FullMethod]; ok {
			return next(ctx, req)
		}
		tok, err := bearerToken(ctx)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}
		uid, err := tokens.Subject(tok)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid or expired token")
		}
		return next(WithUserID(ctx, uid), req)
	}
}

func remoteAddr(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return ""
}

// clientIP is the peer host without its port, so reconnects from the same
// machine share one limiter key.
func clientIP(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	if tcp, ok := p.Addr.(*net.TCPAddr); ok {
		return tcp.IP.String()
	}
	if host, _, err := net.SplitHostPort(p.Addr.String()); err == nil {
		return host
	}
	return p.Addr.String()
}
