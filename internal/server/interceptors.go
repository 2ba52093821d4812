package server

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oggyb/ffm-club/internal/auth"
	svcErr "github.com/oggyb/ffm-club/internal/errors"
	"github.com/oggyb/ffm-club/internal/metrics"
)

// Authenticator verifies a bearer token and returns its claims.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Claims, error)
}

// loggingUnary logs every call and records its latency and status code.
func loggingUnary(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		observe(log, info.FullMethod, start, err)
		return resp, err
	}
}

func loggingStream(log *slog.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		log.Debug("stream opened", "method", info.FullMethod)
		err := handler(srv, ss)
		observe(log, info.FullMethod, start, err)
		return err
	}
}

func observe(log *slog.Logger, method string, start time.Time, err error) {
	d := time.Since(start)
	code := status.Code(err)
	metrics.RecordRPC(shortMethod(method), code.String(), d)

	switch code {
	case codes.OK:
		log.Debug("rpc", "method", method, "duration", d)
	case codes.Internal, codes.Unavailable, codes.Unknown:
		log.Error("rpc failed", "method", method, "code", code.String(), "duration", d, "err", err)
	default:
		log.Info("rpc rejected", "method", method, "code", code.String(), "duration", d, "err", err)
	}
}

// shortMethod turns "/ffmclub.ProfileService/GetProfile" into
// "ProfileService/GetProfile" for metric labels.
func shortMethod(full string) string {
	full = strings.TrimPrefix(full, "/")
	if i := strings.IndexByte(full, '.'); i >= 0 {
		return full[i+1:]
	}
	return full
}

// authGate attaches claims from the bearer token when one is sent. With
// required set, calls outside public need a valid token.
type authGate struct {
	authn    Authenticator
	required bool
	public   map[string]bool
}

func (g *authGate) check(ctx context.Context, method string) (context.Context, error) {
	token := auth.TokenFromMetadata(ctx)
	if token == "" {
		if g.required && !g.public[method] {
			return nil, status.Error(codes.Unauthenticated, "missing bearer token")
		}
		return ctx, nil
	}
	claims, err := g.authn.Authenticate(ctx, token)
	if err != nil {
		if g.public[method] {
			// a stale token must not block sign-in
			return ctx, nil
		}
		return nil, svcErr.Map(err)
	}
	return auth.WithClaims(ctx, claims), nil
}

func (g *authGate) unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, err := g.check(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

func (g *authGate) stream() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, err := g.check(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &contextStream{ServerStream: ss, ctx: ctx})
	}
}

// contextStream overrides the context of a wrapped stream.
type contextStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *contextStream) Context() context.Context { return s.ctx }
