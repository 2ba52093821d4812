package auth

import (
	"context"
	"strings"

	"google.golang.org/grpc/metadata"

	svcErr "github.com/oggyb/ffm-club/internal/errors"
)

type claimsKey struct{}

func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFrom returns the claims attached by the auth interceptor, if any.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok && c != nil
}

// TokenFromMetadata extracts the bearer token from incoming gRPC metadata.
func TokenFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	for _, v := range md.Get("authorization") {
		if len(v) > 7 && strings.EqualFold(v[:7], "bearer ") {
			return strings.TrimSpace(v[7:])
		}
	}
	return ""
}

// Actor resolves the user an operation acts as. Without claims (auth not
// enforced) the requested id is trusted. With claims, an empty id means the
// caller, and any other id must match the caller.
func Actor(ctx context.Context, requested string) (string, error) {
	c, ok := ClaimsFrom(ctx)
	if !ok {
		if requested == "" {
			return "", svcErr.InvalidArgument("user id is required")
		}
		return requested, nil
	}
	if requested == "" || requested == c.UserID {
		return c.UserID, nil
	}
	return "", svcErr.InvalidOperation("cannot act on behalf of another user")
}
