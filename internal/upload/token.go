package upload

import "context"

type bearerTokenKey struct{}

// WithBearerToken attaches the caller's access token so the relay transport can
// forward it.
func WithBearerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerTokenKey{}, token)
}

// BearerToken returns the token attached by WithBearerToken, or "".
func BearerToken(ctx context.Context) string {
	token, _ := ctx.Value(bearerTokenKey{}).(string)
	return token
}
