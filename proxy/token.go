package proxy

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/api/idtoken"
)

// TokenIssuer mints an identity token for a target audience. Implementations
// must be safe for concurrent use.
type TokenIssuer interface {
	IssueToken(ctx context.Context, audience string) (string, error)
}

// GoogleIssuer issues Google-signed identity tokens using the ambient
// service account credentials (metadata server on Cloud Run, or
// GOOGLE_APPLICATION_CREDENTIALS locally).
type GoogleIssuer struct{}

var _ TokenIssuer = (*GoogleIssuer)(nil)

// IssueToken implements TokenIssuer.
func (GoogleIssuer) IssueToken(ctx context.Context, audience string) (string, error) {
	ts, err := idtoken.NewTokenSource(ctx, audience)
	if err != nil {
		return "", fmt.Errorf("idtoken source for %s: %w", audience, err)
	}
	tok, err := ts.Token()
	if err != nil {
		return "", fmt.Errorf("fetch idtoken for %s: %w", audience, err)
	}
	return tok.AccessToken, nil
}

// tokenExpiry extracts the exp claim from a JWT without verifying the
// signature. The proxy is the token's consumer-side cache, not its
// verifier; the worker's IAM layer does the actual validation. Returns
// zero time when the token has no usable expiry.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
