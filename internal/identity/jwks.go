package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// JWKSVerifier checks asymmetric tokens against the provider's published key
// set. Keys are cached and refreshed in the background by jwk.Cache.
type JWKSVerifier struct {
	cache  *jwk.Cache
	url    string
	issuer string
}

// NewJWKSVerifier registers url with a key cache and performs the first fetch
// so that misconfiguration surfaces at startup.
func NewJWKSVerifier(ctx context.Context, url, issuer string) (*JWKSVerifier, error) {
	cache := jwk.NewCache(ctx)
	if err := cache.Register(url, jwk.WithMinRefreshInterval(15*time.Minute)); err != nil {
		return nil, fmt.Errorf("register jwks %s: %w", url, err)
	}
	if _, err := cache.Refresh(ctx, url); err != nil {
		return nil, fmt.Errorf("fetch jwks %s: %w", url, err)
	}
	return &JWKSVerifier{cache: cache, url: url, issuer: issuer}, nil
}

func (v *JWKSVerifier) Verify(ctx context.Context, token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"RS256", "ES256"})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("token has no kid")
		}
		set, err := v.cache.Get(ctx, v.url)
		if err != nil {
			return nil, fmt.Errorf("load jwks: %w", err)
		}
		key, ok := set.LookupKeyID(kid)
		if !ok {
			return nil, fmt.Errorf("unknown kid %q", kid)
		}
		var raw interface{}
		if err := key.Raw(&raw); err != nil {
			return nil, fmt.Errorf("decode jwk %q: %w", kid, err)
		}
		return raw, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return subject(claims)
}
