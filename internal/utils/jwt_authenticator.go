package utils

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

const (
	defaultJwksCacheTTL = 5 * time.Minute
	jwksFetchTimeout    = 10 * time.Second
)

// AuthenticatedUser is the caller identity carried by a validated bearer token
type AuthenticatedUser struct {
	Sub      string   `json:"sub"`
	Iss      string   `json:"iss"`
	ClientId string   `json:"client_id,omitempty"`
	Aud      []string `json:"aud"`
	Exp      int64    `json:"exp"`
	Iat      int64    `json:"iat"`
	Roles    []string `json:"roles"`
	Scopes   []string `json:"scopes"`
	// Principal is the caller's ICP principal when the issuer includes one
	Principal string `json:"principal,omitempty"`
}

// JwtAuthenticator validates RS/ES tokens against a cached JWKS and, when a
// shared secret is set, HS tokens signed with it.
type JwtAuthenticator struct {
	JwksUri  string
	secret   []byte
	cacheTTL time.Duration

	once     sync.Once
	cache    *jwk.Cache
	cacheErr error
}

type JwtAuthenticatorOption func(*JwtAuthenticator)

// WithHMACSecret accepts HS256/384/512 tokens signed with secret
func WithHMACSecret(secret string) JwtAuthenticatorOption {
	return func(a *JwtAuthenticator) {
		if secret != "" {
			a.secret = []byte(secret)
		}
	}
}

// WithCacheTTL sets the minimum interval between JWKS refreshes
func WithCacheTTL(ttl time.Duration) JwtAuthenticatorOption {
	return func(a *JwtAuthenticator) {
		if ttl > 0 {
			a.cacheTTL = ttl
		}
	}
}

func NewJwtAuthenticator(jwksUri string, opts ...JwtAuthenticatorOption) *JwtAuthenticator {
	auth := &JwtAuthenticator{
		JwksUri:  jwksUri,
		cacheTTL: defaultJwksCacheTTL,
	}
	for _, opt := range opts {
		opt(auth)
	}
	return auth
}

// Enabled reports whether any verification key source is configured
func (a *JwtAuthenticator) Enabled() bool {
	return a.JwksUri != "" || len(a.secret) > 0
}

func (a *JwtAuthenticator) ValidateToken(tokenString string) (*AuthenticatedUser, error) {
	if !a.Enabled() {
		return nil, errors.New("JWKS URI not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), jwksFetchTimeout)
	defer cancel()

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return a.resolveKey(ctx, token)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return a.mapClaimsToUser(claims)
}

func (a *JwtAuthenticator) resolveKey(ctx context.Context, token *jwt.Token) (interface{}, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if len(a.secret) == 0 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	case *jwt.SigningMethodRSA, *jwt.SigningMethodRSAPSS, *jwt.SigningMethodECDSA:
		if a.JwksUri == "" {
			return nil, errors.New("JWKS URI not configured")
		}
		kid, _ := token.Header["kid"].(string)
		return a.publicKey(ctx, kid)
	default:
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
}

func (a *JwtAuthenticator) publicKey(ctx context.Context, kid string) (interface{}, error) {
	set, err := a.keySet(ctx)
	if err != nil {
		return nil, err
	}

	var key jwk.Key
	switch {
	case kid != "":
		found, ok := set.LookupKeyID(kid)
		if !ok {
			return nil, fmt.Errorf("no key found for kid %q", kid)
		}
		key = found
	case set.Len() == 1:
		key, _ = set.Key(0)
	default:
		return nil, errors.New("token has no kid and the key set is ambiguous")
	}

	var raw interface{}
	if err := key.Raw(&raw); err != nil {
		return nil, fmt.Errorf("failed to get raw key: %w", err)
	}
	return raw, nil
}

func (a *JwtAuthenticator) keySet(ctx context.Context) (jwk.Set, error) {
	a.once.Do(func() {
		cache := jwk.NewCache(context.Background())
		if err := cache.Register(a.JwksUri, jwk.WithMinRefreshInterval(a.cacheTTL)); err != nil {
			a.cacheErr = fmt.Errorf("failed to register JWKS URI: %w", err)
			return
		}
		a.cache = cache
	})
	if a.cacheErr != nil {
		return nil, a.cacheErr
	}

	set, err := a.cache.Get(ctx, a.JwksUri)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	return set, nil
}

func (a *JwtAuthenticator) mapClaimsToUser(claims map[string]interface{}) (*AuthenticatedUser, error) {
	user := &AuthenticatedUser{}

	if sub, ok := claims["sub"].(string); ok {
		user.Sub = sub
	}
	if iss, ok := claims["iss"].(string); ok {
		user.Iss = iss
	}
	if clientId, ok := claims["client_id"].(string); ok {
		user.ClientId = clientId
	}
	if principal, ok := claims["principal"].(string); ok {
		user.Principal = principal
	}
	if exp, ok := claims["exp"].(float64); ok {
		user.Exp = int64(exp)
	}
	if iat, ok := claims["iat"].(float64); ok {
		user.Iat = int64(iat)
	}

	switch aud := claims["aud"].(type) {
	case string:
		user.Aud = []string{aud}
	case []interface{}:
		user.Aud = toStrings(aud)
	}
	if roles, ok := claims["roles"].([]interface{}); ok {
		user.Roles = toStrings(roles)
	}
	if scopes, ok := claims["scopes"].([]interface{}); ok {
		user.Scopes = toStrings(scopes)
	}

	return user, nil
}

func toStrings(values []interface{}) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
