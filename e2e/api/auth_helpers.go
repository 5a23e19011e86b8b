package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"
)

// AuthTestHelper provides authentication testing utilities
type AuthTestHelper struct {
	t         *testing.T
	jwtSecret string
}

// NewAuthTestHelper creates a new authentication test helper
func NewAuthTestHelper(t *testing.T) *AuthTestHelper {
	return &AuthTestHelper{
		t:         t,
		jwtSecret: "test-jwt-secret-for-auth-testing",
	}
}

// GetJWTSecret returns the JWT secret used for testing
func (h *AuthTestHelper) GetJWTSecret() string {
	return h.jwtSecret
}

// CreateValidJWTToken creates a valid JWT token with the given claims
func (h *AuthTestHelper) CreateValidJWTToken(claims map[string]interface{}) string {
	if _, ok := claims["exp"]; !ok {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}
	if _, ok := claims["iat"]; !ok {
		claims["iat"] = time.Now().Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims(claims))
	tokenString, err := token.SignedString([]byte(h.jwtSecret))
	require.NoError(h.t, err)
	return tokenString
}

// CreateSignerToken creates a token for a user holding an ICP principal
func (h *AuthTestHelper) CreateSignerToken(userID, principal string) string {
	return h.CreateValidJWTToken(map[string]interface{}{
		"sub":       userID,
		"principal": principal,
		"roles":     []string{"user"},
		"scopes":    []string{"wallets:write"},
		"iss":       "test-issuer",
	})
}

// CreateExpiredJWTToken creates an expired JWT token
func (h *AuthTestHelper) CreateExpiredJWTToken() string {
	return h.CreateValidJWTToken(map[string]interface{}{
		"sub":   "expired-user",
		"exp":   time.Now().Unix() - 3600,
		"iat":   time.Now().Unix() - 7200,
		"roles": []string{"user"},
	})
}

// CreateForeignJWTToken creates a token signed with a different secret
func (h *AuthTestHelper) CreateForeignJWTToken() string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "intruder",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	tokenString, err := token.SignedString([]byte("some-other-secret"))
	require.NoError(h.t, err)
	return tokenString
}

// AuthTestScenario represents a test scenario for authentication
type AuthTestScenario struct {
	Name           string
	AuthHeader     string
	ExpectedStatus int
}

// GetCommonAuthScenarios returns the rejected authentication scenarios
func (h *AuthTestHelper) GetCommonAuthScenarios() []AuthTestScenario {
	return []AuthTestScenario{
		{Name: "ExpiredJWTToken", AuthHeader: "Bearer " + h.CreateExpiredJWTToken(), ExpectedStatus: http.StatusUnauthorized},
		{Name: "ForeignJWTToken", AuthHeader: "Bearer " + h.CreateForeignJWTToken(), ExpectedStatus: http.StatusUnauthorized},
		{Name: "MalformedJWTToken", AuthHeader: "Bearer malformed.jwt.token.invalid", ExpectedStatus: http.StatusUnauthorized},
		{Name: "MissingAuthHeader", AuthHeader: "", ExpectedStatus: http.StatusUnauthorized},
		{Name: "InvalidAuthFormat", AuthHeader: "Basic dGVzdDp0ZXN0", ExpectedStatus: http.StatusUnauthorized},
		{Name: "EmptyBearerToken", AuthHeader: "Bearer ", ExpectedStatus: http.StatusUnauthorized},
	}
}
