package mcp

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rxtech-lab/wallet-canister-backend/internal/icp"
	"github.com/rxtech-lab/wallet-canister-backend/internal/models"
	"github.com/rxtech-lab/wallet-canister-backend/internal/services"
	"github.com/rxtech-lab/wallet-canister-backend/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type emptyWallets struct {
	services.WalletService
}

func (emptyWallets) ListWallets(ctx context.Context) ([]models.Wallet, error) {
	return nil, nil
}

type fixedIdentity struct{}

func (fixedIdentity) GetPrincipal() (string, error) { return "aaaaa-aa", nil }
func (fixedIdentity) GetPublicKey() (string, error) { return "00", nil }

type noAssets struct{}

func (noAssets) AssetInfo() icp.AssetInfo { return icp.AssetInfo{} }

func newTestServer(opts ...Option) *MCPServer {
	return NewMCPServer(emptyWallets{}, fixedIdentity{}, noAssets{}, zap.NewNop(), opts...)
}

func TestMCPServerRegistersWalletTools(t *testing.T) {
	srv := newTestServer()

	response := srv.Server().HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	body, err := json.Marshal(response)
	require.NoError(t, err)

	for _, name := range []string{"create_wallet", "get_wallet", "list_wallets", "delete_wallet", "get_wallet_status", "get_backend_identity"} {
		assert.Contains(t, string(body), `"name":"`+name+`"`)
	}
}

func TestMCPServerCallsTool(t *testing.T) {
	srv := newTestServer()

	response := srv.Server().HandleMessage(context.Background(), json.RawMessage(
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"list_wallets","arguments":{}}}`,
	))
	body, err := json.Marshal(response)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Wallets listed: 0")
}

func TestAuthenticateRequest(t *testing.T) {
	secret := "test-secret"
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":       "user-1",
		"principal": "caller-principal",
		"exp":       time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)

	srv := newTestServer(WithAuthenticator(utils.NewJwtAuthenticator("", utils.WithHMACSecret(secret))))

	req := httptest.NewRequest("POST", "/mcp", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	user, ok := utils.GetAuthenticatedUser(srv.authenticateRequest(context.Background(), req))
	require.True(t, ok)
	assert.Equal(t, "user-1", user.Sub)
	assert.Equal(t, "caller-principal", user.Principal)

	req.Header.Set("Authorization", "Bearer not-a-token")
	_, ok = utils.GetAuthenticatedUser(srv.authenticateRequest(context.Background(), req))
	assert.False(t, ok)

	req.Header.Del("Authorization")
	_, ok = utils.GetAuthenticatedUser(srv.authenticateRequest(context.Background(), req))
	assert.False(t, ok)
}

func TestAuthenticateRequestWithoutSecret(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest("POST", "/mcp", nil)
	req.Header.Set("Authorization", "Bearer anything")
	_, ok := utils.GetAuthenticatedUser(srv.authenticateRequest(context.Background(), req))
	assert.False(t, ok)
}
