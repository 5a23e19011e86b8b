package server

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/rxtech-lab/wallet-canister-backend/internal/config"
	"github.com/rxtech-lab/wallet-canister-backend/internal/icp"
	"github.com/rxtech-lab/wallet-canister-backend/internal/icp/icptest"
	"github.com/rxtech-lab/wallet-canister-backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

const testSeedHex = "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60"

type ApplicationTestSuite struct {
	suite.Suite
	app     *Application
	replica *icptest.Replica
}

func testConfig(wasmPath string) *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Port:       0,
			NodeEnv:    config.EnvDevelopment,
			CorsOrigin: "*",
			APIPrefix:  "api",
			LogLevel:   "error",
		},
		Database: config.DatabaseConfig{
			SQLitePath:        ":memory:",
			ConnectionTimeout: time.Second,
			MaxConnections:    1,
		},
		ICP: config.ICPConfig{
			ReplicaURL:            "http://localhost:4943",
			BackendPrivateKey:     testSeedHex,
			CanisterWasmPath:      wasmPath,
			DefaultCanisterCycles: big.NewInt(1_000_000_000_000),
			FetchRootKey:          true,
			RequestTimeout:        time.Second,
			MaxRetries:            3,
			RetryDelay:            time.Millisecond,
		},
	}
}

func (suite *ApplicationTestSuite) SetupTest() {
	path := filepath.Join(suite.T().TempDir(), "wallet.wasm")
	suite.Require().NoError(os.WriteFile(path, []byte("\x00asm\x01\x00\x00\x00"), 0o600))

	suite.replica = icptest.NewReplica()
	app, err := Initialize(context.Background(), testConfig(path), zap.NewNop(),
		WithAgentOptions(icp.WithTransportFactory(suite.replica.Factory())),
	)
	suite.Require().NoError(err)
	suite.app = app
}

func (suite *ApplicationTestSuite) TearDownTest() {
	suite.NoError(suite.app.Close())
}

func (suite *ApplicationTestSuite) do(method, path string, body any) (*http.Response, map[string]any) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := suite.app.API.App().Test(req, -1)
	suite.Require().NoError(err)

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	suite.Require().NoError(err)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		suite.Require().NoError(json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func (suite *ApplicationTestSuite) TestHealthReportsComponents() {
	resp, body := suite.do(http.MethodGet, "/health", nil)
	suite.Equal(http.StatusOK, resp.StatusCode)
	suite.Equal("ok", body["status"])

	info := body["info"].(map[string]any)
	suite.Equal("up", info["database"].(map[string]any)["status"])
	suite.Equal("up", info["icp_agent"].(map[string]any)["status"])
}

func (suite *ApplicationTestSuite) TestCreateWalletThroughAPI() {
	resp, body := suite.do(http.MethodPost, "/api/wallets", map[string]any{
		"name":              "ops",
		"signers":           []string{"alice-principal"},
		"creator_principal": "alice-principal",
	})
	suite.Require().Equal(http.StatusCreated, resp.StatusCode)
	data := body["data"].(map[string]any)
	suite.Equal("deployed", data["status"])
	suite.Equal(1, suite.replica.CanisterCount())

	resp, body = suite.do(http.MethodGet, "/api/wallets?principal=alice-principal", nil)
	suite.Equal(http.StatusOK, resp.StatusCode)
	suite.EqualValues(1, body["count"])

	resp, _ = suite.do(http.MethodGet, "/metrics", nil)
	suite.Equal(http.StatusOK, resp.StatusCode)
}

func (suite *ApplicationTestSuite) TestMetricsCountWalletEvents() {
	_, err := suite.app.Wallets.CreateWallet(context.Background(), serviceRequest("metrics-wallet"))
	suite.Require().NoError(err)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := suite.app.API.App().Test(req, -1)
	suite.Require().NoError(err)
	raw, err := io.ReadAll(resp.Body)
	suite.Require().NoError(err)
	suite.Contains(string(raw), `wallet_backend_wallet_events_total{event="deployed"} 1`)
}

func serviceRequest(name string) services.CreateWalletRequest {
	return services.CreateWalletRequest{
		Name:             name,
		Signers:          []string{"alice-principal"},
		CreatorPrincipal: "alice-principal",
	}
}

func TestApplicationTestSuite(t *testing.T) {
	suite.Run(t, new(ApplicationTestSuite))
}

func TestInitializeRejectsUnknownDatabaseURL(t *testing.T) {
	cfg := testConfig("./wallet.wasm")
	cfg.Database.URL = "mysql://localhost/wallets"

	_, err := Initialize(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize database service")
}

func TestInitializeGuardsAPIWithJWKS(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	key, err := jwk.FromRaw(&privateKey.PublicKey)
	require.NoError(t, err)
	require.NoError(t, key.Set(jwk.KeyIDKey, "issuer-key"))
	require.NoError(t, key.Set(jwk.AlgorithmKey, "RS256"))
	set := jwk.NewSet()
	require.NoError(t, set.AddKey(key))

	jwks := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(set)
	}))
	defer jwks.Close()

	path := filepath.Join(t.TempDir(), "wallet.wasm")
	require.NoError(t, os.WriteFile(path, []byte("\x00asm\x01\x00\x00\x00"), 0o600))
	cfg := testConfig(path)
	cfg.Auth.JWKSURI = jwks.URL
	cfg.Auth.JWKSCacheTTL = time.Minute

	app, err := Initialize(context.Background(), cfg, zap.NewNop(),
		WithAgentOptions(icp.WithTransportFactory(icptest.NewReplica().Factory())),
	)
	require.NoError(t, err)
	defer app.Close()

	resp, err := app.API.App().Test(httptest.NewRequest(http.MethodGet, "/api/wallets?principal=alice-principal", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub": "ops",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	token.Header["kid"] = "issuer-key"
	signed, err := token.SignedString(privateKey)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/wallets?principal=alice-principal", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	resp, err = app.API.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
