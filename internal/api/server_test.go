package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/rxtech-lab/wallet-canister-backend/internal/config"
	"github.com/rxtech-lab/wallet-canister-backend/internal/icp"
	"github.com/rxtech-lab/wallet-canister-backend/internal/icp/icptest"
	"github.com/rxtech-lab/wallet-canister-backend/internal/metrics"
	"github.com/rxtech-lab/wallet-canister-backend/internal/services"
	"github.com/rxtech-lab/wallet-canister-backend/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

const testSeedHex = "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Count   *int            `json:"count"`
}

type APIServerTestSuite struct {
	suite.Suite
	db      services.DBService
	replica *icptest.Replica
	server  *APIServer
}

func (suite *APIServerTestSuite) SetupTest() {
	db, err := services.NewSqliteDBService(":memory:")
	suite.Require().NoError(err)
	suite.db = db

	path := filepath.Join(suite.T().TempDir(), "wallet.wasm")
	suite.Require().NoError(os.WriteFile(path, []byte("\x00asm\x01\x00\x00\x00"), 0o600))
	loader := icp.NewWasmLoader(&icp.FileSource{Path: path}, zap.NewNop())

	suite.replica = icptest.NewReplica()
	agent := icp.NewAgent(icp.AgentConfig{
		ReplicaURL: "http://localhost:4943",
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	}, icp.NewIdentityProvider(testSeedHex, zap.NewNop()), zap.NewNop(), icp.WithTransportFactory(suite.replica.Factory()))
	manager := icp.NewCanisterManager(agent, loader, icp.NewCreationStrategy(true, big.NewInt(1_000_000)), zap.NewNop())

	wallets := services.NewWalletService(services.NewWalletStore(db.GetDB()), manager, agent.RetryPolicy(), services.NewHookService(), zap.NewNop())
	health := services.NewHealthService(db, agent, loader)

	suite.server = NewAPIServer(config.AppConfig{APIPrefix: "api", CorsOrigin: "*"}, wallets, health, zap.NewNop(),
		WithMetricsHandler(metrics.New().Handler()))
}

func (suite *APIServerTestSuite) TearDownTest() {
	suite.db.Close()
}

func (suite *APIServerTestSuite) do(method, path string, body interface{}) (*http.Response, envelope) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := suite.server.App().Test(req, -1)
	suite.Require().NoError(err)

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	suite.Require().NoError(err)
	_ = json.Unmarshal(raw, &env)
	return resp, env
}

func (suite *APIServerTestSuite) createWallet() map[string]interface{} {
	resp, env := suite.do("POST", "/api/wallets", map[string]interface{}{
		"name":              "team-wallet",
		"signers":           []string{"alice-principal", "bob-principal"},
		"creator_principal": "alice-principal",
	})
	suite.Require().Equal(fiber.StatusCreated, resp.StatusCode, env.Error)
	suite.True(env.Success)

	var wallet map[string]interface{}
	suite.Require().NoError(json.Unmarshal(env.Data, &wallet))
	return wallet
}

func (suite *APIServerTestSuite) TestCreateAndGetWallet() {
	wallet := suite.createWallet()
	suite.Equal("deployed", wallet["status"])
	suite.Equal(true, wallet["is_active"])
	suite.NotEmpty(wallet["wasm_hash"])
	suite.Len(wallet["signers"], 2)
	metadata := wallet["metadata"].(map[string]interface{})
	suite.Equal("alice-principal", metadata["createdBy"])

	canisterID := wallet["canister_id"].(string)
	resp, env := suite.do("GET", "/api/wallets/"+canisterID, nil)
	suite.Equal(fiber.StatusOK, resp.StatusCode)
	suite.True(env.Success)
}

func (suite *APIServerTestSuite) TestCreateWalletValidation() {
	resp, env := suite.do("POST", "/api/wallets", map[string]interface{}{
		"name":              "",
		"signers":           []string{},
		"creator_principal": "alice-principal",
	})
	suite.Equal(fiber.StatusBadRequest, resp.StatusCode)
	suite.False(env.Success)

	req := httptest.NewRequest("POST", "/api/wallets", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	raw, err := suite.server.App().Test(req)
	suite.Require().NoError(err)
	suite.Equal(fiber.StatusBadRequest, raw.StatusCode)
}

func (suite *APIServerTestSuite) TestCreateWalletRemoteFailure() {
	suite.replica.FailNext("provisional_create_canister_with_cycles", icptest.ErrUnreachable)
	resp, env := suite.do("POST", "/api/wallets", map[string]interface{}{
		"name":              "team-wallet",
		"signers":           []string{"alice-principal"},
		"creator_principal": "alice-principal",
	})
	suite.Equal(fiber.StatusBadGateway, resp.StatusCode)
	suite.False(env.Success)
}

func (suite *APIServerTestSuite) TestListWallets() {
	suite.createWallet()

	resp, env := suite.do("GET", "/api/wallets?principal=bob-principal", nil)
	suite.Equal(fiber.StatusOK, resp.StatusCode)
	suite.Require().NotNil(env.Count)
	suite.Equal(1, *env.Count)

	resp, env = suite.do("GET", "/api/wallets?principal=nobody", nil)
	suite.Equal(fiber.StatusOK, resp.StatusCode)
	suite.Equal(0, *env.Count)
	suite.JSONEq(`[]`, string(env.Data))

	resp, _ = suite.do("GET", "/api/wallets", nil)
	suite.Equal(fiber.StatusBadRequest, resp.StatusCode)
}

func (suite *APIServerTestSuite) TestStatusAndDelete() {
	canisterID := suite.createWallet()["canister_id"].(string)

	resp, env := suite.do("GET", "/api/wallets/"+canisterID+"/status", nil)
	suite.Equal(fiber.StatusOK, resp.StatusCode)
	var status map[string]interface{}
	suite.Require().NoError(json.Unmarshal(env.Data, &status))
	suite.Equal("running", status["status"])
	suite.Equal("1000000", status["cycles"])

	resp, env = suite.do("DELETE", "/api/wallets/"+canisterID, nil)
	suite.Equal(fiber.StatusOK, resp.StatusCode)
	suite.Equal("Wallet deleted successfully", env.Message)

	resp, _ = suite.do("DELETE", "/api/wallets/"+canisterID, nil)
	suite.Equal(fiber.StatusConflict, resp.StatusCode)
}

func (suite *APIServerTestSuite) TestUnknownWallet() {
	for _, tc := range []struct{ method, path string }{
		{"GET", "/api/wallets/rrkah-fqaaa-aaaaa-aaaaq-cai"},
		{"GET", "/api/wallets/rrkah-fqaaa-aaaaa-aaaaq-cai/status"},
		{"DELETE", "/api/wallets/rrkah-fqaaa-aaaaa-aaaaq-cai"},
	} {
		resp, env := suite.do(tc.method, tc.path, nil)
		suite.Equal(fiber.StatusNotFound, resp.StatusCode, tc.method+" "+tc.path)
		suite.False(env.Success)
	}
	suite.Empty(suite.replica.Calls())
}

func (suite *APIServerTestSuite) TestHealth() {
	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := suite.server.App().Test(req)
	suite.Require().NoError(err)
	suite.Equal(fiber.StatusOK, resp.StatusCode)

	var report services.HealthReport
	suite.Require().NoError(json.NewDecoder(resp.Body).Decode(&report))
	suite.Equal("ok", report.Status)
	suite.Equal("up", report.Info.WasmAssets.Status)
	suite.Equal(8, report.Info.WasmAssets.WasmSize)

	suite.replica.FailNext("status", icptest.ErrUnreachable)
	resp, err = suite.server.App().Test(httptest.NewRequest("GET", "/health", nil))
	suite.Require().NoError(err)
	suite.Equal(fiber.StatusServiceUnavailable, resp.StatusCode)

	resp, err = suite.server.App().Test(httptest.NewRequest("GET", "/health/simple", nil))
	suite.Require().NoError(err)
	suite.Equal(fiber.StatusOK, resp.StatusCode)
}

func (suite *APIServerTestSuite) TestMetrics() {
	resp, err := suite.server.App().Test(httptest.NewRequest("GET", "/metrics", nil))
	suite.Require().NoError(err)
	suite.Equal(fiber.StatusOK, resp.StatusCode)
}

func TestAPIServerTestSuite(t *testing.T) {
	suite.Run(t, new(APIServerTestSuite))
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: name", services.ErrValidation), fiber.StatusBadRequest},
		{fmt.Errorf("%w: x", services.ErrNotFound), fiber.StatusNotFound},
		{fmt.Errorf("%w: %w", services.ErrResourceNotLive, icp.ErrStatusQuery), fiber.StatusConflict},
		{services.ErrInvalidTransition, fiber.StatusConflict},
		{fmt.Errorf("%w: boom", icp.ErrInstallation), fiber.StatusBadGateway},
		{fmt.Errorf("%w: boom", icp.ErrResourceDeletion), fiber.StatusBadGateway},
		{fmt.Errorf("%w: db", services.ErrOrphanedResource), fiber.StatusInternalServerError},
		{errors.New("unexpected"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, statusForError(tt.err), tt.err.Error())
	}
}

type nopWallets struct{ services.WalletService }

type nopHealth struct{}

func (nopHealth) Check(context.Context) services.HealthReport {
	return services.HealthReport{Status: "ok"}
}

func TestAPIRequiresTokenWhenSecretConfigured(t *testing.T) {
	server := NewAPIServer(config.AppConfig{APIPrefix: "api"}, nopWallets{}, nopHealth{}, zap.NewNop(),
		WithAuthenticator(utils.NewJwtAuthenticator("", utils.WithHMACSecret("secret"))))

	resp, err := server.App().Test(httptest.NewRequest("GET", "/api/wallets?principal=alice", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, err = server.App().Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "ops"}).SignedString([]byte("secret"))
	require.NoError(t, err)
	req := httptest.NewRequest("GET", "/api/wallets", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = server.App().Test(req)
	require.NoError(t, err)
	// authenticated, then rejected for the missing principal
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
