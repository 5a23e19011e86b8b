package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/wallet-canister-backend/internal/config"
	"github.com/rxtech-lab/wallet-canister-backend/internal/icp"
	"github.com/rxtech-lab/wallet-canister-backend/internal/icp/icptest"
	"github.com/rxtech-lab/wallet-canister-backend/internal/server"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSeedHex = "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60"

// TestSetup runs the whole backend on a real port against an in-process replica
type TestSetup struct {
	t       *testing.T
	App     *server.Application
	Replica *icptest.Replica
	BaseURL string
}

// NewTestSetup starts the backend with bearer authentication enabled
func NewTestSetup(t *testing.T, jwtSecret string) *TestSetup {
	wasmPath := filepath.Join(t.TempDir(), "wallet.wasm")
	require.NoError(t, os.WriteFile(wasmPath, []byte("\x00asm\x01\x00\x00\x00"), 0o600))

	cfg := &config.Config{
		App: config.AppConfig{
			NodeEnv:    config.EnvDevelopment,
			CorsOrigin: "*",
			APIPrefix:  "api",
			LogLevel:   "error",
		},
		Database: config.DatabaseConfig{
			SQLitePath:        filepath.Join(t.TempDir(), "wallets.db"),
			ConnectionTimeout: time.Second,
			MaxConnections:    1,
		},
		ICP: config.ICPConfig{
			ReplicaURL:            "http://localhost:4943",
			BackendPrivateKey:     testSeedHex,
			CanisterWasmPath:      wasmPath,
			DefaultCanisterCycles: big.NewInt(1_000_000_000_000),
			FetchRootKey:          true,
			RequestTimeout:        5 * time.Second,
			MaxRetries:            3,
			RetryDelay:            time.Millisecond,
		},
		Auth: config.AuthConfig{JWTSecret: jwtSecret},
	}

	replica := icptest.NewReplica()
	app, err := server.Initialize(context.Background(), cfg, zap.NewNop(),
		server.WithAgentOptions(icp.WithTransportFactory(replica.Factory())),
	)
	require.NoError(t, err)

	port, err := app.API.Start(0)
	require.NoError(t, err)

	return &TestSetup{
		t:       t,
		App:     app,
		Replica: replica,
		BaseURL: fmt.Sprintf("http://localhost:%d", port),
	}
}

// Cleanup shuts the server down and closes the database
func (s *TestSetup) Cleanup() {
	if s.App != nil {
		_ = s.App.Close()
	}
}

func (s *TestSetup) MakeRequest(method, path, authHeader string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, s.BaseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: 10 * time.Second}
	return client.Do(req)
}

// DecodeBody reads a JSON response body and closes it
func DecodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	defer resp.Body.Close()
	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return decoded
}
