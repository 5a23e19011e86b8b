package mcp

import (
	"context"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rxtech-lab/wallet-canister-backend/internal/services"
	"github.com/rxtech-lab/wallet-canister-backend/internal/tools"
	"github.com/rxtech-lab/wallet-canister-backend/internal/utils"
	"go.uber.org/zap"
)

const (
	serverName    = "Wallet Canister MCP Server"
	serverVersion = "1.0.0"
)

type MCPServer struct {
	server        *server.MCPServer
	authenticator *utils.JwtAuthenticator
	logger        *zap.Logger
}

type Option func(*MCPServer)

// WithAuthenticator resolves the caller of HTTP sessions from their bearer token
func WithAuthenticator(authenticator *utils.JwtAuthenticator) Option {
	return func(s *MCPServer) {
		if authenticator != nil && authenticator.Enabled() {
			s.authenticator = authenticator
		}
	}
}

func NewMCPServer(wallets services.WalletService, identity tools.IdentityInfo, assets tools.AssetInfoProvider, logger *zap.Logger, opts ...Option) *MCPServer {
	mcpServer := &MCPServer{logger: logger}
	for _, opt := range opts {
		opt(mcpServer)
	}
	mcpServer.InitializeTools(wallets, identity, assets)
	return mcpServer
}

type toolDefinition interface {
	GetTool() mcp.Tool
	GetHandler() server.ToolHandlerFunc
}

func (s *MCPServer) InitializeTools(wallets services.WalletService, identity tools.IdentityInfo, assets tools.AssetInfoProvider) {
	srv := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	srv.AddPrompt(mcp.NewPrompt("wallet-backend-usage",
		mcp.WithPromptDescription("Instructions and guidance for using the wallet canister tools"),
	), func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return mcp.NewGetPromptResult(
			"Wallet Canister Tools",
			[]mcp.PromptMessage{
				mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(usageInstructions)),
			},
		), nil
	})

	definitions := []toolDefinition{
		// Wallet lifecycle
		tools.NewCreateWalletTool(wallets),
		tools.NewDeleteWalletTool(wallets),
		// Read-only
		tools.NewGetWalletTool(wallets),
		tools.NewListWalletsTool(wallets),
		tools.NewGetWalletStatusTool(wallets),
		tools.NewGetBackendIdentityTool(identity, assets),
	}
	for _, definition := range definitions {
		srv.AddTool(definition.GetTool(), definition.GetHandler())
	}

	s.server = srv
}

// Server exposes the underlying MCP server
func (s *MCPServer) Server() *server.MCPServer {
	return s.server
}

// HTTPHandler returns the streamable HTTP transport for mounting on the API server
func (s *MCPServer) HTTPHandler() http.Handler {
	return server.NewStreamableHTTPServer(s.server,
		server.WithHTTPContextFunc(s.authenticateRequest),
	)
}

// Start serves the MCP protocol over stdin/stdout until the input closes
func (s *MCPServer) Start() error {
	return server.ServeStdio(s.server)
}

// authenticateRequest attaches the bearer token's user to the request context when it validates
func (s *MCPServer) authenticateRequest(ctx context.Context, r *http.Request) context.Context {
	if s.authenticator == nil {
		return ctx
	}

	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return ctx
	}

	user, err := s.authenticator.ValidateToken(strings.TrimSpace(token))
	if err != nil {
		s.logger.Debug("Ignoring invalid MCP bearer token", zap.Error(err))
		return ctx
	}
	return utils.WithAuthenticatedUser(ctx, user)
}

const usageInstructions = `WALLET CANISTER TOOLS

LIFECYCLE:
- create_wallet: Deploy a new wallet canister with a name and signer principals
- delete_wallet: Stop and delete a deployed wallet canister

QUERIES:
- get_wallet: Wallet record, signers and lifecycle events
- list_wallets: All wallets, or those a principal signs for
- get_wallet_status: Live canister status, cycles and memory
- get_backend_identity: Principal controlling every wallet canister

Wallet status moves forward only: deploying, then deployed or failed, then stopped.
Only deployed wallets can be deleted.`
