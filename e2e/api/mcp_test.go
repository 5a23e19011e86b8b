package api

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rxtech-lab/wallet-canister-backend/internal/models"
	"github.com/stretchr/testify/suite"
)

// MCPTestSuite drives the streamable MCP endpoint with a real client
type MCPTestSuite struct {
	suite.Suite
	setup      *TestSetup
	authHelper *AuthTestHelper
	client     *client.Client
	ctx        context.Context
	cancel     context.CancelFunc
}

func (s *MCPTestSuite) SetupSuite() {
	s.authHelper = NewAuthTestHelper(s.T())
	s.setup = NewTestSetup(s.T(), s.authHelper.GetJWTSecret())
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 30*time.Second)

	token := s.authHelper.CreateSignerToken("mcp-user", "carol-principal")
	mcpClient, err := client.NewStreamableHttpClient(s.setup.BaseURL+"/mcp",
		transport.WithHTTPHeaders(map[string]string{"Authorization": "Bearer " + token}),
	)
	s.Require().NoError(err)
	s.Require().NoError(mcpClient.Start(s.ctx))

	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{Name: "e2e-client", Version: "1.0.0"}
	_, err = mcpClient.Initialize(s.ctx, initRequest)
	s.Require().NoError(err)
	s.client = mcpClient
}

func (s *MCPTestSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Close()
	}
	s.cancel()
	s.setup.Cleanup()
}

func (s *MCPTestSuite) callTool(name string, arguments map[string]interface{}) *mcp.CallToolResult {
	request := mcp.CallToolRequest{}
	request.Params.Name = name
	request.Params.Arguments = arguments

	result, err := s.client.CallTool(s.ctx, request)
	s.Require().NoError(err)
	return result
}

func (s *MCPTestSuite) TestListToolsExposesWalletTools() {
	tools, err := s.client.ListTools(s.ctx, mcp.ListToolsRequest{})
	s.Require().NoError(err)

	names := make([]string, 0, len(tools.Tools))
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	s.ElementsMatch([]string{
		"create_wallet", "get_wallet", "list_wallets", "delete_wallet", "get_wallet_status", "get_backend_identity",
	}, names)
}

func (s *MCPTestSuite) TestCreateWalletUsesCallerPrincipal() {
	result := s.callTool("create_wallet", map[string]interface{}{
		"name":    "mcp-wallet",
		"signers": []string{"carol-principal"},
	})
	s.Require().False(result.IsError, result.Content)
	s.Require().Len(result.Content, 2)

	var wallet models.WalletResponse
	s.Require().NoError(json.Unmarshal([]byte(result.Content[1].(mcp.TextContent).Text), &wallet))
	s.Equal(models.WalletStatusDeployed, wallet.Status)
	s.Equal("carol-principal", wallet.Metadata["createdBy"])

	listed := s.callTool("list_wallets", map[string]interface{}{"principal": "carol-principal"})
	s.False(listed.IsError)
	s.Contains(listed.Content[1].(mcp.TextContent).Text, wallet.CanisterID)
}

func (s *MCPTestSuite) TestBackendIdentity() {
	result := s.callTool("get_backend_identity", map[string]interface{}{})
	s.Require().False(result.IsError)
	s.Contains(result.Content[1].(mcp.TextContent).Text, "d75a980182b10ab7d54bfed3c964073a0ee172f3daa62325af021a68f707511a")
}

func TestMCPSuite(t *testing.T) {
	suite.Run(t, new(MCPTestSuite))
}
