package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rxtech-lab/wallet-canister-backend/internal/icp"
)

// IdentityInfo describes the backend identity that controls every wallet canister
type IdentityInfo interface {
	GetPrincipal() (string, error)
	GetPublicKey() (string, error)
}

// AssetInfoProvider exposes what is known about the wallet code payload
type AssetInfoProvider interface {
	AssetInfo() icp.AssetInfo
}

type getBackendIdentityTool struct {
	identity IdentityInfo
	assets   AssetInfoProvider
}

type backendIdentity struct {
	Principal string        `json:"principal"`
	PublicKey string        `json:"public_key"`
	WasmAsset icp.AssetInfo `json:"wasm_asset"`
}

func NewGetBackendIdentityTool(identity IdentityInfo, assets AssetInfoProvider) *getBackendIdentityTool {
	return &getBackendIdentityTool{identity: identity, assets: assets}
}

func (g *getBackendIdentityTool) GetTool() mcp.Tool {
	return mcp.NewTool("get_backend_identity",
		mcp.WithDescription("Show the principal and public key of the backend identity that controls deployed wallet canisters, plus the wallet code asset in use"),
	)
}

func (g *getBackendIdentityTool) GetHandler() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		principal, err := g.identity.GetPrincipal()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Error loading backend identity: %v", err)), nil
		}
		publicKey, err := g.identity.GetPublicKey()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Error loading backend identity: %v", err)), nil
		}

		return textResult("Backend identity: ", backendIdentity{
			Principal: principal,
			PublicKey: publicKey,
			WasmAsset: g.assets.AssetInfo(),
		})
	}
}
