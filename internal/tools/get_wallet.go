package tools

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rxtech-lab/wallet-canister-backend/internal/services"
)

type getWalletTool struct {
	walletService services.WalletService
}

type GetWalletArguments struct {
	CanisterID string `json:"canister_id" validate:"required"`
}

func NewGetWalletTool(walletService services.WalletService) *getWalletTool {
	return &getWalletTool{walletService: walletService}
}

func (g *getWalletTool) GetTool() mcp.Tool {
	return mcp.NewTool("get_wallet",
		mcp.WithDescription("Get a wallet record with its signers and lifecycle events by canister ID"),
		mcp.WithString("canister_id",
			mcp.Required(),
			mcp.Description("Canister ID of the wallet"),
		),
	)
}

func (g *getWalletTool) GetHandler() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args GetWalletArguments
		if err := request.BindArguments(&args); err != nil {
			return nil, fmt.Errorf("failed to bind arguments: %w", err)
		}

		if err := validator.New().Struct(args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}

		wallet, err := g.walletService.GetWallet(ctx, args.CanisterID)
		if err != nil {
			return serviceError("retrieving wallet", err), nil
		}

		return textResult("Wallet details: ", wallet.ToResponse())
	}
}
