package tools

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rxtech-lab/wallet-canister-backend/internal/services"
)

type getWalletStatusTool struct {
	walletService services.WalletService
}

type GetWalletStatusArguments struct {
	CanisterID string `json:"canister_id" validate:"required"`
}

func NewGetWalletStatusTool(walletService services.WalletService) *getWalletStatusTool {
	return &getWalletStatusTool{walletService: walletService}
}

func (g *getWalletStatusTool) GetTool() mcp.Tool {
	return mcp.NewTool("get_wallet_status",
		mcp.WithDescription("Query the live canister status (running, stopping or stopped), cycle balance and memory size of a wallet"),
		mcp.WithString("canister_id",
			mcp.Required(),
			mcp.Description("Canister ID of the wallet"),
		),
	)
}

func (g *getWalletStatusTool) GetHandler() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args GetWalletStatusArguments
		if err := request.BindArguments(&args); err != nil {
			return nil, fmt.Errorf("failed to bind arguments: %w", err)
		}

		if err := validator.New().Struct(args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}

		status, err := g.walletService.GetWalletStatus(ctx, args.CanisterID)
		if err != nil {
			return serviceError("querying canister status", err), nil
		}

		return textResult("Canister status: ", status)
	}
}
