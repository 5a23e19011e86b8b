package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rxtech-lab/wallet-canister-backend/internal/services"
)

type deleteWalletTool struct {
	walletService services.WalletService
}

type DeleteWalletArguments struct {
	CanisterID string `json:"canister_id" validate:"required"`
}

func NewDeleteWalletTool(walletService services.WalletService) *deleteWalletTool {
	return &deleteWalletTool{walletService: walletService}
}

func (d *deleteWalletTool) GetTool() mcp.Tool {
	return mcp.NewTool("delete_wallet",
		mcp.WithDescription("Stop and delete a deployed wallet canister. The wallet record is kept with status 'stopped'. Only wallets in 'deployed' status whose canister is reachable can be deleted."),
		mcp.WithString("canister_id",
			mcp.Required(),
			mcp.Description("Canister ID of the wallet to delete"),
		),
	)
}

func (d *deleteWalletTool) GetHandler() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args DeleteWalletArguments
		if err := request.BindArguments(&args); err != nil {
			return nil, fmt.Errorf("failed to bind arguments: %w", err)
		}

		if err := validator.New().Struct(args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}

		wallet, err := d.walletService.DeleteWallet(ctx, args.CanisterID)
		if err != nil {
			if errors.Is(err, services.ErrInvalidTransition) || errors.Is(err, services.ErrResourceNotLive) {
				return mcp.NewToolResultError(fmt.Sprintf("Wallet cannot be deleted: %v", err)), nil
			}
			return serviceError("deleting wallet", err), nil
		}

		return textResult("Wallet deleted successfully: ", wallet.ToResponse())
	}
}
