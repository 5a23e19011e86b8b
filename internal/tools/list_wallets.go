package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rxtech-lab/wallet-canister-backend/internal/models"
	"github.com/rxtech-lab/wallet-canister-backend/internal/services"
)

type listWalletsTool struct {
	walletService services.WalletService
}

type ListWalletsArguments struct {
	Principal string `json:"principal,omitempty"`
}

func NewListWalletsTool(walletService services.WalletService) *listWalletsTool {
	return &listWalletsTool{walletService: walletService}
}

func (l *listWalletsTool) GetTool() mcp.Tool {
	return mcp.NewTool("list_wallets",
		mcp.WithDescription("List wallets, newest first. When a principal is given only wallets it signs for are returned."),
		mcp.WithString("principal",
			mcp.Description("Signer principal to filter by. Leave empty to list every wallet."),
		),
	)
}

func (l *listWalletsTool) GetHandler() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args ListWalletsArguments
		if err := request.BindArguments(&args); err != nil {
			return nil, fmt.Errorf("failed to bind arguments: %w", err)
		}

		var (
			wallets []models.Wallet
			err     error
		)
		if args.Principal != "" {
			wallets, err = l.walletService.ListWalletsByPrincipal(ctx, args.Principal)
		} else {
			wallets, err = l.walletService.ListWallets(ctx)
		}
		if err != nil {
			return serviceError("listing wallets", err), nil
		}

		return textResult(fmt.Sprintf("Wallets listed: %d", len(wallets)), walletResponses(wallets))
	}
}
