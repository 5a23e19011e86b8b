package tools

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rxtech-lab/wallet-canister-backend/internal/services"
	"github.com/rxtech-lab/wallet-canister-backend/internal/utils"
)

type createWalletTool struct {
	walletService services.WalletService
}

type CreateWalletArguments struct {
	// Required fields
	Name    string   `json:"name" validate:"required"`
	Signers []string `json:"signers" validate:"required,min=1"`

	// Optional fields
	CreatorPrincipal string         `json:"creator_principal,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

func NewCreateWalletTool(walletService services.WalletService) *createWalletTool {
	return &createWalletTool{
		walletService: walletService,
	}
}

func (c *createWalletTool) GetTool() mcp.Tool {
	return mcp.NewTool("create_wallet",
		mcp.WithDescription("Deploy a new multi-signature wallet canister on the Internet Computer. Creates the canister, records the wallet and its signers, then installs the wallet code. The returned status is 'deployed' on success or 'failed' when the install step failed."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Human readable name of the wallet"),
		),
		mcp.WithArray("signers",
			mcp.Required(),
			mcp.Description("Principals allowed to sign for the wallet (e.g., [\"aaaaa-aa\"]). Duplicates are ignored."),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithString("creator_principal",
			mcp.Description("Principal of the wallet creator. Defaults to the principal of the authenticated caller."),
		),
		mcp.WithObject("metadata",
			mcp.Description("Free-form JSON object stored with the wallet"),
		),
	)
}

func (c *createWalletTool) GetHandler() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args CreateWalletArguments
		if err := request.BindArguments(&args); err != nil {
			return nil, fmt.Errorf("failed to bind arguments: %w", err)
		}

		if err := validator.New().Struct(args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}

		creator := args.CreatorPrincipal
		if creator == "" {
			if user, ok := utils.GetAuthenticatedUser(ctx); ok {
				creator = user.Principal
			}
		}
		if creator == "" {
			return mcp.NewToolResultError("Invalid arguments: creator_principal is required when the caller has no principal"), nil
		}

		wallet, err := c.walletService.CreateWallet(ctx, services.CreateWalletRequest{
			Name:             args.Name,
			Signers:          args.Signers,
			CreatorPrincipal: creator,
			Metadata:         args.Metadata,
		})
		if err != nil {
			return serviceError("creating wallet", err), nil
		}

		return textResult("Wallet created successfully: ", wallet.ToResponse())
	}
}
