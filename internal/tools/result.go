package tools

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rxtech-lab/wallet-canister-backend/internal/models"
	"github.com/rxtech-lab/wallet-canister-backend/internal/services"
)

// textResult renders data as indented JSON behind a short headline
func textResult(headline string, data any) (*mcp.CallToolResult, error) {
	body, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(headline),
			mcp.NewTextContent(string(body)),
		},
	}, nil
}

// serviceError turns a wallet service failure into a tool error result
func serviceError(action string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, services.ErrValidation):
		return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err))
	case errors.Is(err, services.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("Wallet not found: %v", err))
	default:
		return mcp.NewToolResultError(fmt.Sprintf("Error %s: %v", action, err))
	}
}

func walletResponses(wallets []models.Wallet) []models.WalletResponse {
	responses := make([]models.WalletResponse, 0, len(wallets))
	for i := range wallets {
		responses = append(responses, wallets[i].ToResponse())
	}
	return responses
}
