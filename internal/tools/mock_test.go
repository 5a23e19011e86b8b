package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rxtech-lab/wallet-canister-backend/internal/icp"
	"github.com/rxtech-lab/wallet-canister-backend/internal/models"
	"github.com/rxtech-lab/wallet-canister-backend/internal/services"
	"github.com/stretchr/testify/mock"
)

type mockWalletService struct {
	mock.Mock
}

var _ services.WalletService = (*mockWalletService)(nil)

func (m *mockWalletService) CreateWallet(ctx context.Context, req services.CreateWalletRequest) (*models.Wallet, error) {
	args := m.Called(ctx, req)
	wallet, _ := args.Get(0).(*models.Wallet)
	return wallet, args.Error(1)
}

func (m *mockWalletService) GetWallet(ctx context.Context, canisterID string) (*models.Wallet, error) {
	args := m.Called(ctx, canisterID)
	wallet, _ := args.Get(0).(*models.Wallet)
	return wallet, args.Error(1)
}

func (m *mockWalletService) GetWalletForSigner(ctx context.Context, walletID string, principal string) (*models.Wallet, error) {
	args := m.Called(ctx, walletID, principal)
	wallet, _ := args.Get(0).(*models.Wallet)
	return wallet, args.Error(1)
}

func (m *mockWalletService) ListWallets(ctx context.Context) ([]models.Wallet, error) {
	args := m.Called(ctx)
	wallets, _ := args.Get(0).([]models.Wallet)
	return wallets, args.Error(1)
}

func (m *mockWalletService) ListWalletsByPrincipal(ctx context.Context, principal string) ([]models.Wallet, error) {
	args := m.Called(ctx, principal)
	wallets, _ := args.Get(0).([]models.Wallet)
	return wallets, args.Error(1)
}

func (m *mockWalletService) DeleteWallet(ctx context.Context, canisterID string) (*models.Wallet, error) {
	args := m.Called(ctx, canisterID)
	wallet, _ := args.Get(0).(*models.Wallet)
	return wallet, args.Error(1)
}

func (m *mockWalletService) GetWalletStatus(ctx context.Context, canisterID string) (*icp.SimplifiedCanisterStatus, error) {
	args := m.Called(ctx, canisterID)
	status, _ := args.Get(0).(*icp.SimplifiedCanisterStatus)
	return status, args.Error(1)
}

func callRequest(arguments map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: arguments,
		},
	}
}

func resultText(result *mcp.CallToolResult, index int) string {
	return result.Content[index].(mcp.TextContent).Text
}

func sampleWallet(canisterID string, status models.WalletStatus) *models.Wallet {
	return &models.Wallet{
		ID:         "wallet-" + canisterID,
		CanisterID: canisterID,
		Name:       "Treasury",
		Status:     status,
	}
}
