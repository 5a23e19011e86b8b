package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/rxtech-lab/wallet-canister-backend/internal/icp"
	"github.com/rxtech-lab/wallet-canister-backend/internal/models"
	"github.com/rxtech-lab/wallet-canister-backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGetWalletHandler(t *testing.T) {
	svc := &mockWalletService{}
	svc.On("GetWallet", mock.Anything, "cid-1").Return(sampleWallet("cid-1", models.WalletStatusDeployed), nil)
	svc.On("GetWallet", mock.Anything, "missing").Return(nil, fmt.Errorf("%w: wallet missing", services.ErrNotFound))

	tool := NewGetWalletTool(svc)
	assert.Equal(t, "get_wallet", tool.GetTool().Name)
	assert.Contains(t, tool.GetTool().InputSchema.Properties, "canister_id")

	result, err := tool.GetHandler()(context.Background(), callRequest(map[string]interface{}{"canister_id": "cid-1"}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Contains(t, resultText(result, 1), `"canister_id": "cid-1"`)

	result, err = tool.GetHandler()(context.Background(), callRequest(map[string]interface{}{"canister_id": "missing"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(result, 0), "Wallet not found")

	result, err = tool.GetHandler()(context.Background(), callRequest(map[string]interface{}{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(result, 0), "Invalid arguments")
}

func TestListWalletsHandler(t *testing.T) {
	svc := &mockWalletService{}
	svc.On("ListWallets", mock.Anything).Return([]models.Wallet{
		*sampleWallet("cid-2", models.WalletStatusDeployed),
		*sampleWallet("cid-1", models.WalletStatusFailed),
	}, nil)
	svc.On("ListWalletsByPrincipal", mock.Anything, "signer-a").Return([]models.Wallet{
		*sampleWallet("cid-1", models.WalletStatusFailed),
	}, nil)

	tool := NewListWalletsTool(svc)
	assert.Equal(t, "list_wallets", tool.GetTool().Name)
	assert.Empty(t, tool.GetTool().InputSchema.Required)

	result, err := tool.GetHandler()(context.Background(), callRequest(map[string]interface{}{}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, "Wallets listed: 2", resultText(result, 0))

	var listed []models.WalletResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(result, 1)), &listed))
	require.Len(t, listed, 2)
	assert.Equal(t, "cid-2", listed[0].CanisterID)

	result, err = tool.GetHandler()(context.Background(), callRequest(map[string]interface{}{"principal": "signer-a"}))
	require.NoError(t, err)
	assert.Equal(t, "Wallets listed: 1", resultText(result, 0))
	svc.AssertExpectations(t)
}

func TestListWalletsHandler_EmptyListIsArray(t *testing.T) {
	svc := &mockWalletService{}
	svc.On("ListWallets", mock.Anything).Return([]models.Wallet(nil), nil)

	result, err := NewListWalletsTool(svc).GetHandler()(context.Background(), callRequest(map[string]interface{}{}))
	require.NoError(t, err)
	assert.Equal(t, "[]", resultText(result, 1))
}

func TestDeleteWalletHandler(t *testing.T) {
	stopped := sampleWallet("cid-1", models.WalletStatusStopped)
	svc := &mockWalletService{}
	svc.On("DeleteWallet", mock.Anything, "cid-1").Return(stopped, nil)
	svc.On("DeleteWallet", mock.Anything, "cid-2").Return(nil, fmt.Errorf("%w: wallet is failed", services.ErrInvalidTransition))
	svc.On("DeleteWallet", mock.Anything, "cid-3").Return(nil, fmt.Errorf("%w: canister cid-3", services.ErrResourceNotLive))

	tool := NewDeleteWalletTool(svc)
	assert.Equal(t, "delete_wallet", tool.GetTool().Name)

	result, err := tool.GetHandler()(context.Background(), callRequest(map[string]interface{}{"canister_id": "cid-1"}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Contains(t, resultText(result, 0), "Wallet deleted successfully")
	assert.Contains(t, resultText(result, 1), `"status": "stopped"`)

	for _, id := range []string{"cid-2", "cid-3"} {
		result, err = tool.GetHandler()(context.Background(), callRequest(map[string]interface{}{"canister_id": id}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, resultText(result, 0), "Wallet cannot be deleted")
	}
}

func TestGetWalletStatusHandler(t *testing.T) {
	svc := &mockWalletService{}
	svc.On("GetWalletStatus", mock.Anything, "cid-1").Return(&icp.SimplifiedCanisterStatus{
		Status:     icp.CanisterRunning,
		Cycles:     "1000000000000",
		MemorySize: "2048",
	}, nil)
	svc.On("GetWalletStatus", mock.Anything, "cid-2").Return(nil, fmt.Errorf("%w: replica down", icp.ErrStatusQuery))

	tool := NewGetWalletStatusTool(svc)
	assert.Equal(t, "get_wallet_status", tool.GetTool().Name)

	result, err := tool.GetHandler()(context.Background(), callRequest(map[string]interface{}{"canister_id": "cid-1"}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var status icp.SimplifiedCanisterStatus
	require.NoError(t, json.Unmarshal([]byte(resultText(result, 1)), &status))
	assert.Equal(t, "1000000000000", status.Cycles)

	result, err = tool.GetHandler()(context.Background(), callRequest(map[string]interface{}{"canister_id": "cid-2"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(result, 0), "Error querying canister status")
}
