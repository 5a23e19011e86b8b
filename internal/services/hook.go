package services

import (
	"context"

	"github.com/rxtech-lab/wallet-canister-backend/internal/models"
)

// Hook is used to perform side actions when a wallet moves through its lifecycle
type Hook interface {
	// CanHandle is used to check if the hook wants the given event
	CanHandle(event models.WalletEventType) bool
	// OnWalletEvent is called after the event has been recorded. For orphaned events the wallet was never stored
	// and only CanisterID, Name and Deployment.CreatedBy are set.
	OnWalletEvent(ctx context.Context, event models.WalletEventType, wallet *models.Wallet) error
}
