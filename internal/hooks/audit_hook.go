package hooks

import (
	"context"

	"github.com/rxtech-lab/wallet-canister-backend/internal/models"
	"github.com/rxtech-lab/wallet-canister-backend/internal/services"
	"github.com/rxtech-lab/wallet-canister-backend/internal/utils"
	"go.uber.org/zap"
)

// AuditHook writes one structured log line per lifecycle event
type AuditHook struct {
	logger *zap.Logger
}

// CanHandle implements Hook.
func (h *AuditHook) CanHandle(event models.WalletEventType) bool {
	return true
}

// OnWalletEvent implements Hook.
func (h *AuditHook) OnWalletEvent(ctx context.Context, event models.WalletEventType, wallet *models.Wallet) error {
	fields := []zap.Field{
		zap.String("event", string(event)),
		zap.String("canister_id", wallet.CanisterID),
		zap.String("name", wallet.Name),
		zap.String("created_by", utils.ShortPrincipal(wallet.Deployment.CreatedBy)),
	}

	switch event {
	case models.WalletEventOrphaned:
		// no record exists to find this canister later; the log line is the only trace
		h.logger.Error("Orphaned canister requires manual cleanup",
			append(fields, zap.String("error", wallet.Deployment.Error))...)
	case models.WalletEventFailed:
		h.logger.Warn("Wallet deployment failed", append(fields, zap.String("error", wallet.Deployment.Error))...)
	default:
		if wallet.WasmHash != nil {
			fields = append(fields, zap.String("wasm_hash", *wallet.WasmHash))
		}
		h.logger.Info("Wallet lifecycle event", fields...)
	}
	return nil
}

func NewAuditHook(logger *zap.Logger) services.Hook {
	return &AuditHook{
		logger: logger,
	}
}
