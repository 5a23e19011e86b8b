package hooks

import (
	"context"

	"github.com/rxtech-lab/wallet-canister-backend/internal/metrics"
	"github.com/rxtech-lab/wallet-canister-backend/internal/models"
	"github.com/rxtech-lab/wallet-canister-backend/internal/services"
)

type MetricsHook struct {
	metrics *metrics.Metrics
}

// CanHandle implements Hook.
func (h *MetricsHook) CanHandle(event models.WalletEventType) bool {
	return true
}

// OnWalletEvent implements Hook.
func (h *MetricsHook) OnWalletEvent(ctx context.Context, event models.WalletEventType, wallet *models.Wallet) error {
	h.metrics.WalletEvents.WithLabelValues(string(event)).Inc()
	if event == models.WalletEventOrphaned {
		h.metrics.OrphanedCanisters.Inc()
	}
	return nil
}

func NewMetricsHook(m *metrics.Metrics) services.Hook {
	return &MetricsHook{
		metrics: m,
	}
}
