package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rxtech-lab/wallet-canister-backend/internal/models"
)

type HookService interface {
	AddHook(hook Hook) error
	// OnWalletEvent runs every hook that can handle event; all hooks run even if one fails
	OnWalletEvent(ctx context.Context, event models.WalletEventType, wallet *models.Wallet) error
}

type hookService struct {
	mu    sync.RWMutex
	hooks []Hook
}

func NewHookService() HookService {
	return &hookService{
		hooks: []Hook{},
	}
}

func (h *hookService) AddHook(hook Hook) error {
	if hook == nil {
		return errors.New("hook must not be nil")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, hook)
	return nil
}

func (h *hookService) OnWalletEvent(ctx context.Context, event models.WalletEventType, wallet *models.Wallet) error {
	h.mu.RLock()
	hooks := append([]Hook(nil), h.hooks...)
	h.mu.RUnlock()

	var errs []error
	for _, hook := range hooks {
		if !hook.CanHandle(event) {
			continue
		}
		if err := hook.OnWalletEvent(ctx, event, wallet); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", hook, err))
		}
	}
	return errors.Join(errs...)
}
