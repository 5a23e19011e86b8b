package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/wallet-canister-backend/internal/icp"
	"github.com/rxtech-lab/wallet-canister-backend/internal/models"
	"go.uber.org/zap"
)

// ResourceManager is the remote side of the wallet lifecycle
type ResourceManager interface {
	CreateCanister(ctx context.Context) (*icp.CanisterCreateResult, error)
	InstallCode(ctx context.Context, canisterID string, initArg *string) (*icp.CanisterInstallResult, error)
	GetCanisterStatus(ctx context.Context, canisterID string) (*icp.SimplifiedCanisterStatus, error)
	DeleteCanister(ctx context.Context, canisterID string) error
}

type CreateWalletRequest struct {
	Name             string                 `json:"name" validate:"required,max=255"`
	Signers          []string               `json:"signers" validate:"required,min=1,dive,required,max=63"`
	CreatorPrincipal string                 `json:"creator_principal" validate:"required,max=63"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

type WalletService interface {
	// CreateWallet runs the deployment saga: create canister, register locally, install, finalize
	CreateWallet(ctx context.Context, req CreateWalletRequest) (*models.Wallet, error)
	GetWallet(ctx context.Context, canisterID string) (*models.Wallet, error)
	GetWalletForSigner(ctx context.Context, walletID string, principal string) (*models.Wallet, error)
	ListWallets(ctx context.Context) ([]models.Wallet, error)
	ListWalletsByPrincipal(ctx context.Context, principal string) ([]models.Wallet, error)
	// DeleteWallet deletes the canister once it is confirmed live, then marks the wallet stopped
	DeleteWallet(ctx context.Context, canisterID string) (*models.Wallet, error)
	// GetWalletStatus returns the live remote status of a locally known wallet
	GetWalletStatus(ctx context.Context, canisterID string) (*icp.SimplifiedCanisterStatus, error)
}

type walletService struct {
	store     WalletStore
	resources ResourceManager
	retry     icp.RetryPolicy
	hooks     HookService
	validate  *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

func NewWalletService(store WalletStore, resources ResourceManager, retry icp.RetryPolicy, hooks HookService, logger *zap.Logger) WalletService {
	return &walletService{
		store:     store,
		resources: resources,
		retry:     retry,
		hooks:     hooks,
		validate:  validator.New(),
		logger:    logger,
		now:       time.Now,
	}
}

func (s *walletService) validateRequest(req *CreateWalletRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.CreatorPrincipal = strings.TrimSpace(req.CreatorPrincipal)
	for i, signer := range req.Signers {
		req.Signers[i] = strings.TrimSpace(signer)
	}
	if err := s.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

func (s *walletService) CreateWallet(ctx context.Context, req CreateWalletRequest) (*models.Wallet, error) {
	req.Signers = append([]string(nil), req.Signers...)
	if err := s.validateRequest(&req); err != nil {
		return nil, err
	}

	s.logger.Info("Creating wallet",
		zap.String("name", req.Name),
		zap.Int("signers", len(req.Signers)),
		zap.String("creator", req.CreatorPrincipal),
	)

	// step 1: nothing exists yet, so a failure here needs no bookkeeping
	created, err := s.resources.CreateCanister(ctx)
	if err != nil {
		s.logger.Error("Failed to create canister", zap.Error(err))
		return nil, err
	}
	canisterID := created.CanisterID

	// step 2: one local transaction, no remote calls inside
	wallet, err := s.register(ctx, canisterID, req)
	if err != nil {
		s.reportOrphan(ctx, canisterID, req, err)
		return nil, fmt.Errorf("%w: canister %s: %w", ErrOrphanedResource, canisterID, err)
	}
	s.fireHooks(ctx, models.WalletEventCreated, wallet)

	// step 3 and 4: forward-only, the canister is never rolled back
	installed, installErr := s.resources.InstallCode(ctx, canisterID, nil)
	if installErr != nil {
		return s.markFailed(ctx, canisterID, installErr)
	}
	return s.markDeployed(ctx, canisterID, installed)
}

func (s *walletService) register(ctx context.Context, canisterID string, req CreateWalletRequest) (*models.Wallet, error) {
	wallet := &models.Wallet{
		CanisterID: canisterID,
		Name:       req.Name,
		Status:     models.WalletStatusDeploying,
		Metadata:   models.JSON(req.Metadata),
		Deployment: models.DeploymentInfo{CreatedBy: req.CreatorPrincipal},
		Events: []models.WalletEvent{{
			Type:  models.WalletEventCreated,
			At:    s.now().UTC(),
			Actor: req.CreatorPrincipal,
		}},
	}
	if wallet.Metadata == nil {
		wallet.Metadata = models.JSON{}
	}
	return s.store.CreateWalletWithSigners(ctx, wallet, req.Signers)
}

func (s *walletService) markDeployed(ctx context.Context, canisterID string, installed *icp.CanisterInstallResult) (*models.Wallet, error) {
	deployedAt := s.now().UTC()
	wasmSize := installed.WasmSize
	wasmHash := installed.WasmHash

	wallet, err := s.store.TransitionStatus(ctx, canisterID, models.WalletStatusDeploying, models.WalletStatusDeployed, func(w *models.Wallet) {
		w.WasmHash = &wasmHash
		w.Deployment.DeployedAt = &deployedAt
		w.Deployment.WasmSize = &wasmSize
		w.AppendEvent(models.WalletEvent{Type: models.WalletEventDeployed, At: deployedAt, WasmHash: wasmHash})
	})
	if err != nil {
		s.logger.Error("Canister installed but wallet could not be finalized",
			zap.String("canister_id", canisterID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to finalize wallet %s: %w", canisterID, err)
	}

	s.logger.Info("Wallet deployed", zap.String("canister_id", canisterID), zap.String("wasm_hash", wasmHash))
	s.fireHooks(ctx, models.WalletEventDeployed, wallet)
	return wallet, nil
}

// markFailed records the install failure on the wallet and then returns the original error
func (s *walletService) markFailed(ctx context.Context, canisterID string, installErr error) (*models.Wallet, error) {
	failedAt := s.now().UTC()
	s.logger.Error("Failed to install code, marking wallet failed",
		zap.String("canister_id", canisterID),
		zap.Error(installErr),
	)

	wallet, err := s.store.TransitionStatus(ctx, canisterID, models.WalletStatusDeploying, models.WalletStatusFailed, func(w *models.Wallet) {
		w.Deployment.Error = installErr.Error()
		w.Deployment.FailedAt = &failedAt
		w.AppendEvent(models.WalletEvent{Type: models.WalletEventFailed, At: failedAt, Message: installErr.Error()})
	})
	if err != nil {
		s.logger.Error("Failed to record wallet failure", zap.String("canister_id", canisterID), zap.Error(err))
		return nil, errors.Join(installErr, err)
	}

	s.fireHooks(ctx, models.WalletEventFailed, wallet)
	return nil, installErr
}

func (s *walletService) reportOrphan(ctx context.Context, canisterID string, req CreateWalletRequest, cause error) {
	s.logger.Error("Canister created but wallet record could not be saved; manual cleanup required",
		zap.String("canister_id", canisterID),
		zap.String("name", req.Name),
		zap.String("creator", req.CreatorPrincipal),
		zap.Error(cause),
	)
	s.fireHooks(ctx, models.WalletEventOrphaned, &models.Wallet{
		CanisterID: canisterID,
		Name:       req.Name,
		Deployment: models.DeploymentInfo{CreatedBy: req.CreatorPrincipal, Error: cause.Error()},
	})
}

func (s *walletService) fireHooks(ctx context.Context, event models.WalletEventType, wallet *models.Wallet) {
	if s.hooks == nil {
		return
	}
	if err := s.hooks.OnWalletEvent(ctx, event, wallet); err != nil {
		s.logger.Warn("Wallet hook failed",
			zap.String("event", string(event)),
			zap.String("canister_id", wallet.CanisterID),
			zap.Error(err),
		)
	}
}

func (s *walletService) GetWallet(ctx context.Context, canisterID string) (*models.Wallet, error) {
	return s.store.FindByCanisterID(ctx, canisterID)
}

func (s *walletService) GetWalletForSigner(ctx context.Context, walletID string, principal string) (*models.Wallet, error) {
	return s.store.FindByIDForSigner(ctx, walletID, principal)
}

func (s *walletService) ListWallets(ctx context.Context) ([]models.Wallet, error) {
	return s.store.ListAll(ctx)
}

func (s *walletService) ListWalletsByPrincipal(ctx context.Context, principal string) ([]models.Wallet, error) {
	principal = strings.TrimSpace(principal)
	if principal == "" {
		return nil, fmt.Errorf("%w: principal is required", ErrValidation)
	}
	return s.store.ListByPrincipal(ctx, principal)
}

func (s *walletService) queryStatus(ctx context.Context, canisterID string) (*icp.SimplifiedCanisterStatus, error) {
	return icp.Retry(ctx, s.retry, s.logger, func(ctx context.Context) (*icp.SimplifiedCanisterStatus, error) {
		return s.resources.GetCanisterStatus(ctx, canisterID)
	})
}

func (s *walletService) DeleteWallet(ctx context.Context, canisterID string) (*models.Wallet, error) {
	wallet, err := s.store.FindByCanisterID(ctx, canisterID)
	if err != nil {
		return nil, err
	}
	if !wallet.Status.CanTransitionTo(models.WalletStatusStopped) {
		return nil, fmt.Errorf("%w: wallet %s is %s", ErrInvalidTransition, canisterID, wallet.Status)
	}

	if _, err := s.queryStatus(ctx, canisterID); err != nil {
		s.logger.Warn("Refusing to delete wallet whose canister is not confirmed live",
			zap.String("canister_id", canisterID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %s: %w", ErrResourceNotLive, canisterID, err)
	}

	if err := s.resources.DeleteCanister(ctx, canisterID); err != nil {
		return nil, err
	}

	stoppedAt := s.now().UTC()
	stopped, err := s.store.TransitionStatus(ctx, canisterID, models.WalletStatusDeployed, models.WalletStatusStopped, func(w *models.Wallet) {
		w.AppendEvent(models.WalletEvent{Type: models.WalletEventStopped, At: stoppedAt})
	})
	if err != nil {
		s.logger.Error("Canister deleted but wallet could not be marked stopped",
			zap.String("canister_id", canisterID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to mark wallet %s stopped: %w", canisterID, err)
	}

	s.logger.Info("Wallet deleted", zap.String("canister_id", canisterID))
	s.fireHooks(ctx, models.WalletEventStopped, stopped)
	return stopped, nil
}

func (s *walletService) GetWalletStatus(ctx context.Context, canisterID string) (*icp.SimplifiedCanisterStatus, error) {
	if _, err := s.store.FindByCanisterID(ctx, canisterID); err != nil {
		return nil, err
	}
	return s.queryStatus(ctx, canisterID)
}
