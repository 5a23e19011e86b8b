package icp

import (
	"context"
	"fmt"
	"math/big"

	"go.uber.org/zap"
)

type CanisterCreateResult struct {
	CanisterID string `json:"canister_id"`
}

type CanisterInstallResult struct {
	Success  bool   `json:"success"`
	WasmHash string `json:"wasm_hash"`
	WasmSize int    `json:"wasm_size"`
}

// SimplifiedCanisterStatus carries big numbers as decimal strings so no precision is lost in JSON
type SimplifiedCanisterStatus struct {
	Status     CanisterRunStatus `json:"status"`
	Cycles     string            `json:"cycles"`
	MemorySize string            `json:"memory_size"`
}

// CreationStrategy creates an empty canister controlled by the given settings
type CreationStrategy interface {
	Name() string
	Create(ctx context.Context, management ManagementCanister, settings CanisterSettings) (Principal, error)
}

// NewCreationStrategy picks provisional creation (cycles granted by the replica) in development
// and standard creation everywhere else, where cycles must already be provisioned.
func NewCreationStrategy(development bool, cycles *big.Int) CreationStrategy {
	if development {
		return &provisionalCreation{cycles: new(big.Int).Set(cycles)}
	}
	return &standardCreation{}
}

type provisionalCreation struct {
	cycles *big.Int
}

func (s *provisionalCreation) Name() string {
	return "provisional_create_canister_with_cycles"
}

func (s *provisionalCreation) Create(ctx context.Context, management ManagementCanister, settings CanisterSettings) (Principal, error) {
	return management.ProvisionalCreateCanisterWithCycles(ctx, settings, s.cycles)
}

type standardCreation struct{}

func (s *standardCreation) Name() string {
	return "create_canister"
}

func (s *standardCreation) Create(ctx context.Context, management ManagementCanister, settings CanisterSettings) (Principal, error) {
	return management.CreateCanister(ctx, settings)
}

// SessionProvider hands out the authenticated platform session
type SessionProvider interface {
	GetSession(ctx context.Context) (*Session, error)
}

// PayloadProvider hands out the current wasm snapshot
type PayloadProvider interface {
	GetSnapshot(ctx context.Context) (*Payload, error)
}

// CanisterManager performs the remote resource operations of the wallet lifecycle
type CanisterManager struct {
	sessions SessionProvider
	payloads PayloadProvider
	strategy CreationStrategy
	logger   *zap.Logger
}

func NewCanisterManager(sessions SessionProvider, payloads PayloadProvider, strategy CreationStrategy, logger *zap.Logger) *CanisterManager {
	return &CanisterManager{
		sessions: sessions,
		payloads: payloads,
		strategy: strategy,
		logger:   logger,
	}
}

// CreateCanister creates a canister whose sole controller is the backend principal
func (m *CanisterManager) CreateCanister(ctx context.Context) (*CanisterCreateResult, error) {
	session, err := m.sessions.GetSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResourceCreation, err)
	}

	m.logger.Info("Creating new canister",
		zap.String("strategy", m.strategy.Name()),
		zap.String("controller", session.Principal.String()),
	)

	canisterID, err := m.strategy.Create(ctx, session.Management, CanisterSettings{
		Controllers: []Principal{session.Principal},
	})
	if err != nil {
		m.logger.Error("Failed to create canister", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrResourceCreation, err)
	}

	m.logger.Info("Canister created successfully", zap.String("canister_id", canisterID.String()))
	return &CanisterCreateResult{CanisterID: canisterID.String()}, nil
}

// InstallCode installs the current wasm in install mode with the candid (text) init argument
func (m *CanisterManager) InstallCode(ctx context.Context, canisterID string, initArg *string) (*CanisterInstallResult, error) {
	target, err := ParsePrincipal(canisterID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInstallation, err)
	}
	session, err := m.sessions.GetSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInstallation, err)
	}
	payload, err := m.payloads.GetSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInstallation, err)
	}

	arg := ""
	if initArg != nil {
		arg = *initArg
	}
	encodedArg, err := EncodeTextArg(arg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInstallation, err)
	}

	m.logger.Info("Installing code on canister", zap.String("canister_id", canisterID), zap.String("wasm_hash", payload.Hash))
	err = session.Management.InstallCode(ctx, InstallCodeArgs{
		Mode:       InstallModeInstall,
		CanisterID: target,
		WasmModule: payload.Bytes,
		Arg:        encodedArg,
	})
	if err != nil {
		m.logger.Error("Failed to install code on canister", zap.String("canister_id", canisterID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrInstallation, err)
	}

	m.logger.Info("Code installed successfully", zap.String("canister_id", canisterID))
	return &CanisterInstallResult{
		Success:  true,
		WasmHash: payload.Hash,
		WasmSize: len(payload.Bytes),
	}, nil
}

// GetCanisterStatus queries the live run state, cycles balance and memory footprint
func (m *CanisterManager) GetCanisterStatus(ctx context.Context, canisterID string) (*SimplifiedCanisterStatus, error) {
	target, err := ParsePrincipal(canisterID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStatusQuery, err)
	}
	session, err := m.sessions.GetSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStatusQuery, err)
	}

	status, err := session.Management.CanisterStatus(ctx, target)
	if err != nil {
		m.logger.Error("Failed to get canister status", zap.String("canister_id", canisterID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrStatusQuery, err)
	}

	return &SimplifiedCanisterStatus{
		Status:     status.Status,
		Cycles:     status.Cycles.String(),
		MemorySize: status.MemorySize.String(),
	}, nil
}

// DeleteCanister stops the canister and then deletes it; the platform refuses to delete a running canister
func (m *CanisterManager) DeleteCanister(ctx context.Context, canisterID string) error {
	target, err := ParsePrincipal(canisterID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrResourceDeletion, err)
	}
	session, err := m.sessions.GetSession(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrResourceDeletion, err)
	}

	if err := session.Management.StopCanister(ctx, target); err != nil {
		m.logger.Error("Failed to stop canister", zap.String("canister_id", canisterID), zap.Error(err))
		return fmt.Errorf("%w: stop: %w", ErrResourceDeletion, err)
	}
	if err := session.Management.DeleteCanister(ctx, target); err != nil {
		m.logger.Error("Failed to delete canister", zap.String("canister_id", canisterID), zap.Error(err))
		return fmt.Errorf("%w: delete: %w", ErrResourceDeletion, err)
	}

	m.logger.Info("Canister deleted successfully", zap.String("canister_id", canisterID))
	return nil
}
