package icp

import (
	"context"
	"fmt"
	"math/big"
)

type InstallMode string

const (
	InstallModeInstall   InstallMode = "install"
	InstallModeReinstall InstallMode = "reinstall"
	InstallModeUpgrade   InstallMode = "upgrade"
)

// CanisterRunStatus is the run state reported by the management canister
type CanisterRunStatus string

const (
	CanisterRunning  CanisterRunStatus = "running"
	CanisterStopping CanisterRunStatus = "stopping"
	CanisterStopped  CanisterRunStatus = "stopped"
)

type CanisterSettings struct {
	Controllers []Principal
}

type InstallCodeArgs struct {
	Mode       InstallMode
	CanisterID Principal
	WasmModule []byte
	Arg        []byte
}

type CanisterStatusResponse struct {
	Status      CanisterRunStatus
	Cycles      *big.Int
	MemorySize  *big.Int
	ModuleHash  []byte
	Controllers []Principal
}

// RejectError is a call the replica accepted but the management canister rejected
type RejectError struct {
	Method  string
	Code    int
	Message string
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("%s rejected (code %d): %s", e.Method, e.Code, e.Message)
}

// ReplicaStatus is the unauthenticated status document of a replica
type ReplicaStatus struct {
	ICAPIVersion        string
	ImplVersion         string
	ReplicaHealthStatus string
	RootKey             []byte
}

// ManagementCanister is the subset of the management canister interface used to provision wallets
type ManagementCanister interface {
	ProvisionalCreateCanisterWithCycles(ctx context.Context, settings CanisterSettings, amount *big.Int) (Principal, error)
	CreateCanister(ctx context.Context, settings CanisterSettings) (Principal, error)
	InstallCode(ctx context.Context, args InstallCodeArgs) error
	CanisterStatus(ctx context.Context, canisterID Principal) (*CanisterStatusResponse, error)
	StopCanister(ctx context.Context, canisterID Principal) error
	DeleteCanister(ctx context.Context, canisterID Principal) error
}

type StatusReader interface {
	Status(ctx context.Context) (*ReplicaStatus, error)
}

// Transport is everything a session needs from the network
type Transport interface {
	ManagementCanister
	StatusReader
}
