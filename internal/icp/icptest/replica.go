// Package icptest provides an in-memory replica for exercising the wallet lifecycle without a network.
package icptest

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/rxtech-lab/wallet-canister-backend/internal/icp"
)

var ErrUnreachable = errors.New("replica unreachable")

type Canister struct {
	ID          string
	Controllers []string
	Cycles      *big.Int
	Status      icp.CanisterRunStatus
	Module      []byte
	InitArg     []byte
}

// Replica implements icp.Transport in memory
type Replica struct {
	mu        sync.Mutex
	canisters map[string]*Canister
	nextID    uint64
	failures  map[string][]error
	calls     []string
	rootKey   []byte
}

func NewReplica() *Replica {
	return &Replica{
		canisters: make(map[string]*Canister),
		nextID:    1,
		failures:  make(map[string][]error),
		rootKey:   []byte("local-replica-root-key"),
	}
}

// Factory returns a transport factory that always hands out this replica
func (r *Replica) Factory() icp.TransportFactory {
	return func(icp.TransportConfig, *icp.Identity) (icp.Transport, error) {
		return r, nil
	}
}

// FailNext queues errors returned by the next calls of method, one per call
func (r *Replica) FailNext(method string, errs ...error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[method] = append(r.failures[method], errs...)
}

// Calls lists every method invoked, in order
func (r *Replica) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *Replica) CallCount(method string) int {
	count := 0
	for _, call := range r.Calls() {
		if call == method {
			count++
		}
	}
	return count
}

func (r *Replica) Canister(id string) (Canister, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.canisters[id]
	if !ok {
		return Canister{}, false
	}
	return *c, true
}

func (r *Replica) CanisterCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.canisters)
}

// record must be called with the lock held
func (r *Replica) record(method string) error {
	r.calls = append(r.calls, method)
	if queued := r.failures[method]; len(queued) > 0 {
		r.failures[method] = queued[1:]
		return queued[0]
	}
	return nil
}

func (r *Replica) Status(ctx context.Context) (*icp.ReplicaStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("status"); err != nil {
		return nil, err
	}
	return &icp.ReplicaStatus{
		ICAPIVersion:        "0.18.0",
		ReplicaHealthStatus: "healthy",
		RootKey:             r.rootKey,
	}, nil
}

func (r *Replica) ProvisionalCreateCanisterWithCycles(ctx context.Context, settings icp.CanisterSettings, amount *big.Int) (icp.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("provisional_create_canister_with_cycles"); err != nil {
		return icp.Principal{}, err
	}
	return r.create(settings, new(big.Int).Set(amount)), nil
}

func (r *Replica) CreateCanister(ctx context.Context, settings icp.CanisterSettings) (icp.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("create_canister"); err != nil {
		return icp.Principal{}, err
	}
	return r.create(settings, big.NewInt(0)), nil
}

func (r *Replica) create(settings icp.CanisterSettings, cycles *big.Int) icp.Principal {
	// canister ids are an 8 byte index followed by the opaque id class tag
	id := make([]byte, 10)
	binary.BigEndian.PutUint64(id, r.nextID)
	id[8], id[9] = 0x01, 0x01
	r.nextID++

	controllers := make([]string, 0, len(settings.Controllers))
	for _, c := range settings.Controllers {
		controllers = append(controllers, c.String())
	}

	principal := icp.Principal{Raw: id}
	r.canisters[principal.String()] = &Canister{
		ID:          principal.String(),
		Controllers: controllers,
		Cycles:      cycles,
		Status:      icp.CanisterRunning,
	}
	return principal
}

func (r *Replica) InstallCode(ctx context.Context, args icp.InstallCodeArgs) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("install_code"); err != nil {
		return err
	}
	c, err := r.lookup(args.CanisterID)
	if err != nil {
		return err
	}
	if args.Mode == icp.InstallModeInstall && c.Module != nil {
		return &icp.RejectError{Method: "install_code", Code: 5, Message: "canister already has a module installed"}
	}
	c.Module = append([]byte(nil), args.WasmModule...)
	c.InitArg = append([]byte(nil), args.Arg...)
	return nil
}

func (r *Replica) CanisterStatus(ctx context.Context, canisterID icp.Principal) (*icp.CanisterStatusResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("canister_status"); err != nil {
		return nil, err
	}
	c, err := r.lookup(canisterID)
	if err != nil {
		return nil, err
	}
	return &icp.CanisterStatusResponse{
		Status:     c.Status,
		Cycles:     new(big.Int).Set(c.Cycles),
		MemorySize: big.NewInt(int64(len(c.Module))),
	}, nil
}

func (r *Replica) StopCanister(ctx context.Context, canisterID icp.Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("stop_canister"); err != nil {
		return err
	}
	c, err := r.lookup(canisterID)
	if err != nil {
		return err
	}
	c.Status = icp.CanisterStopped
	return nil
}

func (r *Replica) DeleteCanister(ctx context.Context, canisterID icp.Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("delete_canister"); err != nil {
		return err
	}
	c, err := r.lookup(canisterID)
	if err != nil {
		return err
	}
	if c.Status != icp.CanisterStopped {
		return &icp.RejectError{Method: "delete_canister", Code: 5, Message: "canister is not stopped"}
	}
	delete(r.canisters, c.ID)
	return nil
}

func (r *Replica) lookup(canisterID icp.Principal) (*Canister, error) {
	c, ok := r.canisters[canisterID.String()]
	if !ok {
		return nil, &icp.RejectError{Method: "lookup", Code: 3, Message: fmt.Sprintf("canister %s not found", canisterID)}
	}
	return c, nil
}
