package icp

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/aviate-labs/agent-go"
	"github.com/aviate-labs/agent-go/candid/idl"
	"github.com/aviate-labs/agent-go/principal"
	"github.com/rxtech-lab/wallet-canister-backend/internal/utils"
)

const ingressExpiry = 4 * time.Minute

// TransportConfig is what a transport factory needs to reach the replica
type TransportConfig struct {
	ReplicaURL string
	// FetchRootKey trusts the replica's own root key for certificate checks (development only)
	FetchRootKey bool
	Timeout      time.Duration
}

// HTTPTransport calls the management canister through an agent that signs CBOR envelopes with the backend identity
type HTTPTransport struct {
	agent   *agent.Agent
	client  agent.Client
	timeout time.Duration
}

func NewHTTPTransport(cfg TransportConfig, id *Identity) (*HTTPTransport, error) {
	host, err := utils.ParseEndpoint(cfg.ReplicaURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if id == nil {
		return nil, fmt.Errorf("%w: identity is required", ErrConfiguration)
	}

	a, err := agent.New(agent.Config{
		Identity:      id.Signer(),
		IngressExpiry: ingressExpiry,
		ClientConfig:  &agent.ClientConfig{Host: host},
		FetchRootKey:  cfg.FetchRootKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}

	return &HTTPTransport{
		agent:   a,
		client:  agent.NewClient(agent.ClientConfig{Host: host}),
		timeout: cfg.Timeout,
	}, nil
}

// Status fetches the replica status document, including the root key
func (t *HTTPTransport) Status(ctx context.Context) (*ReplicaStatus, error) {
	var status *agent.Status
	err := t.await(ctx, "status", func() error {
		var err error
		status, err = t.client.Status()
		return err
	})
	if err != nil {
		return nil, err
	}
	return &ReplicaStatus{
		ICAPIVersion: status.Version,
		RootKey:      status.RootKey,
	}, nil
}

type settingsArg struct {
	Controllers *[]principal.Principal `ic:"controllers,omitempty"`
}

func newSettingsArg(settings CanisterSettings) *settingsArg {
	controllers := append([]principal.Principal(nil), settings.Controllers...)
	return &settingsArg{Controllers: &controllers}
}

type canisterIDArg struct {
	CanisterID principal.Principal `ic:"canister_id"`
}

type canisterIDResult struct {
	CanisterID principal.Principal `ic:"canister_id"`
}

func (t *HTTPTransport) ProvisionalCreateCanisterWithCycles(ctx context.Context, settings CanisterSettings, amount *big.Int) (Principal, error) {
	cycles := idl.NewBigNat(amount)
	arg := struct {
		Amount   *idl.Nat     `ic:"amount,omitempty"`
		Settings *settingsArg `ic:"settings,omitempty"`
	}{
		Amount:   &cycles,
		Settings: newSettingsArg(settings),
	}

	var result canisterIDResult
	if err := t.call(ctx, "provisional_create_canister_with_cycles", arg, &result); err != nil {
		return Principal{}, err
	}
	return result.CanisterID, nil
}

func (t *HTTPTransport) CreateCanister(ctx context.Context, settings CanisterSettings) (Principal, error) {
	arg := struct {
		Settings *settingsArg `ic:"settings,omitempty"`
	}{
		Settings: newSettingsArg(settings),
	}

	var result canisterIDResult
	if err := t.call(ctx, "create_canister", arg, &result); err != nil {
		return Principal{}, err
	}
	return result.CanisterID, nil
}

type installModeArg struct {
	Install   *idl.Null `ic:"install,variant"`
	Reinstall *idl.Null `ic:"reinstall,variant"`
}

func (t *HTTPTransport) InstallCode(ctx context.Context, args InstallCodeArgs) error {
	var mode installModeArg
	switch args.Mode {
	case InstallModeInstall:
		mode.Install = new(idl.Null)
	case InstallModeReinstall:
		mode.Reinstall = new(idl.Null)
	default:
		return fmt.Errorf("install mode %q is not supported", args.Mode)
	}

	arg := struct {
		Mode       installModeArg      `ic:"mode"`
		CanisterID principal.Principal `ic:"canister_id"`
		WasmModule []byte              `ic:"wasm_module"`
		Arg        []byte              `ic:"arg"`
	}{
		Mode:       mode,
		CanisterID: args.CanisterID,
		WasmModule: args.WasmModule,
		Arg:        args.Arg,
	}
	return t.call(ctx, "install_code", arg, nil)
}

type canisterStatusResult struct {
	Status struct {
		Running  *idl.Null `ic:"running,variant"`
		Stopping *idl.Null `ic:"stopping,variant"`
		Stopped  *idl.Null `ic:"stopped,variant"`
	} `ic:"status"`
	Settings struct {
		Controllers []principal.Principal `ic:"controllers"`
	} `ic:"settings"`
	ModuleHash *[]byte `ic:"module_hash,omitempty"`
	MemorySize idl.Nat `ic:"memory_size"`
	Cycles     idl.Nat `ic:"cycles"`
}

func (r *canisterStatusResult) runStatus() CanisterRunStatus {
	switch {
	case r.Status.Running != nil:
		return CanisterRunning
	case r.Status.Stopping != nil:
		return CanisterStopping
	default:
		return CanisterStopped
	}
}

func (t *HTTPTransport) CanisterStatus(ctx context.Context, canisterID Principal) (*CanisterStatusResponse, error) {
	var result canisterStatusResult
	if err := t.call(ctx, "canister_status", canisterIDArg{CanisterID: canisterID}, &result); err != nil {
		return nil, err
	}

	response := &CanisterStatusResponse{
		Status:      result.runStatus(),
		Cycles:      result.Cycles.BigInt(),
		MemorySize:  result.MemorySize.BigInt(),
		Controllers: result.Settings.Controllers,
	}
	if result.ModuleHash != nil {
		response.ModuleHash = *result.ModuleHash
	}
	return response, nil
}

func (t *HTTPTransport) StopCanister(ctx context.Context, canisterID Principal) error {
	return t.call(ctx, "stop_canister", canisterIDArg{CanisterID: canisterID}, nil)
}

func (t *HTTPTransport) DeleteCanister(ctx context.Context, canisterID Principal) error {
	return t.call(ctx, "delete_canister", canisterIDArg{CanisterID: canisterID}, nil)
}

// call submits an update call to the management canister and polls for its reply.
// The agent routes it by the canister_id field of arg when there is one.
func (t *HTTPTransport) call(ctx context.Context, method string, arg any, out any) error {
	var values []any
	if out != nil {
		values = []any{out}
	}
	return t.await(ctx, method, func() error {
		return t.agent.Call(ManagementCanisterID, method, []any{arg}, values)
	})
}

// await runs fn until it returns, the timeout elapses or ctx is cancelled.
// The agent has no context support, so an abandoned call keeps running in the background.
func (t *HTTPTransport) await(ctx context.Context, method string, fn func() error) error {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%s: %w", method, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", method, ctx.Err())
	}
}
