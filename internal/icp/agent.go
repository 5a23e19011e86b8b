package icp

import (
	"context"
	"fmt"
	"time"

	"github.com/rxtech-lab/wallet-canister-backend/internal/utils"
	"go.uber.org/zap"
)

// Session is an authenticated channel to the replica, shared by every caller
type Session struct {
	Management ManagementCanister
	Principal  Principal
	// RootKey is only populated when the root key was bootstrapped from the replica (development)
	RootKey []byte

	status StatusReader
}

// TransportFactory builds the network transport for a session
type TransportFactory func(cfg TransportConfig, identity *Identity) (Transport, error)

func defaultTransportFactory(cfg TransportConfig, identity *Identity) (Transport, error) {
	return NewHTTPTransport(cfg, identity)
}

type AgentConfig struct {
	ReplicaURL     string
	FetchRootKey   bool
	RequestTimeout time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
}

type AgentOption func(*Agent)

func WithTransportFactory(factory TransportFactory) AgentOption {
	return func(a *Agent) {
		a.newTransport = factory
	}
}

// Agent is the remote platform client: it owns the lazily built session, health probing and retry defaults
type Agent struct {
	cfg          AgentConfig
	identity     *IdentityProvider
	newTransport TransportFactory
	session      *utils.Lazy[*Session]
	logger       *zap.Logger
}

func NewAgent(cfg AgentConfig, identity *IdentityProvider, logger *zap.Logger, opts ...AgentOption) *Agent {
	a := &Agent{
		cfg:          cfg,
		identity:     identity,
		newTransport: defaultTransportFactory,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.session = utils.NewLazy(a.initializeSession)
	return a
}

// GetSession returns the shared session, building it on first use
func (a *Agent) GetSession(ctx context.Context) (*Session, error) {
	return a.session.Get(ctx)
}

func (a *Agent) initializeSession(ctx context.Context) (*Session, error) {
	identity, err := a.identity.GetIdentity()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ICP agent: %w", err)
	}

	transport, err := a.newTransport(TransportConfig{
		ReplicaURL:   a.cfg.ReplicaURL,
		FetchRootKey: a.cfg.FetchRootKey,
		Timeout:      a.cfg.RequestTimeout,
	}, identity)
	if err != nil {
		a.logger.Error("Failed to initialize ICP agent", zap.Error(err))
		return nil, fmt.Errorf("failed to initialize ICP agent: %w", err)
	}

	session := &Session{
		Management: transport,
		Principal:  identity.Principal(),
		status:     transport,
	}

	if a.cfg.FetchRootKey {
		status, err := transport.Status(ctx)
		if err != nil {
			a.logger.Error("Failed to fetch root key", zap.String("replica", a.cfg.ReplicaURL), zap.Error(err))
			return nil, fmt.Errorf("failed to initialize ICP agent: fetch root key: %w", err)
		}
		session.RootKey = status.RootKey
		a.logger.Info("Root key fetched for local development", zap.String("replica", a.cfg.ReplicaURL))
	}

	a.logger.Info("ICP agent initialized",
		zap.String("replica", a.cfg.ReplicaURL),
		zap.String("principal", session.Principal.String()),
	)
	return session, nil
}

// IsHealthy probes the replica status endpoint; any failure reports false
func (a *Agent) IsHealthy(ctx context.Context) bool {
	session, err := a.GetSession(ctx)
	if err != nil {
		return false
	}
	if _, err := session.status.Status(ctx); err != nil {
		a.logger.Debug("ICP agent health probe failed", zap.Error(err))
		return false
	}
	return true
}

// RetryPolicy returns the configured retry defaults
func (a *Agent) RetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: a.cfg.MaxRetries,
		Delay:       a.cfg.RetryDelay,
	}
}
