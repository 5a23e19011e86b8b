package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/rxtech-lab/wallet-canister-backend/internal/api"
	"github.com/rxtech-lab/wallet-canister-backend/internal/config"
	"github.com/rxtech-lab/wallet-canister-backend/internal/hooks"
	"github.com/rxtech-lab/wallet-canister-backend/internal/icp"
	"github.com/rxtech-lab/wallet-canister-backend/internal/mcp"
	"github.com/rxtech-lab/wallet-canister-backend/internal/metrics"
	"github.com/rxtech-lab/wallet-canister-backend/internal/services"
	"github.com/rxtech-lab/wallet-canister-backend/internal/utils"
	"go.uber.org/zap"
)

// Application holds every long-lived component of the backend
type Application struct {
	Config   *config.Config
	Logger   *zap.Logger
	DB       services.DBService
	Identity *icp.IdentityProvider
	Agent    *icp.Agent
	Wasm     *icp.WasmLoader
	Canister *icp.CanisterManager
	Hooks    services.HookService
	Metrics  *metrics.Metrics
	Wallets  services.WalletService
	Health   services.HealthService
	MCP      *mcp.MCPServer
	API      *api.APIServer
}

type Option func(*options)

type options struct {
	agentOptions []icp.AgentOption
	source       icp.PayloadSource
}

// WithAgentOptions passes options through to the ICP agent
func WithAgentOptions(opts ...icp.AgentOption) Option {
	return func(o *options) {
		o.agentOptions = append(o.agentOptions, opts...)
	}
}

// WithPayloadSource overrides the wasm location from configuration
func WithPayloadSource(source icp.PayloadSource) Option {
	return func(o *options) {
		o.source = source
	}
}

// Initialize builds the application from configuration. Missing credentials and an
// unreadable wasm asset are logged, not fatal: they surface on first use and in /health.
func Initialize(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*Application, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	dbService, err := services.NewDBService(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database service: %w", err)
	}

	app := &Application{
		Config: cfg,
		Logger: logger,
		DB:     dbService,
	}

	app.Identity = icp.NewIdentityProvider(cfg.ICP.BackendPrivateKey, logger.Named("identity"))
	app.Agent = icp.NewAgent(icp.AgentConfig{
		ReplicaURL:     cfg.ICP.ReplicaURL,
		FetchRootKey:   cfg.ICP.FetchRootKey,
		RequestTimeout: cfg.ICP.RequestTimeout,
		MaxRetries:     cfg.ICP.MaxRetries,
		RetryDelay:     cfg.ICP.RetryDelay,
	}, app.Identity, logger.Named("agent"), o.agentOptions...)

	source := o.source
	if source == nil {
		source, err = icp.NewPayloadSource(ctx, cfg.ICP.CanisterWasmPath)
		if err != nil {
			_ = dbService.Close()
			return nil, fmt.Errorf("failed to configure wasm source: %w", err)
		}
	}
	app.Wasm = icp.NewWasmLoader(source, logger.Named("wasm"))
	if _, err := app.Wasm.GetSnapshot(ctx); err != nil {
		logger.Warn("Wallet wasm not preloaded; it will be retried on first deployment", zap.Error(err))
	}

	strategy := icp.NewCreationStrategy(cfg.IsDevelopment(), cfg.ICP.DefaultCanisterCycles)
	app.Canister = icp.NewCanisterManager(app.Agent, app.Wasm, strategy, logger.Named("canister"))

	app.Metrics = metrics.New()
	app.Hooks = services.NewHookService()
	if err := RegisterHooks(app.Hooks, InitializeHooks(app.Metrics, logger)...); err != nil {
		_ = dbService.Close()
		return nil, err
	}

	app.Wallets = services.NewWalletService(
		services.NewWalletStore(dbService.GetDB()),
		app.Canister,
		app.Agent.RetryPolicy(),
		app.Hooks,
		logger.Named("wallets"),
	)
	app.Health = services.NewHealthService(dbService, app.Agent, app.Wasm)

	authenticator := utils.NewJwtAuthenticator(cfg.Auth.JWKSURI,
		utils.WithHMACSecret(cfg.Auth.JWTSecret),
		utils.WithCacheTTL(cfg.Auth.JWKSCacheTTL),
	)
	app.MCP = mcp.NewMCPServer(app.Wallets, app.Identity, app.Wasm, logger.Named("mcp"),
		mcp.WithAuthenticator(authenticator),
	)
	app.API = api.NewAPIServer(cfg.App, app.Wallets, app.Health, logger.Named("api"),
		api.WithAuthenticator(authenticator),
		api.WithMetricsHandler(app.Metrics.Handler()),
		api.WithMCPHandler(app.MCP.HTTPHandler()),
	)

	logger.Info("Wallet backend initialized",
		zap.String("environment", cfg.App.NodeEnv),
		zap.String("replica", cfg.ICP.ReplicaURL),
		zap.String("creation_strategy", strategy.Name()),
		zap.String("wasm_source", source.Location()),
	)
	return app, nil
}

func InitializeHooks(m *metrics.Metrics, logger *zap.Logger) []services.Hook {
	return []services.Hook{
		hooks.NewMetricsHook(m),
		hooks.NewAuditHook(logger.Named("audit")),
	}
}

func RegisterHooks(hookService services.HookService, registered ...services.Hook) error {
	for _, hook := range registered {
		if err := hookService.AddHook(hook); err != nil {
			return fmt.Errorf("failed to register hook: %w", err)
		}
	}
	return nil
}

// Close shuts the API server down and releases the database
func (a *Application) Close() error {
	var errs []error
	if a.API != nil && a.API.GetPort() != 0 {
		errs = append(errs, a.API.Shutdown())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
