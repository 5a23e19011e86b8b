package api

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rxtech-lab/wallet-canister-backend/internal/api/middleware"
	"github.com/rxtech-lab/wallet-canister-backend/internal/config"
	"github.com/rxtech-lab/wallet-canister-backend/internal/services"
	"github.com/rxtech-lab/wallet-canister-backend/internal/utils"
	"go.uber.org/zap"
)

type APIServer struct {
	app       *fiber.App
	cfg       config.AppConfig
	wallets   services.WalletService
	health    services.HealthService
	logger    *zap.Logger
	startedAt time.Time
	port      int

	authenticator *utils.JwtAuthenticator
	metrics       http.Handler
	mcp           http.Handler
}

type Option func(*APIServer)

// WithAuthenticator guards the API and MCP routes with bearer tokens
func WithAuthenticator(authenticator *utils.JwtAuthenticator) Option {
	return func(s *APIServer) {
		if authenticator != nil && authenticator.Enabled() {
			s.authenticator = authenticator
		}
	}
}

// WithMetricsHandler exposes the handler on /metrics
func WithMetricsHandler(handler http.Handler) Option {
	return func(s *APIServer) {
		s.metrics = handler
	}
}

// WithMCPHandler mounts the streamable MCP endpoint on /mcp
func WithMCPHandler(handler http.Handler) Option {
	return func(s *APIServer) {
		s.mcp = handler
	}
}

func NewAPIServer(cfg config.AppConfig, wallets services.WalletService, health services.HealthService, log *zap.Logger, opts ...Option) *APIServer {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// Add middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CorsOrigin,
	}))
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	server := &APIServer{
		app:       app,
		cfg:       cfg,
		wallets:   wallets,
		health:    health,
		logger:    log,
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(server)
	}
	server.setupRoutes()
	return server
}

func (s *APIServer) setupRoutes() {
	s.app.Get("/health", s.handleHealth)
	s.app.Get("/health/simple", s.handleSimpleHealth)
	if s.metrics != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(s.metrics))
	}

	api := s.app.Group("/" + s.cfg.APIPrefix)
	if s.authenticator != nil {
		api.Use(middleware.AuthMiddleware(middleware.AuthConfig{
			JWTAuthenticator: s.authenticator,
		}))
	}

	wallets := api.Group("/wallets")
	wallets.Post("/", s.handleCreateWallet)
	wallets.Get("/", s.handleListWallets)
	wallets.Get("/:canisterId", s.handleGetWallet)
	wallets.Delete("/:canisterId", s.handleDeleteWallet)
	wallets.Get("/:canisterId/status", s.handleGetWalletStatus)

	if s.mcp != nil {
		mcpHandler := adaptor.HTTPHandler(s.mcp)
		if s.authenticator != nil {
			s.app.All("/mcp", middleware.AuthMiddleware(middleware.AuthConfig{
				JWTAuthenticator: s.authenticator,
			}), mcpHandler)
		} else {
			s.app.All("/mcp", mcpHandler)
		}
	}
}

// App exposes the fiber app for serverless adapters and tests
func (s *APIServer) App() *fiber.App {
	return s.app
}

// Start listens on port in the background; port 0 picks a free one
func (s *APIServer) Start(port int) (int, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return 0, fmt.Errorf("failed to listen on port %d: %w", port, err)
	}
	s.port = listener.Addr().(*net.TCPAddr).Port

	go func() {
		if err := s.app.Listener(listener); err != nil {
			s.logger.Error("API server stopped", zap.Error(err))
		}
	}()

	s.logger.Info("API server listening", zap.Int("port", s.port), zap.String("prefix", "/"+s.cfg.APIPrefix))
	return s.port, nil
}

func (s *APIServer) Shutdown() error {
	return s.app.Shutdown()
}

func (s *APIServer) GetPort() int {
	return s.port
}
