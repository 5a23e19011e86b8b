package handler

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/rxtech-lab/wallet-canister-backend/internal/config"
	"github.com/rxtech-lab/wallet-canister-backend/internal/server"
	"github.com/rxtech-lab/wallet-canister-backend/internal/utils"
	"go.uber.org/zap"
)

var (
	initOnce sync.Once
	app      *server.Application
	initErr  error
)

// Handler is the main Vercel function handler
func Handler(w http.ResponseWriter, r *http.Request) {
	initOnce.Do(func() {
		app, initErr = initializeApplication()
	})
	if initErr != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	adaptor.FiberApp(app.API.App())(w, r)
}

func initializeApplication() (*server.Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	// Only /tmp is writable on Vercel
	if os.Getenv("VERCEL") == "1" && cfg.Database.URL == "" {
		cfg.Database.SQLitePath = "/tmp/wallets.db"
	}

	logger, err := utils.NewLogger(cfg.App.LogLevel, cfg.IsDevelopment())
	if err != nil {
		return nil, err
	}

	application, err := server.Initialize(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", zap.Error(err))
		return nil, err
	}

	application.API.App().Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Wallet Canister Backend",
			"status":  "running",
			"version": "1.0.0",
		})
	})
	return application, nil
}
