package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rxtech-lab/wallet-canister-backend/internal/config"
	"github.com/rxtech-lab/wallet-canister-backend/internal/icp"
	"github.com/rxtech-lab/wallet-canister-backend/internal/server"
	"github.com/rxtech-lab/wallet-canister-backend/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "walletd",
		Short:         "Wallet canister deployment backend.",
		Long:          `Deploys and manages multi-signature wallet canisters on the Internet Computer over a REST API and MCP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), stdioCmd(), identityCmd(), versionCmd())
	return root
}

func serveCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API with the streamable MCP endpoint.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			if cmd.Flags().Changed("port") {
				cfg.App.Port = port
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := server.Initialize(ctx, cfg, logger)
			if err != nil {
				return err
			}

			startedPort, err := app.API.Start(cfg.App.Port)
			if err != nil {
				_ = app.Close()
				return fmt.Errorf("failed to start API server: %w", err)
			}
			logger.Info("Wallet backend started", zap.Int("port", startedPort), zap.String("version", Version))

			<-ctx.Done()
			logger.Info("Shutting down server...")
			if err := app.Close(); err != nil {
				logger.Error("Error shutting down", zap.Error(err))
				return err
			}
			logger.Info("Server shut down successfully")
			return nil
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides PORT)")
	return cmd
}

func stdioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stdio",
		Short: "Serve the MCP tools over stdin/stdout.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			app, err := server.Initialize(context.Background(), cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close() //nolint:errcheck

			return app.MCP.Start()
		},
	}
}

func identityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Manage the backend identity.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "generate",
		Short: "Generate a new Ed25519 identity and print it as environment variables.",
		RunE: func(cmd *cobra.Command, args []string) error {
			identity, secretHex, err := icp.GenerateIdentity()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# principal: %s\n", identity.Principal())
			fmt.Fprintf(out, "BACKEND_PRIVATE_KEY=%s\n", secretHex)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the principal and public key of the configured identity.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			provider := icp.NewIdentityProvider(cfg.ICP.BackendPrivateKey, logger)
			principal, err := provider.GetPrincipal()
			if err != nil {
				return err
			}
			publicKey, err := provider.GetPublicKey()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Principal:  %s\n", principal)
			fmt.Fprintf(out, "Public key: %s\n", publicKey)
			return nil
		},
	})
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information.",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wallet Canister Backend\n")
			fmt.Fprintf(out, "Version: %s\n", Version)
			fmt.Fprintf(out, "Commit: %s\n", CommitHash)
			fmt.Fprintf(out, "Built: %s\n", BuildTime)
		},
	}
}

func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := utils.NewLogger(cfg.App.LogLevel, cfg.IsDevelopment())
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
