package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brojonat/solwallet/service/config"
	"github.com/brojonat/solwallet/service/db"
	"github.com/brojonat/solwallet/service/metrics"
	natspkg "github.com/brojonat/solwallet/service/nats"
	"github.com/brojonat/solwallet/service/server"
	"github.com/brojonat/solwallet/service/solana"
	"github.com/brojonat/solwallet/service/temporal"
	"github.com/brojonat/solwallet/service/wallet"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}

	// Load and validate configuration from environment
	// This fails fast if any required config is missing or invalid
	cfg := config.MustLoad()

	// Setup structured logging
	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting server",
		"addr", cfg.ServerAddr,
		"network", cfg.SolanaNetwork,
		"log_level", cfg.LogLevel,
	)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsCollector := metrics.NewMetrics(nil) // nil uses default registry

	// Initialize Solana RPC client
	// Note: For premium RPC endpoints, include API key in the URL
	endpoint, err := solana.SelectRandomEndpoint(cfg.SolanaRPCURLs)
	if err != nil {
		logger.Error("failed to select RPC endpoint", "error", err)
		os.Exit(1)
	}
	solanaClient := solana.NewClient(solana.NewRPCClient(endpoint), cfg.SolanaNetwork, metricsCollector, logger, solana.Options{
		Commitment:         rpc.CommitmentType(cfg.SolanaCommitment),
		HistoryConcurrency: cfg.RPCConcurrency,
	})
	logger.Info("initialized solana RPC client",
		"network", cfg.SolanaNetwork,
		"total_endpoints", len(cfg.SolanaRPCURLs),
	)

	// Optional activity log
	var store wallet.ActivityStore
	if cfg.DatabaseURL != "" {
		dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer dbPool.Close()

		if err := dbPool.Ping(ctx); err != nil {
			logger.Error("failed to ping database", "error", err)
			os.Exit(1)
		}
		dbStore := db.NewStore(dbPool, metricsCollector)
		if err := dbStore.EnsureSchema(ctx); err != nil {
			logger.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}
		store = dbStore
		logger.Info("connected to database")
	}

	// Optional event stream
	var publisher natspkg.Publisher
	if cfg.NATSURL != "" {
		natsPublisher, err := natspkg.NewPublisher(cfg.NATSURL, metricsCollector, logger)
		if err != nil {
			logger.Error("failed to create NATS publisher", "error", err)
			os.Exit(1)
		}
		defer natsPublisher.Close()
		publisher = natsPublisher
		logger.Info("connected to NATS", "url", cfg.NATSURL)
	}

	// Optional durable airdrops
	var airdrops temporal.AirdropStarter
	if cfg.TemporalHost != "" {
		temporalClient, err := temporal.NewClient(
			cfg.TemporalHost,
			cfg.TemporalNamespace,
			cfg.TemporalTaskQueue,
			logger,
		)
		if err != nil {
			logger.Error("failed to create temporal client", "error", err)
			os.Exit(1)
		}
		defer temporalClient.Close()
		airdrops = temporalClient
		logger.Info("connected to temporal",
			"host", cfg.TemporalHost,
			"namespace", cfg.TemporalNamespace,
		)
	}

	svc := wallet.NewService(solanaClient, store, publisher, metricsCollector, logger, wallet.Options{
		Network:         cfg.SolanaNetwork,
		ExplorerCluster: cfg.ExplorerCluster(),
		HistoryLimit:    cfg.HistoryLimit,
		AirdropMaxSOL:   cfg.AirdropMaxSOL,
		ConfirmTimeout:  cfg.ConfirmTimeout,
	})

	// Initialize HTTP server
	httpServer := server.New(cfg.ServerAddr, svc, airdrops, metricsCollector, logger)

	logger.Info("server initialized, all dependencies ready",
		"activity_log", store != nil,
		"events", publisher != nil,
		"durable_airdrops", airdrops != nil,
	)

	// Start HTTP server in background
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Start()
	}()

	// Wait for shutdown signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		// Graceful shutdown with timeout
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown server gracefully", "error", err)
			os.Exit(1)
		}

		logger.Info("server shutdown complete")
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	level, err := config.ParseLogLevel(levelStr)
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
