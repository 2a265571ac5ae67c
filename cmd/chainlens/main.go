package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chainlens/internal/api"
	"chainlens/internal/archive"
	"chainlens/internal/config"
	"chainlens/internal/convert"
	"chainlens/internal/history"
	"chainlens/internal/retry"
	"chainlens/internal/rpc"
	"chainlens/internal/storage"
	"chainlens/internal/ticker"

	"github.com/joho/godotenv"
)

func main() {
	fmt.Println("🔭 Starting chainlens...")

	// 1. Load configuration
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	// 2. Configure logger
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("Configuration loaded",
		"node_url", cfg.NodeURL,
		"api_port", cfg.APIPort,
		"archive_accounts", len(cfg.ArchiveAccounts),
		"log_level", cfg.LogLevel,
	)

	// 3. Initialize database connection
	ctx := context.Background()
	repository, err := storage.NewPostgresRepository(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer repository.Close()
	slog.Info("Database connected successfully")

	// 4. Create the chain node client and the derived-analytics stack
	node := rpc.NewClient(cfg.NodeURL, &http.Client{})
	converter := convert.NewConverter(node, convert.NewCache(cfg.CacheTTL))
	replayer := history.NewReplayer(node, cfg.HistoryBatchSize)
	aggregator := ticker.NewAggregator(&http.Client{}, cfg.TickerTimeout)
	gold := ticker.NewGold(&http.Client{})

	// 5. Create archiver with retry strategy from env
	strategy := retry.NewStrategy(retry.LoadConfig())
	archiver := archive.NewArchiver(replayer, repository, strategy, 0)

	// 6. Create API server
	server := api.NewServer(cfg.APIPort, repository, node, converter, replayer, aggregator, gold)
	if err := server.Start(); err != nil {
		log.Fatalf("❌ Failed to start API server: %v", err)
	}

	// 7. Setup graceful shutdown
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Archive in the background if any accounts are configured
	errChan := make(chan error, 1)
	if len(cfg.ArchiveAccounts) > 0 {
		go func() {
			if err := archiver.Run(ctx, cfg.ArchiveAccounts, cfg.ArchiveInterval); err != nil {
				errChan <- err
			}
		}()
	}

	// Wait for interrupt or archiver error
	select {
	case <-sigChan:
		slog.Warn("Interrupt received, shutting down...")
		cancel()
	case err := <-errChan:
		slog.Error("Archiver error", "error", err)
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Error shutting down API server", "error", err)
	}

	slog.Info("chainlens stopped")
}
