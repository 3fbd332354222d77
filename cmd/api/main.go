package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"stockroom/internal/config"
	"stockroom/internal/logger"
	"stockroom/internal/server"
	"stockroom/internal/service"
	"stockroom/internal/storage"
	"stockroom/internal/storage/memory"
	"stockroom/internal/storage/relational"

	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *server.Server, logger *zap.Logger, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// The context is used to inform the server it has 30 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// Close server resources
	if err := apiServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	logger.Info("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

// openAdapter constructs the storage backend the config names. The caller
// hands the adapter to the server, which owns it from then on.
func openAdapter(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.Adapter, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		log.Info("Using in-memory storage; data will not survive a restart")
		return memory.New(), nil
	case config.BackendSQLite:
		return relational.OpenSQLite(ctx, cfg.Storage.SQLitePath, log)
	case config.BackendPostgres:
		return relational.OpenPostgres(ctx, relational.PostgresConfig{
			DSN:             cfg.Storage.Postgres.DSN(),
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		}, log)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration", zap.Error(err))
	}

	log.Info("Starting stockroom API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("backend", string(cfg.Storage.Backend)),
	)

	// Open the configured storage backend; relational adapters bootstrap
	// their schema here.
	store, err := openAdapter(context.Background(), cfg, log)
	if err != nil {
		log.Fatal("Failed to open storage backend", zap.Error(err))
	}

	// The admin password is configured in plaintext and hashed once at
	// startup.
	adminHash, err := service.HashPassword(cfg.Auth.AdminPassword)
	if err != nil {
		log.Fatal("Failed to hash admin password", zap.Error(err))
	}

	// Create server
	srv := server.NewServer(cfg, log, store, adminHash)

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(srv, log, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Fatal("HTTP server error", zap.Error(err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Info("Graceful shutdown complete")
}
