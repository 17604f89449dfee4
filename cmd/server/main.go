/*
main.go - HTTP server entry point

PURPOSE:
  Starts the period engine API: loads configuration, builds the zap
  logger, opens the SQLite store and serves the chi router with graceful
  shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load config (flags override file values)
  3. Build logger
  4. Initialize SQLite store
  5. Wire invoicing service, API handler and router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Config file (default: $PERIOD_ENGINE_CONFIG or ~/.config/period-engine/config.yaml)
  -port    HTTP server port
  -db      SQLite database path, ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM the server stops accepting connections, waits up to
  30s for active requests, then closes the database.

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration file
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/period-engine/api"
	"github.com/warp/period-engine/config"
	"github.com/warp/period-engine/invoicing"
	"github.com/warp/period-engine/store/sqlite"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigPath(), "Config file path")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	if err := run(*configPath, *port, *dbPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string, port int, dbPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}

	logger, err := cfg.Logging.NewLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer store.Close()

	service := invoicing.NewService(store, logger)
	router := api.NewRouter(api.NewHandler(service, logger), cfg.Server.AllowedOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("database", cfg.Database.Path))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
