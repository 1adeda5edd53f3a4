/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the stock and sales ledger server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load environment config, apply command-line overrides
  2. Open the selected store backend
  3. Load the dataset into the engine (seed demo data if empty)
  4. Build the credentials gate when auth is enabled
  5. Configure HTTP router and start server with graceful shutdown

COMMAND-LINE FLAGS (override environment):
  -addr           HTTP listen address (APP_ADDR)
  -store          sqlite | postgres | file | memory (STORE_BACKEND)
  -db             SQLite path, PostgreSQL DSN or YAML file, per backend
  -set-password   user=password, store the login and exit

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the store
  4. Exit

EXAMPLES:
  # SQLite file (default)
  ./server -db="./data/estoque.db"

  # YAML document with backups
  STORE_BACKEND=file BACKUP_DIR=./backups ./server -db=./data/estoque.yaml

  # Replace the default admin/1234 login
  ./server -set-password admin=s3cret

SEE ALSO:
  - app/config.go: Environment variables
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/JhonneBoy/sistema-estoque-vendas/api"
	"github.com/JhonneBoy/sistema-estoque-vendas/app"
	"github.com/JhonneBoy/sistema-estoque-vendas/auth"
	"github.com/JhonneBoy/sistema-estoque-vendas/inventory"
)

type credentialWriter interface {
	PutCredential(ctx context.Context, c auth.Credential) error
}

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// Flags
	addr := flag.String("addr", cfg.AppAddr, "HTTP listen address")
	backend := flag.String("store", cfg.StoreBackend, "store backend: sqlite, postgres, file or memory")
	db := flag.String("db", "", "SQLite path, PostgreSQL DSN or data file (depends on -store)")
	setPassword := flag.String("set-password", "", "store a login as user=password and exit")
	flag.Parse()

	cfg.AppAddr = *addr
	cfg.StoreBackend = *backend
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *db != "" {
		switch cfg.StoreBackend {
		case app.BackendSQLite:
			cfg.SQLitePath = *db
		case app.BackendPostgres:
			cfg.PGDSN = *db
		case app.BackendFile:
			cfg.DataFile = *db
		}
	}

	logger := app.NewLogger(cfg)
	if err := run(cfg, logger, *setPassword); err != nil {
		logger.Error("server failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *app.Config, logger *slog.Logger, setPassword string) error {
	ctx := context.Background()

	// Initialize store
	storage, err := app.OpenStore(cfg, logger)
	if err != nil {
		return err
	}
	defer storage.Close()

	if setPassword != "" {
		return storeLogin(ctx, storage, setPassword, logger)
	}

	engine := inventory.NewEngine(storage.Store, inventory.WithLogger(logger))
	if err := engine.Load(ctx); err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	if cfg.SeedDemo {
		if _, err := engine.SeedIfEmpty(ctx); err != nil {
			logger.Warn("seeding demo data failed", slog.Any("error", err))
		}
	}

	var gate *auth.Gate
	if cfg.AuthEnabled {
		gate, err = auth.NewGate(ctx, storage.Credentials, logger)
		if err != nil {
			return err
		}
	}

	// Create router
	router := api.NewRouter(api.NewHandler(engine, logger), api.RouterOptions{
		Logger:             logger,
		Gate:               gate,
		CORSOrigins:        cfg.CORSOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	// Create server
	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			slog.String("addr", cfg.AppAddr),
			slog.String("store", cfg.StoreBackend),
			slog.Bool("auth", gate != nil))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func storeLogin(ctx context.Context, storage *app.Storage, login string, logger *slog.Logger) error {
	user, password, ok := strings.Cut(login, "=")
	user = strings.TrimSpace(user)
	if !ok || user == "" {
		return errors.New("-set-password expects user=password")
	}
	w, ok := storage.Credentials.(credentialWriter)
	if !ok {
		return errors.New("the selected store does not keep credentials")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if err := w.PutCredential(ctx, auth.Credential{User: user, PasswordHash: hash}); err != nil {
		return err
	}
	logger.Info("login stored", slog.String("user", user))
	return nil
}
