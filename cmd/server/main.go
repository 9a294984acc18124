/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave ledger server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env file, environment, flags)
  2. Open the store (sqlite, postgres or memory)
  3. Load leave types and build the service
  4. Open the idempotency store and start the job queue
  5. Start the rollover scheduler when ROLLOVER_AUTO is set
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS (override the environment):
  -env     .env file to load (default: .env, missing is fine)
  -port    HTTP server port
  -driver  sqlite, postgres or memory
  -db      SQLite database path, ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler and the job worker
  2. Wait for active requests to complete (30s timeout)
  3. Close stores
  4. Exit

SEE ALSO:
  - config/config.go: Environment variables
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
	"path/filepath"
	"syscall"
	"time"

	"github.com/warp/leave-ledger/api"
	"github.com/warp/leave-ledger/config"
	"github.com/warp/leave-ledger/factory"
	"github.com/warp/leave-ledger/store/idempotency"
	"github.com/warp/leave-ledger/store/memory"
	"github.com/warp/leave-ledger/store/postgres"
	"github.com/warp/leave-ledger/store/sqlite"
	"github.com/warp/leave-ledger/timeoff"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	envFile := flag.String("env", ".env", "Environment file to load")
	port := flag.Int("port", 0, "HTTP server port (overrides APP_ADDR)")
	driver := flag.String("driver", "", "Store driver: sqlite, postgres or memory")
	dbPath := flag.String("db", "", "SQLite database path")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		return err
	}
	if *port != 0 {
		cfg.Addr = fmt.Sprintf(":%d", *port)
	}
	if *driver != "" {
		cfg.Driver = *driver
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize store
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer closeStore()

	types := timeoff.DefaultRegistry()
	if cfg.LeaveTypesFile != "" {
		if types, err = factory.LoadLeaveTypes(cfg.LeaveTypesFile); err != nil {
			return err
		}
	}

	svc := timeoff.NewService(store, types, cfg.DefaultAllotment)
	if cfg.DocumentsDir != "" {
		for _, dir := range []string{cfg.DocumentsDir, cfg.DocumentsInbox} {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("documents dir: %w", err)
			}
		}
		svc.Attacher = timeoff.NewFileAttacher(cfg.DocumentsDir, cfg.DocumentsInbox, store)
	}

	var idem *idempotency.Store
	if cfg.IdempotencyDB != "" {
		if err := ensureDir(cfg.IdempotencyDB); err != nil {
			return err
		}
		if idem, err = idempotency.Open(cfg.IdempotencyDB); err != nil {
			return fmt.Errorf("idempotency store: %w", err)
		}
		defer idem.Close()
	}

	jobs := api.NewJobQueue(0, 0)
	jobs.Start(ctx)

	scheduler := api.NewRolloverScheduler(svc, jobs)
	scheduler.Enabled = cfg.RolloverAuto
	scheduler.CheckInterval = cfg.RolloverCheckInterval
	scheduler.Idempotency = idem
	scheduler.IdempotencyTTL = cfg.IdempotencyTTL
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(store, svc, jobs)
	router := api.NewRouter(handler, api.RouterOptions{
		CORSOrigins: cfg.CORSOrigins,
		Idempotency: idem,
	})

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Addr, "driver", cfg.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

func openStore(ctx context.Context, cfg config.Config) (api.Store, func(), error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		s, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case config.DriverMemory:
		return memory.New(), func() {}, nil
	default:
		if cfg.DBPath != ":memory:" {
			if err := ensureDir(cfg.DBPath); err != nil {
				return nil, nil, err
			}
		}
		s, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	}
}

func ensureDir(file string) error {
	dir := filepath.Dir(file)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}
